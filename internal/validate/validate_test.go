package validate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcacrm/internal/domain"
)

func TestFormatters(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) (string, bool)
		in   string
		out  string
		ok   bool
	}{
		{"fein digits", FEIN, "123456789", "12-3456789", true},
		{"fein dashed", FEIN, "12-3456789", "12-3456789", true},
		{"fein short", FEIN, "1234", "1234", false},
		{"zip5", ZIP, "10001", "10001", true},
		{"zip9", ZIP, "100011234", "10001-1234", true},
		{"zip bad", ZIP, "1000", "1000", false},
		{"phone10", USPhone, "2125551234", "(212) 555-1234", true},
		{"phone11", USPhone, "1-212-555-1234", "(212) 555-1234", true},
		{"phone short", USPhone, "555-1234", "555-1234", false},
		{"e164 us", E164, "(212) 555-1234", "+12125551234", true},
		{"e164 intl", E164, "44 20 7946 0958 12", "+44207946095812", true},
		{"state", State, " ny ", "NY", true},
		{"territory", State, "pr", "PR", true},
		{"state bad", State, "XX", "XX", false},
		{"ssn", SSN, "123456789", "123-45-6789", true},
		{"ssn area 000", SSN, "000456789", "000-45-6789", false},
		{"ssn area 666", SSN, "666456789", "666-45-6789", false},
		{"ssn area 9xx", SSN, "912456789", "912-45-6789", false},
		{"ssn group 00", SSN, "123006789", "123-00-6789", false},
		{"ssn serial 0000", SSN, "123450000", "123-45-0000", false},
		{"email", Email, " Jane@Example.COM ", "jane@example.com", true},
		{"email double dot", Email, "jane..doe@example.com", "jane..doe@example.com", false},
		{"email no tld", Email, "jane@example", "jane@example", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := tc.fn(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.out, out)
		})
	}
}

func TestBusinessEmail(t *testing.T) {
	assert.True(t, BusinessEmail("owner@acme.com"))
	assert.False(t, BusinessEmail("owner@acme.con"))
	assert.False(t, BusinessEmail("owner@mailinator.com"))
	assert.True(t, Placeholder(" N/A "))
	assert.False(t, Placeholder("Jane Smith"))
}

type sample struct {
	Name    string           `json:"name" validate:"required,min=2,max=10,hasletter"`
	Email   string           `json:"email" validate:"omitempty,mailbox,bizemail"`
	Amount  *decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Born    *domain.Date     `json:"born" validate:"omitempty,adult"`
	On      *domain.Date     `json:"on" validate:"omitempty,notfuture"`
	Freq    string           `json:"freq" validate:"omitempty,frequency"`
	touched bool
}

func (s *sample) Normalize() {
	s.Name = Collapse(s.Name)
	s.touched = true
}

func (s *sample) Check() Errors {
	if s.Name == "nope" {
		return Errors{{Field: "name", Message: "cross-field", Type: "value_error"}}
	}
	return nil
}

func fieldTypes(t *testing.T, err error) map[string]string {
	t.Helper()
	var errs Errors
	require.ErrorAs(t, err, &errs)
	out := map[string]string{}
	for _, e := range errs {
		out[e.Field] = e.Type
	}
	return out
}

func TestBindMissingRequired(t *testing.T) {
	var s sample
	err := Bind([]byte(`{"email":"not-an-email"}`), &s)
	got := fieldTypes(t, err)
	assert.Equal(t, "missing", got["name"])
	assert.Equal(t, "missing", got["amount"])
	assert.Equal(t, "email", got["email"])
}

func TestBindTypeMismatch(t *testing.T) {
	var s sample
	err := Bind([]byte(`{"name":12}`), &s)
	got := fieldTypes(t, err)
	assert.Equal(t, "type_error", got["name"])
}

func TestBindMalformedAndEmpty(t *testing.T) {
	var s sample
	assert.Equal(t, "type_error", fieldTypes(t, Bind([]byte(`{"name":`), &s))["body"])
	assert.Equal(t, "missing", fieldTypes(t, Bind([]byte(`  `), &s))["body"])
}

func TestBindValidNormalizes(t *testing.T) {
	var s sample
	err := Bind([]byte(`{"name":"  Jo   Ann ","amount":10.5,"freq":"weekly"}`), &s)
	require.NoError(t, err)
	assert.True(t, s.touched)
	assert.Equal(t, "Jo Ann", s.Name)
	assert.True(t, s.Amount.Equal(decimal.RequireFromString("10.5")))
}

func TestDecimalAndDateRules(t *testing.T) {
	future := domain.Today().AddDays(3)
	young := domain.DateOf(time.Now().AddDate(-10, 0, 0))
	zero := decimal.Zero
	s := sample{Name: "Jo", Amount: &zero, Born: &young, On: &future, Freq: "hourly"}
	got := fieldTypes(t, Struct(&s))
	assert.Equal(t, "value_error", got["amount"])
	assert.Equal(t, "value_error", got["born"])
	assert.Equal(t, "value_error", got["on"])
	assert.Equal(t, "value_error", got["freq"])
}

func TestCheckerRuns(t *testing.T) {
	one := decimal.NewFromInt(1)
	s := sample{Name: "nope", Amount: &one}
	got := fieldTypes(t, Struct(&s))
	assert.Equal(t, "value_error", got["name"])
}
