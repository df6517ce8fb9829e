package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"mcacrm/internal/domain"
)

// FieldError describes one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Errors is returned for any payload that fails decoding or validation.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Normalizer is implemented by payloads that canonicalise fields before validation.
type Normalizer interface {
	Normalize()
}

// Checker is implemented by payloads with cross-field rules.
type Checker interface {
	Check() Errors
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	val.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d := f.Interface().(decimal.Decimal)
		fl, _ := d.Float64()
		return fl
	}, decimal.Decimal{})
	val.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(domain.Date).Time
	}, domain.Date{})
	val.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(domain.Instant).Time
	}, domain.Instant{})

	strRule := func(fn func(string) bool) validator.Func {
		return func(fl validator.FieldLevel) bool { return fn(fl.Field().String()) }
	}
	okRule := func(fn func(string) (string, bool)) validator.Func {
		return strRule(func(s string) bool { _, ok := fn(s); return ok })
	}
	enum := func(values []string) validator.Func {
		set := make(map[string]bool, len(values))
		for _, s := range values {
			set[s] = true
		}
		return strRule(func(s string) bool { return set[s] })
	}
	rules := map[string]validator.Func{
		"usstate":        okRule(State),
		"zipcode":        okRule(ZIP),
		"fein":           strRule(reFEIN.MatchString),
		"usphone":        strRule(reUSPhone.MatchString),
		"e164phone":      strRule(reE164.MatchString),
		"taxssn":         okRule(SSN),
		"mailbox":        okRule(Email),
		"bizemail":       strRule(BusinessEmail),
		"personname":     strRule(PersonName),
		"hasletter":      strRule(HasLetter),
		"notplaceholder": strRule(func(s string) bool { return !Placeholder(s) }),
		"routing":        strRule(RoutingNumber),
		"lastfour":       strRule(LastFour),
		"entitytype":     enum(domain.EntityTypes),
		"merchantstatus": enum(domain.MerchantStatuses),
		"offerstatus":    enum(domain.OfferStatuses),
		"dealstatus":     enum(domain.DealStatuses),
		"frequency":      enum(domain.PaymentFrequencies),
		"paymenttype":    enum(domain.PaymentTypes),
		"accounttype":    enum([]string{domain.AccountChecking, domain.AccountSavings}),
		"notfuture":      timeRule(func(t time.Time) bool { return !t.After(time.Now().UTC()) }),
		"since2000":      timeRule(func(t time.Time) bool { return !t.Before(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) }),
		"adult": timeRule(func(t time.Time) bool {
			age := domain.DateOf(t).YearsBetween(domain.Today())
			return age >= 18 && age <= 120
		}),
	}
	for tag, fn := range rules {
		if err := val.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validate: register %s: %v", tag, err))
		}
	}
	return val
}

func timeRule(fn func(time.Time) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && fn(t)
	}
}

// Struct normalises s when it knows how, then checks tags and cross-field rules.
func Struct(s any) error {
	if n, ok := s.(Normalizer); ok {
		n.Normalize()
	}
	var out Errors
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			out = append(out, translate(fe))
		}
	}
	if c, ok := s.(Checker); ok {
		out = append(out, c.Check()...)
	}
	if len(out) > 0 {
		return out
	}
	return nil
}

// Bind decodes a JSON body into dst and validates it.
func Bind(body []byte, dst any) error {
	if err := Decode(body, dst); err != nil {
		return err
	}
	return Struct(dst)
}

// Decode maps JSON decoding failures onto field errors.
func Decode(body []byte, dst any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Errors{{Field: "body", Message: "Request body is required", Type: "missing"}}
	}
	err := json.Unmarshal(body, dst)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	var synErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return Errors{{Field: field, Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value), Type: "type_error"}}
	case errors.As(err, &synErr):
		return Errors{{Field: "body", Message: "Malformed JSON: " + synErr.Error(), Type: "type_error"}}
	default:
		return Errors{{Field: "body", Message: err.Error(), Type: "value_error"}}
	}
}

var messages = map[string]string{
	"usstate":        "Invalid state code",
	"zipcode":        "ZIP code must be 5 or 9 digits",
	"fein":           "FEIN must be 9 digits",
	"usphone":        "Phone number must be 10 digits",
	"e164phone":      "Phone number must have 10 to 15 digits",
	"taxssn":         "Invalid SSN",
	"mailbox":        "value is not a valid email address",
	"email":          "value is not a valid email address",
	"bizemail":       "Email domain is not accepted",
	"personname":     "Name contains invalid characters",
	"hasletter":      "Must contain at least one letter",
	"notplaceholder": "Please provide a real name",
	"routing":        "Routing number must be 9 digits",
	"lastfour":       "Account number must be the last 4 digits",
	"entitytype":     "Entity type must be one of: " + strings.Join(domain.EntityTypes, ", "),
	"merchantstatus": "Status must be one of: " + strings.Join(domain.MerchantStatuses, ", "),
	"offerstatus":    "Status must be one of: " + strings.Join(domain.OfferStatuses, ", "),
	"dealstatus":     "Status must be one of: " + strings.Join(domain.DealStatuses, ", "),
	"frequency":      "Payment frequency must be one of: " + strings.Join(domain.PaymentFrequencies, ", "),
	"paymenttype":    "Payment type must be one of: " + strings.Join(domain.PaymentTypes, ", "),
	"accounttype":    "Account type must be checking or savings",
	"notfuture":      "Date cannot be in the future",
	"since2000":      "Date cannot be before 2000-01-01",
	"adult":          "Age must be between 18 and 120",
}

func translate(fe validator.FieldError) FieldError {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
		// drop the root struct name, keep nested paths like old_deals[0].transfer_balance
		field = ns[strings.Index(ns, ".")+1:]
	}
	out := FieldError{Field: field, Type: "value_error"}
	switch fe.Tag() {
	case "required":
		out.Message, out.Type = "Field required", "missing"
	case "email", "mailbox":
		out.Message, out.Type = messages[fe.Tag()], "email"
	case "min", "max", "len":
		out.Message = boundMessage(fe)
	case "gt":
		out.Message = "ensure this value is greater than " + fe.Param()
	case "gte":
		out.Message = "ensure this value is greater than or equal to " + fe.Param()
	case "lt":
		out.Message = "ensure this value is less than " + fe.Param()
	case "lte":
		out.Message = "ensure this value is less than or equal to " + fe.Param()
	case "unique":
		out.Message = "items must be unique"
	default:
		if m, ok := messages[fe.Tag()]; ok {
			out.Message = m
		} else {
			out.Message = "failed " + fe.Tag() + " rule"
		}
	}
	return out
}

func boundMessage(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		switch fe.Tag() {
		case "min":
			return "ensure this value has at least " + fe.Param() + " characters"
		case "max":
			return "ensure this value has at most " + fe.Param() + " characters"
		default:
			return "ensure this value has exactly " + fe.Param() + " characters"
		}
	}
	if fe.Kind() == reflect.Slice {
		if fe.Tag() == "max" {
			return "ensure this list has at most " + fe.Param() + " items"
		}
		return "ensure this list has at least " + fe.Param() + " items"
	}
	return "ensure this value is within " + fe.Param()
}
