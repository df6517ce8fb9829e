package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogCarriesRequestID(t *testing.T) {
	app, _ := newTestApp(t)
	var r apiResp
	entries := captureLogs(t, func() {
		r = call(t, app, http.MethodGet, "/api/v1/merchants", nil)
	})
	mustStatus(t, r, http.StatusOK)

	e := findLog(entries, "http.access")
	require.NotNil(t, e, "no access log in %v", entries)
	assert.Equal(t, "info", e.Level)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.Equal(t, "/api/v1/merchants", e.Path)
	assert.NotEmpty(t, e.ReqID)
	assert.Equal(t, r.Header.Get("X-Request-ID"), e.ReqID)
}

func TestAccessLogRecordsFinalStatus(t *testing.T) {
	app, _ := newTestApp(t)
	entries := captureLogs(t, func() {
		call(t, app, http.MethodGet, "/api/v1/merchants/404", nil)
	})
	e := findLog(entries, "http.access")
	require.NotNil(t, e)
	assert.Equal(t, http.StatusNotFound, e.Status)
}

func TestAuditOnStateChange(t *testing.T) {
	app, _ := newTestApp(t)
	var r apiResp
	entries := captureLogs(t, func() {
		r = call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": "Northwind Outfitters"})
	})
	mustStatus(t, r, http.StatusCreated)

	e := findLog(entries, "merchant.create")
	require.NotNil(t, e, "no audit entry in %v", entries)
	assert.Equal(t, "audit", e.Level)
	assert.EqualValues(t, id(t, r.object(t)), e.Fields["merchant_id"])
	assert.NotEmpty(t, e.ReqID)
}

func TestRejectedWriteIsNotAudited(t *testing.T) {
	app, _ := newTestApp(t)
	entries := captureLogs(t, func() {
		call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{})
	})
	assert.Nil(t, findLog(entries, "merchant.create"))
	e := findLog(entries, "request.rejected")
	require.NotNil(t, e)
	assert.Equal(t, "warn", e.Level)
}

func TestSSNAccessIsSecurityLogged(t *testing.T) {
	app, _ := newTestApp(t)
	m := call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": "Northwind Outfitters"})
	mustStatus(t, m, http.StatusCreated)
	p := call(t, app, http.MethodPost, "/api/v1/principals", map[string]any{
		"merchant_id":   id(t, m.object(t)),
		"first_name":    "Sam",
		"last_name":     "Okafor",
		"ssn":           "412-55-8821",
		"date_of_birth": "1979-09-14",
	})
	mustStatus(t, p, http.StatusCreated)

	entries := captureLogs(t, func() {
		call(t, app, http.MethodGet, "/api/v1/principals/search/by-ssn?ssn=412558821", nil)
		call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/principals/%d/ssn", id(t, p.object(t))), nil)
	})

	search := findLog(entries, "principal.ssn_search")
	require.NotNil(t, search)
	assert.Equal(t, "warn", search.Level)
	assert.EqualValues(t, 1, search.Fields["matches"])

	reveal := findLog(entries, "principal.ssn_reveal")
	require.NotNil(t, reveal)
	assert.Equal(t, "warn", reveal.Level)

	for _, e := range entries {
		for _, v := range e.Fields {
			s, _ := v.(string)
			assert.NotContains(t, s, "412-55-8821")
		}
	}
}
