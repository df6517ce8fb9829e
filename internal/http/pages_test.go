package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)
	r := call(t, app, http.MethodGet, "/healthz", nil)
	mustStatus(t, r, http.StatusOK)
	assert.JSONEq(t, `{"ok":true}`, string(r.Raw))
}

func TestDashboardPage(t *testing.T) {
	app, _ := newTestApp(t)
	mustStatus(t, call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": "Acme Bakery"}), http.StatusCreated)

	r := call(t, app, http.MethodGet, "/", nil)
	mustStatus(t, r, http.StatusOK)
	page := string(r.Raw)
	assert.Contains(t, page, "<h1>Dashboard</h1>")
	assert.Contains(t, page, "MCA CRM")
	assert.Contains(t, page, `name="csrf-token"`)

	var csrfCookie bool
	for _, c := range r.Header.Values("Set-Cookie") {
		if strings.HasPrefix(c, "csrf_=") {
			csrfCookie = true
		}
	}
	assert.True(t, csrfCookie, "csrf cookie not set: %v", r.Header.Values("Set-Cookie"))
	assert.NotEmpty(t, r.Header.Get("X-Frame-Options"))
}

func TestMerchantTableFilters(t *testing.T) {
	app, _ := newTestApp(t)
	for _, name := range []string{"Acme Bakery", "Zephyr Auto Body"} {
		mustStatus(t, call(t, app, http.MethodPost, "/api/v1/merchants", map[string]any{"company_name": name}), http.StatusCreated)
	}

	full := call(t, app, http.MethodGet, "/merchants", nil)
	mustStatus(t, full, http.StatusOK)
	assert.Contains(t, string(full.Raw), "Acme Bakery")
	assert.Contains(t, string(full.Raw), "Zephyr Auto Body")

	part := call(t, app, http.MethodGet, "/merchants/table?search=acme", nil)
	mustStatus(t, part, http.StatusOK)
	assert.Contains(t, string(part.Raw), "Acme Bakery")
	assert.NotContains(t, string(part.Raw), "Zephyr")
	assert.NotContains(t, string(part.Raw), "<html")

	none := call(t, app, http.MethodGet, "/merchants/table?status=funded", nil)
	mustStatus(t, none, http.StatusOK)
	assert.Contains(t, string(none.Raw), "No merchants match.")
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	mustStatus(t, call(t, app, http.MethodGet, "/api/v1/merchants", nil), http.StatusOK)

	r := call(t, app, http.MethodGet, "/metrics", nil)
	mustStatus(t, r, http.StatusOK)
	body := string(r.Raw)
	require.Contains(t, body, "mcacrm_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/merchants"`)
}
