package handlers_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcacrm/internal/http/handlers"
	"mcacrm/internal/services"
)

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	app, _ := newTestApp(t)
	r := call(t, app, http.MethodGet, "/api/v1/nope", nil)
	mustStatus(t, r, http.StatusNotFound)
	assert.Equal(t, "Resource not found", r.object(t)["detail"])
}

func TestUnknownPageRendersTemplate(t *testing.T) {
	app, _ := newTestApp(t)
	r := call(t, app, http.MethodGet, "/no-such-page", nil)
	mustStatus(t, r, http.StatusNotFound)
	assert.Contains(t, r.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(r.Raw), "Page not found")
}

func TestMissingRecordIs404(t *testing.T) {
	app, _ := newTestApp(t)
	r := call(t, app, http.MethodGet, "/api/v1/merchants/999", nil)
	mustStatus(t, r, http.StatusNotFound)
	assert.Equal(t, "Merchant not found", r.object(t)["detail"])
}

func TestBadPathIDIs422(t *testing.T) {
	app, _ := newTestApp(t)
	for _, p := range []string{"/api/v1/merchants/abc", "/api/v1/deals/-4", "/api/v1/payments/0"} {
		r := call(t, app, http.MethodGet, p, nil)
		mustStatus(t, r, http.StatusUnprocessableEntity)
		errs, ok := r.object(t)["errors"].([]any)
		require.True(t, ok, "errors list in %s", r.Raw)
		require.Len(t, errs, 1)
		assert.Equal(t, "type_error", errs[0].(map[string]any)["type"])
	}
}

func TestBadQueryIs400(t *testing.T) {
	app, _ := newTestApp(t)
	cases := []string{
		"/api/v1/merchants?limit=0",
		"/api/v1/merchants?skip=-1",
		"/api/v1/merchants?status=bogus",
		"/api/v1/merchants?sort_by=password",
		"/api/v1/payments?min_amount=lots",
		"/api/v1/payments/recent?days=365",
		"/api/v1/renewals/reverse",
	}
	for _, p := range cases {
		method := http.MethodGet
		if strings.HasPrefix(p, "/api/v1/renewals/reverse") {
			method = http.MethodPost
		}
		r := call(t, app, method, p, nil)
		assert.Equal(t, http.StatusBadRequest, r.Status, "%s: %s", p, r.Raw)
		assert.NotEmpty(t, r.object(t)["detail"], p)
	}
}

func TestServerErrorHidesInternals(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: password authentication failed for user crm")
	})
	app.Get("/api/v1/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream at 10.0.0.7 refused")
	})
	app.Get("/api/v1/gone", func(c *fiber.Ctx) error {
		return services.NotFound("Deal")
	})

	for path, want := range map[string]int{
		"/api/v1/boom":   http.StatusInternalServerError,
		"/api/v1/teapot": http.StatusBadGateway,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode)
		assert.JSONEq(t, `{"detail":"An unexpected error occurred"}`, string(body))
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/gone", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Deal not found"}`, string(body))
}

func TestConflictIs409(t *testing.T) {
	app, _ := newTestApp(t)
	body := map[string]any{"company_name": "Harbor Freight Lines", "fein": "12-3456789"}
	mustStatus(t, call(t, app, http.MethodPost, "/api/v1/merchants", body), http.StatusCreated)
	r := call(t, app, http.MethodPost, "/api/v1/merchants", body)
	mustStatus(t, r, http.StatusConflict)
	assert.Contains(t, r.object(t)["detail"], "12-3456789")
}
