package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcacrm/internal/config"
)

func TestRateLimitKicksIn(t *testing.T) {
	app, _ := newTestApp(t, func(c *config.Config) { c.RateLimit = 3 })

	for i := 0; i < 3; i++ {
		mustStatus(t, call(t, app, http.MethodGet, "/api/v1/merchants", nil), http.StatusOK)
	}
	var r apiResp
	entries := captureLogs(t, func() {
		r = call(t, app, http.MethodGet, "/api/v1/merchants", nil)
	})
	mustStatus(t, r, http.StatusTooManyRequests)
	assert.Equal(t, "Rate limit exceeded, retry soon", r.object(t)["detail"])
	require.NotNil(t, findLog(entries, "rate.limit.hit"))

	// health checks bypass the limiter
	mustStatus(t, call(t, app, http.MethodGet, "/healthz", nil), http.StatusOK)
}

func TestOversizedBodyRejected(t *testing.T) {
	app, db := newTestApp(t, func(c *config.Config) { c.BodyLimit = 256 })

	big := `{"company_name":"Oversized LLC","notes":"` + strings.Repeat("x", 4096) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merchants", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err == nil {
		defer resp.Body.Close()
		_, _ = io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	}

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM merchants`))
	assert.Zero(t, n)
}
