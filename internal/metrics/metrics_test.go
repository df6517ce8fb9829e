package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/things/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/things/:id", "200"))
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/things/"+string(rune('1'+i)), nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/things/:id", "200"))
	assert.Equal(t, before+3, after)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "mcacrm_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(paymentsRecorded.WithLabelValues("ACH"))
	RecordPayment("ACH")
	assert.Equal(t, before+1, testutil.ToFloat64(paymentsRecorded.WithLabelValues("ACH")))

	beforeDeals := testutil.ToFloat64(dealsFunded.WithLabelValues("true"))
	RecordDealFunded(true)
	assert.Equal(t, beforeDeals+1, testutil.ToFloat64(dealsFunded.WithLabelValues("true")))
}

func TestLabelsSurviveBufferReuse(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/items", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUnprocessableEntity) })
	app.Post("/items", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Delete("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", Handler())

	for i := 0; i < 20; i++ {
		for _, r := range []struct{ method, path string }{
			{"POST", "/items"},
			{"GET", "/items"},
			{"DELETE", "/items/7"},
		} {
			resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil))
			require.NoError(t, err)
			resp.Body.Close()
		}
	}

	families, err := Registry.Gather()
	require.NoError(t, err)
	allowed := map[string]bool{"GET": true, "POST": true, "DELETE": true}
	for _, mf := range families {
		if mf.GetName() != "mcacrm_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "method" {
					assert.True(t, allowed[l.GetValue()], "corrupted method label %q", l.GetValue())
				}
			}
		}
	}
	assert.Equal(t, 20.0, testutil.ToFloat64(httpRequests.WithLabelValues("DELETE", "/items/:id", "404")))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
