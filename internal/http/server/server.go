// Package server assembles the fiber application: views, middleware and routes.
package server

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mcacrm/internal/config"
	"mcacrm/internal/http/handlers"
	applog "mcacrm/internal/log"
	"mcacrm/internal/metrics"
	"mcacrm/web"
)

// NewApp builds the application over an open database.
func NewApp(cfg config.Config, db *sqlx.DB) (*fiber.App, error) {
	deps, err := handlers.NewDeps(db, cfg)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      "mcacrm",
		Views:        views(cfg.TemplatesDir),
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(metrics.Middleware())
	app.Use(applog.Middleware())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || p == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.limit.hit", nil)
			return fiber.NewError(fiber.StatusTooManyRequests, "Rate limit exceeded, retry soon")
		},
	}))

	// ---------- Health & metrics ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", metrics.Handler())

	// ---------- Pages ----------
	guard := csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	})
	app.Get("/", guard, deps.PageHandler.Dashboard)
	app.Get("/merchants", guard, deps.PageHandler.MerchantsPage)
	app.Get("/merchants/table", guard, deps.PageHandler.MerchantsTable)

	// ---------- API ----------
	api := app.Group("/api/v1")
	registerAPI(api, deps)

	app.Use(handlers.NotFound)
	return app, nil
}

func views(dir string) fiber.Views {
	if dir != "" {
		engine := html.New(dir, ".html")
		engine.Reload(true)
		return engine
	}
	return html.NewFileSystem(http.FS(web.Templates()), ".html")
}

// registerAPI mounts the JSON routes. Literal segments are registered before
// the :id routes they would otherwise collide with.
func registerAPI(api fiber.Router, d *handlers.Deps) {
	m := d.MerchantHandler
	api.Post("/merchants", m.Create)
	api.Get("/merchants", m.List)
	api.Get("/merchants/stats/summary", m.Stats)
	api.Get("/merchants/fein/:fein", m.ByFEIN)
	api.Get("/merchants/:id", m.Get)
	api.Put("/merchants/:id", m.Update)
	api.Patch("/merchants/:id/status", m.SetStatus)
	api.Delete("/merchants/:id", m.Delete)

	p := d.PrincipalHandler
	api.Post("/principals", p.Create)
	api.Get("/principals", p.List)
	api.Get("/principals/search/by-ssn", p.SearchBySSN)
	api.Get("/principals/:id", p.Get)
	api.Get("/principals/:id/ssn", p.RevealSSN)
	api.Put("/principals/:id", p.Update)
	api.Delete("/principals/:id", p.Delete)
	api.Get("/merchants/:id/principals", p.ByMerchant)
	api.Get("/merchants/:id/principals/ownership-summary", p.OwnershipSummary)

	b := d.BankingHandler
	api.Post("/merchants/:merchant_id/banking", b.Create)
	api.Get("/merchants/:merchant_id/banking", b.List)
	api.Get("/merchants/:merchant_id/banking/:id", b.Get)
	api.Patch("/merchants/:merchant_id/banking/:id", b.Update)
	api.Delete("/merchants/:merchant_id/banking/:id", b.Delete)
	api.Post("/merchants/:merchant_id/banking/:id/set-primary", b.SetPrimary)
	api.Get("/banking/:id", b.GetByID)

	o := d.OfferHandler
	api.Post("/offers", o.Create)
	api.Get("/offers", o.List)
	api.Get("/offers/:id", o.Get)
	api.Put("/offers/:id", o.Update)
	api.Patch("/offers/:id/status/:status", o.SetStatus)
	api.Delete("/offers/:id", o.Delete)
	api.Post("/offers/:id/restore", o.Restore)
	api.Get("/merchants/:id/offers", o.ByMerchant)
	api.Get("/merchants/:id/offers/selected", o.Selected)

	dl := d.DealHandler
	api.Post("/deals", dl.Create)
	api.Get("/deals", dl.List)
	api.Get("/deals/active", dl.Active)
	api.Get("/deals/summary", dl.Summary)
	api.Get("/deals/number/:deal_number", dl.ByNumber)
	api.Get("/deals/:id", dl.Get)
	api.Put("/deals/:id", dl.Update)
	api.Patch("/deals/:id/balance", dl.Balance)
	api.Delete("/deals/:id", dl.Delete)
	api.Get("/merchants/:id/deals", dl.ByMerchant)

	pm := d.PaymentHandler
	api.Post("/payments", pm.Create)
	api.Get("/payments", pm.List)
	api.Get("/payments/recent", pm.Recent)
	api.Get("/payments/bounced", pm.Bounced)
	api.Get("/payments/stats/by-type", pm.StatsByType)
	api.Get("/payments/:id", pm.Get)
	api.Put("/payments/:id", pm.Update)
	api.Patch("/payments/:id/bounce", pm.Bounce)
	api.Delete("/payments/:id", pm.Delete)
	api.Get("/deals/:id/payments", pm.ByDeal)
	api.Get("/deals/:id/payments/summary", pm.DealSummary)

	r := d.RenewalHandler
	api.Post("/renewals/deals", r.Create)
	api.Get("/renewals/info/:id", r.GetInfo)
	api.Put("/renewals/info/:id", r.UpdateInfo)
	api.Get("/renewals/deals/:id/renewal-info", r.InfoByDeal)
	api.Get("/renewals/deals/:id/old-deals", r.OldDeals)
	api.Get("/renewals/deals/:id/summary", r.Summary)
	api.Get("/renewals/deals/:id/chain", r.Chain)
	api.Get("/renewals/deals/:id/renewed-into", r.RenewedInto)
	api.Post("/renewals/reverse", r.Reverse)
	api.Get("/renewals/merchants/:id/renewal-deals", r.MerchantDeals)
	api.Get("/renewals/relationships", r.Relationships)
}
