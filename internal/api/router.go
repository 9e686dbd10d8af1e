package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/trackai/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/trackai/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/trackai/internal/api/middleware"
)

// Dependencies are the services behind the /v1 routes.
type Dependencies struct {
	Intake    handler.IntakeService
	Clicks    handler.ClickService
	Pageviews handler.PageviewService
	Checkouts handler.CheckoutService
	Adapters  handler.AdapterRegistry

	Tenants       handler.TenantLookup
	MatchStats    handler.MatchStatsService
	DeliveryStats handler.DeliveryStatsService
	// Checks are run by /ready, keyed by dependency name.
	Checks         map[string]handler.Checker
	ClickRateLimit middleware.RateLimiterConfig
}

// Router owns the fiber app and the ingest rate limiter.
type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

// NewRouter builds the app; call Setup before Listen.
func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Track AI API",
		// Gateways sign the exact bytes they send.
		DisablePreParseMultipartForm: true,
		BodyLimit:                    1 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// Setup registers middleware and routes.
func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var checks map[string]handler.Checker
	if r.deps != nil {
		checks = r.deps.Checks
	}
	healthHandler := handler.NewHealthHandler(checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Webhooks authenticate through the gateway signature, not an API key.
	webhookHandler := handler.NewWebhookHandler(r.deps.Intake, r.deps.Adapters, r.logger)
	v1.Post("/webhooks/:gateway/:tenantId", webhookHandler.Receive)

	// Click, pageview and checkout ingest are called from landing pages, so
	// they share one limiter keyed by tenant and client IP.
	r.rateLimiter = middleware.NewRateLimiter(r.deps.ClickRateLimit)
	limit := r.rateLimiter.Handler()

	clickHandler := handler.NewClickHandler(r.deps.Clicks, r.logger)
	v1.Post("/clicks/:tenantId", limit, clickHandler.Ingest)

	pageviewHandler := handler.NewPageviewHandler(r.deps.Pageviews, r.deps.Checkouts, r.logger)
	v1.Post("/pageviews/:tenantId", limit, pageviewHandler.Pageview)
	v1.Post("/checkouts/:tenantId", limit, pageviewHandler.Checkout)

	statsHandler := handler.NewStatsHandler(r.deps.Tenants, r.deps.MatchStats, r.deps.DeliveryStats)
	v1.Get("/stats/:tenantId", statsHandler.Get)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops the rate limiter and drains the server.
func (r *Router) Shutdown() error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
