package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later", true)
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/conflicts", timeout.NewWithContext(CheckConflictsHandler(deps), requestTimeout))
	v1.Post("/providers/:user_id/conflicts", timeout.NewWithContext(ProviderConflictsHandler(deps), requestTimeout))
	v1.Get("/coverage/:latitude/:longitude", timeout.NewWithContext(CoverageHandler(deps), requestTimeout))

	// ranges must be registered before the optional date params swallow it
	v1.Get("/appointments/:user_id/ranges/:date", timeout.NewWithContext(BufferedRangesHandler(deps), requestTimeout))
	v1.Get("/appointments/:user_id/:start_date?/:end_date?", timeout.NewWithContext(ListAppointmentsHandler(deps), requestTimeout))
	v1.Post("/appointments/:user_id", timeout.NewWithContext(CreateAppointmentHandler(deps), requestTimeout))
	v1.Put("/appointments/:id", timeout.NewWithContext(UpdateAppointmentHandler(deps), requestTimeout))
	v1.Delete("/appointments/:id", timeout.NewWithContext(CancelAppointmentHandler(deps), requestTimeout))

	v1.Put("/areas/:provider_id", timeout.NewWithContext(SetAreaHandler(deps), requestTimeout))
	v1.Get("/areas/:provider_id", timeout.NewWithContext(GetAreaHandler(deps), requestTimeout))
	v1.Delete("/areas/:provider_id", timeout.NewWithContext(DeleteAreaHandler(deps), requestTimeout))
	v1.Post("/areas/:provider_id/conflicts", timeout.NewWithContext(AreaConflictsHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
