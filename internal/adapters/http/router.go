package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/poonyc/internal/pkg/metrics"
)

// requestTimeout bounds every REST handler. A one-shot pin run may fan out
// to many geocodes, each already bounded by its own timeout.
const requestTimeout = 20 * time.Second

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

	// 240 requests per minute per IP; live clients post a fix every few seconds.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
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

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/restrooms", withTimeout(ListRestroomsHandler(deps)))
	v1.Post("/restrooms", withTimeout(CreateRestroomHandler(deps)))
	v1.Get("/restrooms/:id", withTimeout(GetRestroomHandler(deps)))
	v1.Put("/restrooms/:id/photo", withTimeout(UploadPhotoHandler(deps)))
	v1.Get("/pins", withTimeout(PinsHandler(deps)))
	v1.Get("/geocode", withTimeout(GeocodeHandler(deps)))

	v1.Post("/sessions", CreateSessionHandler(deps))
	s := v1.Group("/sessions")
	s.Get("/:id", SessionViewHandler(deps))
	s.Delete("/:id", CloseSessionHandler(deps))
	s.Post("/:id/permission", PermissionHandler(deps))
	s.Post("/:id/location", ReportLocationHandler(deps))
	s.Delete("/:id/location", LoseLocationHandler(deps))
	s.Post("/:id/select", SelectPinHandler(deps))
	s.Post("/:id/route/toggle", ToggleRouteHandler(deps))
	s.Post("/:id/region", SetRegionHandler(deps))
	s.Post("/:id/search", withTimeout(SessionSearchHandler(deps)))
	s.Post("/:id/recenter", RecenterHandler(deps))
	s.Post("/:id/reload", withTimeout(ReloadHandler(deps)))
	s.Get("/:id/visible", VisiblePinsHandler(deps))
	s.Get("/:id/nearest", NearestPinHandler(deps))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sessions/:id", SessionStreamGuard(deps), websocket.New(SessionStreamHandler(deps)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}
