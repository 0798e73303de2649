package bootstrap

import (
	"strings"

	"insight_server/adapter/in/http"
	"insight_server/config"
	"insight_server/infra/middleware"
	"insight_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func NewAPI(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		// go-json for all request and response bodies
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Posted batches can be large
		BodyLimit: 20 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())       // 1. Panic recovery
	app.Use(middleware.RequestID())     // 2. Request ID
	app.Use(middleware.RequestLogger()) // 3. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health check
	http.NewHealthHandler(deps.HealthChecks).Register(app)

	api := app.Group("/api/v1")

	http.NewInsightHandler(deps.InsightService).Register(api)
	http.NewSettingsHandler(deps.InsightService).Register(api)

	logger.Info("API routes registered")
	return app
}
