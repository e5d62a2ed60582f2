// Package router builds the Gin engine with the full middleware chain and
// registers every endpoint the relay exposes.
package router

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"character-chat-relay/internal/api"
	"character-chat-relay/pkg/config"
	"character-chat-relay/pkg/di"
	"character-chat-relay/pkg/errors"
	"character-chat-relay/pkg/logger"
	"character-chat-relay/pkg/middleware"
	"character-chat-relay/pkg/validator"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit: rate.Limit(cfg.Security.RateLimit),
		Burst: cfg.Security.RateLimitBurst,
	})
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	// Request validation against the OpenAPI schema when one is present.
	if path := r.Config.OpenAPI.SchemaPath; path != "" {
		if _, err := os.Stat(path); err == nil {
			apiValidator, err := validator.NewOpenAPIValidator(path)
			if err != nil {
				r.Logger.Warn("failed to load OpenAPI schema, request validation disabled",
					"path", path, "error", err.Error())
			} else {
				r.Engine.Use(apiValidator.Middleware())
			}
		}
	}

	chatController := api.NewChatController(r.Container.ChatService)

	v1 := r.Engine.Group("/api/v1")
	{
		v1.GET("/health", r.healthCheckHandler())
		chatController.RegisterRoutes(v1)
	}

	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheckHandler runs the registered health checks on demand.
func (r *Router) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, body := r.Container.HealthChecker.HTTPStatus()
		c.JSON(status, body)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Origin")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
