package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"tasktracker/internal/adapter/http/handler"
	"tasktracker/internal/adapter/http/helper"
	"tasktracker/internal/adapter/http/middleware"
	"tasktracker/internal/core/port"
	"tasktracker/pkg/auth"
	"tasktracker/pkg/config"
	"tasktracker/pkg/response"
)

const serviceName = "tasktracker"

type HandlersConfig struct {
	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	AccountHandler *handler.AccountHandler
	TaskHandler    *handler.TaskHandler

	Tokens port.TokenService
	Cache  port.CacheRepository
}

func SetupRouter(handlers HandlersConfig, deps Dependencies, cfg *config.AppConfig) *gin.Engine {
	router := gin.New()
	deps = deps.withDefaults()
	zapLogger := deps.Logger.Logger.Logger

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(config.NewHTTPSEnforcer(zapLogger, cfg).HTTPSMiddleware())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CurrentMiddleware())
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}

	router.Use(middleware.TelemetryMiddleware(deps.Telemetry))

	var limiter *config.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = config.NewRateLimiterWithConfig(zapLogger, deps.Metrics, cfg.RateLimitConfigs)
	}

	router.GET("/health", health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := router.Group("/")
	if limiter != nil {
		public.Use(limiter.RateLimitMiddleware())
	}
	setupPublicRoutes(public, handlers)

	protected := router.Group("/")
	protected.Use(auth.GinJwtMiddleware(handlers.Tokens))
	if limiter != nil {
		protected.Use(limiter.RateLimitMiddleware())
	}
	if cfg.CacheEnabled && handlers.Cache != nil {
		cache := response.NewResponseCache(handlers.Cache, zapLogger, deps.Metrics, cacheOwner)
		for path, c := range cfg.CacheConfigs {
			cache.SetConfig(path, response.ResponseCacheConfig{TTL: c.TTL, Enabled: c.Enabled})
		}
		protected.Use(cache.CacheMiddleware())
	}
	setupProtectedRoutes(protected, handlers)

	return router
}

func setupPublicRoutes(public *gin.RouterGroup, handlers HandlersConfig) {
	if handlers.AuthHandler == nil {
		return
	}

	public.POST("/auth/register", handlers.AuthHandler.Register)
	public.POST("/auth/login", handlers.AuthHandler.Login)
	public.POST("/auth/refresh", handlers.AuthHandler.Refresh)
}

func setupProtectedRoutes(protected *gin.RouterGroup, handlers HandlersConfig) {
	if handlers.AuthHandler != nil {
		protected.POST("/auth/logout", handlers.AuthHandler.Logout)
	}

	if s := handlers.SessionHandler; s != nil {
		protected.GET("/sessions", s.ListSessions)
		protected.DELETE("/sessions/:id", s.RevokeSession)
		protected.POST("/sessions/revoke-others", s.RevokeOtherSessions)
	}

	if a := handlers.AccountHandler; a != nil {
		protected.GET("/me", a.Me)
		protected.POST("/me/deactivate", a.Deactivate)
		protected.DELETE("/me", a.Delete)
	}

	if t := handlers.TaskHandler; t != nil {
		protected.GET("/tasks", t.ListTasks)
		protected.POST("/tasks", t.CreateTask)
		protected.GET("/tasks/:uuid", t.GetTask)
		protected.PUT("/tasks/:uuid", t.UpdateTask)
		protected.DELETE("/tasks/:uuid", t.DeleteTask)
		protected.PATCH("/tasks/:uuid/complete", t.CompleteTask)
		protected.PATCH("/tasks/:uuid/incomplete", t.IncompleteTask)
	}
}

// @Summary		Liveness probe
// @Tags			health
// @Produce		json
// @Success		200	{object}	response.SuccessResponse
// @Router			/health [get]
func health(c *gin.Context) {
	helper.SendSuccess(c, http.StatusOK, gin.H{"status": "ok"})
}

func cacheOwner(c *gin.Context) (string, bool) {
	id, ok := auth.AccountID(c)
	if !ok {
		return "", false
	}

	return accountOwner(id), true
}

// SetupRouterForTests mounts every route without rate limiting, HTTPS
// redirects or response caching.
func SetupRouterForTests(handlers HandlersConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	cfg.RateLimitEnabled = false
	cfg.CacheEnabled = false
	cfg.EnforceHTTPS = false

	return SetupRouter(handlers, Dependencies{}, cfg)
}
