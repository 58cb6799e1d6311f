package main

import (
	"time"

	"saas-platform/internal/audit"
	"saas-platform/internal/cache"
	"saas-platform/internal/handler"
	"saas-platform/internal/middleware"
	"saas-platform/internal/provision"
	"saas-platform/internal/queue"
	"saas-platform/pkg/config"
	"saas-platform/pkg/database"
	"saas-platform/pkg/jwtutil"
	"saas-platform/pkg/logger"
	"saas-platform/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting saas-platform...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Shared store for caching and rate limiting. The app degrades to
	// uncached, unlimited operation when Redis is unreachable.
	var store cache.Store
	if redisStore, err := cache.NewRedisStore(&cfg.Redis); err != nil {
		log.Warn("Redis unavailable, caching and rate limiting disabled", zap.Error(err))
	} else {
		store = redisStore
		log.Info("Redis store connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Audit recorder, with optional broker publication
	publisher := queue.NewPublisher(cfg.Queue.URL)
	if publisher != nil {
		log.Info("Audit event publisher enabled")
	}
	recorder := audit.NewRecorder(database.GetDB(), publisher)

	// Tenant schema provisioner
	provisioner := provision.NewProvisioner(database.GetDB())

	handler.Initialize(recorder, provisioner)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes, rate limited aggressively by client IP
	auth := e.Group("/auth")
	auth.Use(middleware.RateLimit(store, middleware.RateLimitOptions{Limit: 10, Window: time.Minute}))
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)
	api.Use(middleware.RateLimit(store, middleware.RateLimitOptions{Limit: 100, Window: time.Minute, PerUser: true}))

	api.GET("/profile", handler.GetProfile)
	api.POST("/change-password", handler.ChangePassword)

	// User management, tenant scoped
	users := api.Group("/users")
	users.Use(middleware.TenantScope(middleware.TenantOptions{
		Isolate:        true,
		AutoFilter:     true,
		LogAccess:      true,
		CollectMetrics: true,
	}))
	users.GET("", handler.ListUsers,
		middleware.RequirePermission("read", "User"),
		middleware.Cache(store, middleware.CacheOptions{TTL: 60 * time.Second, PerTenant: true}))
	users.GET("/:id", handler.GetUser,
		middleware.RequirePermission("read", "User"),
		middleware.Cache(store, middleware.CacheOptions{TTL: 60 * time.Second, PerTenant: true}))
	users.POST("", handler.CreateUser,
		middleware.RequirePermission("create", "User"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Tenant: true}))
	users.PUT("/:id", handler.UpdateUser,
		middleware.RequirePermission("update", "User"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Tenant: true}))
	users.DELETE("/:id", handler.DeleteUser,
		middleware.RequirePermission("delete", "User"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Tenant: true}))

	// Role management
	roles := api.Group("/roles")
	roles.GET("", handler.ListRoles,
		middleware.RequirePermission("read", "Role"),
		middleware.Cache(store, middleware.CacheOptions{TTL: 5 * time.Minute}))
	roles.GET("/:id", handler.GetRole,
		middleware.RequirePermission("read", "Role"),
		middleware.Cache(store, middleware.CacheOptions{TTL: 5 * time.Minute}))
	roles.POST("", handler.CreateRole,
		middleware.RequirePermission("create", "Role"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))
	roles.PUT("/:id", handler.UpdateRole,
		middleware.RequirePermission("update", "Role"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))
	roles.PUT("/:id/permissions", handler.SetRolePermissions,
		middleware.RequirePermission("update", "Role"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))
	roles.DELETE("/:id", handler.DeleteRole,
		middleware.RequirePermission("delete", "Role"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/roles*"}}))

	// Permission management
	permissions := api.Group("/permissions")
	permissions.GET("", handler.ListPermissions,
		middleware.RequirePermission("read", "Permission"),
		middleware.Cache(store, middleware.CacheOptions{TTL: 5 * time.Minute}))
	permissions.GET("/:id", handler.GetPermission,
		middleware.RequirePermission("read", "Permission"))
	permissions.POST("", handler.CreatePermission,
		middleware.RequirePermission("create", "Permission"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/permissions*", "cache:GET:/api/roles*"}}))
	permissions.DELETE("/:id", handler.DeletePermission,
		middleware.RequirePermission("delete", "Permission"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{Patterns: []string{"cache:GET:/api/permissions*", "cache:GET:/api/roles*"}}))

	// Tenant lifecycle - platform administration, not tenant scoped
	tenants := api.Group("/tenants")
	tenants.Use(middleware.TenantScope(middleware.TenantOptions{
		AllowCrossTenant: true,
		LogAccess:        true,
	}))
	tenants.GET("", handler.ListTenants,
		middleware.RequirePermission("read", "Tenant"))
	tenants.GET("/:id", handler.GetTenant,
		middleware.RequirePermission("read", "Tenant"))
	tenants.POST("", handler.CreateTenant,
		middleware.RequirePermission("create", "Tenant"))
	tenants.DELETE("/:id", handler.DeleteTenant,
		middleware.RequirePermission("delete", "Tenant"),
		middleware.InvalidateCache(store, middleware.InvalidateOptions{TenantParam: "id"}))

	// Audit trail - read only
	auditLogs := api.Group("/audit-logs")
	auditLogs.GET("", handler.ListAuditLogs,
		middleware.RequirePermission("read", "AuditLog"))
	auditLogs.GET("/:id", handler.GetAuditLog,
		middleware.RequirePermission("read", "AuditLog"))

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
