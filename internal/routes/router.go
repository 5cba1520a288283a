package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emi-device-manager/internal/config"
	"emi-device-manager/internal/delivery/http/handler"
	"emi-device-manager/internal/infrastructure/database/postgres"
	"emi-device-manager/internal/middleware"
	"emi-device-manager/internal/realtime"
	"emi-device-manager/internal/usecase/activity"
	"emi-device-manager/internal/usecase/admin"
	"emi-device-manager/internal/usecase/auth"
	"emi-device-manager/internal/usecase/device"
	"emi-device-manager/internal/usecase/shop"
	"emi-device-manager/internal/usecase/stats"
	"emi-device-manager/internal/usecase/user"
)

// Services exposes the long-lived services the caller needs outside the
// HTTP surface: the auth service runs the token cleanup job and the device
// service receives MQTT telemetry.
type Services struct {
	Auth   *auth.Service
	Device *device.Service
}

// SetupRoutes wires repositories, services and handlers onto a gin engine.
func SetupRoutes(cfg *config.Config, db *postgres.DB, hub *realtime.Hub, publisher device.CommandPublisher) (*gin.Engine, *Services) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware order: request ID, logging, security headers, CORS,
	// request size limit, general rate limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(10 << 20))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	shopRepository := postgres.NewShopRepository(db)
	userRepository := postgres.NewUserRepository(db)
	deviceRepository := postgres.NewDeviceRepository(db)
	activityRepository := postgres.NewActivityRepository(db)
	refreshTokenRepository := postgres.NewRefreshTokenRepository(db)

	auditService := activity.NewService(activityRepository)
	statsService := stats.NewService(userRepository, shopRepository)

	authService := auth.NewService(userRepository, shopRepository, refreshTokenRepository, auditService, cfg)
	deviceService := device.NewService(deviceRepository, userRepository, shopRepository, statsService, auditService, publisher, hub)
	userService := user.NewService(userRepository, shopRepository, deviceRepository, statsService, auditService, deviceService)
	shopService := shop.NewService(shopRepository, auditService)
	adminService := admin.NewService(shopRepository, userRepository, deviceRepository, activityRepository, db)

	authHandler := handler.NewAuthHandler(authService)
	shopHandler := handler.NewShopHandler(shopService)
	userHandler := handler.NewUserHandler(userService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	activityHandler := handler.NewActivityHandler(auditService)
	adminHandler := handler.NewAdminHandler(adminService)
	wsHandler := handler.NewWSHandler(hub)

	v1 := router.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg, userRepository))
		{
			authHandler.RegisterProtectedRoutes(protected)
			shopHandler.RegisterRoutes(protected)
			userHandler.RegisterRoutes(protected)
			deviceHandler.RegisterRoutes(protected)
			activityHandler.RegisterRoutes(protected)
			adminHandler.RegisterRoutes(protected)
			wsHandler.RegisterRoutes(protected)
		}
	}

	return router, &Services{
		Auth:   authService,
		Device: deviceService,
	}
}
