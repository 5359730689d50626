package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/elevate-booking-api/internal/handler"
	"github.com/noah-isme/elevate-booking-api/internal/middleware"
	"github.com/noah-isme/elevate-booking-api/internal/models"
	"github.com/noah-isme/elevate-booking-api/internal/service"
	"github.com/noah-isme/elevate-booking-api/pkg/config"
	"github.com/noah-isme/elevate-booking-api/pkg/logger"
	"github.com/noah-isme/elevate-booking-api/pkg/middleware/cors"
	"github.com/noah-isme/elevate-booking-api/pkg/middleware/requestid"
	"github.com/noah-isme/elevate-booking-api/pkg/ratelimit"
)

// routes groups everything the router needs.
type routes struct {
	availability *handler.AvailabilityHandler
	bookings     *handler.BookingHandler
	schedule     *handler.ScheduleHandler
	auth         *handler.AuthHandler
	users        *handler.UserHandler
	ops          *handler.MetricsHandler

	tokens  *service.AuthService
	limiter ratelimit.Limiter
	metrics *service.MetricsService
}

func newRouter(cfg *config.Config, r routes, logr *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	// Rate limiting keys on ClientIP, so forwarding headers only count from known proxies.
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}
	engine.Use(gin.Recovery())
	engine.Use(requestid.Middleware())
	engine.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	engine.Use(cors.New(cfg.CORS.AllowedOrigins))
	if r.metrics != nil {
		engine.Use(middleware.Metrics(r.metrics, "/metrics"))
	}

	engine.GET("/health", r.ops.Health)
	engine.GET("/ready", r.ops.Ready)
	engine.GET("/metrics", r.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.GET("/availability", r.availability.Get)
	api.GET("/availability/blocked-dates", r.availability.BlockedDates)
	api.GET("/availability/working-days", r.availability.WorkingDays)
	api.POST("/bookings", middleware.RateLimit(r.limiter, r.metrics, logr), r.bookings.Create)
	api.POST("/auth/login", r.auth.Login)
	api.GET("/auth/me", middleware.JWT(r.tokens), r.auth.Me)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(r.tokens), middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/bookings", r.bookings.List)
	admin.GET("/bookings/export", r.bookings.Export)
	admin.GET("/bookings/:id", r.bookings.Get)
	admin.PATCH("/bookings/:id", r.bookings.Update)
	admin.DELETE("/bookings/:id", r.bookings.Delete)

	admin.GET("/working-hours", r.schedule.WorkingHours)
	admin.PUT("/working-hours", r.schedule.ReplaceWorkingHours)

	admin.GET("/blocked-dates", r.schedule.BlockedDates)
	admin.POST("/blocked-dates", r.schedule.CreateBlockedDate)
	admin.DELETE("/blocked-dates/:id", r.schedule.DeleteBlockedDate)

	admin.GET("/blocked-slots", r.schedule.BlockedSlots)
	admin.POST("/blocked-slots", r.schedule.CreateBlockedSlot)
	admin.DELETE("/blocked-slots/:id", r.schedule.DeleteBlockedSlot)

	admin.GET("/users", r.users.List)
	admin.POST("/users", r.users.Create)
	admin.PATCH("/users/:id/role", r.users.UpdateRole)

	return engine, nil
}
