package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/elevate-booking-api/api/swagger"
	"github.com/noah-isme/elevate-booking-api/internal/handler"
	"github.com/noah-isme/elevate-booking-api/internal/repository"
	"github.com/noah-isme/elevate-booking-api/internal/service"
	"github.com/noah-isme/elevate-booking-api/pkg/cache"
	"github.com/noah-isme/elevate-booking-api/pkg/config"
	"github.com/noah-isme/elevate-booking-api/pkg/database"
	"github.com/noah-isme/elevate-booking-api/pkg/export"
	"github.com/noah-isme/elevate-booking-api/pkg/jobs"
	"github.com/noah-isme/elevate-booking-api/pkg/logger"
	"github.com/noah-isme/elevate-booking-api/pkg/mq"
	"github.com/noah-isme/elevate-booking-api/pkg/ratelimit"
)

// @title Elevate Booking API
// @version 1.0.0
// @description Consultation booking scheduler with availability, booking ledger and admin desk.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("redis not configured; caching disabled and rate limiting kept in memory")
	case err != nil:
		logr.Warn("redis unavailable; caching disabled and rate limiting kept in memory", zap.Error(err))
	default:
		defer redisClient.Close()
	}

	app, err := build(cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to assemble services", zap.Error(err))
	}

	app.notifications.Start(ctx)
	app.scheduler.Start()

	router, err := newRouter(cfg, app.routes, logr)
	if err != nil {
		logr.Fatal("failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	app.scheduler.Stop(shutdownCtx)
	app.notifications.Stop()
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			logr.Warn("failed to close broker publisher", zap.Error(err))
		}
	}
}

type application struct {
	routes        routes
	notifications *service.NotificationService
	scheduler     *jobs.Scheduler
	publisher     *mq.Publisher
}

// build wires repositories, services and handlers. redisClient may be nil.
func build(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()
	clock := service.SystemClock{}

	policy, err := service.NewBookingPolicy(cfg.Booking, clock)
	if err != nil {
		return nil, err
	}

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.AvailabilityTTL, logr, cfg.Cache.Enabled)
	}

	bookingRepo := repository.NewBookingRepository(db)
	hoursRepo := repository.NewWorkingHoursRepository(db)
	blockedDateRepo := repository.NewBlockedDateRepository(db)
	blockedSlotRepo := repository.NewBlockedSlotRepository(db)
	userRepo := repository.NewUserRepository(db)

	scheduleSvc := service.NewScheduleConfigService(hoursRepo, blockedDateRepo, blockedSlotRepo, policy, cacheSvc, cfg.Cache.WorkingHoursTTL, validate, logr)
	availabilitySvc := service.NewAvailabilityService(bookingRepo, scheduleSvc, policy, cacheSvc, cfg.Cache.AvailabilityTTL, metrics, logr)

	sinks := []service.NotificationSink{service.NewLogSink(logr)}
	var publisher *mq.Publisher
	if cfg.Notifications.AMQPURL != "" {
		publisher, err = mq.NewPublisher(cfg.Notifications.AMQPURL, cfg.Notifications.Exchange)
		if err != nil {
			logr.Warn("broker unavailable; booking events go to the log only", zap.Error(err))
		} else {
			sinks = append(sinks, service.NewBrokerSink(publisher))
		}
	}
	notifications := service.NewNotificationService(cfg.Notifications, sinks, metrics, logr)

	bookingSvc := service.NewBookingService(service.BookingServiceConfig{
		Repository:   bookingRepo,
		Gate:         availabilitySvc,
		BlockedSlots: scheduleSvc,
		Notifier:     notifications,
		Exporters: map[string]service.TableRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		Metrics:        metrics,
		Validator:      validate,
		Logger:         logr,
		Clock:          clock,
		DefaultService: cfg.Booking.DefaultService,
	})

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	policyLimit := ratelimit.Policy{Max: cfg.RateLimit.Max, Window: cfg.RateLimit.Window}
	scheduler := jobs.NewScheduler(logr)
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis && redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, policyLimit, "booking:ratelimit:")
	} else {
		memory := ratelimit.NewMemoryLimiter(policyLimit, time.Now)
		limiter = memory
		if cfg.Housekeeping.RateLimitSweep != "" {
			if err := scheduler.Register(cfg.Housekeeping.RateLimitSweep, "ratelimit-sweep", func(ctx context.Context) error {
				if removed := memory.Sweep(ctx); removed > 0 {
					logr.Debug("expired rate limit windows removed", zap.Int("count", removed))
				}
				return nil
			}); err != nil {
				return nil, err
			}
		}
	}

	return &application{
		routes: routes{
			availability: handler.NewAvailabilityHandler(availabilitySvc, scheduleSvc),
			bookings:     handler.NewBookingHandler(bookingSvc),
			schedule:     handler.NewScheduleHandler(scheduleSvc),
			auth:         handler.NewAuthHandler(authSvc),
			users:        handler.NewUserHandler(userSvc),
			ops:          handler.NewMetricsHandler(metrics, db),
			tokens:       authSvc,
			limiter:      limiter,
			metrics:      metrics,
		},
		notifications: notifications,
		scheduler:     scheduler,
		publisher:     publisher,
	}, nil
}
