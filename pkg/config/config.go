package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers decide the client IP. Empty trusts none.
	TrustedProxies []string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Booking       BookingConfig
	RateLimit     RateLimitConfig
	Notifications NotificationConfig
	Cache         CacheConfig
	Housekeeping  HousekeepingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig holds the booking window and slot grid policy.
type BookingConfig struct {
	SlotMinutes    int
	MinNotice      time.Duration
	MaxDaysAhead   int
	Timezone       string
	DefaultService string
}

// RateLimitConfig controls admission to the public booking endpoint.
type RateLimitConfig struct {
	Backend string
	Max     int
	Window  time.Duration
}

// NotificationConfig configures the booking event dispatcher.
type NotificationConfig struct {
	Enabled    bool
	Workers    int
	Buffer     int
	Retries    int
	RetryDelay time.Duration
	AMQPURL    string
	Exchange   string
	AdminEmail string
}

// CacheConfig governs the Redis read-through caches.
type CacheConfig struct {
	Enabled         bool
	AvailabilityTTL time.Duration
	WorkingHoursTTL time.Duration
}

// HousekeepingConfig holds cron specs for periodic maintenance.
type HousekeepingConfig struct {
	RateLimitSweep string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.TrustedProxies = splitAndTrim(v.GetString("TRUSTED_PROXIES"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		SlotMinutes:    v.GetInt("BOOKING_SLOT_MINUTES"),
		MinNotice:      parseDuration(v.GetString("BOOKING_MIN_NOTICE"), 24*time.Hour),
		MaxDaysAhead:   v.GetInt("BOOKING_MAX_DAYS_AHEAD"),
		Timezone:       v.GetString("BOOKING_TIMEZONE"),
		DefaultService: v.GetString("BOOKING_DEFAULT_SERVICE"),
	}
	if cfg.Booking.SlotMinutes <= 0 || cfg.Booking.SlotMinutes > 60 {
		cfg.Booking.SlotMinutes = 30
	}
	if cfg.Booking.MaxDaysAhead <= 0 {
		cfg.Booking.MaxDaysAhead = 30
	}

	backend := strings.ToLower(v.GetString("RATE_LIMIT_BACKEND"))
	if backend != RateLimitBackendRedis {
		backend = RateLimitBackendMemory
	}
	cfg.RateLimit = RateLimitConfig{
		Backend: backend,
		Max:     v.GetInt("RATE_LIMIT_MAX"),
		Window:  parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Hour),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:    v.GetBool("NOTIFY_ENABLED"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Buffer:     v.GetInt("NOTIFY_BUFFER"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
		AMQPURL:    v.GetString("NOTIFY_AMQP_URL"),
		Exchange:   v.GetString("NOTIFY_EXCHANGE"),
		AdminEmail: v.GetString("ADMIN_NOTIFY_EMAIL"),
	}

	cfg.Cache = CacheConfig{
		Enabled:         v.GetBool("ENABLE_CACHE"),
		AvailabilityTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 2*time.Minute),
		WorkingHoursTTL: parseDuration(v.GetString("WORKING_HOURS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Housekeeping = HousekeepingConfig{
		RateLimitSweep: v.GetString("RATE_LIMIT_SWEEP_CRON"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "elevate_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "elevate-booking-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_SLOT_MINUTES", 30)
	v.SetDefault("BOOKING_MIN_NOTICE", "24h")
	v.SetDefault("BOOKING_MAX_DAYS_AHEAD", 30)
	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("BOOKING_DEFAULT_SERVICE", "Strategy Session")

	v.SetDefault("RATE_LIMIT_BACKEND", RateLimitBackendMemory)
	v.SetDefault("RATE_LIMIT_MAX", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")

	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 64)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFY_AMQP_URL", "")
	v.SetDefault("NOTIFY_EXCHANGE", "booking.events")
	v.SetDefault("ADMIN_NOTIFY_EMAIL", "hello@elevateagency.com")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "2m")
	v.SetDefault("WORKING_HOURS_CACHE_TTL", "10m")

	v.SetDefault("RATE_LIMIT_SWEEP_CRON", "@every 10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
