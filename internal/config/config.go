package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMongo    = "mongo"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                   string
	AppEnv                    string
	AppPort                   string
	StoreDriver               string
	DatabaseURL               string
	MongoURI                  string
	MongoDatabase             string
	RedisURL                  string
	NATSURL                   string
	RealtimeChannel           string
	JWTSecret                 string
	TeacherCacheTTL           time.Duration
	EnforceValidation         bool
	MutationRateLimit         int
	MutationRateLimitInterval time.Duration
	SeedEnabled               bool
	SeedToken                 string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Teaching API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("mongo.database", "gema")
	v.SetDefault("realtime.channel", "gema:teaching")
	v.SetDefault("teacher.cache_ttl", "10m")
	v.SetDefault("teaching.enforce_validation", true)
	v.SetDefault("mutation.rate_limit", 30)
	v.SetDefault("mutation.rate_limit_interval", "1m")
	v.SetDefault("seed.enabled", false)

	teacherTTL, err := parseDuration(v.GetString("teacher.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid teacher cache ttl: %w", err)
	}

	rateInterval, err := parseDuration(v.GetString("mutation.rate_limit_interval"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid mutation rate limit interval: %w", err)
	}

	cfg := Config{
		AppName:                   v.GetString("app.name"),
		AppEnv:                    v.GetString("app.env"),
		AppPort:                   v.GetString("app.port"),
		StoreDriver:               strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		DatabaseURL:               v.GetString("database.url"),
		MongoURI:                  v.GetString("mongo.uri"),
		MongoDatabase:             v.GetString("mongo.database"),
		RedisURL:                  v.GetString("redis.url"),
		NATSURL:                   v.GetString("nats.url"),
		RealtimeChannel:           v.GetString("realtime.channel"),
		JWTSecret:                 v.GetString("jwt.secret"),
		TeacherCacheTTL:           teacherTTL,
		EnforceValidation:         v.GetBool("teaching.enforce_validation"),
		MutationRateLimit:         v.GetInt("mutation.rate_limit"),
		MutationRateLimitInterval: rateInterval,
		SeedEnabled:               v.GetBool("seed.enabled"),
		SeedToken:                 v.GetString("seed.token"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for %s store", cfg.StoreDriver)
		}
	case StoreDriverMongo:
		if cfg.MongoURI == "" || cfg.MongoDatabase == "" {
			return Config{}, fmt.Errorf("mongo uri and database must be provided for mongo store")
		}
	default:
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.SeedEnabled && strings.TrimSpace(cfg.SeedToken) == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	if cfg.MutationRateLimit <= 0 {
		cfg.MutationRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
