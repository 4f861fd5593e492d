package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Pricing  PricingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SLAConfig carries per-stage dwell thresholds and the sweep cadence.
type SLAConfig struct {
	Thresholds    map[domain.TicketStage]time.Duration
	SweepInterval time.Duration
}

// PricingConfig carries delivery charge policy and price cache settings.
type PricingConfig struct {
	DefaultDeliveryCharge float64
	DeliveryChargeStep    float64
	PriceCacheTTL         time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "exchange-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			Thresholds:    loadSLAThresholds(),
			SweepInterval: time.Duration(getEnvAsInt("SLA_SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
		},
		Pricing: PricingConfig{
			DefaultDeliveryCharge: getEnvAsFloat("PRICING_DEFAULT_DELIVERY_CHARGE", 150),
			DeliveryChargeStep:    getEnvAsFloat("PRICING_DELIVERY_CHARGE_STEP", 50),
			PriceCacheTTL:         time.Duration(getEnvAsInt("PRICING_CACHE_TTL_MINUTES", 10)) * time.Minute,
		},
	}

	return cfg, nil
}

func loadSLAThresholds() map[domain.TicketStage]time.Duration {
	defaults := map[domain.TicketStage]int{
		domain.StageLodged:            24,
		domain.StageWarehousePending:  48,
		domain.StageWarehouseApproved: 72,
		domain.StageExchangeCompleted: 24,
		domain.StageInvoicingPending:  48,
		domain.StageInvoiced:          72,
		domain.StageToBeRefunded:      48,
	}
	thresholds := make(map[domain.TicketStage]time.Duration, len(defaults))
	for stage, hours := range defaults {
		key := "SLA_HOURS_" + string(stage)
		thresholds[stage] = time.Duration(getEnvAsInt(key, hours)) * time.Hour
	}
	return thresholds
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
