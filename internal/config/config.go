package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret   = "change-me-jwt-secret"
	defaultVNPaySecret = "change-me-vnpay-secret"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	AppPort  string `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	Timezone       string        `mapstructure:"TIMEZONE"`
	PaymentTimeout time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	PaymentHoldTTL time.Duration `mapstructure:"PAYMENT_HOLD_TTL"`
	ExpiryInterval time.Duration `mapstructure:"EXPIRY_INTERVAL"`

	// LockBackend is one of auto, postgres, redis, memory.
	LockBackend   string        `mapstructure:"LOCK_BACKEND"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`

	VNPayTmnCode    string        `mapstructure:"VNPAY_TMN_CODE"`
	VNPayHashSecret string        `mapstructure:"VNPAY_HASH_SECRET"`
	VNPayURL        string        `mapstructure:"VNPAY_URL"`
	VNPayReturnURL  string        `mapstructure:"VNPAY_RETURN_URL"`
	VNPayExpireTTL  time.Duration `mapstructure:"VNPAY_EXPIRE_TTL"`

	CORSOrigins    string  `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "file:fieldbooking.db?_pragma=busy_timeout(5000)")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "15m")
	v.SetDefault("TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_HOLD_TTL", "15m")
	v.SetDefault("EXPIRY_INTERVAL", "1m")
	v.SetDefault("LOCK_BACKEND", "auto")
	v.SetDefault("LOCK_TTL", "30s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("VNPAY_TMN_CODE", "")
	v.SetDefault("VNPAY_HASH_SECRET", defaultVNPaySecret)
	v.SetDefault("VNPAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("VNPAY_RETURN_URL", "http://localhost:8080/api/v1/payments/vnpay/return")
	v.SetDefault("VNPAY_EXPIRE_TTL", "15m")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.LockBackend = strings.ToLower(strings.TrimSpace(cfg.LockBackend))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c *Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	var errs []error
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT must be > 0"))
	}
	if cfg.PaymentHoldTTL <= 0 {
		errs = append(errs, errors.New("PAYMENT_HOLD_TTL must be > 0"))
	}
	if cfg.ExpiryInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_INTERVAL must be > 0"))
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	switch cfg.LockBackend {
	case "auto", "postgres", "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for LOCK_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_BACKEND %q is not supported", cfg.LockBackend))
	}
	if cfg.LockBackend == "postgres" && !cfg.IsPostgres() {
		errs = append(errs, errors.New("LOCK_BACKEND=postgres requires a postgres DATABASE_URL"))
	}

	if isProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must not use the default value in production"))
		}
		if cfg.VNPayHashSecret == defaultVNPaySecret || cfg.VNPayTmnCode == "" {
			errs = append(errs, errors.New("VNPAY_TMN_CODE and VNPAY_HASH_SECRET must be configured in production"))
		}
		if cfg.LockBackend == "memory" {
			errs = append(errs, errors.New("LOCK_BACKEND=memory is single-instance only and not allowed in production"))
		}
	}
	return errors.Join(errs...)
}

func isProdLike(env string) bool {
	switch env {
	case "prod", "production", "staging":
		return true
	}
	return false
}
