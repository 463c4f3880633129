package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL       string `env:"DATABASE_URL,required,notEmpty"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET,required,notEmpty"`
	StripeSecretKey   string `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	// Not required at boot: the webhook endpoint reports a missing secret per request.
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Port                int    `env:"PORT" envDefault:"8080"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv              string `env:"APP_ENV" envDefault:"production"`

	GuestSessionTTL   time.Duration `env:"GUEST_SESSION_TTL" envDefault:"168h"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	CleanupSampleRate float64       `env:"CLEANUP_SAMPLE_RATE" envDefault:"0.02"`

	SyncRatePerMinute int `env:"SYNC_RATE_PER_MINUTE" envDefault:"6"`
	SyncBurst         int `env:"SYNC_BURST" envDefault:"3"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads the process environment. A .env file in the working directory,
// if present, fills in variables that are not already set.
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.CleanupSampleRate < 0 || cfg.CleanupSampleRate > 1 {
		return nil, fmt.Errorf("config.Load: CLEANUP_SAMPLE_RATE must be within [0, 1], got %v", cfg.CleanupSampleRate)
	}
	if cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("config.Load: CLEANUP_INTERVAL must be positive")
	}
	if cfg.SyncRatePerMinute <= 0 || cfg.SyncBurst <= 0 {
		return nil, fmt.Errorf("config.Load: SYNC_RATE_PER_MINUTE and SYNC_BURST must be positive")
	}
	return &cfg, nil
}

// LoadDotEnv applies the given dotenv files without overriding variables that
// are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("LoadDotEnv %s: %w", p, err)
		}
	}
	return nil
}
