package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/kursio/kursio/internal/shared/config"
)

type Config = sharedConfig.Config

const envPrefix = "KURSIO"

var (
	appConfig   *Config
	appConfigMu sync.RWMutex

	defaultSearchPaths = []string{"./configs", "../configs", "../../configs"}
)

// Load reads configs/config.yaml and KURSIO_* environment variables. A
// missing file is fine; defaults plus environment are enough in containers.
func Load(env string) (*Config, error) {
	return LoadFrom(env, defaultSearchPaths...)
}

// LoadFile reads the given config file's directory, or the default search
// paths when path is empty. A .env file in the working directory is applied
// first; variables already set in the environment win.
func LoadFile(env, path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if path == "" {
		return Load(env)
	}
	return LoadFrom(env, filepath.Dir(path))
}

// LoadDotEnv exports the variables from the given dotenv files. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func LoadFrom(env string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", ModeForEnv(env))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// ModeForEnv translates deployment environment names to gin modes.
func ModeForEnv(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}

// Get returns the last loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case sharedConfig.StoreBackendPostgres, sharedConfig.StoreBackendRedis:
	default:
		return fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}
	if cfg.Server.Mode == "release" && cfg.Auth.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("auth.jwt.secret must be set in release mode")
	}
	return nil
}

const defaultJWTSecret = "change-me-in-production"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.password.bcrypt_cost", 12)
	v.SetDefault("auth.jwt.secret", defaultJWTSecret)
	v.SetDefault("auth.jwt.access_exp_minutes", 60*24)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "kursio")
	v.SetDefault("redis.status_events", true)

	v.SetDefault("store.backend", sharedConfig.StoreBackendPostgres)
	v.SetDefault("store.event_log_size", 1000)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.subscription_price_id", "")
	v.SetDefault("stripe.success_url", "http://localhost:5173/subscription/success")
	v.SetDefault("stripe.cancel_url", "http://localhost:5173/subscription/cancel")
	v.SetDefault("stripe.portal_return_url", "http://localhost:5173/account")
	v.SetDefault("stripe.list_limit", 10)
	v.SetDefault("stripe.timeout_seconds", 10)

	v.SetDefault("reconcile.concurrency", 4)
	v.SetDefault("reconcile.page_size", 100)
	v.SetDefault("reconcile.schedule", "")
	v.SetDefault("reconcile.timezone", "Europe/Warsaw")
	v.SetDefault("reconcile.sweep_timeout_minutes", 30)

	v.SetDefault("ratelimit.login_per_minute", 10)
}
