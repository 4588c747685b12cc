package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. STOREFRONT_STORAGE_DRIVER.
const EnvPrefix = "STOREFRONT"

const defaultTaskTimeout = 30 * time.Second

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
//
// An empty path looks for storefront.yaml in the working directory and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("storefront")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"storage.url", EnvPrefix + "_STORAGE_URL"},
		{"storage.redis_addr", EnvPrefix + "_STORAGE_REDIS_ADDR"},
		{"storage.redis_password", EnvPrefix + "_STORAGE_REDIS_PASSWORD"},
		{"auth.jwt_secret", EnvPrefix + "_AUTH_JWT_SECRET"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Driver:    DriverBolt,
			Path:      "storefront.db",
			KeyPrefix: "storefront:",
		},
		Queue: QueueConfig{
			MaxConcurrency: 4,
			LaneBuffer:     64,
			TaskTimeout:    defaultTaskTimeout,
		},
		Identity: IdentityConfig{
			SecretScheme: SchemePlaintext,
			BcryptCost:   10,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenLifetime: 24 * time.Hour,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis_db", d.Storage.RedisDB)
	v.SetDefault("storage.key_prefix", d.Storage.KeyPrefix)
	v.SetDefault("queue.max_concurrency", d.Queue.MaxConcurrency)
	v.SetDefault("queue.lane_buffer", d.Queue.LaneBuffer)
	v.SetDefault("queue.task_timeout", d.Queue.TaskTimeout)
	v.SetDefault("identity.secret_scheme", d.Identity.SecretScheme)
	v.SetDefault("identity.bcrypt_cost", d.Identity.BcryptCost)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("auth.token_lifetime", d.Auth.TokenLifetime)
}

// Validate checks field constraints and the driver-specific requirements.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterStructValidation(validateStorage, StorageConfig{})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func validateStorage(sl validator.StructLevel) {
	s := sl.Current().Interface().(StorageConfig)

	switch s.Driver {
	case DriverBolt, DriverSQLite:
		if s.Path == "" {
			sl.ReportError(s.Path, "Path", "path", "required_for_driver", s.Driver)
		}
	case DriverPostgres:
		if s.URL == "" {
			sl.ReportError(s.URL, "URL", "url", "required_for_driver", s.Driver)
		}
	case DriverRedis:
		if s.RedisAddr == "" {
			sl.ReportError(s.RedisAddr, "RedisAddr", "redis_addr", "required_for_driver", s.Driver)
		}
	}
}
