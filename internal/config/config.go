package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Identity IdentityConfig `mapstructure:"identity"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StorageConfig selects and configures the key-value backend.
// Which fields are required depends on Driver; see validateStorage.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" validate:"required,oneof=memory bolt sqlite postgres redis"`
	Path          string `mapstructure:"path"`
	URL           string `mapstructure:"url" validate:"omitempty,url"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// QueueConfig sizes the per-key write lanes.
type QueueConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"gte=1"`
	LaneBuffer     int           `mapstructure:"lane_buffer" validate:"gte=1"`
	TaskTimeout    time.Duration `mapstructure:"task_timeout" validate:"gte=0"`
}

// Secret schemes.
const (
	SchemePlaintext = "plaintext"
	SchemeBcrypt    = "bcrypt"
)

// IdentityConfig controls how account secrets are stored.
type IdentityConfig struct {
	SecretScheme string `mapstructure:"secret_scheme" validate:"required,oneof=plaintext bcrypt"`
	BcryptCost   int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// ServerConfig controls the HTTP session daemon started by "storefront serve".
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig controls the session tokens issued by the HTTP daemon.
// JWTSecret is only required when serving.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}
