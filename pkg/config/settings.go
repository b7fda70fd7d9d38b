// Package config holds the shared settings surface for database-backed
// services. Configuration can come from a YAML file or environment variables;
// environment variables always override YAML values. Secrets (connection
// URLs, passwords) must only come from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/nexor-io/nexor-go/pkg/apperrors"
	"github.com/nexor-io/nexor-go/pkg/pgurl"
)

// ServiceSettings is the lightweight base configuration for services that use
// this library's database, health and telemetry layers.
type ServiceSettings struct {
	Env   string `yaml:"env" env:"ENV" env-default:"production"`
	Debug bool   `yaml:"debug" env:"DEBUG" env-default:"false"`

	// PostgresURL is the primary connection URL. Secret - not in YAML.
	PostgresURL Secret `yaml:"-" env:"POSTGRES_URL"`
	// MigrateURL is the connection URL used by migration tooling, which may
	// carry elevated privileges. Secret - not in YAML.
	MigrateURL Secret `yaml:"-" env:"MIGRATE_URL"`

	AppSchema     string        `yaml:"app_schema" env:"APP_SCHEMA" env-default:"nexor"`
	DBPoolSize    int32         `yaml:"db_pool_size" env:"DB_POOL_SIZE" env-default:"20"`
	DBMaxOverflow int32         `yaml:"db_max_overflow" env:"DB_MAX_OVERFLOW" env-default:"20"`
	DBPoolTimeout time.Duration `yaml:"db_pool_timeout" env:"DB_POOL_TIMEOUT" env-default:"30s"`

	// TenantSettingName and UserSettingName are the server-side runtime
	// settings read by row-level-security policies. They are configuration
	// rather than constants so the library can sit in front of different
	// access-control schemas.
	TenantSettingName string `yaml:"tenant_setting_name" env:"TENANT_SETTING_NAME" env-default:"app.tenant_id"`
	UserSettingName   string `yaml:"user_setting_name" env:"USER_SETTING_NAME" env-default:"app.user_id"`

	Redis     RedisSettings     `yaml:"redis"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
	Health    HealthSettings    `yaml:"health"`
}

// RedisSettings configures the optional Redis client used for worker
// readiness checks. Redis is disabled when Host is empty.
type RedisSettings struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password Secret `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// TelemetrySettings configures the OpenTelemetry providers. Disabled by
// default; when disabled no exporter is created.
type TelemetrySettings struct {
	Enabled       bool    `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint      string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	Headers       string  `yaml:"headers" env:"OTEL_EXPORTER_OTLP_HEADERS" env-default:""`
	ServiceName   string  `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:""`
	Namespace     string  `yaml:"namespace" env:"OTEL_SERVICE_NAMESPACE" env-default:"nexor"`
	Environment   string  `yaml:"environment" env:"DEPLOYMENT_ENV" env-default:"development"`
	SampleRate    float64 `yaml:"sample_rate" env:"OTEL_SAMPLE_RATE" env-default:"1.0"`
	ResourceExtra string  `yaml:"resource_extra" env:"OTEL_RESOURCE_EXTRA" env-default:""`
}

// HealthSettings configures the health route surface.
type HealthSettings struct {
	Enabled bool   `yaml:"enabled" env:"HEALTH_ENABLED" env-default:"true"`
	Prefix  string `yaml:"prefix" env:"HEALTH_PREFIX" env-default:"/health"`
}

// Load reads settings from the given YAML file with environment variable
// overrides, then normalizes and validates them.
func Load(path string, logger *zap.Logger) (*ServiceSettings, error) {
	settings := &ServiceSettings{}
	if err := cleanenv.ReadConfig(path, settings); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return finish(settings, logger)
}

// LoadEnv reads settings from environment variables only.
func LoadEnv(logger *zap.Logger) (*ServiceSettings, error) {
	settings := &ServiceSettings{}
	if err := cleanenv.ReadEnv(settings); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return finish(settings, logger)
}

func finish(settings *ServiceSettings, logger *zap.Logger) (*ServiceSettings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings.normalize()
	if err := settings.Validate(logger); err != nil {
		return nil, err
	}
	return settings, nil
}

// normalize canonicalizes the connection URL schemes in place.
func (s *ServiceSettings) normalize() {
	s.PostgresURL = Secret(pgurl.Normalize(s.PostgresURL.Value()))
	s.MigrateURL = Secret(pgurl.Normalize(s.MigrateURL.Value()))
}

// Validate checks required settings. A missing postgres_url is fatal except
// under Env "testing", where it is only logged so that unit-test runs without
// a database still import cleanly.
func (s *ServiceSettings) Validate(logger *zap.Logger) error {
	if s.PostgresURL.IsSet() {
		return nil
	}
	if s.Testing() {
		logger.Warn("missing required environment keys: POSTGRES_URL")
		return nil
	}
	return apperrors.ErrMissingPostgresURL
}

// Testing reports whether the settings describe a test environment.
func (s *ServiceSettings) Testing() bool {
	return s.Env == "testing"
}

// AsyncPostgresURL returns the canonical URL qualified for the pooled engine
// layer. The engine cache keys on this value.
func (s *ServiceSettings) AsyncPostgresURL() (Secret, error) {
	if !s.PostgresURL.IsSet() {
		return "", apperrors.ErrMissingPostgresURL
	}
	return Secret(pgurl.WithDriver(s.PostgresURL.Value(), pgurl.Async)), nil
}

// MigrationURL returns the sync-qualified URL for migration tooling.
func (s *ServiceSettings) MigrationURL() (Secret, error) {
	if !s.MigrateURL.IsSet() {
		return "", apperrors.ErrMissingMigrateURL
	}
	return Secret(pgurl.WithDriver(s.MigrateURL.Value(), pgurl.Sync)), nil
}

// RedisAddr returns the host:port address for the Redis client.
func (r *RedisSettings) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
