package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type AppConfig struct {
	Port        string `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	Environment string `yaml:"environment"`

	EnforceHTTPS bool `yaml:"enforce_https"`

	RateLimitEnabled bool                       `yaml:"rate_limit_enabled"`
	RateLimitConfigs map[string]RateLimitConfig `yaml:"rate_limits"`

	CacheEnabled bool                   `yaml:"cache_enabled"`
	CacheConfigs map[string]CacheConfig `yaml:"cache"`

	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Enabled bool          `yaml:"enabled"`
}

type DatabaseConfig struct {
	Driver         string `yaml:"driver"`
	Path           string `yaml:"path"`
	URL            string `yaml:"url"`
	MigrationsPath string `yaml:"migrations_path"`
}

type JWTConfig struct {
	Secret             string `yaml:"secret"`
	Issuer             string `yaml:"issuer"`
	Audience           string `yaml:"audience"`
	AccessTokenMinutes int    `yaml:"access_token_minutes"`
	RefreshTokenDays   int    `yaml:"refresh_token_days"`
}

func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.AccessTokenMinutes) * time.Minute
}

func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	LokiURL      string `yaml:"loki_url"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
	MetricsPort  string  `yaml:"metrics_port"`
}

func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		Port:             "8080",
		GinMode:          "debug",
		Environment:      "development",
		RateLimitEnabled: true,
		RateLimitConfigs: map[string]RateLimitConfig{
			"POST /auth/register": {
				Requests: 5,
				Window:   time.Minute,
			},
			"POST /auth/login": {
				Requests: 10,
				Window:   time.Minute,
			},
			"POST /auth/refresh": {
				Requests: 20,
				Window:   time.Minute,
			},
			"GET /tasks": {
				Requests: 100,
				Window:   time.Minute,
			},
			"POST /tasks": {
				Requests: 20,
				Window:   time.Minute,
			},
			"PUT /tasks/:uuid": {
				Requests: 10,
				Window:   time.Minute,
			},
			"DELETE /tasks/:uuid": {
				Requests: 5,
				Window:   time.Minute,
			},
		},
		CacheEnabled: false,
		CacheConfigs: map[string]CacheConfig{},
		EnforceHTTPS: false,
		Database: DatabaseConfig{
			Driver:         DriverSQLite,
			Path:           "./tasktracker.db",
			MigrationsPath: "",
		},
		JWT: JWTConfig{
			Issuer:             "tasktracker",
			Audience:           "tasktracker-clients",
			AccessTokenMinutes: 60,
			RefreshTokenDays:   7,
		},
		AMQP: AMQPConfig{
			Exchange: "tasktracker.events",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "tasktracker",
			SampleRatio: 1,
			MetricsPort: "9091",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (config.yaml when unset), a .env file and the environment, in
// that order of precedence, lowest first.
func Load() (*AppConfig, error) {
	cfg := GetDefaultConfig()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	if err := cfg.loadYAML(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.GinMode == "release" && cfg.Environment == "development" {
		cfg.Environment = "production"
	}

	return cfg, cfg.Validate()
}

func (c *AppConfig) loadYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func (c *AppConfig) applyEnv() error {
	var errs []error

	setString(&c.Port, "PORT")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.Environment, "ENVIRONMENT")
	errs = append(errs, setBool(&c.EnforceHTTPS, "ENFORCE_HTTPS"))
	errs = append(errs, setBool(&c.RateLimitEnabled, "RATE_LIMIT_ENABLED"))
	errs = append(errs, setBool(&c.CacheEnabled, "CACHE_ENABLED"))

	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Path, "DATABASE_PATH")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.MigrationsPath, "MIGRATIONS_PATH")

	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.JWT.Issuer, "JWT_ISSUER")
	setString(&c.JWT.Audience, "JWT_AUDIENCE")
	errs = append(errs, setInt(&c.JWT.AccessTokenMinutes, "JWT_ACCESS_TOKEN_MINUTES"))
	errs = append(errs, setInt(&c.JWT.RefreshTokenDays, "JWT_REFRESH_TOKEN_DAYS"))

	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.AMQP.URL, "AMQP_URL")
	setString(&c.AMQP.Exchange, "AMQP_EXCHANGE")

	setString(&c.Telemetry.LokiURL, "LOKI_URL")
	setString(&c.Telemetry.OTLPEndpoint, "OTLP_ENDPOINT")
	errs = append(errs, setFloat(&c.Telemetry.SampleRatio, "TRACE_SAMPLE_RATIO"))
	setString(&c.Telemetry.MetricsPort, "METRICS_PORT")

	return errors.Join(errs...)
}

// Validate rejects configurations the server cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if strings.TrimSpace(c.JWT.Issuer) == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}

	if strings.TrimSpace(c.JWT.Audience) == "" {
		errs = append(errs, errors.New("JWT_AUDIENCE is required"))
	}

	if c.JWT.AccessTokenMinutes <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_MINUTES must be positive"))
	}

	if c.JWT.RefreshTokenDays <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_TOKEN_DAYS must be positive"))
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("TRACE_SAMPLE_RATIO must be between 0 and 1"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	*dst = f
	return nil
}
