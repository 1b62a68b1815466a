package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Google     GoogleConfig     `mapstructure:"google"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// SchedulingConfig tunes conflict detection and coverage lookups.
type SchedulingConfig struct {
	TimeZone                string  `mapstructure:"time_zone"`
	MaxAreaRadiusMiles      float64 `mapstructure:"max_area_radius_miles"`
	TravelTimeoutSeconds    int     `mapstructure:"travel_timeout_seconds"`
	TravelRetries           int     `mapstructure:"travel_retries"`
	TravelCacheTTLSeconds   int     `mapstructure:"travel_cache_ttl_seconds"`
	MaxParallelLookups      int     `mapstructure:"max_parallel_lookups"`
	AverageSpeedKmh         float64 `mapstructure:"average_speed_kmh"`
	RevalidationHorizonDays int     `mapstructure:"revalidation_horizon_days"`
}

func (s SchedulingConfig) TravelTimeout() time.Duration {
	return time.Duration(s.TravelTimeoutSeconds) * time.Second
}

func (s SchedulingConfig) RevalidationHorizon() time.Duration {
	return time.Duration(s.RevalidationHorizonDays) * 24 * time.Hour
}

// GoogleConfig enables the Distance Matrix estimator. Without an API key the
// straight-line estimator is used instead.
type GoogleConfig struct {
	APIKey string  `mapstructure:"api_key"`
	QPS    float64 `mapstructure:"qps"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mobilebook")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mobilebook")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "area-revalidation")
	v.SetDefault("scheduling.time_zone", "Europe/London")
	v.SetDefault("scheduling.max_area_radius_miles", 25)
	v.SetDefault("scheduling.travel_timeout_seconds", 5)
	v.SetDefault("scheduling.travel_retries", 2)
	v.SetDefault("scheduling.travel_cache_ttl_seconds", 900)
	v.SetDefault("scheduling.max_parallel_lookups", 16)
	v.SetDefault("scheduling.average_speed_kmh", 30)
	v.SetDefault("scheduling.revalidation_horizon_days", 30)
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.qps", 10)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MOBILEBOOK_SCHEDULING_TIME_ZONE → scheduling.time_zone
	v.SetEnvPrefix("MOBILEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Scheduling.TimeZone == "" {
		errs = append(errs, "scheduling.time_zone is required")
	} else if _, err := time.LoadLocation(c.Scheduling.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("scheduling.time_zone %q is not a known zone", c.Scheduling.TimeZone))
	}
	if c.Scheduling.MaxAreaRadiusMiles <= 0 {
		errs = append(errs, "scheduling.max_area_radius_miles must be positive")
	}
	if c.Scheduling.TravelTimeoutSeconds <= 0 {
		errs = append(errs, "scheduling.travel_timeout_seconds must be positive")
	}
	if c.Scheduling.TravelRetries < 0 {
		errs = append(errs, "scheduling.travel_retries must not be negative")
	}
	if c.Scheduling.MaxParallelLookups <= 0 {
		errs = append(errs, "scheduling.max_parallel_lookups must be positive")
	}
	if c.Scheduling.AverageSpeedKmh <= 0 {
		errs = append(errs, "scheduling.average_speed_kmh must be positive")
	}
	if c.Google.APIKey != "" && c.Google.QPS <= 0 {
		errs = append(errs, "google.qps must be positive when google.api_key is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
