package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Map       MapConfig       `mapstructure:"map"`
	Storage   StorageConfig   `mapstructure:"storage"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
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
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GeocoderConfig configures the Nominatim-compatible forward geocoder.
type GeocoderConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgent       string `mapstructure:"user_agent"`
	TimeoutMS       int    `mapstructure:"timeout_ms"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

// MapConfig holds the explore screen's region defaults.
type MapConfig struct {
	DefaultLat       float64 `mapstructure:"default_lat"`
	DefaultLon       float64 `mapstructure:"default_lon"`
	DefaultSpan      float64 `mapstructure:"default_span"`
	FocusSpan        float64 `mapstructure:"focus_span"`
	LoadingTimeoutMS int     `mapstructure:"loading_timeout_ms"`
	FixTimeoutMS     int     `mapstructure:"fix_timeout_ms"`
	SessionIdleMin   int     `mapstructure:"session_idle_minutes"`
}

func (m MapConfig) LoadingTimeout() time.Duration {
	return time.Duration(m.LoadingTimeoutMS) * time.Millisecond
}

func (m MapConfig) FixTimeout() time.Duration {
	return time.Duration(m.FixTimeoutMS) * time.Millisecond
}

func (m MapConfig) SessionIdle() time.Duration {
	return time.Duration(m.SessionIdleMin) * time.Minute
}

// StorageConfig points at the S3-compatible photo bucket.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// GeoIPConfig is optional; an empty DBPath disables IP based default regions.
type GeoIPConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	// .env is a development convenience; real deployments set the environment.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "poonyc")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "poonyc")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "poonyc/1.0")
	v.SetDefault("geocoder.timeout_ms", 5000)
	v.SetDefault("geocoder.cache_ttl_seconds", 86400)
	v.SetDefault("map.default_lat", 40.7128)
	v.SetDefault("map.default_lon", -74.006)
	v.SetDefault("map.default_span", 0.5)
	v.SetDefault("map.focus_span", 0.05)
	v.SetDefault("map.loading_timeout_ms", 15000)
	v.SetDefault("map.fix_timeout_ms", 10000)
	v.SetDefault("map.session_idle_minutes", 30)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.bucket", "restroom-photos")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("geoip.db_path", "")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "geocode-warmup")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// POONYC_GEOCODER_BASE_URL → geocoder.base_url
	v.SetEnvPrefix("POONYC")
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
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
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
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Geocoder.TimeoutMS <= 0 {
		errs = append(errs, "geocoder.timeout_ms must be positive")
	}
	if c.Map.DefaultLat < -90 || c.Map.DefaultLat > 90 {
		errs = append(errs, fmt.Sprintf("map.default_lat must be -90..90, got %g", c.Map.DefaultLat))
	}
	if c.Map.DefaultLon < -180 || c.Map.DefaultLon > 180 {
		errs = append(errs, fmt.Sprintf("map.default_lon must be -180..180, got %g", c.Map.DefaultLon))
	}
	if c.Map.DefaultSpan <= 0 || c.Map.FocusSpan <= 0 {
		errs = append(errs, "map.default_span and map.focus_span must be positive")
	}
	if c.Map.LoadingTimeoutMS <= 0 {
		errs = append(errs, "map.loading_timeout_ms must be positive")
	}
	if c.Map.FixTimeoutMS <= 0 {
		errs = append(errs, "map.fix_timeout_ms must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
