package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"

	MotionProfileLastMotion        = "last_motion"
	MotionProfileUpdatedAtFallback = "updated_at_fallback"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Keycloak   KeycloakConfig   `mapstructure:"keycloak"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Influx     InfluxConfig     `mapstructure:"influx"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// BackendConfig selects and configures the remote data service.
type BackendConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

type PostgresConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"dbname"`
	SSLMode       string        `mapstructure:"sslmode"`
	NotifyChannel string        `mapstructure:"notify_channel"`
	InstallNotify bool          `mapstructure:"install_notify"`
	ConnectTries  int           `mapstructure:"connect_tries"`
	ConnectDelay  time.Duration `mapstructure:"connect_delay"`
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type SupabaseConfig struct {
	URL               string        `mapstructure:"url"`
	Key               string        `mapstructure:"key"`
	Schema            string        `mapstructure:"schema"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// SyncConfig tunes the synchronization core.
type SyncConfig struct {
	SensorPollInterval  time.Duration `mapstructure:"sensor_poll_interval"`
	FeedingPollInterval time.Duration `mapstructure:"feeding_poll_interval"`
	RejectStaleReadings bool          `mapstructure:"reject_stale_readings"`
	MotionProfile       string        `mapstructure:"motion_profile"`
	Timezone            string        `mapstructure:"timezone"`
	SeedWait            time.Duration `mapstructure:"seed_wait"`
	ResubscribeMinDelay time.Duration `mapstructure:"resubscribe_min_delay"`
	ResubscribeMaxDelay time.Duration `mapstructure:"resubscribe_max_delay"`
	FoodEmptyCM         float64       `mapstructure:"food_empty_cm"`
	FoodFullCM          float64       `mapstructure:"food_full_cm"`
}

// Location resolves the configured timezone used for the feeding day.
func (c SyncConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type KeycloakConfig struct {
	URL          string   `mapstructure:"url"`
	Realm        string   `mapstructure:"realm"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	FeedRoles    []string `mapstructure:"feed_roles"`
}

// Enabled reports whether protected routes require a token.
func (c KeycloakConfig) Enabled() bool {
	return c.URL != ""
}

type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether the snapshot mirror is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// Enabled reports whether readings are recorded to InfluxDB.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

type MonitoringConfig struct {
	MetricsPath string `mapstructure:"metrics_path"`
	Namespace   string `mapstructure:"namespace"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FEEDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Backend defaults
	v.SetDefault("backend.driver", DriverSupabase)
	v.SetDefault("backend.postgres.port", 5432)
	v.SetDefault("backend.postgres.sslmode", "require")
	v.SetDefault("backend.postgres.notify_channel", "feeder_changes")
	v.SetDefault("backend.postgres.install_notify", true)
	v.SetDefault("backend.postgres.connect_tries", 5)
	v.SetDefault("backend.postgres.connect_delay", "2s")
	v.SetDefault("backend.supabase.schema", "public")
	v.SetDefault("backend.supabase.request_timeout", "10s")
	v.SetDefault("backend.supabase.heartbeat_interval", "25s")

	// Sync defaults
	v.SetDefault("sync.sensor_poll_interval", "8s")
	v.SetDefault("sync.feeding_poll_interval", "5s")
	v.SetDefault("sync.reject_stale_readings", true)
	v.SetDefault("sync.motion_profile", MotionProfileLastMotion)
	v.SetDefault("sync.timezone", "Local")
	v.SetDefault("sync.seed_wait", "2s")
	v.SetDefault("sync.resubscribe_min_delay", "1s")
	v.SetDefault("sync.resubscribe_max_delay", "30s")
	v.SetDefault("sync.food_empty_cm", 25)
	v.SetDefault("sync.food_full_cm", 4)

	// Redis defaults
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "feeder")
	v.SetDefault("redis.ttl", "24h")

	// Influx defaults
	v.SetDefault("influx.bucket", "feeder")

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "feeder")
}

// bindEnvs registers keys without defaults so AutomaticEnv can resolve them
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"backend.postgres.host",
		"backend.postgres.user",
		"backend.postgres.password",
		"backend.postgres.dbname",
		"backend.supabase.url",
		"backend.supabase.key",
		"keycloak.url",
		"keycloak.realm",
		"keycloak.client_id",
		"keycloak.client_secret",
		"keycloak.feed_roles",
		"redis.host",
		"redis.password",
		"influx.url",
		"influx.token",
		"influx.org",
	} {
		_ = v.BindEnv(key)
	}
}

func validateConfig(config *Config) error {
	switch config.Backend.Driver {
	case DriverPostgres:
		if config.Backend.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
	case DriverSupabase:
		if config.Backend.Supabase.URL == "" {
			return fmt.Errorf("supabase url is required")
		}
		if config.Backend.Supabase.Key == "" {
			return fmt.Errorf("supabase key is required")
		}
	default:
		return fmt.Errorf("unknown backend driver %q", config.Backend.Driver)
	}

	switch config.Sync.MotionProfile {
	case MotionProfileLastMotion, MotionProfileUpdatedAtFallback:
	default:
		return fmt.Errorf("unknown motion profile %q", config.Sync.MotionProfile)
	}

	if config.Sync.SensorPollInterval <= 0 || config.Sync.FeedingPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if _, err := config.Sync.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Sync.Timezone, err)
	}
	if config.Sync.FoodEmptyCM <= config.Sync.FoodFullCM {
		return fmt.Errorf("food_empty_cm must be greater than food_full_cm")
	}
	if config.Influx.Enabled() && (config.Influx.Org == "" || config.Influx.Token == "") {
		return fmt.Errorf("influx org and token are required when influx url is set")
	}
	return nil
}
