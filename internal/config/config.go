package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gradebook/internal/grading"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Grading   GradingConfig   `mapstructure:"grading"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type GRPCConfig struct {
	Port       string `mapstructure:"port"`
	Reflection bool   `mapstructure:"reflection"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type GradingConfig struct {
	PassThreshold float64 `mapstructure:"pass_threshold"`
}

// Policy turns the configured threshold into a grading policy.
func (g GradingConfig) Policy() grading.Policy {
	return grading.Policy{PassThreshold: g.PassThreshold}
}

type EventsConfig struct {
	// Driver is "nats", "kafka" or "none".
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	EventSubject  string `mapstructure:"event_subject"`
	IngestSubject string `mapstructure:"ingest_subject"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	EventTopic  string   `mapstructure:"event_topic"`
	IngestTopic string   `mapstructure:"ingest_topic"`
	GroupID     string   `mapstructure:"group_id"`
}

type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.<ENV>.yaml (ENV defaults to "local") from the usual
// locations. The file is optional; environment variables such as
// DATABASE_DRIVER or EVENTS_NATS_URL override it.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := newViper()
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")      // Kubernetes mount
	v.AddConfigPath("./configs")     // repo root
	v.AddConfigPath("../configs")    // cmd/
	v.AddConfigPath("../../configs") // cmd/<binary>

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "no config file found for env %q, using defaults and environment\n", env)
	}
	v.Set("env", env)

	return unmarshal(v)
}

// LoadFile reads a single config file, still honouring environment overrides.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("grpc.port", "9090")
	v.SetDefault("grpc.reflection", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "gradebook.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "gradebook")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.conn_max_idle_time_seconds", 0)

	v.SetDefault("grading.pass_threshold", grading.DefaultPassThreshold)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats.url", "nats://localhost:4222")
	v.SetDefault("events.nats.event_subject", "gradebook.marks.events")
	v.SetDefault("events.nats.ingest_subject", "gradebook.marks.ingest")
	v.SetDefault("events.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka.event_topic", "gradebook.marks.events")
	v.SetDefault("events.kafka.ingest_topic", "gradebook.marks.ingest")
	v.SetDefault("events.kafka.group_id", "gradebook-ingest")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.interval_seconds", 10)

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: database.driver must be postgres or sqlite, got %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalidConfig)
	}

	switch c.Events.Driver {
	case "none", "nats", "kafka":
	default:
		return fmt.Errorf("%w: events.driver must be nats, kafka or none, got %q", ErrInvalidConfig, c.Events.Driver)
	}
	if c.Events.Driver == "kafka" && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: events.kafka.brokers is empty", ErrInvalidConfig)
	}

	if t := c.Grading.PassThreshold; t < grading.MinPassThreshold || t > grading.MaxPassThreshold {
		return fmt.Errorf("%w: grading.pass_threshold %.1f outside %.0f..%.0f",
			ErrInvalidConfig, t, grading.MinPassThreshold, grading.MaxPassThreshold)
	}
	return nil
}
