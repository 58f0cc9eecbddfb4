package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. LOGSINK_SERVER_ADDR.
const EnvPrefix = "LOGSINK"

// Config is the full configuration of the logsink binary.
type Config struct {
	Server   Server         `mapstructure:"server"`
	Log      Log            `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sinks    Sinks          `mapstructure:"sinks"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Log selects the level and encoding of the process logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig configures the shared Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PostgresConfig configures the shared Postgres connections.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// KafkaConfig configures the shared Kafka client.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

// Sinks enables and configures each delivery backend.
type Sinks struct {
	Console     ConsoleSink     `mapstructure:"console"`
	File        FileSink        `mapstructure:"file"`
	Relational  RelationalSink  `mapstructure:"relational"`
	Document    DocumentSink    `mapstructure:"document"`
	Kafka       KafkaSink       `mapstructure:"kafka"`
	RedisStream RedisStreamSink `mapstructure:"redis_stream"`
	Webhook     WebhookSink     `mapstructure:"webhook"`
}

type ConsoleSink struct {
	Enabled  bool   `mapstructure:"enabled"`
	Template string `mapstructure:"template"`
}

type FileSink struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	Template string `mapstructure:"template"`
}

// RelationalSink writes rows through database/sql. Driver is "postgres"
// (using the shared Postgres DSN) or "sqlite" (using DSN).
type RelationalSink struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
	// SQL overrides the generated INSERT.
	SQL        string `mapstructure:"sql"`
	TimeFormat string `mapstructure:"time_format"`
}

type DocumentSink struct {
	Enabled    bool   `mapstructure:"enabled"`
	Name       string `mapstructure:"name"`
	AutoCreate bool   `mapstructure:"auto_create"`
}

type KafkaSink struct {
	Enabled           bool   `mapstructure:"enabled"`
	Topic             string `mapstructure:"topic"`
	Codec             string `mapstructure:"codec"`
	AutoCreate        bool   `mapstructure:"auto_create"`
	Partitions        int32  `mapstructure:"partitions"`
	ReplicationFactor int16  `mapstructure:"replication_factor"`
}

type RedisStreamSink struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
	MaxLen  int64  `mapstructure:"max_len"`
	Codec   string `mapstructure:"codec"`
}

type WebhookSink struct {
	Enabled     bool              `mapstructure:"enabled"`
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Async       bool              `mapstructure:"async"`
	MaxInFlight int64             `mapstructure:"max_in_flight"`
	Codec       string            `mapstructure:"codec"`
	SigningKey  string            `mapstructure:"signing_key"`
	Issuer      string            `mapstructure:"issuer"`
	Audience    string            `mapstructure:"audience"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", int32(10))

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.client_id", "logsink")

	v.SetDefault("sinks.console.enabled", true)
	v.SetDefault("sinks.console.template", "")

	v.SetDefault("sinks.file.enabled", false)
	v.SetDefault("sinks.file.path", "")
	v.SetDefault("sinks.file.template", "")

	v.SetDefault("sinks.relational.enabled", false)
	v.SetDefault("sinks.relational.driver", "postgres")
	v.SetDefault("sinks.relational.dsn", "")
	v.SetDefault("sinks.relational.table", "audit_log")
	v.SetDefault("sinks.relational.sql", "")
	v.SetDefault("sinks.relational.time_format", "")

	v.SetDefault("sinks.document.enabled", false)
	v.SetDefault("sinks.document.name", "audit_documents")
	v.SetDefault("sinks.document.auto_create", true)

	v.SetDefault("sinks.kafka.enabled", false)
	v.SetDefault("sinks.kafka.topic", "audit-events")
	v.SetDefault("sinks.kafka.codec", "json")
	v.SetDefault("sinks.kafka.auto_create", false)
	v.SetDefault("sinks.kafka.partitions", int32(-1))
	v.SetDefault("sinks.kafka.replication_factor", int16(-1))

	v.SetDefault("sinks.redis_stream.enabled", false)
	v.SetDefault("sinks.redis_stream.stream", "audit-events")
	v.SetDefault("sinks.redis_stream.max_len", int64(0))
	v.SetDefault("sinks.redis_stream.codec", "json")

	v.SetDefault("sinks.webhook.enabled", false)
	v.SetDefault("sinks.webhook.url", "")
	v.SetDefault("sinks.webhook.method", "POST")
	v.SetDefault("sinks.webhook.headers", map[string]string{})
	v.SetDefault("sinks.webhook.timeout", 5*time.Second)
	v.SetDefault("sinks.webhook.async", false)
	v.SetDefault("sinks.webhook.max_in_flight", int64(64))
	v.SetDefault("sinks.webhook.codec", "json")
	v.SetDefault("sinks.webhook.signing_key", "")
	v.SetDefault("sinks.webhook.issuer", "logsink")
	v.SetDefault("sinks.webhook.audience", "")
}

// Load reads configuration from defaults, an optional config file and
// LOGSINK_* environment variables, in increasing order of precedence. Flags
// bound to v with BindPFlag take precedence over all of them.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that defaults cannot satisfy.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	s := c.Sinks
	if s.File.Enabled && strings.TrimSpace(s.File.Path) == "" {
		errs = append(errs, errors.New("sinks.file.path is required when the file sink is enabled"))
	}
	if s.Relational.Enabled {
		switch s.Relational.Driver {
		case "postgres":
			if c.Postgres.DSN == "" {
				errs = append(errs, errors.New("postgres.dsn is required for the postgres relational sink"))
			}
		case "sqlite":
			if s.Relational.DSN == "" {
				errs = append(errs, errors.New("sinks.relational.dsn is required for the sqlite relational sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("sinks.relational.driver %q is not supported", s.Relational.Driver))
		}
	}
	if s.Document.Enabled && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required when the document sink is enabled"))
	}
	if s.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when the kafka sink is enabled"))
	}
	if s.RedisStream.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when the redis stream sink is enabled"))
	}
	if s.Webhook.Enabled && strings.TrimSpace(s.Webhook.URL) == "" {
		errs = append(errs, errors.New("sinks.webhook.url is required when the webhook sink is enabled"))
	}
	return errors.Join(errs...)
}

// splitList flattens comma separated entries, trims them and drops blanks and
// repeats. Order is preserved.
func splitList(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
