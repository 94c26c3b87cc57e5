package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage, stream, queue and notifier drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverKafka    = "kafka"
	DriverRedis    = "redis"
	DriverLog      = "log"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Store       StoreConfig
	Bolt        BoltConfig
	Stream      StreamConfig
	Queue       QueueConfig
	Notifier    NotifierConfig
	Resources   Resources
	JWT         JWTConfig
	Hooks       HooksConfig
	Workers     WorkersConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Monitor     MonitorConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	Partitions int
}

type StoreConfig struct {
	Driver string
}

type BoltConfig struct {
	Path        string
	OpenTimeout time.Duration
}

type StreamConfig struct {
	Driver    string
	Topic     string
	GroupID   string
	BatchSize int
	Buffer    int
}

type QueueConfig struct {
	Driver            string
	PollInterval      time.Duration
	BatchSize         int
	VisibilityTimeout time.Duration
	ReapSchedule      string
}

type NotifierConfig struct {
	Driver string
}

// Resources names the external resources every component is constructed with.
type Resources struct {
	// TableName is the task table (postgres) or root bucket (bolt).
	TableName string
	// QueueURL is the key prefix of the delay queue.
	QueueURL string
	// TopicARN is the notification channel.
	TopicARN string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type HooksConfig struct {
	Secret string
}

type WorkersConfig struct {
	Relay  bool
	Expiry bool
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
}

type MonitorConfig struct {
	Interval time.Duration
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "todo-backend"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "todo"),
			User:            getString("DB_USER", "todo"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    getList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Partitions: getInt("KAFKA_PARTITIONS", 3),
		},
		Store: StoreConfig{
			Driver: getString("STORE_DRIVER", DriverMemory),
		},
		Bolt: BoltConfig{
			Path:        getString("BOLTDB_PATH", "./data/tasks.db"),
			OpenTimeout: getDuration("BOLTDB_OPEN_TIMEOUT", time.Second),
		},
		Stream: StreamConfig{
			Driver:    getString("STREAM_DRIVER", DriverMemory),
			Topic:     getString("STREAM_TOPIC", "task-changes"),
			GroupID:   getString("STREAM_GROUP_ID", "task-relay"),
			BatchSize: getInt("STREAM_BATCH_SIZE", 10),
			Buffer:    getInt("STREAM_BUFFER", 1024),
		},
		Queue: QueueConfig{
			Driver:            getString("QUEUE_DRIVER", DriverMemory),
			PollInterval:      getDuration("QUEUE_POLL_INTERVAL", time.Second),
			BatchSize:         getInt("QUEUE_BATCH_SIZE", 10),
			VisibilityTimeout: getDuration("QUEUE_VISIBILITY_TIMEOUT", 30*time.Second),
			ReapSchedule:      getString("QUEUE_REAP_SCHEDULE", "@every 30s"),
		},
		Notifier: NotifierConfig{
			Driver: getString("NOTIFIER_DRIVER", DriverLog),
		},
		Resources: Resources{
			TableName: getString("TABLE_NAME", "tasks"),
			QueueURL:  getString("QUEUE_URL", "task-expiry"),
			TopicARN:  getString("TOPIC_ARN", "task-notifications"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", ""),
		},
		Hooks: HooksConfig{
			Secret: os.Getenv("HOOK_SECRET"),
		},
		Workers: WorkersConfig{
			Relay:  getBool("WORKER_RELAY_ENABLED", true),
			Expiry: getBool("WORKER_EXPIRY_ENABLED", true),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
		},
		Monitor: MonitorConfig{
			Interval: getDuration("HEALTH_CHECK_INTERVAL", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and missing resource names.
func (c *Config) Validate() error {
	if err := oneOf("STORE_DRIVER", c.Store.Driver, DriverMemory, DriverBolt, DriverPostgres); err != nil {
		return err
	}
	if err := oneOf("STREAM_DRIVER", c.Stream.Driver, DriverMemory, DriverKafka); err != nil {
		return err
	}
	if err := oneOf("QUEUE_DRIVER", c.Queue.Driver, DriverMemory, DriverRedis); err != nil {
		return err
	}
	if err := oneOf("NOTIFIER_DRIVER", c.Notifier.Driver, DriverLog, DriverRedis); err != nil {
		return err
	}
	if c.Resources.TableName == "" || c.Resources.QueueURL == "" || c.Resources.TopicARN == "" {
		return fmt.Errorf("TABLE_NAME, QUEUE_URL and TOPIC_ARN must not be empty")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Queue.Driver == DriverRedis || c.Notifier.Driver == DriverRedis
}

// DSN returns the configured URL or one assembled from the discrete fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported driver %q (want one of %s)", key, value, strings.Join(allowed, ", "))
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
