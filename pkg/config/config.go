package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides, e.g. FUTPULL_KAFKA_BROKERS.
const EnvPrefix = "FUTPULL"

type Config struct {
	Environment string          `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Calendar    CalendarConfig  `yaml:"calendar"`
	Data        DataConfig      `yaml:"data"`
	MinuteBar   MinuteBarConfig `yaml:"minute_bar"`
	Archive     ArchiveConfig   `yaml:"archive"`
	Sinks       SinksConfig     `yaml:"sinks"`
	Progress    ProgressConfig  `yaml:"progress"`
}

type LogConfig struct {
	Level   string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format  string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output  string `yaml:"output" default:"stdout" validate:"required"`
	Collect struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"futpull.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100" validate:"min=1"`
	} `yaml:"collect"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"10m"`
	RateLimit       struct {
		Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
	} `yaml:"rate_limit"`
}

type CalendarConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type DataConfig struct {
	TickRoot  string `yaml:"tick_root" validate:"required"`
	DailyRoot string `yaml:"daily_root" validate:"required"`
}

type MinuteBarConfig struct {
	Workers    int      `yaml:"workers" default:"8" validate:"min=1,max=256"`
	TopN       int      `yaml:"top_n" default:"3" validate:"min=1"`
	Fields     []string `yaml:"fields"`
	SaveFormat string   `yaml:"save_format" default:"csv" validate:"oneof=csv json parquet"`
	FilePrefix string   `yaml:"file_prefix" default:"minute_bar" validate:"required"`
}

type ArchiveConfig struct {
	RetryMax     int           `yaml:"retry_max" default:"3" validate:"min=0,max=20"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"500ms"`
}

type SinksConfig struct {
	File struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"file"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"futures"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	BatchSize        int           `yaml:"batch_size" default:"2000" validate:"min=1"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"futpull.minute_bars"`
	RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"min=1"`
	BatchSize    int           `yaml:"batch_size" default:"500" validate:"min=1"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576" validate:"min=1"`
	Linger       time.Duration `yaml:"linger" default:"200ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	AutoCreate   bool          `yaml:"auto_create_topic"`
}

type ProgressConfig struct {
	Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"futpull"`
}

// envOverrides lists what may be set from the environment. Unset variables
// leave the file values alone.
type envOverrides struct {
	Environment    *string  `envconfig:"ENVIRONMENT"`
	LogLevel       *string  `envconfig:"LOG_LEVEL"`
	ServerPort     *int     `envconfig:"SERVER_PORT"`
	TickRoot       *string  `envconfig:"TICK_ROOT"`
	DailyRoot      *string  `envconfig:"DAILY_ROOT"`
	CalendarPath   *string  `envconfig:"CALENDAR_PATH"`
	Workers        *int     `envconfig:"WORKERS"`
	SaveFormat     *string  `envconfig:"SAVE_FORMAT"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic     *string  `envconfig:"KAFKA_TOPIC"`
	ClickHouseHost *string  `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePwd  *string  `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisHost      *string  `envconfig:"REDIS_HOST"`
	RedisPassword  *string  `envconfig:"REDIS_PASSWORD"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse applies defaults and then the YAML document, without validating.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides it with FUTPULL_* variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	setString(&c.Environment, env.Environment)
	setString(&c.Log.Level, env.LogLevel)
	setInt(&c.Server.Port, env.ServerPort)
	setString(&c.Data.TickRoot, env.TickRoot)
	setString(&c.Data.DailyRoot, env.DailyRoot)
	setString(&c.Calendar.Path, env.CalendarPath)
	setInt(&c.MinuteBar.Workers, env.Workers)
	setString(&c.MinuteBar.SaveFormat, env.SaveFormat)
	if len(env.KafkaBrokers) > 0 {
		c.Sinks.Kafka.Brokers = env.KafkaBrokers
	}
	setString(&c.Sinks.Kafka.Topic, env.KafkaTopic)
	setString(&c.Sinks.ClickHouse.Host, env.ClickHouseHost)
	setString(&c.Sinks.ClickHouse.Password, env.ClickHousePwd)
	setString(&c.Progress.Redis.Host, env.RedisHost)
	setString(&c.Progress.Redis.Password, env.RedisPassword)
	return nil
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	var errs []error
	if !c.Sinks.File.Enabled && !c.Sinks.ClickHouse.Enabled && !c.Sinks.Kafka.Enabled {
		errs = append(errs, errors.New("sinks: at least one sink must be enabled"))
	}
	if c.Sinks.ClickHouse.Enabled && c.Sinks.ClickHouse.Host == "" {
		errs = append(errs, errors.New("sinks.clickhouse.host is required when enabled"))
	}
	if c.Sinks.Kafka.Enabled {
		if len(c.Sinks.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("sinks.kafka.brokers cannot be empty when enabled"))
		}
		if c.Sinks.Kafka.Topic == "" {
			errs = append(errs, errors.New("sinks.kafka.topic is required when enabled"))
		}
	}
	if c.Log.Collect.Enabled && !c.Sinks.Kafka.Enabled {
		errs = append(errs, errors.New("log.collect requires the kafka sink"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
