package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// RequestTimeout bounds one analysis call, including store reads.
		RequestTimeout time.Duration `yaml:"request_timeout" default:"20s"`
		CORS           bool          `yaml:"cors" default:"true"`
		RateLimit      struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			RPS     float64 `yaml:"rps" default:"20"`
			Burst   int     `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"json"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"ops.logs"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		ZScoreLookback int `yaml:"zscore_lookback" default:"20"`
		// ADFMaxLag nil selects floor((n-1)^(1/3)).
		ADFMaxLag       *int    `yaml:"adf_max_lag"`
		EMMaxIterations int     `yaml:"em_max_iterations" default:"100"`
		EMTolerance     float64 `yaml:"em_tolerance" default:"0.000001"`
		PeriodsPerYear  int     `yaml:"periods_per_year" default:"252"`
		PairsMaxPoints  int     `yaml:"pairs_max_points" default:"200"`
		RegimeMaxPoints int     `yaml:"regime_max_points" default:"500"`
	} `yaml:"engine"`
	Cache struct {
		Enabled  bool          `yaml:"enabled" default:"true"`
		TTL      time.Duration `yaml:"ttl" default:"10m"`
		Capacity int           `yaml:"capacity" default:"1024"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequestTopic string   `yaml:"request_topic" default:"analysis.requests"`
		ResultTopic  string   `yaml:"result_topic" default:"analysis.results"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"quantlab-analysis"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"analysis.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"quantlab"`
		Table            string        `yaml:"table" default:"daily_prices"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file over the defaults, so an
// explicit zero in the file wins over a default.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML (or defaults when path is empty) and
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("QUANTLAB_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("QUANTLAB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("QUANTLAB_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("QUANTLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Engine.ZScoreLookback < 2 {
		return fmt.Errorf("engine.zscore_lookback must be at least 2, got %d", c.Engine.ZScoreLookback)
	}
	if c.Engine.EMMaxIterations < 1 {
		return fmt.Errorf("engine.em_max_iterations must be positive")
	}
	if c.Engine.EMTolerance <= 0 {
		return fmt.Errorf("engine.em_tolerance must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
			return fmt.Errorf("kafka.request_topic and kafka.result_topic are required")
		}
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka")
	}
	return nil
}
