package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fxpull/internal/domain/models"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	FXCM struct {
		GatewayURL         string        `yaml:"gateway_url"`
		Username           string        `yaml:"username"`
		Password           string        `yaml:"password"`
		Environment        string        `yaml:"environment"`
		RequestTimeout     time.Duration `yaml:"request_timeout"`
		Offers             []string      `yaml:"offers"`
		ConnectMaxAttempts int           `yaml:"connect_max_attempts"`
		BackoffUnit        time.Duration `yaml:"backoff_unit"`
	} `yaml:"fxcm"`
	Ingest struct {
		Broker              string        `yaml:"broker"`
		Timeframes          []string      `yaml:"timeframes"`
		PollInterval        time.Duration `yaml:"poll_interval"`
		AnchorMaxIterations int           `yaml:"anchor_max_iterations"`
		QuoteRetryWait      time.Duration `yaml:"quote_retry_wait"`
	} `yaml:"ingest"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		BatchSize    int           `yaml:"batch_size"`
		Linger       time.Duration `yaml:"linger"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		QuoteTTL time.Duration `yaml:"quote_ttl"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

// LoadWithEnv loads config from YAML, merging a .env file (if present)
// and environment variable overrides for deployment-specific values.
// Validation runs after the overrides, so secrets may come from the
// environment alone.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FXCM_GATEWAY_URL"); v != "" {
		c.FXCM.GatewayURL = v
	}
	if v := os.Getenv("FXCM_USERNAME"); v != "" {
		c.FXCM.Username = v
	}
	if v := os.Getenv("FXCM_PASSWORD"); v != "" {
		c.FXCM.Password = v
	}
	if v := os.Getenv("FXCM_OFFERS"); v != "" {
		c.FXCM.Offers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.FXCM.Environment == "" {
		c.FXCM.Environment = "demo"
	}
	if c.FXCM.RequestTimeout == 0 {
		c.FXCM.RequestTimeout = 30 * time.Second
	}
	if c.FXCM.ConnectMaxAttempts == 0 {
		c.FXCM.ConnectMaxAttempts = 10
	}
	if c.FXCM.BackoffUnit == 0 {
		c.FXCM.BackoffUnit = time.Second
	}
	if c.Ingest.Broker == "" {
		c.Ingest.Broker = "fxcm"
	}
	if len(c.Ingest.Timeframes) == 0 {
		for _, tf := range models.SupportedTimeframes() {
			c.Ingest.Timeframes = append(c.Ingest.Timeframes, string(tf))
		}
	}
	if c.Ingest.PollInterval == 0 {
		c.Ingest.PollInterval = time.Minute
	}
	if c.Ingest.AnchorMaxIterations == 0 {
		c.Ingest.AnchorMaxIterations = 64
	}
	if c.Ingest.QuoteRetryWait == 0 {
		c.Ingest.QuoteRetryWait = 2 * time.Second
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "fxpull.bars"
	}
	if c.Redis.QuoteTTL == 0 {
		c.Redis.QuoteTTL = time.Minute
	}
}

// Validate checks the cross-field constraints that matter at startup.
func (c *Config) Validate() error {
	if c.FXCM.GatewayURL == "" {
		return fmt.Errorf("fxcm.gateway_url is required")
	}
	if c.FXCM.Username == "" || c.FXCM.Password == "" {
		return fmt.Errorf("fxcm credentials are required")
	}
	if c.FXCM.Environment != "demo" && c.FXCM.Environment != "real" {
		return fmt.Errorf("fxcm.environment must be 'demo' or 'real', got '%s'", c.FXCM.Environment)
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	for _, tf := range c.Ingest.Timeframes {
		if !models.IsValidTimeframe(models.Timeframe(tf)) {
			return fmt.Errorf("unsupported timeframe '%s'", tf)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// Timeframes returns the configured timeframes as typed values.
func (c *Config) Timeframes() []models.Timeframe {
	out := make([]models.Timeframe, 0, len(c.Ingest.Timeframes))
	for _, tf := range c.Ingest.Timeframes {
		out = append(out, models.Timeframe(tf))
	}
	return out
}
