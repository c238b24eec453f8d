package config

import (
	"fmt"
	"os"
	"time"

	"HourCast/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Feed struct {
		BaseURL      string        `yaml:"base_url"`
		CoinID       string        `yaml:"coin_id"`
		VsCurrency   string        `yaml:"vs_currency"`
		Shape        string        `yaml:"shape"` // "samples" or "candles"
		Timeout      time.Duration `yaml:"timeout"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"feed"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbol         string        `yaml:"symbol"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Tally struct {
		CutoverOffset time.Duration `yaml:"cutover_offset"` // past midnight UTC
		LookbackDays  int           `yaml:"lookback_days"`
		Topic         string        `yaml:"topic"`
	} `yaml:"tally"`
	Postgres struct {
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Database string        `yaml:"database"`
		User     string        `yaml:"user"`
		Password string        `yaml:"password"`
		SSLMode  string        `yaml:"ssl_mode"`
		MaxConns int           `yaml:"max_conns"`
		MinConns int           `yaml:"min_conns"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		RefreshTopic string   `yaml:"refresh_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled        bool          `yaml:"enabled"`
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		Password       string        `yaml:"password"`
		DB             int           `yaml:"db"`
		LeaderboardTTL time.Duration `yaml:"leaderboard_ttl"`
	} `yaml:"redis"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		c.Feed.BaseURL = v
	}
	if v := os.Getenv("FEED_COIN_ID"); v != "" {
		c.Feed.CoinID = v
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
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
	if c.Feed.VsCurrency == "" {
		c.Feed.VsCurrency = "usd"
	}
	if c.Feed.Shape == "" {
		c.Feed.Shape = "samples"
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 15 * time.Second
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = 5 * time.Minute
	}
	if c.Tally.CutoverOffset == 0 {
		c.Tally.CutoverOffset = 3 * time.Minute
	}
	if c.Tally.LookbackDays == 0 {
		c.Tally.LookbackDays = 2
	}
	if c.Tally.Topic == "" {
		c.Tally.Topic = "hourcast.tally.completed"
	}
	if c.Kafka.RefreshTopic == "" {
		c.Kafka.RefreshTopic = "hourcast.actuals.refreshed"
	}
	if c.Kafka.LogsTopic == "" {
		c.Kafka.LogsTopic = "hourcast.logs"
	}
	if c.Redis.LeaderboardTTL == 0 {
		c.Redis.LeaderboardTTL = 30 * time.Second
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.CoinID == "" {
		return fmt.Errorf("feed.coin_id is required")
	}
	if c.Feed.Shape != "samples" && c.Feed.Shape != "candles" {
		return fmt.Errorf("feed.shape must be 'samples' or 'candles', got '%s'", c.Feed.Shape)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	if c.Tally.LookbackDays < 1 {
		return fmt.Errorf("tally.lookback_days must be at least 1")
	}
	if c.Stream.Enabled && c.Stream.WebSocketURL == "" {
		return fmt.Errorf("stream.websocket_url is required when stream is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
