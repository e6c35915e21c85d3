package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/followup-api/pkg/logger"
	redisbroker "github.com/jwalitptl/followup-api/pkg/messaging/redis"
	"github.com/jwalitptl/followup-api/pkg/worker"
)

const envPrefix = "FOLLOWUP"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	TrustedProxies []string      `mapstructure:"trusted_proxies" split_words:"true"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" split_words:"true"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

// ToBrokerConfig converts the redis section for the broker.
func (c RedisConfig) ToBrokerConfig() redisbroker.Config {
	return redisbroker.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ToWorkerConfig converts the outbox section for the processor publishing
// to channel.
func (c OutboxConfig) ToWorkerConfig(channel string) worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       channel,
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

type RateLimitConfig struct {
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

type MonitoringConfig struct {
	Namespace   string `mapstructure:"namespace"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.ParseLevel(c.Level),
		Pretty: c.Pretty,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "followup")
	v.SetDefault("database.name", "followup")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.issuer", "followup-api")
	v.SetDefault("jwt.expiry_hours", 12)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "followup.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)

	v.SetDefault("rate_limit.login_rps", 1)
	v.SetDefault("rate_limit.login_burst", 5)

	v.SetDefault("monitoring.namespace", "followup")
	v.SetDefault("monitoring.metrics_path", "/health/metrics")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml (if present) and overlays FOLLOWUP_*
// environment variables.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile reads the config from path instead of the search paths.
// An empty path searches as LoadConfig does.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/app")
		v.AddConfigPath("/app/configs")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	sections := map[string]interface{}{
		"SERVER":   &cfg.Server,
		"DATABASE": &cfg.Database,
		"JWT":      &cfg.JWT,
		"REDIS":    &cfg.Redis,
		"LOG":      &cfg.Log,
	}
	for name, section := range sections {
		if err := envconfig.Process(envPrefix+"_"+name, section); err != nil {
			return fmt.Errorf("failed to read %s environment: %w", strings.ToLower(name), err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
