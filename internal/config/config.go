package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Bot        BotConfig        `mapstructure:"bot"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Session    SessionConfig    `mapstructure:"session"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Exports    ExportsConfig    `mapstructure:"exports"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

// ServerConfig configures the collaborator API (chat, upload, export)
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BackendConfig tells clients where the collaborators live
type BackendConfig struct {
	// Mode is "http" to call BaseURL or "standalone" to answer in-process
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
	// TrustedProxies are addresses or CIDR ranges allowed to set X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// SessionConfig controls how long an idle conversation lives
type SessionConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type VoiceConfig struct {
	// AutoSendDelay is the edit window before a transcript is sent; 0 disables auto-send
	AutoSendDelay time.Duration `mapstructure:"auto_send_delay"`
}

type UploadsConfig struct {
	Directory   string `mapstructure:"directory"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

type ExportsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	// Directory holds extra <lang>.json message files layered over the built-in ones
	Directory string `mapstructure:"directory"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("backend.mode", "http")
	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 60*time.Second)

	v.SetDefault("bot.update_timeout", 60)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.memory.default_expiration", 24*time.Hour)
	v.SetDefault("storage.memory.cleanup_interval", 10*time.Minute)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.max_size", 1000)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("rate_limit.trusted_proxies", []string{})

	v.SetDefault("session.idle_timeout", 2*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)

	v.SetDefault("voice.auto_send_delay", 1500*time.Millisecond)

	v.SetDefault("uploads.directory", "temp_uploads")
	v.SetDefault("uploads.max_file_size", 25<<20)

	v.SetDefault("exports.ttl", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("monitoring.metrics.enabled", false)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "English")
}

// LoadConfig loads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// STUDYSPARK_BACKEND_BASE_URL overrides backend.base_url, and so on
	v.SetEnvPrefix("studyspark")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("storage.redis.addr", "REDIS_ADDR")
	v.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "REDIS_DB")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Backend.BaseURL = strings.TrimSuffix(config.Backend.BaseURL, "/")

	return &config, nil
}

// ValidateServer checks what the collaborator API needs to start
func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive, got %d", c.Server.Port)
	}
	if c.Uploads.Directory == "" {
		return fmt.Errorf("uploads directory is required")
	}
	return c.validateStorage()
}

// ValidateBot checks what the Telegram front-end needs to start
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	switch c.Backend.Mode {
	case "http":
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend base_url is required in http mode")
		}
	case "standalone":
	default:
		return fmt.Errorf("unsupported backend mode: %s", c.Backend.Mode)
	}
	if c.Voice.AutoSendDelay < 0 {
		return fmt.Errorf("voice auto_send_delay must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case "memory":
		return nil
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for redis storage")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}
