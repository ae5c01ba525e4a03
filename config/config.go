package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Forecast ForecastConfig `mapstructure:"forecast"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Checker  CheckerConfig  `mapstructure:"checker"`
	API      APIConfig      `mapstructure:"api"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ForecastConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	LocationsURL string        `mapstructure:"locations_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type CheckerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DailyAt  string `mapstructure:"daily_at"`
	Timezone string `mapstructure:"timezone"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, or config.yaml in the
// working directory or /etc/darksky-monitor. Environment variables such as
// DARKSKY_MQTT_BROKER override file values; a .env file in the working
// directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/darksky-monitor")
	}

	v.SetEnvPrefix("DARKSKY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("forecast.base_url", "https://www.cleardarksky.com/c/%skey.html")
	v.SetDefault("forecast.locations_url", "https://www.cleardarksky.com/t/chart_prop00.txt")
	v.SetDefault("forecast.user_agent", "darksky-monitor/1.0")
	v.SetDefault("forecast.retry_count", 20)
	v.SetDefault("forecast.retry_delay", "2s")
	v.SetDefault("forecast.timeout", "15s")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("checker.enabled", true)
	v.SetDefault("checker.daily_at", "07:00")
	v.SetDefault("checker.timezone", "Local")
	v.SetDefault("api.port", 8046)
	v.SetDefault("api.enabled", true)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "darksky")
	v.SetDefault("mqtt.client_id", "darksky-monitor")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("database.path", "./darksky.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.Forecast.RetryCount < 1 {
		return fmt.Errorf("forecast.retry_count must be at least 1, got %d", c.Forecast.RetryCount)
	}
	if c.Forecast.RetryDelay < 0 {
		return fmt.Errorf("forecast.retry_delay must not be negative, got %s", c.Forecast.RetryDelay)
	}
	if !strings.Contains(c.Forecast.BaseURL, "%s") {
		return fmt.Errorf("forecast.base_url must contain %%s for the location key")
	}
	if _, err := time.Parse("15:04", c.Checker.DailyAt); err != nil {
		return fmt.Errorf("checker.daily_at %q is not HH:MM", c.Checker.DailyAt)
	}
	if _, err := c.Checker.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required when the cache is enabled")
	}
	return nil
}

// Location resolves the checker timezone. "Local" and "" mean the host zone.
func (c CheckerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("checker.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
