package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Bot        BotConfig        `yaml:"bot"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// APIConfig points the client at the booking backend.
type APIConfig struct {
	BaseURL        string             `yaml:"base_url"`
	TimeoutSeconds int                `yaml:"timeout_seconds"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// SessionConfig describes the token cookie.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTLDays    int    `yaml:"ttl_days"`
	StorePath  string `yaml:"store_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// DashboardConfig holds form defaults and the zone booking dates are entered in.
type DashboardConfig struct {
	Timezone         string `yaml:"timezone"`
	DefaultStartTime string `yaml:"default_start_time"`
	DefaultEndTime   string `yaml:"default_end_time"`
}

type BotConfig struct {
	PaginationSize    int `yaml:"pagination_size"`
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.Session.TTLDays < 0 {
		return errors.New("session ttl_days must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("dashboard timezone: %w", err)
	}
	for _, v := range []string{c.Dashboard.DefaultStartTime, c.Dashboard.DefaultEndTime} {
		if _, err := time.Parse(models.ClockLayout, v); err != nil {
			return fmt.Errorf("invalid default time %q: expected HH:MM", v)
		}
	}
	return nil
}

// ValidateBot checks the settings only the Telegram front-end needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	return nil
}

// SessionTTL is the lifetime of the token cookie.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLDays) * 24 * time.Hour
}

// APITimeout is the per-request HTTP timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Location resolves the dashboard time zone; empty or "Local" means the host zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Dashboard.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "easybooking"
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = models.DefaultAPITimeout
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = models.DefaultCookieName
	}
	if c.Session.TTLDays == 0 {
		c.Session.TTLDays = models.DefaultSessionTTLDays
	}
	if c.Session.StorePath == "" {
		c.Session.StorePath = "data/cookies.db"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Dashboard.DefaultStartTime == "" {
		c.Dashboard.DefaultStartTime = models.DefaultStartTime
	}
	if c.Dashboard.DefaultEndTime == "" {
		c.Dashboard.DefaultEndTime = models.DefaultEndTime
	}
	if c.Bot.PaginationSize == 0 {
		c.Bot.PaginationSize = models.DefaultPaginationSize
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
