package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var Version = "dev"

//go:embed default.yaml
var defaultConfig []byte

const (
	DefaultMaxDuration    = 180 * time.Second
	DefaultSocketTimeout  = 30 * time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultSweepInterval  = 5 * time.Minute
	DefaultFileMaxAge     = time.Hour
	MB                    = 1024 * 1024
)

type LogConfig struct {
	Level  string `yaml:"level" env:"CLIPBOT_LOG_LEVEL"`
	Format string `yaml:"format" env:"CLIPBOT_LOG_FORMAT"`
	File   string `yaml:"file" env:"CLIPBOT_LOG_FILE"`
}

type TelegramConfig struct {
	Token          string `yaml:"token" env:"BOT_TOKEN"`
	PollTimeout    int    `yaml:"poll_timeout" env:"CLIPBOT_TELEGRAM_POLL_TIMEOUT"`
	RequestTimeout string `yaml:"request_timeout" env:"CLIPBOT_TELEGRAM_REQUEST_TIMEOUT"`
}

// GetRequestTimeout returns the HTTP client timeout used for Bot API calls.
// Uploads of large files need more than the default client allows.
func (c *TelegramConfig) GetRequestTimeout() time.Duration {
	return parseDuration(c.RequestTimeout, DefaultRequestTimeout)
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN"`
	AppID string `yaml:"app_id" env:"DISCORD_APP_ID"`
}

type DownloadConfig struct {
	Dir                 string `yaml:"dir" env:"CLIPBOT_DOWNLOAD_DIR"`
	MaxFileSizeMB       int64  `yaml:"max_file_size_mb" env:"CLIPBOT_MAX_FILE_SIZE_MB"`
	MaxDuration         string `yaml:"max_duration" env:"CLIPBOT_MAX_DURATION"`
	SocketTimeout       string `yaml:"socket_timeout" env:"CLIPBOT_SOCKET_TIMEOUT"`
	Retries             int    `yaml:"retries" env:"CLIPBOT_RETRIES"`
	ConcurrentFragments int    `yaml:"concurrent_fragments" env:"CLIPBOT_CONCURRENT_FRAGMENTS"`
	YtdlpPath           string `yaml:"ytdlp_path" env:"CLIPBOT_YTDLP_PATH"`
	FFmpegPath          string `yaml:"ffmpeg_path" env:"CLIPBOT_FFMPEG_PATH"`
	CookiesFile         string `yaml:"cookies_file" env:"CLIPBOT_COOKIES_FILE"`
	Proxy               string `yaml:"proxy" env:"CLIPBOT_PROXY"`
	UserAgent           string `yaml:"user_agent" env:"CLIPBOT_USER_AGENT"`
}

// MaxFileSize returns the size cap in bytes.
func (c *DownloadConfig) MaxFileSize() int64 {
	return c.MaxFileSizeMB * MB
}

func (c *DownloadConfig) GetMaxDuration() time.Duration {
	return parseDuration(c.MaxDuration, DefaultMaxDuration)
}

func (c *DownloadConfig) GetSocketTimeout() time.Duration {
	return parseDuration(c.SocketTimeout, DefaultSocketTimeout)
}

type JanitorConfig struct {
	Interval     string `yaml:"interval" env:"CLIPBOT_JANITOR_INTERVAL"`
	MaxAge       string `yaml:"max_age" env:"CLIPBOT_JANITOR_MAX_AGE"`
	ClearOnStart bool   `yaml:"clear_on_start" env:"CLIPBOT_JANITOR_CLEAR_ON_START"`
}

func (c *JanitorConfig) GetInterval() time.Duration {
	return parseDuration(c.Interval, DefaultSweepInterval)
}

func (c *JanitorConfig) GetMaxAge() time.Duration {
	return parseDuration(c.MaxAge, DefaultFileMaxAge)
}

type ServerConfig struct {
	Enabled            bool     `yaml:"enabled" env:"CLIPBOT_SERVER_ENABLED"`
	Listen             string   `yaml:"listen" env:"CLIPBOT_SERVER_LISTEN"`
	CORSOrigins        []string `yaml:"cors_origins" env:"CLIPBOT_CORS_ORIGINS"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" env:"CLIPBOT_RATE_LIMIT"`
}

type AlertsConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url" env:"DISCORD_WEBHOOK_URL"`
	DiscordPingUserID string `yaml:"discord_ping_user_id" env:"DISCORD_PING_USER_ID"`
	SlackWebhookURL   string `yaml:"slack_webhook_url" env:"SLACK_WEBHOOK_URL"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Download DownloadConfig `yaml:"download"`
	Janitor  JanitorConfig  `yaml:"janitor"`
	Server   ServerConfig   `yaml:"server"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// LoadEnv loads a .env file from the working directory when one exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Load reads the embedded defaults, merges the YAML file at path on top
// and applies environment overrides last.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parse default config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Warn("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Telegram.Token == "" && c.Discord.Token == "" {
		errs = append(errs, errors.New("a bot token is required (BOT_TOKEN or DISCORD_TOKEN)"))
	}
	if c.Discord.Token != "" && c.Discord.AppID == "" {
		errs = append(errs, errors.New("discord.app_id is required when discord.token is set"))
	}
	if c.Download.Dir == "" {
		errs = append(errs, errors.New("download.dir is required"))
	}
	if c.Download.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("download.max_file_size_mb must be positive, got %d", c.Download.MaxFileSizeMB))
	}
	if c.Download.Retries < 0 {
		errs = append(errs, fmt.Errorf("download.retries must not be negative, got %d", c.Download.Retries))
	}
	if c.Download.ConcurrentFragments <= 0 {
		errs = append(errs, fmt.Errorf("download.concurrent_fragments must be positive, got %d", c.Download.ConcurrentFragments))
	}

	durations := map[string]string{
		"download.max_duration":    c.Download.MaxDuration,
		"download.socket_timeout":  c.Download.SocketTimeout,
		"telegram.request_timeout": c.Telegram.RequestTimeout,
		"janitor.interval":         c.Janitor.Interval,
		"janitor.max_age":          c.Janitor.MaxAge,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration format %q: %w", name, v, err))
		}
	}

	if c.Server.Enabled && c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required when server.enabled is true"))
	}

	return errors.Join(errs...)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
