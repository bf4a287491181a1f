// Package config provides YAML-based configuration loading for bosun.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level bosun configuration, loaded from bosun.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql or sqlite
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Path         string `yaml:"path"` // sqlite file
	DSN          string `yaml:"dsn"`  // overrides host/port/name/user/password
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// RedisConfig enables the status cache and the digest lock when Addr is set.
type RedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	StatusTTLSeconds int    `yaml:"status_ttl_seconds"`
}

// Enabled reports whether a redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// NotifyConfig configures where maintenance digests are delivered.
type NotifyConfig struct {
	Platform string        `yaml:"platform"` // slack, discord, github, or empty
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	GitHub   GitHubConfig  `yaml:"github"`
	Digest   DigestConfig  `yaml:"digest"`
}

// SlackConfig holds Slack bot credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// GitHubConfig points digests at a repository's issue tracker.
type GitHubConfig struct {
	Token  string   `yaml:"token"`
	Owner  string   `yaml:"owner"`
	Repo   string   `yaml:"repo"`
	Labels []string `yaml:"labels"`
}

// DigestConfig controls the scheduled maintenance digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file in the working directory, if present, is loaded first so its
// values can override the file through BOSUN_* variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secrets and endpoints from the environment.
func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"BOSUN_DATABASE_DSN", &c.Database.DSN},
		{"BOSUN_JWT_SECRET", &c.Auth.JWTSecret},
		{"BOSUN_REDIS_ADDR", &c.Redis.Addr},
		{"BOSUN_SLACK_BOT_TOKEN", &c.Notify.Slack.BotToken},
		{"BOSUN_DISCORD_BOT_TOKEN", &c.Notify.Discord.BotToken},
		{"BOSUN_GITHUB_TOKEN", &c.Notify.GitHub.Token},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv("BOSUN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "bosun"
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	case "sqlite":
		if c.Database.Path == "" {
			c.Database.Path = "bosun.db"
		}
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "bosun"
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Redis.StatusTTLSeconds == 0 {
		c.Redis.StatusTTLSeconds = 300
	}
	if c.Notify.Digest.Cron == "" {
		c.Notify.Digest.Cron = "0 7 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	n := c.Notify
	switch n.Platform {
	case "":
		if n.Digest.Enabled {
			errs = append(errs, "notify.platform is required when the digest is enabled")
		}
	case "slack":
		if n.Slack.BotToken == "" {
			errs = append(errs, "notify.slack.bot_token is required")
		}
		if n.Slack.ChannelID == "" {
			errs = append(errs, "notify.slack.channel_id is required")
		}
	case "discord":
		if n.Discord.BotToken == "" {
			errs = append(errs, "notify.discord.bot_token is required")
		}
		if n.Discord.ChannelID == "" {
			errs = append(errs, "notify.discord.channel_id is required")
		}
	case "github":
		if n.GitHub.Token == "" {
			errs = append(errs, "notify.github.token is required")
		}
		if n.GitHub.Owner == "" || n.GitHub.Repo == "" {
			errs = append(errs, "notify.github.owner and notify.github.repo are required")
		}
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q must be slack, discord or github", n.Platform))
	}
	if _, err := cron.ParseStandard(n.Digest.Cron); err != nil {
		errs = append(errs, fmt.Sprintf("notify.digest.cron %q: %v", n.Digest.Cron, err))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
