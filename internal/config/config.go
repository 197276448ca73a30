package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "development-insecure-secret-change-me"

// Config holds every runtime setting of the API.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Cache    CacheConfig    `mapstructure:"cache"`
	App      AppConfig      `mapstructure:"app"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type CacheConfig struct {
	MembershipTTL time.Duration `mapstructure:"membership_ttl"`
}

type AppConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Environment string `mapstructure:"environment"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8008")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tasks-management.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.issuer", "task-management-api")
	v.SetDefault("jwt.audience", "task-management-clients")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cache.membership_ttl", 30*time.Second)
	v.SetDefault("app.base_url", "http://localhost:5173")
	v.SetDefault("app.environment", "development")
}

// Load reads defaults, then the config file (path, or config.yaml in . and
// ./config when path is empty), then environment variables such as
// DATABASE_DSN or JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// env values arrive as one comma separated string
	if len(cfg.CORS.AllowedOrigins) == 1 && strings.Contains(cfg.CORS.AllowedOrigins[0], ",") {
		cfg.CORS.AllowedOrigins = strings.Split(cfg.CORS.AllowedOrigins[0], ",")
	}
	for i, o := range cfg.CORS.AllowedOrigins {
		cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return cfg, nil
}

// Validate checks settings that would make the server unusable or unsafe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server.port is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return errors.New("jwt.secret must be set in production")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// InviteLink builds the shareable URL for an organization invite slug.
func (c *Config) InviteLink(slug string) string {
	return strings.TrimRight(c.App.BaseURL, "/") + "/join/" + slug
}
