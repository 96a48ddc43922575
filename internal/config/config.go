package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Dashboard DashboardConfig
	MyData    MyDataConfig `mapstructure:"mydata"`
	UI        UIConfig
	CORS      CORSConfig
	Log       LogConfig
	Cameras   []CameraConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string
	Mode            string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FeedConfig points at the CSV resource with recognition results.
type FeedConfig struct {
	URL       string
	Timeout   time.Duration
	StaticDir string `mapstructure:"static_dir"`
}

type DashboardConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RecentLimit     int           `mapstructure:"recent_limit"`
}

type MyDataConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Timezone string
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// CameraConfig describes one entry of the camera switcher.
type CameraConfig struct {
	ID   int
	Name string
}

var defaultCameras = []map[string]any{
	{"id": 1, "name": "Laptop Camera"},
	{"id": 2, "name": "Mobile Camera"},
}

// Load reads configuration from an optional .env file, an optional config
// file and the environment. Env var overrides use prefix ANPR_.
func Load() (*Config, error) {
	// .env is optional; real env vars win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("ANPR_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ANPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("feed.url", "http://localhost:8080/ml-data/all_license_plates.csv")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.static_dir", "./ml-data")
	v.SetDefault("dashboard.refresh_interval", 15*time.Second)
	v.SetDefault("dashboard.recent_limit", 10)
	v.SetDefault("mydata.page_size", 10)
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("cameras", defaultCameras)
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return errors.New("config: feed.url is required")
	}
	if c.Feed.Timeout <= 0 {
		return errors.New("config: feed.timeout must be positive")
	}
	if c.Dashboard.RefreshInterval <= 0 {
		return errors.New("config: dashboard.refresh_interval must be positive")
	}
	if c.Dashboard.RecentLimit <= 0 {
		return errors.New("config: dashboard.recent_limit must be positive")
	}
	if c.MyData.PageSize <= 0 {
		return errors.New("config: mydata.page_size must be positive")
	}
	if len(c.Cameras) == 0 {
		return errors.New("config: at least one camera is required")
	}
	if _, err := c.UI.Location(); err != nil {
		return fmt.Errorf("config: ui.timezone: %w", err)
	}
	return nil
}

// Location resolves the configured timezone.
func (u UIConfig) Location() (*time.Location, error) {
	if u.Timezone == "" || u.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(u.Timezone)
}
