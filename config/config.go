package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Download DownloadConfig `mapstructure:"download"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig selects the download store backing. An empty path keeps
// state in memory; a path switches to the BoltDB-backed store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DownloadConfig tunes the progression state machine
type DownloadConfig struct {
	// Tick is the progression cadence; each tick advances a download by
	// 20 percentage points.
	Tick time.Duration `mapstructure:"tick"`
	// Expiry is how long a completed download stays available.
	Expiry time.Duration `mapstructure:"expiry"`
}

// ClientConfig tunes the client-side download cache
type ClientConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ReconcileDelay  time.Duration `mapstructure:"reconcile_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration from the environment (FERMATA_ prefix) and,
// when configFile is non-empty, from a YAML config file. Environment
// values win over file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("store.path", "")
	v.SetDefault("download.tick", 5*time.Second)
	v.SetDefault("download.expiry", 30*24*time.Hour)
	v.SetDefault("client.refresh_interval", 5*time.Minute)
	v.SetDefault("client.reconcile_delay", 30*time.Second)
	v.SetDefault("client.request_timeout", 15*time.Second)

	v.SetEnvPrefix("FERMATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
