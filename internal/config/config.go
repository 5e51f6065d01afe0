package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	AssetDir          string        `envconfig:"ASSET_DIR" default:"./data/templates"`
	AllowedOrigins    string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	PresetFile        string        `envconfig:"PRESET_FILE"`
	ExportQuality     float64       `envconfig:"EXPORT_QUALITY" default:"0.9"`
	MaxImageBytes     int64         `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
	MaxImageSide      int           `envconfig:"MAX_IMAGE_SIDE" default:"4096"`
	LoadTimeout       time.Duration `envconfig:"LOAD_TIMEOUT" default:"15s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	PrivateImageHosts bool          `envconfig:"ALLOW_PRIVATE_IMAGE_HOSTS" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
