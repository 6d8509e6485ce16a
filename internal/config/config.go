// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment keys.
const (
	EnvAddr          = "POSEWALL_ADDR"
	EnvDataDir       = "POSEWALL_DATA_DIR"
	EnvWebDir        = "POSEWALL_WEB_DIR"
	EnvPluginDir     = "POSEWALL_PLUGIN_DIR"
	EnvCameraID      = "POSEWALL_CAMERA_ID"
	EnvMirror        = "POSEWALL_MIRROR"
	EnvNative        = "POSEWALL_NATIVE"
	EnvTray          = "POSEWALL_TRAY"
	EnvLives         = "POSEWALL_LIVES"
	EnvPassThreshold = "POSEWALL_PASS_THRESHOLD"
	EnvFrameRate     = "POSEWALL_FRAME_RATE"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFile       = "LOG_FILE"
)

// Config holds the process settings.
type Config struct {
	Addr string `env:"POSEWALL_ADDR" envDefault:":8080" validate:"required"`
	// DataDir defaults to ~/.posewall.
	DataDir string `env:"POSEWALL_DATA_DIR" validate:"required"`
	WebDir  string `env:"POSEWALL_WEB_DIR"`
	// PluginDir defaults to DataDir/plugins.
	PluginDir string `env:"POSEWALL_PLUGIN_DIR"`
	CameraID  int    `env:"POSEWALL_CAMERA_ID" envDefault:"0" validate:"gte=0"`
	Mirror    bool   `env:"POSEWALL_MIRROR" envDefault:"true"`
	// Native runs the camera pipeline in-process instead of waiting for
	// browser clients only.
	Native        bool   `env:"POSEWALL_NATIVE" envDefault:"false"`
	Tray          bool   `env:"POSEWALL_TRAY" envDefault:"false"`
	Lives         int    `env:"POSEWALL_LIVES" envDefault:"3" validate:"gte=1,lte=99"`
	PassThreshold int    `env:"POSEWALL_PASS_THRESHOLD" envDefault:"70" validate:"gte=1,lte=100"`
	FrameRate     int    `env:"POSEWALL_FRAME_RATE" envDefault:"15" validate:"gte=1,lte=60"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error"`
	LogFile       string `env:"LOG_FILE"`
}

// DBPath returns the sqlite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "posewall.db")
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	cfg, _ := parse(env.Options{Environment: map[string]string{}})
	return cfg
}

var validate = validator.New()

// Load reads the given .env files, or ./.env when none are named, and then
// the process environment. Missing .env files are ignored. Variables already
// set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment. Empty variables
// count as unset.
func FromEnv() (Config, error) {
	cfg, err := parse(env.Options{})
	if err != nil {
		return Config{}, err
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = ".posewall"
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".posewall")
		}
	}
	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}
	return cfg, nil
}
