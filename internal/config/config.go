// Package config reads linllc settings from the config file, LINLLC_*
// environment variables and defaults, in that order of precedence
// (environment first).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "LINLLC"

	DefaultSmartExpandThreshold = 200
	DefaultOverscan             = 5
	DefaultWebAddr              = "127.0.0.1:8377"
)

type Config struct {
	DataDir              string `mapstructure:"data_dir"`
	LogLevel             string `mapstructure:"log_level"`
	Format               string `mapstructure:"format"`
	SmartExpandThreshold int    `mapstructure:"smart_expand_threshold"`
	TUI                  TUI    `mapstructure:"tui"`
	Web                  Web    `mapstructure:"web"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type TUI struct {
	Overscan int `mapstructure:"overscan"`
}

type Web struct {
	Addr string `mapstructure:"addr"`
}

// DefaultPath is $HOME/.config/linllc/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "linllc", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "linllc"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("format", "json")
	v.SetDefault("smart_expand_threshold", DefaultSmartExpandThreshold)
	v.SetDefault("tui.overscan", DefaultOverscan)
	v.SetDefault("web.addr", DefaultWebAddr)
}

// Load reads the config. An explicit file must exist; the default location
// is optional.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := strings.TrimSpace(file) != ""
	if explicit {
		v.SetConfigFile(file)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "linllc"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.SmartExpandThreshold <= 0 {
		cfg.SmartExpandThreshold = DefaultSmartExpandThreshold
	}
	if cfg.TUI.Overscan < 0 {
		cfg.TUI.Overscan = 0
	}
	return cfg, nil
}

// NewLogger builds the process logger. Unknown levels are an error so a
// typo in the config does not silently hide messages.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	lvl := logrus.WarnLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	logger.SetLevel(lvl)
	return logger, nil
}
