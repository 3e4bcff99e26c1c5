// Package config resolves aws-switch settings from command-line flags and the
// optional ~/.aws-switch/config.toml file.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/paths"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/storage"
)

const (
	KeyLogLevel = "log-level"
	KeyHome     = "home"

	DefaultLogLevel = "debug"
)

// Config holds the resolved settings. Flags take precedence over the file.
type Config struct {
	LogLevel string `mapstructure:"log-level"`
	Home     string `mapstructure:"home"`
	// File is the config file that was read, empty when none exists.
	File string `mapstructure:"-"`
}

// RegisterFlags adds the persistent flags to flags and binds them to v.
func RegisterFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.StringP(KeyLogLevel, "l", DefaultLogLevel, "log level: off, error, warn, info, debug or trace")
	flags.String(KeyHome, "", "home directory containing .aws (default: the current user's home)")
	for _, key := range []string{KeyLogLevel, KeyHome} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves the home directory, reads the config file below it when
// present and returns the merged settings.
//
// The file is looked up under the home directory given on the command line
// (or the user's home), so a home set in the file only takes effect for the
// .aws directories, not for locating the file itself.
func Load(v *viper.Viper, fs afero.Fs) (Config, error) {
	home := v.GetString(KeyHome)
	if home == "" {
		dir, err := homedir.Dir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		home = dir
	}
	home, err := homedir.Expand(home)
	if err != nil {
		return Config{}, fmt.Errorf("failed to expand home directory: %w", err)
	}

	var cfg Config
	file := paths.New(home).ToolConfigPath()
	exists, err := storage.New(fs).Exists(file)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if exists {
		v.SetFs(fs)
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		cfg.File = file
	}

	v.SetDefault(KeyHome, home)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Home, err = homedir.Expand(cfg.Home); err != nil {
		return Config{}, fmt.Errorf("failed to expand home directory: %w", err)
	}
	cfg.Home = filepath.Clean(cfg.Home)
	return cfg, nil
}
