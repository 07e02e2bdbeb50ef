// SPDX-License-Identifier: EPL-2.0

// Package config loads audplay.Config from defaults, a YAML file, AUDPLAY_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/audplay"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUDPLAY_SAMPLE_RATE.
const EnvPrefix = "AUDPLAY"

// Flags maps command line flag names to configuration keys.
var Flags = map[string]string{
	"base-path":   "base_path",
	"extension":   "extension",
	"sample-rate": "sample_rate",
	"buffer-size": "buffer_size",
	"log-level":   "log_level",
	"log-format":  "log_format",
}

// Load reads path, or audplay.yaml from the working directory and the user
// config directory when path is empty. Missing search-path files are not an
// error; a missing explicit path is. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (audplay.Config, error) {
	v := viper.New()
	setDefaults(v, audplay.DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range Flags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return audplay.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("audplay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "audplay"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return audplay.Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"file":     v.ConfigFileUsed(),
		}).Debug("Config file loaded")
	}

	var cfg audplay.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return audplay.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return audplay.Config{}, err
	}
	return cfg, nil
}

// RegisterFlags adds the configuration flags to fs with the defaults shown.
func RegisterFlags(fs *pflag.FlagSet) {
	d := audplay.DefaultConfig()
	fs.String("base-path", d.BasePath, "directory sound names are resolved against")
	fs.String("extension", d.Extension, "extension appended to sound names")
	fs.Int("sample-rate", d.SampleRate, "graph and output sample rate in Hz")
	fs.Duration("buffer-size", d.BufferSize, "output device buffer length")
	fs.String("log-level", d.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text or json)")
}

func setDefaults(v *viper.Viper, d audplay.Config) {
	v.SetDefault("base_path", d.BasePath)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("buffer_size", d.BufferSize)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}
