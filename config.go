// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ik5/audplay/assets"
	"github.com/sirupsen/logrus"
)

// Config is the engine configuration. Field tags name the keys used in
// configuration files and AUDPLAY_* environment variables.
type Config struct {
	BasePath   string        `mapstructure:"base_path"`
	Extension  string        `mapstructure:"extension"`
	SampleRate int           `mapstructure:"sample_rate"`
	BufferSize time.Duration `mapstructure:"buffer_size"`
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
}

func DefaultConfig() Config {
	return Config{
		Extension:  assets.DefaultExtension,
		SampleRate: 44100,
		BufferSize: 100 * time.Millisecond,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample_rate %d out of range [8000, 192000]", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer_size must be positive, got %v", ErrInvalidConfig, c.BufferSize)
	}
	if strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("%w: extension %q", ErrInvalidConfig, c.Extension)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q, want text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ConfigureLogging applies LogLevel and LogFormat to the standard logrus logger.
func (c Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
