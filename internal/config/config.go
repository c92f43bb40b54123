// Package config loads blockcode settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shundroid/three-blockly/executor"
	"github.com/shundroid/three-blockly/locale"
)

// Setting keys. Flags of the same name are bound to them.
const (
	KeyLocale     = "locale"
	KeyLoopLimit  = "loop-limit"
	KeyTimeout    = "timeout"
	KeyMemory     = "memory"
	KeyPort       = "port"
	KeySessionTTL = "session-ttl"
	KeyLogLevel   = "log-level"
	KeyLogFile    = "log-file"
	KeyNoCache    = "no-cache"
)

// EnvPrefix prefixes environment overrides, e.g. BLOCKCODE_LOOP_LIMIT.
const EnvPrefix = "BLOCKCODE"

// Config holds application configuration.
type Config struct {
	Locale     string        `mapstructure:"locale"`
	LoopLimit  int           `mapstructure:"loop-limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Memory     string        `mapstructure:"memory"`
	Port       int           `mapstructure:"port"`
	SessionTTL time.Duration `mapstructure:"session-ttl"`
	LogLevel   string        `mapstructure:"log-level"`
	LogFile    string        `mapstructure:"log-file"`
	NoCache    bool          `mapstructure:"no-cache"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Locale:     locale.Default,
		LoopLimit:  executor.DefaultLoopLimit,
		Timeout:    30 * time.Second,
		Memory:     "256mb",
		Port:       8080,
		SessionTTL: 15 * time.Minute,
		LogLevel:   "info",
	}
}

// Load reads configuration. Precedence, highest first: changed flags,
// BLOCKCODE_* environment variables, the config file, defaults.
//
// The config file is BLOCKCODE_CONFIG if set, otherwise blockcode.yaml or
// blockcode.toml in the working directory or ~/.config/blockcode. A missing
// file is not an error unless it was named explicitly.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyLocale, def.Locale)
	v.SetDefault(KeyLoopLimit, def.LoopLimit)
	v.SetDefault(KeyTimeout, def.Timeout)
	v.SetDefault(KeyMemory, def.Memory)
	v.SetDefault(KeyPort, def.Port)
	v.SetDefault(KeySessionTTL, def.SessionTTL)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFile, def.LogFile)
	v.SetDefault(KeyNoCache, def.NoCache)

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blockcode")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "blockcode"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var ErrInvalid = errors.New("invalid configuration")

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.LoopLimit <= 0:
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, KeyLoopLimit, c.LoopLimit)
	case c.Timeout < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyTimeout)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: %s out of range: %d", ErrInvalid, KeyPort, c.Port)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeySessionTTL)
	}
	if _, err := c.MemoryPages(); err != nil {
		return err
	}
	return nil
}

// MemoryPages converts Memory to sandbox memory pages. Zero means no limit.
func (c Config) MemoryPages() (uint32, error) {
	switch strings.ToLower(c.Memory) {
	case "", "none":
		return 0, nil
	case "16mb":
		return executor.MemoryLimit16MB, nil
	case "64mb":
		return executor.MemoryLimit64MB, nil
	case "256mb":
		return executor.MemoryLimit256MB, nil
	case "1gb":
		return executor.MemoryLimit1GB, nil
	default:
		return 0, fmt.Errorf("%w: %s %q (expected 16mb, 64mb, 256mb, 1gb or none)", ErrInvalid, KeyMemory, c.Memory)
	}
}
