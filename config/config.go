// Package config provides engine option loading from environment variables
// and .env files. It uses viper for flexible configuration management with
// sensible defaults. Embedding hosts may ignore this package entirely and
// construct registries directly; the CLI and simple hosts load from here.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds tunable engine options. Priority: environment variables >
// .env file > defaults. Load only reads and validates the values: within
// this module only StrictDecode is consulted (by the CLI's lint command);
// Namespace, HistoryLimit and DefaultSalt are not applied automatically.
type Config struct {
	Namespace    string // namespace id for the host
	HistoryLimit int    // rollback history bound per registry
	StrictDecode bool   // strict (reject) vs lenient (skip/fill) decoding
	DefaultSalt  string // salt value for the host's flag definitions
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // optional; ignored when absent
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Namespace:    strings.TrimSpace(v.GetString("FLAGCORE_NAMESPACE")),
		HistoryLimit: v.GetInt("FLAGCORE_HISTORY_LIMIT"),
		StrictDecode: v.GetBool("FLAGCORE_STRICT_DECODE"),
		DefaultSalt:  strings.TrimSpace(v.GetString("FLAGCORE_DEFAULT_SALT")),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("FLAGCORE_NAMESPACE", "app")
	v.SetDefault("FLAGCORE_HISTORY_LIMIT", 10)
	v.SetDefault("FLAGCORE_STRICT_DECODE", true)
	v.SetDefault("FLAGCORE_DEFAULT_SALT", "v1")
}

func validate(cfg *Config) error {
	if cfg.Namespace == "" {
		return fmt.Errorf("FLAGCORE_NAMESPACE must not be empty")
	}
	if cfg.HistoryLimit <= 0 {
		return fmt.Errorf("FLAGCORE_HISTORY_LIMIT must be positive")
	}
	if cfg.DefaultSalt == "" {
		return fmt.Errorf("FLAGCORE_DEFAULT_SALT must not be empty")
	}
	return nil
}
