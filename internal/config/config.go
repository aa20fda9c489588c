// Package config resolves runtime configuration by layering, in order of
// increasing precedence: defaults, an optional YAML file, SRS_* environment
// variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all resolved settings. The database path is always passed
// explicitly into the storage layer; nothing below this package resolves
// paths from the working directory.
type Config struct {
	DB         string `koanf:"db"`
	DueLimit   int    `koanf:"due-limit"`
	Listen     string `koanf:"listen"`
	ArchiveDir string `koanf:"archive-dir"`
}

// Defaults mirror the conventional per-project layout: learning data
// lives under .ai-learn/ next to the project being studied.
const (
	DefaultDB         = ".ai-learn/srs.db"
	DefaultDueLimit   = 20
	DefaultListen     = ":8877"
	DefaultArchiveDir = ".ai-learn/archive"
)

// RegisterFlags adds the shared configuration flags to a flag set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a YAML config file")
	flags.String("db", DefaultDB, "Path to the SQLite database file")
	flags.Int("due-limit", DefaultDueLimit, "Maximum number of due cards to return")
	flags.String("listen", DefaultListen, "Listen address for the serve command")
	flags.String("archive-dir", DefaultArchiveDir, "Directory for git snapshots of exports")
}

// Load resolves the configuration from the parsed flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("srs.yaml"); err == nil {
		if err := k.Load(file.Provider("srs.yaml"), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load srs.yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider("SRS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SRS_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
