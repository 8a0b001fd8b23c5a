package config

import (
	"context"
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

// EnvConfigPath names the env var holding an optional YAML config file.
const EnvConfigPath = "PDMIMPORT_CONFIG"

// FlagConfig is the flag naming an optional YAML config file.
const FlagConfig = "config"

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"log-format":   "log_format",
	"dump":         "dump_path",
	"result":       "result_path",
	"store-driver": "store_driver",
	"commit":       "commit",
	"purge":        "purge",
	"bootstrap":    "bootstrap",
}

// BindFlags registers the flags Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := New()
	fs.String(FlagConfig, "", "YAML config file (overrides "+EnvConfigPath+")")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.String("log-format", d.LogFormat, "log format: text or json")
	fs.String("dump", d.DumpPath, "pre-decoded pump dump to import")
	fs.String("result", d.ResultPath, "audit log path, truncated on every run")
	fs.String("store-driver", d.StoreDriver, "store driver: mongo or memory")
	fs.Bool("commit", d.Commit, "write to the store (default is a dry run)")
	fs.Bool("purge", d.Purge, "delete prior pump documents before importing (requires --commit)")
	fs.Bool("bootstrap", d.Bootstrap, "import everything when no prior download event exists")
}

// Load builds a Config by layering defaults, optional file, env vars and flags.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from --config or PDMIMPORT_CONFIG
//  3. env (prefix PDMIMPORT_)
//  4. flags explicitly set on fs (fs may be nil)
func Load(_ context.Context, fs *pflag.FlagSet) (*Config, error) {
	base := New()

	k := koanf.New(".")

	path := os.Getenv(EnvConfigPath)
	if fs != nil {
		if f := fs.Lookup(FlagConfig); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: PDMIMPORT_DUMP_PATH, PDMIMPORT_COMMIT, ...
	// Underscores are preserved to match the flat koanf tags.
	envProvider := env.Provider("PDMIMPORT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "pdmimport_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	if fs != nil {
		flagProvider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, fmt.Errorf("%w: flags: %w", ErrLoadConfig, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
