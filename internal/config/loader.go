package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MEEPLE_"

// Load builds a Config by layering defaults, optional files, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. dotenv file if MEEPLE_ENV_FILE is set (exports into the environment)
//  3. YAML file if MEEPLE_CONFIG is set
//  4. env (prefix MEEPLE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	if path := os.Getenv(envPrefix + "ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: env file: %w", ErrLoadConfig, err)
		}
	}

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// MEEPLE_CACHE_TTL -> cache_ttl; underscores are kept to match the flat
	// koanf tags. List keys take comma separated values.
	envProvider := env.ProviderWithValue(envPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
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

// listKeys are the keys whose env value is a comma separated list.
var listKeys = map[string]struct{}{
	"cors_allowed_origins": {},
}

func envValue(name, value string) (string, interface{}) {
	key := strings.TrimPrefix(strings.ToLower(name), strings.ToLower(envPrefix))
	if _, ok := listKeys[key]; !ok {
		return key, value
	}
	items := make([]string, 0, strings.Count(value, ",")+1)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}
