package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/soe/internal/adapters/ai"
	"github.com/okian/soe/internal/adapters/repository"
)

const (
	envPrefix = "SOE_"
	envConfig = "SOE_CONFIG"
)

// Fallback credential variables, checked in order when ai.api_key is unset.
var apiKeyEnv = []string{"API_KEY", "GEMINI_API_KEY"}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SOE_CONFIG is set
//  3. env (prefix SOE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SOE_QUEUE_SIZE -> queue_size, SOE_AI__API_KEY -> ai.api_key
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.AI.APIKey == "" {
		for _, name := range apiKeyEnv {
			if v := os.Getenv(name); v != "" {
				cfg.AI.APIKey = v
				break
			}
		}
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting. Weights are not validated:
// a sum other than 1 is legal and only warned about by the service.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Storage.Driver != "" && !slices.Contains(repository.Drivers, c.Storage.Driver):
		return fmt.Errorf("%w: unknown storage driver %q (want one of %s)",
			ErrInvalidConfig, c.Storage.Driver, strings.Join(repository.Drivers, ", "))
	case c.AI.Provider != ai.ProviderGemini && c.AI.Provider != ai.ProviderOpenAI:
		return fmt.Errorf("%w: unknown ai provider %q", ErrInvalidConfig, c.AI.Provider)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.QueueSize < 0 || c.WorkerCount < 0 || c.DedupeSize < 0:
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	}
	for i, r := range c.Alerts.Rules {
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Expr) == "" {
			return fmt.Errorf("%w: alerts.rules[%d] needs a name and an expr", ErrInvalidConfig, i)
		}
	}
	return nil
}
