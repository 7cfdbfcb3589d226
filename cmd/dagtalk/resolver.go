package main

import (
	"context"
	"fmt"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/config"
	"github.com/dagtalk/dagtalk/gemini"
	"github.com/dagtalk/dagtalk/openai"
	"github.com/dagtalk/dagtalk/rule"
)

// newResolver selects and constructs the resolver. All env var values are
// passed in as parameters; env is only read in run().
//
// Selection order: explicit kind (flag or config file), then API-key
// detection, then the rule resolver. Two model keys without an explicit
// kind is an error rather than a guess.
func newResolver(ctx context.Context, cfg config.ResolverConfig, openaiEnvKey, geminiEnvKey string) (dagtalk.Resolver, error) {
	kind := cfg.Kind

	// Auto-detect from env vars if neither flag nor config chose.
	if kind == "" {
		hasOpenAI := openaiEnvKey != ""
		hasGemini := geminiEnvKey != ""
		switch {
		case hasOpenAI && hasGemini:
			return nil, fmt.Errorf("multiple API keys found (OPENAI_API_KEY, GEMINI_API_KEY): use -resolver flag to select")
		case hasOpenAI:
			kind = config.KindOpenAI
		case hasGemini:
			kind = config.KindGemini
		default:
			kind = config.KindRule
		}
	}

	switch kind {
	case config.KindRule:
		return rule.New(), nil

	case config.KindOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = openaiEnvKey
		}
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set (use resolver.api_key in the config file or the environment variable)")
		}
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(key, opts...), nil

	case config.KindGemini:
		key := cfg.APIKey
		if key == "" {
			key = geminiEnvKey
		}
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set (use resolver.api_key in the config file or the environment variable)")
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		resolver, err := gemini.New(ctx, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return resolver, nil

	default:
		return nil, fmt.Errorf("unknown resolver %q: must be \"rule\", \"openai\" or \"gemini\"", kind)
	}
}
