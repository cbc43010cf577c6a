package llm

import (
	"context"
	"fmt"
)

// ModelParams are fixed per provider: low temperature, bounded output, no streaming.
type ModelParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 1024
)

// Provider is one live text-processing backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, systemPrompt, userPrompt string, params ModelParams) (string, error)
}

// ProviderConfig is what a factory needs to construct a provider.
type ProviderConfig struct {
	APIKey string
	// Routing is the OpenRouter upstream provider order; ignored elsewhere.
	Routing []string
}

type factory struct {
	defaultModel string
	build        func(ctx context.Context, cfg ProviderConfig) (Provider, error)
}

const (
	groqBaseURL = "https://api.groq.com/openai/v1/"
)

// factories maps provider names to constructors. Construction must not do network I/O.
var factories = map[string]factory{
	"groq": {
		defaultModel: "llama3-70b-8192",
		build: func(_ context.Context, cfg ProviderConfig) (Provider, error) {
			return newOpenAICompatible("groq", cfg.APIKey, groqBaseURL), nil
		},
	},
	"openrouter": {
		defaultModel: "meta-llama/llama-3.1-70b-instruct",
		build: func(_ context.Context, cfg ProviderConfig) (Provider, error) {
			return newOpenRouter(cfg.APIKey, openRouterURL, cfg.Routing), nil
		},
	},
	"openai": {
		defaultModel: "gpt-4o-mini",
		build: func(_ context.Context, cfg ProviderConfig) (Provider, error) {
			return newOpenAICompatible("openai", cfg.APIKey, ""), nil
		},
	},
	"anthropic": {
		defaultModel: "claude-3-5-haiku-latest",
		build: func(_ context.Context, cfg ProviderConfig) (Provider, error) {
			return newAnthropic(cfg.APIKey), nil
		},
	},
	"gemini": {
		defaultModel: "gemini-2.0-flash",
		build:        newGemini,
	},
}

// safeSend converts a provider panic into an error so Process stays total.
func safeSend(ctx context.Context, p Provider, system, user string, params ModelParams) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", p.Name(), r)
		}
	}()
	return p.Send(ctx, system, user, params)
}
