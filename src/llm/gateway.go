package llm

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

var errEmptyResponse = errors.New("empty response")

type Options struct {
	// Order is the fixed probe priority, e.g. groq,openrouter,openai,anthropic,gemini.
	Order []string
	// Credentials returns the API key for a provider name, "" when absent.
	Credentials func(provider string) string
	// Model overrides the bound provider's default model.
	Model string
	// Routing is forwarded to OpenRouter as upstream provider preferences.
	Routing     []string
	Timeout     time.Duration
	MockLatency time.Duration
}

// Gateway resolves one live provider at construction and never re-elects.
// Every request that the live provider fails is answered by the mock instead.
type Gateway struct {
	live    Provider
	mock    *Mock
	params  ModelParams
	timeout time.Duration
}

// New probes providers in opts.Order and binds to the first with credentials
// whose client constructs. No available provider is not an error: the mock serves.
func New(ctx context.Context, opts Options) *Gateway {
	g := &Gateway{
		mock:    NewMock(opts.MockLatency),
		timeout: opts.Timeout,
		params:  ModelParams{Temperature: defaultTemperature, MaxTokens: defaultMaxTokens},
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}

	for _, name := range opts.Order {
		f, ok := factories[name]
		if !ok {
			log.Printf("llm: unknown provider %q in order, skipping", name)
			continue
		}
		key := ""
		if opts.Credentials != nil {
			key = opts.Credentials(name)
		}
		if key == "" {
			log.Printf("llm: %s unavailable (no credentials)", name)
			continue
		}
		p, err := f.build(ctx, ProviderConfig{APIKey: key, Routing: opts.Routing})
		if err != nil {
			log.Printf("llm: %s unavailable: %v", name, err)
			continue
		}
		g.live = p
		g.params.Model = f.defaultModel
		if opts.Model != "" {
			g.params.Model = opts.Model
		}
		log.Printf("llm: bound to %s (model %s)", name, g.params.Model)
		return g
	}

	log.Printf("llm: no live provider available, using mock")
	return g
}

// NewWithProvider binds an explicit provider; nil means mock only.
func NewWithProvider(p Provider, params ModelParams, timeout, mockLatency time.Duration) *Gateway {
	if params.Temperature == 0 {
		params.Temperature = defaultTemperature
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = defaultMaxTokens
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{live: p, mock: NewMock(mockLatency), params: params, timeout: timeout}
}

// ProviderName reports the bound provider, or "mock".
func (g *Gateway) ProviderName() string {
	if g.live == nil {
		return MockProviderName
	}
	return g.live.Name()
}

// Process never fails: validation errors, provider errors, empty answers and
// timeouts all resolve to the mock response for this request only.
func (g *Gateway) Process(ctx context.Context, req Request) Result {
	if err := req.Validate(); err != nil {
		log.Printf("llm: invalid request: %v; answering with mock", err)
		return g.fallback(ctx, req)
	}
	if g.live == nil {
		return g.fallback(ctx, req)
	}

	system, user := Templates(req.Mode, req.Text, req.Instruction)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := safeSend(callCtx, g.live, system, user, g.params)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = errEmptyResponse
		}
	}
	if err != nil {
		log.Printf("llm: %s call failed after %s: %v; falling back to mock", g.live.Name(), time.Since(start).Round(time.Millisecond), err)
		return g.fallback(ctx, req)
	}

	log.Printf("llm: %s answered %s request in %s (%d chars)", g.live.Name(), req.Mode, time.Since(start).Round(time.Millisecond), len(text))
	return Result{Text: text, Provider: g.live.Name()}
}

func (g *Gateway) fallback(ctx context.Context, req Request) Result {
	return Result{Text: strings.TrimSpace(g.mock.Respond(ctx, req)), Provider: MockProviderName}
}
