package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"time"

	"ctrl-ai/src/capture"
	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/config"
	"ctrl-ai/src/inject"
	"ctrl-ai/src/keyboard"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/logutil"
	"ctrl-ai/src/notification"
	"ctrl-ai/src/review"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// ShowBlockingErrors surfaces startup failures as desktop alerts.
	ShowBlockingErrors bool
	// Clipboard and Keys replace the configured OS backends when set.
	Clipboard clipboard.Backend
	Keys      keyboard.Synthesizer
	// SkipInput leaves Capturer and Injector nil, for tools that only use the gateway.
	SkipInput bool
}

// Runtime is everything the pipeline needs, built once at startup.
type Runtime struct {
	Config   *config.Config
	Gate     *clipboard.Gate
	Capturer *capture.Capturer
	Injector *inject.Injector
	Gateway  *llm.Gateway
	Policies review.PolicyTable
}

func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	logStartup(cfg)

	rt := &Runtime{
		Config:   cfg,
		Policies: review.DefaultPolicies().WithOverrides(cfg.ReviewPolicies),
		Gateway: llm.New(ctx, llm.Options{
			Order:       cfg.ProviderOrder,
			Credentials: cfg.Credentials.Key,
			Model:       cfg.Model,
			Routing:     cfg.Providers,
			Timeout:     time.Duration(cfg.ProviderTimeoutSec) * time.Second,
			MockLatency: time.Duration(cfg.MockLatencyMs) * time.Millisecond,
		}),
	}

	if opts.SkipInput {
		return rt, nil
	}

	backend := opts.Clipboard
	if backend == nil {
		backend, err = clipboard.New(cfg.ClipboardBackend)
		if err != nil {
			return nil, fail(opts, "Clipboard unavailable", fmt.Errorf("failed to initialize clipboard: %w", err))
		}
	}
	keys := opts.Keys
	if keys == nil {
		keys, err = keyboard.New(cfg.InputBackend)
		if err != nil {
			return nil, fail(opts, "Input synthesis unavailable", fmt.Errorf("failed to initialize input backend: %w", err))
		}
	}
	log.Printf("Clipboard backend: %s, input backend: %s", backend.Name(), keys.Name())

	rt.Gate = clipboard.NewGate(backend)
	rt.Capturer = capture.New(rt.Gate, keys, capture.WithTimeout(time.Duration(cfg.CaptureTimeoutMs)*time.Millisecond))
	rt.Injector = inject.New(rt.Gate, keys, time.Duration(cfg.PasteSettleMs)*time.Millisecond)
	return rt, nil
}

func fail(opts Options, title string, err error) error {
	if opts.ShowBlockingErrors {
		notification.ShowBlockingError(title, err.Error())
	}
	return err
}

func logStartup(cfg *config.Config) {
	for _, name := range cfg.ProviderOrder {
		if key := cfg.Credentials.Key(name); key != "" {
			log.Printf("Credential %s: %s", name, logutil.RedactKey(key))
		}
	}
	if !cfg.HasCredentials() {
		log.Printf("No provider credentials configured; the local mock will answer every request")
	}
	log.Printf("Hotkeys: %v", cfg.Hotkeys)
	log.Printf("Review policies override: %v", cfg.ReviewPolicies)
}
