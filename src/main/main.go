package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"ctrl-ai/src/config"
	"ctrl-ai/src/dispatcher"
	"ctrl-ai/src/eventloop"
	"ctrl-ai/src/hotkey"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/logutil"
	"ctrl-ai/src/messages"
	"ctrl-ai/src/notification"
	"ctrl-ai/src/runtimeinit"
	"ctrl-ai/src/singleinstance"
	"ctrl-ai/src/ui"
	"ctrl-ai/src/worker"
)

const appID = "ctrl-ai"

type mainOptions struct {
	headless   bool
	apiKeyPath string
}

func main() {
	cmd := newRootCmd(&mainOptions{})
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ctrl-ai",
		Short:         "Rewrite, redact or explain the selected text with a hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to OpenRouter API key file (highest precedence)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without the tray and windows; results are reported as notifications")

	cmd.AddCommand(newTriggerCmd())
	return cmd
}

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "trigger <mode>",
		Short:     "Ask the running instance to start a pipeline for mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: modeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := llm.ParseMode(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			return delegateTrigger(ctx, singleinstance.NewClient(), mode)
		},
	}
}

// delegateTrigger hands mode to the resident. There is no local fallback:
// capture and injection need the resident's hotkey focus handling.
func delegateTrigger(ctx context.Context, client singleinstance.Client, mode llm.Mode) error {
	delegated, err := client.TryTrigger(ctx, mode.String())
	if err != nil {
		if errors.Is(err, singleinstance.ErrBusy) {
			return fmt.Errorf("resident is busy, please retry")
		}
		return fmt.Errorf("delegating %s trigger: %w", mode, err)
	}
	if !delegated {
		return errors.New("no running ctrl-ai instance found; start it first")
	}
	return nil
}

func runResident(opts mainOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pre-flight check: fail fast before any UI is created.
	if port, ok := singleinstance.DetectResidentPort(ctx); ok {
		msg := fmt.Sprintf("Another instance is already running on port %d", port)
		log.Print(msg)
		notification.Alert("Ctrl+AI", msg)
		return errors.New(msg)
	}

	enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions:        config.LoadOptions{APIKeyPathOverride: opts.apiKeyPath},
		SetupLogging:       logutil.Setup,
		ShowBlockingErrors: true,
	})
	if err != nil {
		return err
	}
	log.Printf("Provider: %s", rt.Gateway.ProviderName())

	pool := worker.New(rt.Config.MaxConcurrentTriggers)
	defer pool.Close()

	deps := dispatcher.Deps{
		Source:    rt.Capturer,
		Processor: rt.Gateway,
		Sink:      rt.Injector,
		Policies:  rt.Policies,
		Pool:      pool,
	}

	if opts.headless {
		deps.Presenter = notification.NewHeadless()
		d := dispatcher.New(deps)
		loop := eventloop.New(d, nil)
		startHotkeys(loop, rt.Config)
		err := ignoreCancel(loop.Run(ctx))
		d.WaitReviews()
		return err
	}

	bus := messages.NewBus(16)
	deps.Presenter = bus
	d := dispatcher.New(deps)
	loop := eventloop.New(d, nil)

	a := app.NewWithID(appID)
	surface := ui.New(a, rt.Gate)
	surface.SetupTray(func(mode llm.Mode) { loop.Post(mode) }, aboutText(rt))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go surface.Pump(runCtx, bus.C())

	startHotkeys(loop, rt.Config)

	loopErr := make(chan error, 1)
	go func() {
		err := ignoreCancel(loop.Run(runCtx))
		if err != nil {
			notification.ShowBlockingError("Ctrl+AI", err.Error())
		}
		loopErr <- err
		if runCtx.Err() == nil {
			fyne.Do(a.Quit)
		}
	}()

	a.Run()
	cancel()
	err = <-loopErr
	// Open reviews see the cancelled context and reject.
	d.WaitReviews()
	return err
}

// startHotkeys is best-effort: the tray and the trigger subcommand still work
// without a global hook.
func startHotkeys(loop *eventloop.Loop, cfg *config.Config) {
	if err := loop.StartHotkeys(hotkey.NewListener(), hotkeyBindings(cfg.Hotkeys)); err != nil {
		log.Printf("Hotkeys unavailable: %v", err)
		notification.Notify("Ctrl+AI", "Hotkeys unavailable: "+err.Error())
	}
}

func hotkeyBindings(configured map[string]string) map[llm.Mode]string {
	out := make(map[llm.Mode]string, len(configured))
	for name, chord := range configured {
		mode, err := llm.ParseMode(name)
		if err != nil {
			log.Printf("Ignoring hotkey for %q: %v", name, err)
			continue
		}
		out[mode] = strings.TrimSpace(chord)
	}
	return out
}

func aboutText(rt *runtimeinit.Runtime) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ctrl+AI\n\nProvider: %s\n\nHotkeys:\n", rt.Gateway.ProviderName())
	names := make([]string, 0, len(rt.Config.Hotkeys))
	for name := range rt.Config.Hotkeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s %s (%s)\n", name, rt.Config.Hotkeys[name], rt.Policies.For(llm.Mode(name)))
	}
	return b.String()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func modeNames() []string {
	names := make([]string, len(llm.Modes))
	for i, m := range llm.Modes {
		names[i] = m.String()
	}
	return names
}

// normalizeLegacyArgs accepts single-dash long flags ("-headless") for
// scripts written against older builds.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"headless", "api-key-path"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}
