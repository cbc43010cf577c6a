package inject

import (
	"context"
	"log"
	"time"

	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/keyboard"
)

// DefaultSettle lets focus return to the previously active application after
// one of our windows hides; without it the paste can land in the wrong window.
const DefaultSettle = 100 * time.Millisecond

// Injector writes a result to the clipboard and synthesizes paste.
// Failures are logged, never returned and never retried.
type Injector struct {
	gate   *clipboard.Gate
	keys   keyboard.Synthesizer
	chord  keyboard.Chord
	settle time.Duration
}

func New(gate *clipboard.Gate, keys keyboard.Synthesizer, settle time.Duration) *Injector {
	if settle < 0 {
		settle = 0
	}
	return &Injector{gate: gate, keys: keys, chord: keyboard.PasteChord(), settle: settle}
}

// Inject pastes text into the focused application immediately.
func (i *Injector) Inject(ctx context.Context, text string) {
	if text == "" {
		return
	}
	i.gate.Do(func(b clipboard.Backend) {
		if err := b.WriteText(text); err != nil {
			log.Printf("inject: clipboard write failed: %v", err)
			return
		}
		if err := i.keys.ReleaseModifiers(); err != nil {
			log.Printf("inject: releasing modifiers failed: %v", err)
		}
		if err := i.keys.Tap(i.chord); err != nil {
			log.Printf("inject: synthesizing %s via %s failed: %v", i.chord, i.keys.Name(), err)
			return
		}
		log.Printf("inject: pasted %d chars", len(text))
	})
}

// InjectAfterHide waits for the settle delay before pasting. Use it when a
// window of ours was just hidden.
func (i *Injector) InjectAfterHide(ctx context.Context, text string) {
	if i.settle > 0 {
		t := time.NewTimer(i.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			log.Printf("inject: cancelled while waiting for focus to settle: %v", ctx.Err())
			return
		case <-t.C:
		}
	}
	i.Inject(ctx, text)
}
