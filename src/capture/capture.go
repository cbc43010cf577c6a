// Package capture extracts the current OS-wide text selection by using the
// clipboard as a side channel: stash, clear, synthesize copy, poll, and
// restore the stash when nothing arrives.
package capture

import (
	"context"
	"log"
	"time"

	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/keyboard"
	"ctrl-ai/src/logutil"
)

const (
	DefaultTimeout      = 500 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// Snapshot is one best-effort read of the selection. Empty text means
// "nothing selected", not an error.
type Snapshot struct {
	Text       string
	CapturedAt time.Time
}

func (s Snapshot) Empty() bool { return s.Text == "" }

// backup is the pre-capture clipboard content, held for one capture call.
type backup struct {
	prior string
	valid bool
}

type Capturer struct {
	gate     *clipboard.Gate
	keys     keyboard.Synthesizer
	chord    keyboard.Chord
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
}

type Option func(*Capturer)

func WithTimeout(d time.Duration) Option {
	return func(c *Capturer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Capturer) {
		if d > 0 {
			c.interval = d
		}
	}
}

func New(gate *clipboard.Gate, keys keyboard.Synthesizer, opts ...Option) *Capturer {
	c := &Capturer{
		gate:     gate,
		keys:     keys,
		chord:    keyboard.CopyChord(),
		timeout:  DefaultTimeout,
		interval: DefaultPollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture reads the selection using the configured timeout.
func (c *Capturer) Capture(ctx context.Context) Snapshot {
	return c.CaptureWithTimeout(ctx, c.timeout)
}

// CaptureWithTimeout owns the clipboard for the whole stash/copy/poll/restore
// sequence, so concurrent captures and injections cannot interleave with it.
func (c *Capturer) CaptureWithTimeout(ctx context.Context, timeout time.Duration) Snapshot {
	if timeout <= 0 {
		timeout = c.timeout
	}
	var snap Snapshot
	c.gate.Do(func(b clipboard.Backend) {
		snap = c.captureLocked(ctx, b, timeout)
	})
	return snap
}

func (c *Capturer) captureLocked(ctx context.Context, b clipboard.Backend, timeout time.Duration) Snapshot {
	bk := readBackup(b)

	// Without the empty sentinel a later non-empty read could be the stale
	// prior content, so a failed clear aborts before touching the keyboard.
	if err := b.WriteText(""); err != nil {
		log.Printf("capture: clearing clipboard failed: %v", err)
		return Snapshot{CapturedAt: c.now()}
	}

	if err := c.keys.ReleaseModifiers(); err != nil {
		log.Printf("capture: releasing modifiers failed: %v", err)
	}
	if err := c.keys.Tap(c.chord); err != nil {
		log.Printf("capture: synthesizing %s via %s failed: %v", c.chord, c.keys.Name(), err)
	}

	if text, ok := c.poll(ctx, b, timeout); ok {
		log.Printf("capture: got %d chars: %q", len(text), logutil.SanitizeForLogging(text))
		return Snapshot{Text: text, CapturedAt: c.now()}
	}

	if bk.valid && bk.prior != "" {
		if err := b.WriteText(bk.prior); err != nil {
			log.Printf("capture: restoring clipboard failed: %v", err)
		}
	}
	log.Printf("capture: nothing selected within %s", timeout)
	return Snapshot{CapturedAt: c.now()}
}

// poll returns the first non-empty clipboard content seen before the deadline.
// First-non-empty-wins: a concurrent external writer racing the copy chord is
// indistinguishable from the selection and is accepted as such.
func (c *Capturer) poll(ctx context.Context, b clipboard.Backend, timeout time.Duration) (string, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if text := readText(b); text != "" {
			return text, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-deadline.C:
			if text := readText(b); text != "" {
				return text, true
			}
			return "", false
		case <-ticker.C:
		}
	}
}

func readBackup(b clipboard.Backend) backup {
	prior, err := b.ReadText()
	if err != nil {
		log.Printf("capture: reading clipboard backup failed: %v", err)
		return backup{}
	}
	return backup{prior: prior, valid: true}
}

func readText(b clipboard.Backend) string {
	text, err := b.ReadText()
	if err != nil {
		return ""
	}
	return text
}
