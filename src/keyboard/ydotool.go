package keyboard

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Linux input-event codes (linux/input-event-codes.h).
var evdevCodes = map[string]int{
	"ctrl":  29,
	"shift": 42,
	"alt":   56,
	"cmd":   125,
	"c":     46,
	"v":     47,
}

// Right-hand modifier variants, released alongside the left ones.
var evdevRightModifiers = []int{97, 54, 100, 126}

const ydotoolTimeout = 2 * time.Second

type commandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, out)
	}
	return nil
}

// ydotoolSynth injects events through the uinput daemon, which works under
// Wayland compositors that drop per-client synthetic events.
type ydotoolSynth struct {
	bin string
	run commandRunner
}

func (ydotoolSynth) Name() string { return "ydotool" }

func (y ydotoolSynth) Tap(c Chord) error {
	args, err := chordArgs(c)
	if err != nil {
		return err
	}
	return y.exec(args...)
}

func (y ydotoolSynth) ReleaseModifiers() error {
	args := []string{"key"}
	for _, m := range modifierKeys {
		args = append(args, strconv.Itoa(evdevCodes[m])+":0")
	}
	for _, code := range evdevRightModifiers {
		args = append(args, strconv.Itoa(code)+":0")
	}
	return y.exec(args...)
}

func (y ydotoolSynth) exec(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ydotoolTimeout)
	defer cancel()
	return y.run(ctx, y.bin, args...)
}

// chordArgs renders a chord as `ydotool key mod:1 key:1 key:0 mod:0`.
func chordArgs(c Chord) ([]string, error) {
	mod, ok := evdevCodes[c.Modifier]
	if !ok {
		return nil, fmt.Errorf("ydotool: unsupported modifier %q", c.Modifier)
	}
	key, ok := evdevCodes[c.Key]
	if !ok {
		return nil, fmt.Errorf("ydotool: unsupported key %q", c.Key)
	}
	m, k := strconv.Itoa(mod), strconv.Itoa(key)
	return []string{"key", m + ":1", k + ":1", k + ":0", m + ":0"}, nil
}

func newYdotool() (Synthesizer, bool) {
	bin, err := exec.LookPath("ydotool")
	if err != nil {
		return nil, false
	}
	if !ydotoolSocketReachable() {
		return nil, false
	}
	return ydotoolSynth{bin: bin, run: execRunner}, true
}
