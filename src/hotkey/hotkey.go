package hotkey

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

var ErrInvalidChord = errors.New("invalid hotkey chord")

var modifierOrder = map[string]int{"ctrl": 0, "shift": 1, "alt": 2, "cmd": 3}

// Binding is one parsed chord and the callback it fires.
type Binding struct {
	Chord    string
	Keys     []string // main key first, then modifiers, as gohook.Register expects
	Callback func()
}

// Listener owns the process-wide gohook subscription. Callbacks run on the
// hook goroutine and must not block.
type Listener struct {
	mu       sync.Mutex
	bindings []Binding
	running  bool
	done     chan struct{}
}

func NewListener() *Listener {
	return &Listener{}
}

// Register validates every chord before adding any of them.
func (l *Listener) Register(chords map[string]func()) error {
	names := make([]string, 0, len(chords))
	for c := range chords {
		names = append(names, c)
	}
	sort.Strings(names)

	seen := map[string]string{}
	var parsed []Binding
	for _, chord := range names {
		keys, err := ParseChord(chord)
		if err != nil {
			return err
		}
		canon := strings.Join(keys, "+")
		if prev, dup := seen[canon]; dup {
			return fmt.Errorf("%w: %q and %q are the same chord", ErrInvalidChord, prev, chord)
		}
		seen[canon] = chord
		parsed = append(parsed, Binding{Chord: chord, Keys: keys, Callback: chords[chord]})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("hotkey listener already started")
	}
	l.bindings = append(l.bindings, parsed...)
	return nil
}

// Bindings returns a copy of the registered bindings.
func (l *Listener) Bindings() []Binding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Binding(nil), l.bindings...)
}

// Start installs the hook and runs the event pump on its own goroutine.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	if len(l.bindings) == 0 {
		return errors.New("no hotkeys registered")
	}

	for _, b := range l.bindings {
		b := b
		gohook.Register(gohook.KeyDown, b.Keys, func(gohook.Event) {
			log.Printf("Hotkey activated: %s", b.Chord)
			if b.Callback != nil {
				b.Callback()
			}
		})
		log.Printf("Hotkey registered: %s -> %v", b.Chord, b.Keys)
	}

	evChan := gohook.Start()
	if evChan == nil {
		return errors.New("gohook.Start() returned nil channel")
	}
	l.running = true
	l.done = make(chan struct{})
	done := l.done

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		<-gohook.Process(evChan)
		log.Printf("Hotkey event pump stopped")
	}()
	return nil
}

// Stop ends the hook and waits for the pump to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	l.mu.Unlock()

	gohook.End()
	<-done
}

// ParseChord normalizes a chord like "Ctrl+Shift+H" into gohook key names.
// Exactly one non-modifier key is required.
func ParseChord(chord string) ([]string, error) {
	parts := parseHotkey(chord)
	var mods []string
	main := ""
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty key", ErrInvalidChord, chord)
		}
		if _, ok := modifierOrder[p]; ok {
			if !contains(mods, p) {
				mods = append(mods, p)
			}
			continue
		}
		if main != "" {
			return nil, fmt.Errorf("%w: %q has more than one non-modifier key", ErrInvalidChord, chord)
		}
		if _, ok := gohook.Keycode[p]; !ok {
			return nil, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidChord, p, chord)
		}
		main = p
	}
	if main == "" {
		return nil, fmt.Errorf("%w: %q has no key besides modifiers", ErrInvalidChord, chord)
	}
	sort.Slice(mods, func(i, j int) bool { return modifierOrder[mods[i]] < modifierOrder[mods[j]] })
	return append([]string{main}, mods...), nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(hotkeyConfig)), "+")
	keys := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "option", "opt":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "cmd")
		case "escape":
			keys = append(keys, "esc")
		case "return":
			keys = append(keys, "enter")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
