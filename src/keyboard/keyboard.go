// Package keyboard synthesizes the copy and paste chords used to move text
// between the focused application and the clipboard.
package keyboard

import (
	"fmt"
	"log"
	"os"
	"runtime"
)

// Chord is a single modifier+key gesture.
type Chord struct {
	Modifier string
	Key      string
}

func (c Chord) String() string { return c.Modifier + "+" + c.Key }

// Synthesizer delivers synthetic key events to the focused window.
type Synthesizer interface {
	Name() string
	Tap(c Chord) error
	// ReleaseModifiers sends key-up for every modifier so a leaked key-down
	// from an earlier synthetic event cannot combine with the next chord.
	ReleaseModifiers() error
}

// Modifier returns the platform shortcut modifier: cmd on macOS, ctrl elsewhere.
func Modifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// CopyChord returns the copy gesture for the running platform.
func CopyChord() Chord { return Chord{Modifier: Modifier(runtime.GOOS), Key: "c"} }

// PasteChord returns the paste gesture for the running platform.
func PasteChord() Chord { return Chord{Modifier: Modifier(runtime.GOOS), Key: "v"} }

// New returns the synthesizer for backend ("auto", "robotgo" or "ydotool").
// On Linux under Wayland, auto prefers ydotool when its daemon is reachable,
// since compositors generally ignore X11 synthetic events.
func New(backend string) (Synthesizer, error) {
	switch backend {
	case "robotgo":
		return robotgoSynth{}, nil
	case "ydotool":
		y, ok := newYdotool()
		if !ok {
			return nil, fmt.Errorf("ydotool requested but not available")
		}
		return y, nil
	case "", "auto":
		if runtime.GOOS == "linux" && os.Getenv("WAYLAND_DISPLAY") != "" {
			if y, ok := newYdotool(); ok {
				log.Printf("keyboard: Wayland session detected, using ydotool")
				return y, nil
			}
			log.Printf("keyboard: Wayland session without ydotool, falling back to robotgo")
		}
		return robotgoSynth{}, nil
	default:
		return nil, fmt.Errorf("unknown input backend %q", backend)
	}
}
