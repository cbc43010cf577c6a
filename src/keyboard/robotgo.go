package keyboard

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

var modifierKeys = []string{"ctrl", "shift", "alt", "cmd"}

type robotgoSynth struct{}

func (robotgoSynth) Name() string { return "robotgo" }

func (robotgoSynth) Tap(c Chord) error {
	if err := robotgo.KeyTap(c.Key, c.Modifier); err != nil {
		return fmt.Errorf("robotgo tap %s: %w", c, err)
	}
	return nil
}

func (robotgoSynth) ReleaseModifiers() error {
	var firstErr error
	for _, m := range modifierKeys {
		if err := robotgo.KeyToggle(m, "up"); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("robotgo release %s: %w", m, err)
		}
	}
	return firstErr
}
