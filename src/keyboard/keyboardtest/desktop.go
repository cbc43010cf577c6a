// Package keyboardtest provides a scripted desktop for exercising code that
// synthesizes copy/paste chords against an in-memory clipboard.
package keyboardtest

import (
	"errors"
	"sync"
	"time"

	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/keyboard"
)

// Desktop plays the focused application: a copy chord publishes the current
// selection to the clipboard, a paste chord inserts the clipboard content.
type Desktop struct {
	mu        sync.Mutex
	clip      *clipboard.Memory
	selection string
	queued    []string
	pasted    []string
	copies    int
	releases  int
	copyDelay time.Duration
	failTaps  bool
	// SelectPasted leaves pasted text selected, like editors that highlight an insertion.
	SelectPasted bool
}

var errTapFailed = errors.New("keyboardtest: synthetic input blocked")

func NewDesktop(clip *clipboard.Memory) *Desktop {
	return &Desktop{clip: clip}
}

func (d *Desktop) Name() string { return "fake" }

// Select sets the text the focused application will copy.
func (d *Desktop) Select(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection = text
}

// QueueSelections scripts the selection seen by each following copy chord, one
// per chord; "" means nothing is selected. Once drained, Select applies again.
func (d *Desktop) QueueSelections(texts ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = append(d.queued, texts...)
}

// SetCopyDelay makes the application publish its selection asynchronously.
func (d *Desktop) SetCopyDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.copyDelay = delay
}

// BlockInput makes every chord fail, as when the foreground app rejects synthetic events.
func (d *Desktop) BlockInput(block bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failTaps = block
}

func (d *Desktop) Tap(c keyboard.Chord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failTaps {
		return errTapFailed
	}
	switch c.Key {
	case "c":
		d.copies++
		sel := d.selection
		if len(d.queued) > 0 {
			sel, d.queued = d.queued[0], d.queued[1:]
		}
		if sel == "" {
			return nil
		}
		if d.copyDelay > 0 {
			delay := d.copyDelay
			go func() {
				time.Sleep(delay)
				d.clip.Set(sel)
			}()
			return nil
		}
		d.clip.Set(sel)
	case "v":
		text := d.clip.Text()
		d.pasted = append(d.pasted, text)
		if d.SelectPasted {
			d.selection = text
		}
	}
	return nil
}

func (d *Desktop) ReleaseModifiers() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
	return nil
}

// Pasted returns every text inserted by a paste chord, oldest first.
func (d *Desktop) Pasted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.pasted...)
}

// Copies returns how many copy chords were delivered.
func (d *Desktop) Copies() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copies
}

// Releases returns how many modifier releases were requested.
func (d *Desktop) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}
