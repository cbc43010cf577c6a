// Package ui is the fyne presentation surface. Every widget is touched on the
// fyne loop only; workers reach it through messages.Bus and Pump.
package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/messages"
)

const flashDuration = 1500 * time.Millisecond

type Surface struct {
	app     fyne.App
	gate    *clipboard.Gate
	history *History

	toast      fyne.Window
	toastLabel *widget.Label
	toastGen   int

	prompt         fyne.Window
	promptEntry    *historyEntry
	promptBadge    *widget.Label
	promptReply    chan<- messages.PromptReply
	promptFinished chan struct{}
}

func New(a fyne.App, gate *clipboard.Gate) *Surface {
	return &Surface{app: a, gate: gate, history: NewHistory(defaultHistorySize)}
}

// SetupTray installs the tray menu. onTrigger must not block.
func (s *Surface) SetupTray(onTrigger func(llm.Mode), about string) {
	desk, ok := s.app.(desktop.App)
	if !ok {
		log.Printf("ui: system tray not supported by this driver")
		return
	}
	items := make([]*fyne.MenuItem, 0, len(trayItems)+2)
	for _, it := range trayItems {
		mode := it.Mode
		items = append(items, fyne.NewMenuItem(it.Label, func() { onTrigger(mode) }))
	}
	items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("About", func() {
		s.showReadOnly(messages.ShowReadOnly{Title: "About Ctrl+AI", Text: about})
	}))
	desk.SetSystemTrayMenu(fyne.NewMenu("Ctrl+AI", items...))
	desk.SetSystemTrayIcon(trayIcon)
}

// Pump applies bus messages on the fyne loop until ctx ends.
func (s *Surface) Pump(ctx context.Context, ch <-chan messages.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ch:
			fyne.Do(func() { s.handle(m) })
		}
	}
}

func (s *Surface) handle(m messages.Message) {
	switch msg := m.(type) {
	case messages.ShowPrompt:
		s.showPrompt(msg)
	case messages.ShowProgress:
		s.showToast(msg.Text)
	case messages.HideProgress:
		s.hideToast()
	case messages.ShowTransient:
		s.flash(msg.Text, msg.Duration)
	case messages.ShowReview:
		s.showReview(msg)
	case messages.ShowReadOnly:
		s.showReadOnly(msg)
	default:
		log.Printf("ui: unhandled message %s", m.Type())
	}
}

// newPanel returns a frameless window where the driver supports one.
func (s *Surface) newPanel(title string) fyne.Window {
	if desk, ok := s.app.(desktop.App); ok {
		return desk.CreateSplashWindow()
	}
	return s.app.NewWindow(title)
}

func (s *Surface) ensureToast() {
	if s.toast != nil {
		return
	}
	s.toast = s.newPanel("Ctrl+AI")
	s.toastLabel = widget.NewLabel("")
	s.toastLabel.Alignment = fyne.TextAlignCenter
	s.toast.SetContent(container.NewPadded(s.toastLabel))
}

func (s *Surface) showToast(text string) {
	s.ensureToast()
	s.toastGen++
	s.toastLabel.SetText(text)
	s.toast.Resize(fyne.NewSize(260, 44))
	s.toast.CenterOnScreen()
	s.toast.Show()
}

func (s *Surface) hideToast() {
	if s.toast == nil {
		return
	}
	s.toastGen++
	s.toast.Hide()
}

func (s *Surface) flash(text string, d time.Duration) {
	s.showToast(text)
	gen := s.toastGen
	time.AfterFunc(d, func() {
		fyne.Do(func() {
			if s.toastGen == gen {
				s.toast.Hide()
			}
		})
	})
}

func (s *Surface) ensurePrompt() {
	if s.prompt != nil {
		return
	}
	s.prompt = s.newPanel("Ctrl+AI")
	s.promptBadge = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true, Monospace: true})
	s.promptEntry = newHistoryEntry()
	s.promptEntry.OnSubmitted = func(text string) { s.answerPrompt(text, true) }
	s.promptEntry.onEscape = func() { s.answerPrompt("", false) }
	s.promptEntry.onUp = func() {
		if prev, ok := s.history.Prev(s.promptEntry.Text); ok {
			s.promptEntry.SetText(prev)
			s.promptEntry.CursorColumn = len([]rune(prev))
		}
	}
	s.promptEntry.onDown = func() {
		if next, ok := s.history.Next(); ok {
			s.promptEntry.SetText(next)
			s.promptEntry.CursorColumn = len([]rune(next))
		}
	}
	s.prompt.SetContent(container.NewBorder(nil, nil, s.promptBadge, nil, s.promptEntry))
	s.prompt.Resize(fyne.NewSize(640, 48))
}

func (s *Surface) showPrompt(m messages.ShowPrompt) {
	s.ensurePrompt()
	if s.promptReply != nil {
		// A newer trigger takes the bar; the older one counts as cancelled.
		s.answerPrompt("", false)
	}
	finished := make(chan struct{})
	s.promptReply = m.Reply
	s.promptFinished = finished

	badge, placeholder := PromptStyle(m.Mode)
	s.promptBadge.SetText(badge)
	s.promptEntry.SetPlaceHolder(placeholder)
	s.promptEntry.SetText("")
	s.history.Reset()
	s.prompt.CenterOnScreen()
	s.prompt.Show()
	s.prompt.RequestFocus()
	s.prompt.Canvas().Focus(s.promptEntry)

	if m.Done != nil {
		go func() {
			select {
			case <-m.Done:
				fyne.Do(func() {
					if s.promptFinished == finished {
						s.answerPrompt("", false)
					}
				})
			case <-finished:
			}
		}()
	}
}

func (s *Surface) answerPrompt(text string, ok bool) {
	reply := s.promptReply
	if reply == nil {
		return
	}
	s.promptReply = nil
	close(s.promptFinished)
	s.promptFinished = nil
	s.prompt.Hide()
	if ok {
		s.history.Add(text)
	}
	reply <- messages.PromptReply{Instruction: text, OK: ok}
}

func (s *Surface) showReview(m messages.ShowReview) {
	w := s.app.NewWindow("Ctrl+AI - Review")

	original := widget.NewMultiLineEntry()
	original.SetText(m.Original)
	original.Wrapping = fyne.TextWrapWord
	original.Disable()

	proposal := widget.NewMultiLineEntry()
	proposal.SetText(m.Proposal)
	proposal.Wrapping = fyne.TextWrapWord

	finished := make(chan struct{})
	answered := false
	answer := func(text string, accepted bool) {
		if answered {
			return
		}
		answered = true
		close(finished)
		w.Hide()
		m.Reply <- messages.ReviewReply{Text: text, Accepted: accepted}
		w.Close()
	}

	accept := widget.NewButtonWithIcon("Accept", theme.ConfirmIcon(), func() { answer(proposal.Text, true) })
	accept.Importance = widget.HighImportance
	reject := widget.NewButtonWithIcon("Reject", theme.CancelIcon(), func() { answer("", false) })

	split := container.NewHSplit(
		container.NewBorder(widget.NewLabel("Original"), nil, nil, nil, original),
		container.NewBorder(widget.NewLabel("Proposal (editable)"), nil, nil, nil, proposal),
	)
	w.SetContent(container.NewBorder(nil, container.NewHBox(layout.NewSpacer(), reject, accept), nil, nil, split))
	w.SetCloseIntercept(func() { answer("", false) })
	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		if k.Name == fyne.KeyEscape {
			answer("", false)
		}
	})
	w.Resize(fyne.NewSize(900, 480))
	w.CenterOnScreen()
	w.Show()
	w.RequestFocus()
	w.Canvas().Focus(proposal)

	if m.Done != nil {
		go func() {
			select {
			case <-m.Done:
				fyne.Do(func() { answer("", false) })
			case <-finished:
			}
		}()
	}
}

func (s *Surface) showReadOnly(m messages.ShowReadOnly) {
	w := s.app.NewWindow(m.Title)

	body := widget.NewLabel(m.Text)
	body.Wrapping = fyne.TextWrapWord

	copyBtn := widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() {
		text := m.Text
		go func() {
			err := s.gate.Write(text)
			fyne.Do(func() {
				if err != nil {
					log.Printf("ui: copy failed: %v", err)
					s.flash("Copy failed", flashDuration)
					return
				}
				s.flash(fmt.Sprintf("Copied %d chars", len([]rune(text))), flashDuration)
			})
		}()
	})
	closeBtn := widget.NewButton("Close", w.Close)

	w.SetContent(container.NewBorder(nil, container.NewHBox(layout.NewSpacer(), copyBtn, closeBtn), nil, nil,
		container.NewVScroll(body)))
	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		if k.Name == fyne.KeyEscape {
			w.Close()
		}
	})
	w.Resize(fyne.NewSize(640, 400))
	w.CenterOnScreen()
	w.Show()
}

// historyEntry is a single-line entry that hands Up/Down/Escape to the prompt.
type historyEntry struct {
	widget.Entry
	onUp, onDown, onEscape func()
}

func newHistoryEntry() *historyEntry {
	e := &historyEntry{}
	e.ExtendBaseWidget(e)
	return e
}

func (e *historyEntry) TypedKey(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyUp:
		if e.onUp != nil {
			e.onUp()
			return
		}
	case fyne.KeyDown:
		if e.onDown != nil {
			e.onDown()
			return
		}
	case fyne.KeyEscape:
		if e.onEscape != nil {
			e.onEscape()
			return
		}
	}
	e.Entry.TypedKey(k)
}
