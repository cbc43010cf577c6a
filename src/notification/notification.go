package notification

import (
	"context"
	"log"
	"time"

	"github.com/gen2brain/beeep"

	"ctrl-ai/src/llm"
)

const (
	appTitle       = "Ctrl+AI"
	maxDisplayRune = 200
)

// Swapped in tests.
var (
	notifyFn = beeep.Notify
	alertFn  = beeep.Alert
)

func init() {
	beeep.AppName = appTitle
}

// Notify shows a desktop notification. Failures are logged only.
func Notify(title, message string) {
	if err := notifyFn(title, truncate(message), ""); err != nil {
		log.Printf("notification: %v (%s: %s)", err, title, message)
	}
}

// Alert is Notify with an attention sound.
func Alert(title, message string) {
	if err := alertFn(title, truncate(message), ""); err != nil {
		log.Printf("notification: %v (%s: %s)", err, title, message)
	}
}

// ShowBlockingError reports a startup failure. It is logged first because the
// notification daemon may itself be what is missing.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	Alert(title, message)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDisplayRune {
		return s
	}
	return string(r[:maxDisplayRune]) + "..."
}

// Headless presents the pipeline through desktop notifications only, for
// sessions without a windowing toolkit. It cannot ask the human anything, so
// prompts are cancelled and reviews rejected.
type Headless struct{}

func NewHeadless() *Headless { return &Headless{} }

func (Headless) ShowPrompt(_ context.Context, mode llm.Mode) (string, bool) {
	Notify(appTitle, mode.String()+" needs an instruction; unavailable in headless mode")
	return "", false
}

func (Headless) ShowReview(_ context.Context, _, _ string) (string, bool) {
	Notify(appTitle, "Review is unavailable in headless mode; result discarded")
	return "", false
}

func (Headless) ShowProgress(msg string) { log.Printf("headless: %s", msg) }

func (Headless) HideProgress() {}

func (Headless) ShowTransient(msg string, _ time.Duration) { Notify(appTitle, msg) }

func (Headless) ShowReadOnly(title, text string) { Notify(title, text) }
