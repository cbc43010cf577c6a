package clipboard

import (
	"fmt"
	"sync"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

// Backend is plain-text access to one clipboard implementation.
// Implementations are not required to be safe for concurrent use; callers go through Gate.
type Backend interface {
	Name() string
	ReadText() (string, error)
	WriteText(text string) error
}

// Gate serializes every capture/inject sequence against the single OS clipboard.
type Gate struct {
	mu      sync.Mutex
	backend Backend
}

func NewGate(b Backend) *Gate {
	return &Gate{backend: b}
}

// Do runs fn while holding exclusive ownership of the clipboard.
func (g *Gate) Do(fn func(b Backend)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.backend)
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func (g *Gate) Write(text string) error {
	var err error
	g.Do(func(b Backend) { err = b.WriteText(text) })
	return err
}

// BackendName reports which implementation the gate owns.
func (g *Gate) BackendName() string { return g.backend.Name() }

// New returns the backend registered under name ("native" or "system").
func New(name string) (Backend, error) {
	switch name {
	case "", "native":
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("native clipboard unavailable: %w", err)
		}
		return nativeBackend{}, nil
	case "system":
		if atotto.Unsupported {
			return nil, fmt.Errorf("system clipboard unavailable: no clipboard utility found")
		}
		return systemBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown clipboard backend %q", name)
	}
}

// nativeBackend talks to the OS clipboard directly through golang.design/x/clipboard.
type nativeBackend struct{}

func (nativeBackend) Name() string { return "native" }

func (nativeBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (nativeBackend) WriteText(text string) error {
	// Write returns a channel that fires when another owner replaces our data;
	// ownership changes are expected and ignored here.
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// systemBackend shells out to the platform clipboard utilities
// (pbcopy, xclip/xsel, wl-clipboard, win32) through atotto/clipboard.
type systemBackend struct{}

func (systemBackend) Name() string { return "system" }

func (systemBackend) ReadText() (string, error) {
	return atotto.ReadAll()
}

func (systemBackend) WriteText(text string) error {
	return atotto.WriteAll(text)
}
