package eventloop

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"ctrl-ai/src/llm"
	"ctrl-ai/src/singleinstance"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	accept bool
	got    []llm.Mode
	seen   chan struct{}
}

func (f *fakeDispatcher) Trigger(_ context.Context, mode llm.Mode) bool {
	f.mu.Lock()
	f.got = append(f.got, mode)
	accept := f.accept
	f.mu.Unlock()
	select {
	case f.seen <- struct{}{}:
	default:
	}
	return accept
}

type fakeListener struct {
	chords  map[string]func()
	started bool
	stopped bool
}

func (f *fakeListener) Register(chords map[string]func()) error {
	f.chords = chords
	return nil
}

func (f *fakeListener) Start() error { f.started = true; return nil }
func (f *fakeListener) Stop()        { f.stopped = true }

func freePort(t *testing.T) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := strconv.Itoa(lis.Addr().(*net.TCPAddr).Port)
	_ = lis.Close()
	t.Setenv("SINGLEINSTANCE_PORT_START", port)
	t.Setenv("SINGLEINSTANCE_PORT_END", port)
}

func runLoop(t *testing.T, l *Loop) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := singleinstance.DetectResidentPort(context.Background()); ok {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("resident did not come up")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cancel, errCh
}

func TestHotkeyCallbacksReachDispatcher(t *testing.T) {
	freePort(t)
	d := &fakeDispatcher{accept: true, seen: make(chan struct{}, 4)}
	l := New(d, nil)
	hk := &fakeListener{}
	err := l.StartHotkeys(hk, map[llm.Mode]string{
		llm.ModeRefactor:  "Ctrl+Shift+H",
		llm.ModeCommander: "Ctrl+Space",
		llm.ModeExplain:   "",
	})
	if err != nil {
		t.Fatalf("StartHotkeys: %v", err)
	}
	if !hk.started || len(hk.chords) != 2 {
		t.Fatalf("listener started=%v chords=%d", hk.started, len(hk.chords))
	}

	cancel, errCh := runLoop(t, l)
	hk.chords["Ctrl+Shift+H"]()

	select {
	case <-d.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey trigger never reached the dispatcher")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if !hk.stopped {
		t.Error("listener not stopped on shutdown")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.got) != 1 || d.got[0] != llm.ModeRefactor {
		t.Errorf("dispatched %v", d.got)
	}
}

func TestDelegatedTrigger(t *testing.T) {
	freePort(t)
	d := &fakeDispatcher{accept: true, seen: make(chan struct{}, 4)}
	cancel, errCh := runLoop(t, New(d, nil))
	defer func() { cancel(); <-errCh }()

	ctx, done := context.WithTimeout(context.Background(), 3*time.Second)
	defer done()
	client := singleinstance.NewClient()

	delegated, err := client.TryTrigger(ctx, "refactor")
	if !delegated || err != nil {
		t.Fatalf("delegated=%v err=%v", delegated, err)
	}

	_, err = client.TryTrigger(ctx, "translate")
	if err == nil || errors.Is(err, singleinstance.ErrBusy) {
		t.Errorf("unknown mode should be a plain error, got %v", err)
	}

	d.mu.Lock()
	d.accept = false
	d.mu.Unlock()
	if _, err := client.TryTrigger(ctx, "redactor"); !errors.Is(err, singleinstance.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestSecondResidentRefused(t *testing.T) {
	freePort(t)
	d := &fakeDispatcher{seen: make(chan struct{}, 1)}
	cancel, errCh := runLoop(t, New(d, nil))
	defer func() { cancel(); <-errCh }()

	if err := New(d, nil).Run(context.Background()); err == nil {
		t.Error("second loop started on an owned port")
	}
}

func TestStartHotkeysRequiresBindings(t *testing.T) {
	l := New(&fakeDispatcher{}, nil)
	if err := l.StartHotkeys(&fakeListener{}, map[llm.Mode]string{}); err == nil {
		t.Error("expected error for empty bindings")
	}
}

// brokenServer binds fine but its accept side dies immediately.
type brokenServer struct{ err error }

func (b brokenServer) Start(context.Context) error { return nil }
func (b brokenServer) Port() int                   { return 0 }
func (b brokenServer) Next(context.Context) (singleinstance.Conn, error) {
	return nil, b.err
}
func (b brokenServer) Close() error { return nil }

func TestRunReportsDeadTriggerServer(t *testing.T) {
	boom := errors.New("accept: too many open files")
	l := New(&fakeDispatcher{seen: make(chan struct{}, 1)}, brokenServer{err: boom})

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, boom) {
			t.Fatalf("Run = %v, want the server error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept going after the trigger server died")
	}
}
