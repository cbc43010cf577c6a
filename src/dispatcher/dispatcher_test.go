package dispatcher

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"ctrl-ai/src/capture"
	"ctrl-ai/src/clipboard"
	"ctrl-ai/src/inject"
	"ctrl-ai/src/keyboard"
	"ctrl-ai/src/keyboard/keyboardtest"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/review"
	"ctrl-ai/src/worker"
)

type fakePresenter struct {
	mu sync.Mutex

	instruction string
	promptOK    bool
	reviewFn    func(original, proposal string) (string, bool)

	prompts    []llm.Mode
	reviews    []string
	transients []string
	readOnly   []string
	progress   int
	hidden     int
}

func (p *fakePresenter) ShowPrompt(ctx context.Context, mode llm.Mode) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, mode)
	return p.instruction, p.promptOK
}

func (p *fakePresenter) ShowReview(ctx context.Context, original, proposal string) (string, bool) {
	p.mu.Lock()
	p.reviews = append(p.reviews, proposal)
	fn := p.reviewFn
	p.mu.Unlock()
	if fn == nil {
		return "", false
	}
	return fn(original, proposal)
}

func (p *fakePresenter) ShowProgress(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress++
}

func (p *fakePresenter) HideProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden++
}

func (p *fakePresenter) ShowTransient(msg string, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transients = append(p.transients, msg)
}

func (p *fakePresenter) ShowReadOnly(_, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readOnly = append(p.readOnly, text)
}

type desktopFixture struct {
	mem  *clipboard.Memory
	desk *keyboardtest.Desktop
	ui   *fakePresenter
	d    *Dispatcher
}

func newFixture(t *testing.T, prior string, policies review.PolicyTable) *desktopFixture {
	t.Helper()
	mem := clipboard.NewMemory(prior)
	desk := keyboardtest.NewDesktop(mem)
	gate := clipboard.NewGate(mem)
	ui := &fakePresenter{}
	d := New(Deps{
		Source:    capture.New(gate, desk, capture.WithTimeout(60*time.Millisecond), capture.WithPollInterval(5*time.Millisecond)),
		Processor: llm.NewWithProvider(nil, llm.ModelParams{}, time.Second, 0),
		Sink:      inject.New(gate, desk, 0),
		Presenter: ui,
		Policies:  policies,
	})
	return &desktopFixture{mem: mem, desk: desk, ui: ui, d: d}
}

func TestRefactorAutoAppliesMockResult(t *testing.T) {
	f := newFixture(t, "", nil)
	f.desk.Select("helo wrld")

	tc := f.d.Run(context.Background(), llm.ModeRefactor)

	want := "[Refactored] helo wrld\n(Fixed grammar and logic)"
	if !reflect.DeepEqual(f.desk.Pasted(), []string{want}) {
		t.Fatalf("pasted = %q", f.desk.Pasted())
	}
	if tc.State != StateDone || tc.Injected != want {
		t.Errorf("state=%s injected=%q", tc.State, tc.Injected)
	}
	wantHistory := []State{StateIdle, StateCapturing, StateDispatching, StateProcessing, StateInjecting, StateDone}
	if !reflect.DeepEqual(tc.History, wantHistory) {
		t.Errorf("history = %v", tc.History)
	}
	if f.ui.progress != 1 || f.ui.hidden != 1 {
		t.Errorf("progress shown %d hidden %d", f.ui.progress, f.ui.hidden)
	}
	if len(f.ui.prompts) != 0 || len(f.ui.reviews) != 0 {
		t.Error("auto mode must not prompt or review")
	}
}

func TestNoSelectionNeverInjects(t *testing.T) {
	f := newFixture(t, "precious", nil)

	tc := f.d.Run(context.Background(), llm.ModeRefactor)

	if tc.State != StateCaptureFailed {
		t.Fatalf("state = %s", tc.State)
	}
	if len(f.desk.Pasted()) != 0 {
		t.Errorf("expected zero injections, got %q", f.desk.Pasted())
	}
	if f.mem.Text() != "precious" {
		t.Errorf("clipboard not restored: %q", f.mem.Text())
	}
	if !reflect.DeepEqual(f.ui.transients, []string{MsgNoSelection}) {
		t.Errorf("transients = %q", f.ui.transients)
	}
	if f.ui.progress != 0 {
		t.Error("progress shown for failed capture")
	}
}

func TestCommanderReviewReject(t *testing.T) {
	f := newFixture(t, "", nil)
	f.desk.Select("hello")
	f.ui.instruction, f.ui.promptOK = "uppercase", true
	f.ui.reviewFn = func(string, string) (string, bool) { return "", false }

	tc := f.d.Run(context.Background(), llm.ModeCommander)

	if tc.State != StateRejected || tc.Decision.Accepted {
		t.Fatalf("state=%s decision=%+v", tc.State, tc.Decision)
	}
	if len(f.desk.Pasted()) != 0 {
		t.Errorf("rejected review injected %q", f.desk.Pasted())
	}
	if !reflect.DeepEqual(f.ui.reviews, []string{"[Commander: uppercase] hello"}) {
		t.Errorf("reviews = %q", f.ui.reviews)
	}
}

func TestCommanderReviewAcceptEdited(t *testing.T) {
	f := newFixture(t, "", nil)
	f.desk.Select("hello")
	f.ui.instruction, f.ui.promptOK = "  uppercase ", true
	f.ui.reviewFn = func(original, proposal string) (string, bool) {
		if original != "hello" {
			t.Errorf("review original = %q", original)
		}
		return "HELLO!", true
	}

	tc := f.d.Run(context.Background(), llm.ModeCommander)

	if !reflect.DeepEqual(f.desk.Pasted(), []string{"HELLO!"}) {
		t.Fatalf("pasted = %q, want the edited text exactly once", f.desk.Pasted())
	}
	if tc.Instruction != "uppercase" {
		t.Errorf("instruction = %q", tc.Instruction)
	}
	if tc.Decision != (review.Decision{Accepted: true, FinalText: "HELLO!"}) {
		t.Errorf("decision = %+v", tc.Decision)
	}
	wantTail := []State{StateReviewPending, StateAccepted, StateInjecting, StateDone}
	if got := tc.History[len(tc.History)-4:]; !reflect.DeepEqual(got, wantTail) {
		t.Errorf("history tail = %v", got)
	}
}

func TestPromptCancelledSkipsProvider(t *testing.T) {
	for _, tt := range []struct {
		name        string
		instruction string
		ok          bool
	}{
		{"escape", "whatever", false},
		{"blank", "   ", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", nil)
			f.desk.Select("hello")
			f.ui.instruction, f.ui.promptOK = tt.instruction, tt.ok

			tc := f.d.Run(context.Background(), llm.ModeExplain)

			if tc.State != StatePromptCancelled {
				t.Fatalf("state = %s", tc.State)
			}
			if f.ui.progress != 0 || len(f.desk.Pasted()) != 0 {
				t.Error("cancelled prompt still processed or injected")
			}
		})
	}
}

func TestShowPolicyDisplaysWithoutInjecting(t *testing.T) {
	f := newFixture(t, "", review.DefaultPolicies().WithOverrides(map[string]string{"explain": "show"}))
	f.desk.Select("x := <-ch")
	f.ui.instruction, f.ui.promptOK = "what does this do", true

	tc := f.d.Run(context.Background(), llm.ModeExplain)

	if tc.State != StateShown {
		t.Fatalf("state = %s", tc.State)
	}
	if !reflect.DeepEqual(f.ui.readOnly, []string{"[Explain: what does this do] x := <-ch"}) {
		t.Errorf("readOnly = %q", f.ui.readOnly)
	}
	if len(f.desk.Pasted()) != 0 {
		t.Errorf("show policy injected %q", f.desk.Pasted())
	}
}

func TestObserverSeesEveryTransition(t *testing.T) {
	f := newFixture(t, "", nil)
	f.desk.Select("abc")
	var seen []State
	var ids []string
	d := New(f.d.deps, OnTransition(func(id string, from, to State) {
		seen = append(seen, to)
		ids = append(ids, id)
	}))

	tc := d.Run(context.Background(), llm.ModeRedactor)

	if !reflect.DeepEqual(append([]State{StateIdle}, seen...), tc.History) {
		t.Errorf("observer %v vs history %v", seen, tc.History)
	}
	for _, id := range ids {
		if id != tc.ID {
			t.Fatalf("observer id %q != %q", id, tc.ID)
		}
	}
}

type scriptedSource struct{ text string }

func (s scriptedSource) Capture(context.Context) capture.Snapshot {
	return capture.Snapshot{Text: s.text, CapturedAt: time.Now()}
}

type recordingSink struct {
	mu  sync.Mutex
	got []string
}

func (s *recordingSink) InjectAfterHide(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, text)
}

type perRequestSource struct {
	mu    sync.Mutex
	texts []string
}

func (s *perRequestSource) Capture(context.Context) capture.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.texts[0]
	s.texts = s.texts[1:]
	return capture.Snapshot{Text: text, CapturedAt: time.Now()}
}

type slowProcessor struct {
	delay time.Duration
}

func (p slowProcessor) Process(ctx context.Context, req llm.Request) llm.Result {
	time.Sleep(p.delay)
	return llm.Result{Text: strings.ToUpper(req.Text), Provider: "slow"}
}

// submit retries Trigger while the 1-slot queue still holds an earlier trigger.
func submit(t *testing.T, d *Dispatcher, mode llm.Mode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !d.Trigger(context.Background(), mode) {
		if time.Now().After(deadline) {
			t.Fatalf("%s trigger refused", mode)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestConcurrentTriggersKeepTheirOwnContext(t *testing.T) {
	pool := worker.New(2)
	sink := &recordingSink{}
	ui := &fakePresenter{}
	var mu sync.Mutex
	final := map[string]State{}
	d := New(Deps{
		Source:    &perRequestSource{texts: []string{"first", "second"}},
		Processor: slowProcessor{delay: 30 * time.Millisecond},
		Sink:      sink,
		Presenter: ui,
		Pool:      pool,
	}, OnTransition(func(id string, _, to State) {
		mu.Lock()
		defer mu.Unlock()
		final[id] = to
	}))

	for i := 0; i < 2; i++ {
		submit(t, d, llm.ModeRefactor)
	}
	pool.Close()

	sink.mu.Lock()
	got := append([]string(nil), sink.got...)
	sink.mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected two injections, got %q", got)
	}
	seen := map[string]bool{got[0]: true, got[1]: true}
	if !seen["FIRST"] || !seen["SECOND"] {
		t.Errorf("each trigger must inject its own result, got %q", got)
	}
	if len(final) != 2 {
		t.Fatalf("expected two distinct trigger ids, got %d", len(final))
	}
	for id, s := range final {
		if s != StateDone {
			t.Errorf("trigger %s ended in %s", id, s)
		}
	}
}

func TestTriggerBusyShowsTransient(t *testing.T) {
	pool := worker.New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(context.Background(), func(context.Context) { close(started); <-release })
	<-started
	pool.Submit(context.Background(), func(context.Context) {})

	ui := &fakePresenter{}
	d := New(Deps{Source: scriptedSource{"x"}, Processor: slowProcessor{}, Sink: &recordingSink{}, Presenter: ui, Pool: pool})

	if d.Trigger(context.Background(), llm.ModeRefactor) {
		t.Fatal("expected saturated pool to refuse")
	}
	if !reflect.DeepEqual(ui.transients, []string{MsgBusy}) {
		t.Errorf("transients = %q", ui.transients)
	}
	if d.Trigger(context.Background(), llm.Mode("bogus")) {
		t.Error("unknown mode accepted")
	}
	close(release)
	pool.Close()
}

type panickingProcessor struct{}

func (panickingProcessor) Process(context.Context, llm.Request) llm.Result {
	panic("provider exploded")
}

func TestRunRecoversFromPanic(t *testing.T) {
	ui := &fakePresenter{}
	sink := &recordingSink{}
	d := New(Deps{Source: scriptedSource{"x"}, Processor: panickingProcessor{}, Sink: sink, Presenter: ui})

	tc := d.Run(context.Background(), llm.ModeRefactor)

	if tc.State != StateProcessing {
		t.Errorf("state = %s", tc.State)
	}
	if ui.hidden != 1 {
		t.Error("progress not hidden after panic")
	}
	if len(sink.got) != 0 {
		t.Error("injected after panic")
	}
}

func TestStateStrings(t *testing.T) {
	if StateReviewPending.String() != "review-pending" || State(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
	for _, s := range []State{StateCaptureFailed, StatePromptCancelled, StateRejected, StateShown, StateDone} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StateProcessing.Terminal() {
		t.Error("processing is not terminal")
	}
}

// clipboardTrace records clipboard writes and synthesized chords in one
// ordered log so the test can check that gate sequences never interleave.
type clipboardTrace struct {
	mu     sync.Mutex
	events []string
}

func (tr *clipboardTrace) add(ev string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, ev)
}

func (tr *clipboardTrace) log() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

type tracedBackend struct {
	clipboard.Backend
	tr *clipboardTrace
}

func (b tracedBackend) WriteText(text string) error {
	b.tr.add("write:" + text)
	return b.Backend.WriteText(text)
}

type tracedKeys struct {
	*keyboardtest.Desktop
	tr *clipboardTrace
}

func (k tracedKeys) Tap(c keyboard.Chord) error {
	if c.Key == "c" {
		k.tr.add("copy")
	} else {
		k.tr.add("paste")
	}
	return k.Desktop.Tap(c)
}

func TestOverlappingTriggersShareOneClipboard(t *testing.T) {
	mem := clipboard.NewMemory("prior")
	desk := keyboardtest.NewDesktop(mem)
	desk.QueueSelections("first", "", "second")
	tr := &clipboardTrace{}
	gate := clipboard.NewGate(tracedBackend{Backend: mem, tr: tr})
	keys := tracedKeys{Desktop: desk, tr: tr}

	pool := worker.New(3)
	var mu sync.Mutex
	final := map[string]State{}
	d := New(Deps{
		Source:    capture.New(gate, keys, capture.WithTimeout(60*time.Millisecond), capture.WithPollInterval(5*time.Millisecond)),
		Processor: llm.NewWithProvider(nil, llm.ModelParams{}, time.Second, 40*time.Millisecond),
		Sink:      inject.New(gate, keys, 0),
		Presenter: &fakePresenter{},
		Pool:      pool,
	}, OnTransition(func(id string, _, to State) {
		mu.Lock()
		defer mu.Unlock()
		final[id] = to
	}))

	for i := 0; i < 3; i++ {
		submit(t, d, llm.ModeRefactor)
	}
	pool.Close()

	refactored := func(s string) string { return "[Refactored] " + s + "\n(Fixed grammar and logic)" }
	got := desk.Pasted()
	if len(got) != 2 {
		t.Fatalf("pasted = %q, want two injections", got)
	}
	seen := map[string]int{}
	for _, p := range got {
		seen[p]++
	}
	if seen[refactored("first")] != 1 || seen[refactored("second")] != 1 {
		t.Errorf("each trigger must paste its own capture, got %q", got)
	}

	counts := map[State]int{}
	for _, s := range final {
		counts[s]++
	}
	if counts[StateDone] != 2 || counts[StateCaptureFailed] != 1 {
		t.Errorf("final states = %v", counts)
	}

	// A capture is write:"" then copy; an inject is write:text then paste.
	// Anything wedged in between means two sequences overlapped.
	events := tr.log()
	for i, ev := range events {
		switch {
		case ev == "write:":
			if i+1 >= len(events) || events[i+1] != "copy" {
				t.Fatalf("sentinel not followed by its copy chord: %q", events)
			}
		case ev == "copy":
			if i == 0 || events[i-1] != "write:" {
				t.Fatalf("copy chord without its sentinel: %q", events)
			}
		case ev == "paste":
			if i == 0 || events[i-1] == "write:" || !strings.HasPrefix(events[i-1], "write:") {
				t.Fatalf("paste not preceded by its own write: %q", events)
			}
		}
	}
}

func TestPendingReviewsDoNotStarveOtherTriggers(t *testing.T) {
	pool := worker.New(4)
	release := make(chan struct{})
	ui := &fakePresenter{instruction: "translate", promptOK: true}
	ui.reviewFn = func(_, proposal string) (string, bool) {
		<-release
		return proposal, true
	}
	sink := &recordingSink{}
	d := New(Deps{
		Source:    scriptedSource{"hola"},
		Processor: slowProcessor{},
		Sink:      sink,
		Presenter: ui,
		Pool:      pool,
	})
	defer func() {
		close(release)
		d.WaitReviews()
		pool.Close()
	}()

	for i := 0; i < 4; i++ {
		submit(t, d, llm.ModeCommander)
	}
	waitFor(t, "four open reviews", func() bool {
		ui.mu.Lock()
		defer ui.mu.Unlock()
		return len(ui.reviews) == 4
	})

	submit(t, d, llm.ModeRefactor)
	waitFor(t, "refactor injection while reviews are open", func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.got) == 1
	})
	submit(t, d, llm.ModeRedactor)
	waitFor(t, "redactor injection while reviews are open", func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.got) == 2
	})

	ui.mu.Lock()
	defer ui.mu.Unlock()
	for _, msg := range ui.transients {
		if msg == MsgBusy {
			t.Fatalf("trigger refused while only reviews were pending: %q", ui.transients)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNilPresenterIsTolerated(t *testing.T) {
	pool := worker.New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(context.Background(), func(context.Context) { close(started); <-release })
	<-started
	pool.Submit(context.Background(), func(context.Context) {})

	sink := &recordingSink{}
	d := New(Deps{Source: scriptedSource{"x"}, Processor: panickingProcessor{}, Sink: sink, Pool: pool})

	if d.Trigger(context.Background(), llm.ModeRefactor) {
		t.Error("saturated pool accepted a trigger")
	}
	if tc := d.Run(context.Background(), llm.ModeRefactor); tc.State != StateProcessing {
		t.Errorf("panicking run state = %s", tc.State)
	}
	if tc := d.Run(context.Background(), llm.ModeCommander); tc.State != StatePromptCancelled {
		t.Errorf("commander without a surface = %s", tc.State)
	}
	if len(sink.got) != 0 {
		t.Errorf("injected %q", sink.got)
	}
	close(release)
	pool.Close()
}
