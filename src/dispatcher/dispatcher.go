package dispatcher

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"ctrl-ai/src/capture"
	"ctrl-ai/src/llm"
	"ctrl-ai/src/logutil"
	"ctrl-ai/src/review"
	"ctrl-ai/src/worker"
)

const (
	MsgNoSelection = "No text selected"
	MsgProcessing  = "Processing..."
	MsgBusy        = "Busy, please retry"

	TransientDuration = 2 * time.Second
)

// SelectionSource captures the current selection of the focused application.
type SelectionSource interface {
	Capture(ctx context.Context) capture.Snapshot
}

// Processor turns a request into a result; it never fails.
type Processor interface {
	Process(ctx context.Context, req llm.Request) llm.Result
}

// Reviewer obtains the human decision for a proposal.
type Reviewer interface {
	Review(ctx context.Context, original, proposal string) review.Decision
}

// Sink pastes text into the focused application. Our progress toast has just
// been hidden when it is called, so it must wait for focus to return.
type Sink interface {
	InjectAfterHide(ctx context.Context, text string)
}

// Prompter asks for a free-form instruction. ok is false on cancel.
type Prompter interface {
	ShowPrompt(ctx context.Context, mode llm.Mode) (instruction string, ok bool)
}

// Presenter is the presentation surface the pipeline drives. Every method
// may be called from a worker goroutine.
type Presenter interface {
	Prompter
	review.Reviewer
	ShowProgress(msg string)
	HideProgress()
	ShowTransient(msg string, d time.Duration)
	ShowReadOnly(title, text string)
}

// Observer sees every state transition.
type Observer func(id string, from, to State)

type Deps struct {
	Source    SelectionSource
	Processor Processor
	Reviewer  Reviewer
	Sink      Sink
	Presenter Presenter
	Policies  review.PolicyTable
	// Pool bounds concurrent triggers; required by Trigger only.
	Pool *worker.Pool
}

// Dispatcher is the orchestrator. It holds no per-trigger state, so any number
// of Run calls may proceed concurrently.
type Dispatcher struct {
	deps     Deps
	observer Observer
	// reviews tracks continuations that wait on a human outside the pool.
	reviews sync.WaitGroup
}

type Option func(*Dispatcher)

func OnTransition(fn Observer) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

func New(deps Deps, opts ...Option) *Dispatcher {
	if deps.Policies == nil {
		deps.Policies = review.DefaultPolicies()
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Reviewer == nil {
		deps.Reviewer = review.NewGate(deps.Presenter)
	}
	d := &Dispatcher{deps: deps}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Trigger schedules one pipeline run on the worker pool. It returns false when
// the pool is saturated or the mode is unknown; the caller is never blocked.
// A worker is held for capture and processing only: a pending review continues
// on its own goroutine so open review windows never starve other hotkeys.
func (d *Dispatcher) Trigger(ctx context.Context, mode llm.Mode) bool {
	if !mode.Valid() {
		log.Printf("dispatcher: ignoring trigger for unknown mode %q", mode)
		return false
	}
	if d.deps.Pool == nil {
		log.Printf("dispatcher: no worker pool configured")
		return false
	}
	job := func(ctx context.Context) {
		tc := newTriggerContext(mode)
		if !d.prepare(ctx, tc) {
			return
		}
		if d.deps.Policies.For(mode) != review.PolicyReview {
			d.complete(ctx, tc)
			return
		}
		d.reviews.Add(1)
		go func() {
			defer d.reviews.Done()
			d.complete(ctx, tc)
		}()
	}
	if !d.deps.Pool.Submit(ctx, job) {
		log.Printf("dispatcher: pool saturated, dropping %s trigger", mode)
		d.deps.Presenter.ShowTransient(MsgBusy, TransientDuration)
		return false
	}
	return true
}

// WaitReviews blocks until every review continuation started by Trigger has finished.
func (d *Dispatcher) WaitReviews() {
	d.reviews.Wait()
}

// Run executes one full pipeline synchronously and returns its final context.
func (d *Dispatcher) Run(ctx context.Context, mode llm.Mode) *TriggerContext {
	tc := newTriggerContext(mode)
	if d.prepare(ctx, tc) {
		d.complete(ctx, tc)
	}
	return tc
}

// prepare runs capture, prompt and processing. It reports whether tc carries a
// result that still needs its policy applied.
func (d *Dispatcher) prepare(ctx context.Context, tc *TriggerContext) (ok bool) {
	defer d.recoverPipeline(tc)
	mode := tc.Mode

	if !mode.Valid() {
		log.Printf("dispatcher[%s]: unknown mode %q", tc.ID, mode)
		return false
	}
	log.Printf("dispatcher[%s]: %s triggered", tc.ID, mode)

	d.transition(tc, StateCapturing)
	tc.Snapshot = d.deps.Source.Capture(ctx)
	if tc.Snapshot.Empty() {
		d.transition(tc, StateCaptureFailed)
		d.deps.Presenter.ShowTransient(MsgNoSelection, TransientDuration)
		return false
	}
	log.Printf("dispatcher[%s]: captured %q", tc.ID, logutil.SanitizeForLogging(tc.Snapshot.Text))

	if mode.NeedsInstruction() {
		instruction, ok := d.deps.Presenter.ShowPrompt(ctx, mode)
		instruction = strings.TrimSpace(instruction)
		if !ok || instruction == "" {
			d.transition(tc, StatePromptCancelled)
			return false
		}
		tc.Instruction = instruction
	}

	req := llm.Request{Text: tc.Snapshot.Text, Mode: mode, Instruction: tc.Instruction}
	if err := req.Validate(); err != nil {
		log.Printf("dispatcher[%s]: invalid request: %v", tc.ID, err)
		d.transition(tc, StatePromptCancelled)
		return false
	}

	d.transition(tc, StateDispatching)
	d.deps.Presenter.ShowProgress(MsgProcessing)
	d.transition(tc, StateProcessing)
	tc.Result = d.deps.Processor.Process(ctx, req)
	d.deps.Presenter.HideProgress()
	log.Printf("dispatcher[%s]: %s produced %d chars", tc.ID, tc.Result.Provider, len(tc.Result.Text))
	return true
}

// complete applies the mode's policy and injects an approved result.
func (d *Dispatcher) complete(ctx context.Context, tc *TriggerContext) {
	defer d.recoverPipeline(tc)
	mode := tc.Mode

	switch d.deps.Policies.For(mode) {
	case review.PolicyShow:
		d.transition(tc, StateShown)
		d.deps.Presenter.ShowReadOnly(title(mode, tc.Instruction), tc.Result.Text)
		return
	case review.PolicyReview:
		d.transition(tc, StateReviewPending)
		tc.Decision = d.deps.Reviewer.Review(ctx, tc.Snapshot.Text, tc.Result.Text)
		if !tc.Decision.Accepted {
			d.transition(tc, StateRejected)
			return
		}
		d.transition(tc, StateAccepted)
	default:
		tc.Decision = review.Accept(tc.Result.Text)
		if !tc.Decision.Accepted {
			d.transition(tc, StateRejected)
			return
		}
	}

	d.transition(tc, StateInjecting)
	tc.Injected = tc.Decision.FinalText
	d.deps.Sink.InjectAfterHide(ctx, tc.Injected)
	d.transition(tc, StateDone)
	log.Printf("dispatcher[%s]: done in %s", tc.ID, time.Since(tc.StartedAt).Round(time.Millisecond))
}

func (d *Dispatcher) recoverPipeline(tc *TriggerContext) {
	if r := recover(); r != nil {
		log.Printf("dispatcher[%s]: pipeline panicked in state %s: %v\n%s", tc.ID, tc.State, r, debug.Stack())
		d.deps.Presenter.HideProgress()
	}
}

func (d *Dispatcher) transition(tc *TriggerContext, to State) {
	from := tc.State
	tc.State = to
	tc.History = append(tc.History, to)
	log.Printf("dispatcher[%s]: %s -> %s", tc.ID, from, to)
	if d.observer != nil {
		d.observer(tc.ID, from, to)
	}
}

func title(mode llm.Mode, instruction string) string {
	if instruction == "" {
		return fmt.Sprintf("Ctrl+AI %s", mode)
	}
	return fmt.Sprintf("Ctrl+AI %s: %s", mode, logutil.SanitizeForLogging(instruction))
}

// nopPresenter stands in when no surface is wired: prompts cancel and reviews reject.
type nopPresenter struct{}

func (nopPresenter) ShowPrompt(context.Context, llm.Mode) (string, bool)       { return "", false }
func (nopPresenter) ShowReview(context.Context, string, string) (string, bool) { return "", false }
func (nopPresenter) ShowProgress(string)                                       {}
func (nopPresenter) HideProgress()                                             {}
func (nopPresenter) ShowTransient(string, time.Duration)                       {}
func (nopPresenter) ShowReadOnly(string, string)                               {}
