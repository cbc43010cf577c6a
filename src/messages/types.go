package messages

import (
	"context"
	"time"

	"ctrl-ai/src/llm"
)

// Message is the base interface for everything sent to the presentation loop.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeShowPrompt    = "ShowPrompt"
	TypeShowProgress  = "ShowProgress"
	TypeHideProgress  = "HideProgress"
	TypeShowTransient = "ShowTransient"
	TypeShowReview    = "ShowReview"
	TypeShowReadOnly  = "ShowReadOnly"
)

// ShowPrompt opens the instruction bar. Exactly one PromptReply is sent on
// Reply. Done closes when the requester stopped waiting; the window should go.
type ShowPrompt struct {
	Mode  llm.Mode
	Reply chan<- PromptReply
	Done  <-chan struct{}
}

func (m ShowPrompt) Type() string { return TypeShowPrompt }

type PromptReply struct {
	Instruction string
	OK          bool
}

// ShowProgress shows the non-focusable "working" toast.
type ShowProgress struct {
	Text string
}

func (m ShowProgress) Type() string { return TypeShowProgress }

type HideProgress struct{}

func (m HideProgress) Type() string { return TypeHideProgress }

// ShowTransient shows Text in the toast and hides it after Duration.
type ShowTransient struct {
	Text     string
	Duration time.Duration
}

func (m ShowTransient) Type() string { return TypeShowTransient }

// ShowReview opens the review window. Exactly one ReviewReply is sent on Reply.
type ShowReview struct {
	Original string
	Proposal string
	Reply    chan<- ReviewReply
	Done     <-chan struct{}
}

func (m ShowReview) Type() string { return TypeShowReview }

type ReviewReply struct {
	Text     string
	Accepted bool
}

// ShowReadOnly opens the result window with a copy button; nothing is injected.
type ShowReadOnly struct {
	Title string
	Text  string
}

func (m ShowReadOnly) Type() string { return TypeShowReadOnly }

// Bus is the worker-side half of the presentation channel. Its methods block
// only where the pipeline must wait for the human (prompt, review).
type Bus struct {
	ch chan Message
}

func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan Message, buffer)}
}

// C is consumed by exactly one presentation pump.
func (b *Bus) C() <-chan Message { return b.ch }

// post never blocks; a presentation loop that is this far behind drops
// fire-and-forget updates.
func (b *Bus) post(m Message) bool {
	select {
	case b.ch <- m:
		return true
	default:
		return false
	}
}

func (b *Bus) send(ctx context.Context, m Message) bool {
	select {
	case b.ch <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *Bus) ShowPrompt(ctx context.Context, mode llm.Mode) (string, bool) {
	reply := make(chan PromptReply, 1)
	if !b.send(ctx, ShowPrompt{Mode: mode, Reply: reply, Done: ctx.Done()}) {
		return "", false
	}
	select {
	case r := <-reply:
		return r.Instruction, r.OK
	case <-ctx.Done():
		return "", false
	}
}

func (b *Bus) ShowReview(ctx context.Context, original, proposal string) (string, bool) {
	reply := make(chan ReviewReply, 1)
	if !b.send(ctx, ShowReview{Original: original, Proposal: proposal, Reply: reply, Done: ctx.Done()}) {
		return "", false
	}
	select {
	case r := <-reply:
		return r.Text, r.Accepted
	case <-ctx.Done():
		return "", false
	}
}

func (b *Bus) ShowProgress(text string) { b.post(ShowProgress{Text: text}) }

func (b *Bus) HideProgress() { b.post(HideProgress{}) }

func (b *Bus) ShowTransient(text string, d time.Duration) {
	b.post(ShowTransient{Text: text, Duration: d})
}

func (b *Bus) ShowReadOnly(title, text string) { b.post(ShowReadOnly{Title: title, Text: text}) }
