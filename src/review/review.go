package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ctrl-ai/src/llm"
)

// Policy decides what happens to a proposal before it reaches the injector.
type Policy string

const (
	// PolicyAuto injects the proposal without asking.
	PolicyAuto Policy = "auto"
	// PolicyReview asks the human to accept, edit or reject.
	PolicyReview Policy = "review"
	// PolicyShow displays the proposal read-only; nothing is injected.
	PolicyShow Policy = "show"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAuto, PolicyReview, PolicyShow:
		return p, nil
	}
	return "", fmt.Errorf("unknown review policy %q (want auto, review or show)", s)
}

// PolicyTable maps modes to policies. Modes without an entry are reviewed.
type PolicyTable map[llm.Mode]Policy

// DefaultPolicies: refactor/redactor auto-apply, commander/explain are reviewed.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		llm.ModeRefactor:  PolicyAuto,
		llm.ModeRedactor:  PolicyAuto,
		llm.ModeCommander: PolicyReview,
		llm.ModeExplain:   PolicyReview,
	}
}

// WithOverrides returns a copy of t with string overrides (mode -> policy) applied.
// Unknown modes or policies are logged and skipped.
func (t PolicyTable) WithOverrides(overrides map[string]string) PolicyTable {
	out := make(PolicyTable, len(t))
	for m, p := range t {
		out[m] = p
	}
	for ms, ps := range overrides {
		mode, err := llm.ParseMode(ms)
		if err != nil {
			log.Printf("review: ignoring policy override: %v", err)
			continue
		}
		p, err := ParsePolicy(ps)
		if err != nil {
			log.Printf("review: ignoring policy override for %s: %v", mode, err)
			continue
		}
		out[mode] = p
	}
	return out
}

func (t PolicyTable) For(mode llm.Mode) Policy {
	if p, ok := t[mode]; ok {
		return p
	}
	return PolicyReview
}

// Decision is the outcome of a review. FinalText is empty iff Accepted is false.
type Decision struct {
	Accepted  bool
	FinalText string
}

// Accept builds an accepting decision. An empty text is treated as a reject.
func Accept(text string) Decision {
	if text == "" {
		return Reject()
	}
	return Decision{Accepted: true, FinalText: text}
}

func Reject() Decision { return Decision{} }

// Reviewer is the presentation surface that shows the original next to the
// editable proposal and blocks until the human answers or ctx ends.
type Reviewer interface {
	ShowReview(ctx context.Context, original, proposal string) (text string, accepted bool)
}

// Gate asks a Reviewer and turns the answer into a Decision.
type Gate struct {
	reviewer Reviewer
}

func NewGate(r Reviewer) *Gate {
	return &Gate{reviewer: r}
}

// Review blocks until the human decides. Dismissal, ctx cancellation and an
// emptied proposal all count as a reject. The accepted text is whatever the
// human left in the editor, not necessarily the proposal.
func (g *Gate) Review(ctx context.Context, original, proposal string) Decision {
	if g.reviewer == nil {
		log.Printf("review: no reviewer attached, rejecting")
		return Reject()
	}
	text, accepted := g.reviewer.ShowReview(ctx, original, proposal)
	if ctx.Err() != nil {
		return Reject()
	}
	if !accepted {
		return Reject()
	}
	return Accept(text)
}
