package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is a text-transformation intent; it selects the prompt template and review policy.
type Mode string

const (
	ModeRefactor  Mode = "refactor"
	ModeRedactor  Mode = "redactor"
	ModeCommander Mode = "commander"
	ModeExplain   Mode = "explain"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeRefactor, ModeRedactor, ModeCommander, ModeExplain}

var (
	ErrMissingInstruction = errors.New("instruction is required for this mode")
	ErrUnknownMode        = errors.New("unknown mode")
)

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeRefactor, ModeRedactor, ModeCommander, ModeExplain:
		return true
	}
	return false
}

// NeedsInstruction reports whether the mode splices a free-form instruction into its prompt.
func (m Mode) NeedsInstruction() bool {
	return m == ModeCommander || m == ModeExplain
}

func (m Mode) String() string { return string(m) }

// Request is one unit of text processing.
type Request struct {
	Text        string
	Mode        Mode
	Instruction string
}

// Validate enforces that Instruction is non-empty exactly for the modes that use it.
func (r Request) Validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
	}
	if r.Mode.NeedsInstruction() && strings.TrimSpace(r.Instruction) == "" {
		return fmt.Errorf("%s: %w", r.Mode, ErrMissingInstruction)
	}
	return nil
}

// Result is always produced; Provider names who produced Text ("mock" for the local fallback).
type Result struct {
	Text     string
	Provider string
}
