package ui

import (
	"fmt"

	"ctrl-ai/src/llm"
)

// PromptStyle returns the prompt bar badge and placeholder for a mode.
func PromptStyle(mode llm.Mode) (badge, placeholder string) {
	switch mode {
	case llm.ModeExplain:
		return "ASK", "Ask a question about the selection..."
	case llm.ModeCommander:
		return "CMD", "Tell the AI what to do with the selection..."
	default:
		return "AI", fmt.Sprintf("Instruction for %s...", mode)
	}
}

// trayItems lists the tray menu entries in display order.
var trayItems = []struct {
	Label string
	Mode  llm.Mode
}{
	{"Refactor selection", llm.ModeRefactor},
	{"Redact selection", llm.ModeRedactor},
	{"Commander...", llm.ModeCommander},
	{"Explain...", llm.ModeExplain},
}
