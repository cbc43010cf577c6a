package llm

import "fmt"

const (
	refactorSystemPrompt = "You are an expert code and text editor. Your task is to fix grammar, spelling, and optimize the logic/clarity of the provided text/code. " +
		"Output ONLY the corrected version. Do not add conversational filler like 'Here is the fixed code'."

	redactorSystemPrompt = "You are a privacy officer. Your task is to remove PII (Personal Identifiable Information) from the text " +
		"such as names, emails, phones, and addresses. Replace them with <REDACTED>. " +
		"Also remove fluff and summarize slightly if verbose. Output ONLY the sanitized text."

	commanderSystemPrompt = "You are a helpful AI assistant integrated into the user's OS. " +
		"Execute the user's specific instruction on the provided text. " +
		"Output ONLY the result. Do not add quotes around the result unless requested."

	explainSystemPrompt = "You are a helpful AI assistant integrated into the user's OS. " +
		"Answer the user's question about the provided text clearly and concisely. " +
		"Output plain text without markdown headings."
)

// Templates returns the system instruction and user content for a mode.
// Unknown modes fall back to the refactor template.
func Templates(mode Mode, text, instruction string) (system, user string) {
	switch mode {
	case ModeRedactor:
		return redactorSystemPrompt, fmt.Sprintf("Redact this:\n\n%s", text)
	case ModeCommander:
		return commanderSystemPrompt, fmt.Sprintf("Instruction: %s\n\nText to process:\n%s", instruction, text)
	case ModeExplain:
		return explainSystemPrompt, fmt.Sprintf("Question: %s\n\nText:\n%s", instruction, text)
	default:
		return refactorSystemPrompt, fmt.Sprintf("Optimize/Fix this:\n\n%s", text)
	}
}
