package llm

import (
	"context"
	"fmt"
	"time"
)

const (
	MockProviderName   = "mock"
	DefaultMockLatency = time.Second
	redactorPreviewLen = 20
)

// Mock is the deterministic local fallback. Its latency keeps UI pacing the
// same as a live provider; the output depends only on the request.
type Mock struct {
	latency time.Duration
}

func NewMock(latency time.Duration) *Mock {
	if latency < 0 {
		latency = 0
	}
	return &Mock{latency: latency}
}

// Respond waits for the simulated latency (cut short by ctx) and returns the templated output.
func (m *Mock) Respond(ctx context.Context, req Request) string {
	if m.latency > 0 {
		t := time.NewTimer(m.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return mockText(req)
}

func mockText(req Request) string {
	switch req.Mode {
	case ModeRefactor:
		return fmt.Sprintf("[Refactored] %s\n(Fixed grammar and logic)", req.Text)
	case ModeRedactor:
		return fmt.Sprintf("[Redacted] <PII REMOVED> Summary of: %s...", preview(req.Text, redactorPreviewLen))
	case ModeCommander:
		return fmt.Sprintf("[Commander: %s] %s", req.Instruction, req.Text)
	case ModeExplain:
		return fmt.Sprintf("[Explain: %s] %s", req.Instruction, req.Text)
	default:
		return req.Text
	}
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
