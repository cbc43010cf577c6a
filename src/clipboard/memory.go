package clipboard

import (
	"errors"
	"sync"
)

// Memory is an in-process Backend used by headless runs and tests.
type Memory struct {
	mu        sync.Mutex
	text      string
	writes    []string
	failRead  bool
	failWrite bool
}

var errMemoryFailure = errors.New("memory clipboard: simulated failure")

func NewMemory(initial string) *Memory {
	return &Memory{text: initial}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return "", errMemoryFailure
	}
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errMemoryFailure
	}
	m.text = text
	m.writes = append(m.writes, text)
	return nil
}

// Set replaces the content without recording a write, as another application would.
func (m *Memory) Set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

// Text returns the current content.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Writes returns every value written through WriteText, oldest first.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// FailReads makes subsequent reads return an error.
func (m *Memory) FailReads(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// FailWrites makes subsequent writes return an error.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}
