package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

const (
	logFileName  = "ctrl_ai_debug.log"
	maxSizeBytes = 10 * 1024 * 1024
	maxArchives  = 3
	maxLogLength = 100
)

// Setup routes the standard logger for the resident. With file logging on,
// lines go to ctrl_ai_debug.log in the working directory, rolled over at
// 10 MB into .1 .. .3. With it off, nothing is written anywhere: the resident
// has no console and captured text must not leak to stderr.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	w, err := openRotating(logFileName, maxSizeBytes, maxArchives)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ctrl-ai: cannot open %s: %v\n", logFileName, err)
		return
	}
	log.SetOutput(w)
}

// rotatingWriter appends to path and rolls it over once a write would push it past limit.
// The standard logger serializes calls to Write.
type rotatingWriter struct {
	path     string
	limit    int64
	archives int
	f        *os.File
}

func openRotating(path string, limit int64, archives int) (*rotatingWriter, error) {
	w := &rotatingWriter{path: path, limit: limit, archives: archives}
	if st, err := os.Stat(path); err == nil && st.Size() > limit {
		w.shift()
	}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > w.limit {
		_ = w.f.Close()
		w.shift()
		if err := w.reopen(); err != nil {
			return 0, err
		}
	}
	return w.f.Write(p)
}

func (w *rotatingWriter) reopen() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	return nil
}

// shift drops the oldest archive and moves every other one up a slot.
func (w *rotatingWriter) shift() {
	_ = os.Remove(w.archive(w.archives))
	for i := w.archives - 1; i >= 1; i-- {
		_ = os.Rename(w.archive(i), w.archive(i+1))
	}
	_ = os.Rename(w.path, w.archive(1))
}

func (w *rotatingWriter) archive(n int) string { return fmt.Sprintf("%s.%d", w.path, n) }

// RedactKey keeps the first and last four characters of a provider key for the startup log.
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return k[:4] + "..." + k[len(k)-4:]
}

// SanitizeForLogging truncates user text and escapes control characters so
// captured selections cannot flood or forge log lines.
func SanitizeForLogging(text string) string {
	runes := []rune(text)
	truncated := len(runes) > maxLogLength
	if truncated {
		runes = runes[:maxLogLength]
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
