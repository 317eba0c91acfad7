package logging

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultTailSize is how many lines a progress display shows
const DefaultTailSize = 5

// Tail keeps the last few non-debug log lines in memory. It is safe for
// concurrent writers and readers.
type Tail struct {
	mu      sync.Mutex
	size    int
	lines   []string
	partial []byte
}

// NewTail returns a tail holding at most size lines
func NewTail(size int) *Tail {
	if size <= 0 {
		size = DefaultTailSize
	}
	return &Tail{size: size}
}

// Write implements io.Writer
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial = append(t.partial, p...)
	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			break
		}
		t.add(string(t.partial[:i]))
		t.partial = t.partial[i+1:]
	}
	if len(t.partial) == 0 {
		t.partial = nil
	}
	return len(p), nil
}

func (t *Tail) add(line string) {
	line = strings.TrimRight(line, "\r ")
	if line == "" || isDebug(line) {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = append(t.lines[:0], t.lines[len(t.lines)-t.size:]...)
	}
}

// isDebug matches the level label charmbracelet/log writes for debug lines
func isDebug(line string) bool {
	return strings.Contains(line, "DEBU ")
}

// Lines returns a copy of the buffered lines, oldest first
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
