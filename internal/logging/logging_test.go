package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailKeepsLastLines(t *testing.T) {
	tail := NewTail(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(tail, "INFO line %d\n", i)
	}
	assert.Equal(t, []string{"INFO line 3", "INFO line 4", "INFO line 5"}, tail.Lines())
}

func TestTailSkipsDebugAndJoinsPartialWrites(t *testing.T) {
	tail := NewTail(0)
	_, _ = tail.Write([]byte("12:00:00 DEBU noisy\n12:00:01 INFO hel"))
	_, _ = tail.Write([]byte("lo\n12:00:02 WARN careful\n\n"))

	assert.Equal(t, []string{"12:00:01 INFO hello", "12:00:02 WARN careful"}, tail.Lines())
}

func TestLinesReturnsCopy(t *testing.T) {
	tail := NewTail(2)
	_, _ = tail.Write([]byte("INFO a\n"))
	lines := tail.Lines()
	lines[0] = "changed"
	assert.Equal(t, []string{"INFO a"}, tail.Lines())
}

func TestNewWritesSessionFileAndTail(t *testing.T) {
	dir := t.TempDir()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC))
	tail := NewTail(5)

	h, err := New(Options{Level: "info", Dir: dir, Session: "abc", Tail: tail, Clock: clock})
	require.NoError(t, err)

	h.Logger.Debug("hidden")
	h.Logger.Info("training started", "episodes", 10)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	assert.Equal(t, filepath.Join(dir, "log_abc_20240309_140506.txt"), h.Path)
	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "training started")
	assert.NotContains(t, string(data), "hidden")

	lines := tail.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "episodes=10"), lines[0])
}

func TestNewConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	h, err := New(Options{Level: "debug", Console: true, Stderr: &buf})
	require.NoError(t, err)
	h.Logger.Debug("visible")

	assert.Empty(t, h.Path)
	assert.Contains(t, buf.String(), "visible")
	assert.NoError(t, h.Close())
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Dir: t.TempDir()})
	assert.Error(t, err)
}
