// Package logging builds the charmbracelet loggers used by the CLI.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Options controls where log output goes
type Options struct {
	// Level is parsed with log.ParseLevel; empty means info
	Level string

	// Dir receives one log file per session. Empty disables the file.
	Dir     string
	Session string

	// Console also writes to Stderr
	Console bool
	Stderr  io.Writer

	// Tail, when set, receives a copy of every line
	Tail *Tail

	Clock quartz.Clock
}

// Handle owns the logger and its log file
type Handle struct {
	Logger *log.Logger
	// Path is the log file, empty if none was opened
	Path string
	file *os.File
}

// New creates a logger according to opts
func New(opts Options) (*Handle, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}

	h := &Handle{}
	var writers []io.Writer

	if opts.Dir != "" {
		if opts.Session == "" {
			return nil, errors.New("session is required when logging to a directory")
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("log_%s_%s.txt", opts.Session, clock.Now().Format("20060102_150405"))
		h.Path = filepath.Join(opts.Dir, name)
		f, err := os.OpenFile(h.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		h.file = f
		writers = append(writers, f)
	}
	if opts.Console {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}
	if opts.Tail != nil {
		writers = append(writers, opts.Tail)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	h.Logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return h, nil
}

// Close closes the log file if one was opened
func (h *Handle) Close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}

// Discard returns a logger that drops everything below error
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}
