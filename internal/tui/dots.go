package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack-rl/internal/agent"
)

// dotsTotal fits a full run on an 80 column terminal
const dotsTotal = 40

// DotReporter prints a row of dots as training advances and a summary
// when it completes. Used when no interactive terminal is available.
type DotReporter struct {
	mu      sync.Mutex
	w       io.Writer
	clock   quartz.Clock
	start   time.Time
	dots    int
	started bool
	done    bool
}

var _ agent.ProgressSink = (*DotReporter)(nil)

// NewDotReporter creates a reporter writing to w
func NewDotReporter(w io.Writer, clock quartz.Clock) *DotReporter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &DotReporter{w: w, clock: clock, start: clock.Now()}
}

// Render implements agent.ProgressSink
func (d *DotReporter) Render(p agent.Progress) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		return nil
	}
	if !d.started {
		d.started = true
		if _, err := fmt.Fprintf(d.w, "Training %s: ", p.Agent); err != nil {
			return err
		}
	}

	target := int(p.Fraction() * dotsTotal)
	if target > d.dots {
		if _, err := io.WriteString(d.w, strings.Repeat(".", target-d.dots)); err != nil {
			return err
		}
		d.dots = target
	}

	if p.Total > 0 && p.Episode >= p.Total {
		d.done = true
		elapsed := d.clock.Since(d.start)
		rate := 0.0
		if elapsed > 0 {
			rate = float64(p.Episode) / elapsed.Seconds()
		}
		if _, err := fmt.Fprintf(d.w, " ✓ %d episodes in %.1fs (%.0f/sec)\n", p.Episode, elapsed.Seconds(), rate); err != nil {
			return err
		}
		parts := make([]string, len(p.Stats))
		for i, s := range p.Stats {
			parts[i] = s.Name + "=" + s.Value
		}
		if _, err := fmt.Fprintln(d.w, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
