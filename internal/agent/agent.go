// Package agent implements tabular learners for the Blackjack environment.
//
// Two variants share the Agent contract: a first-visit Monte Carlo agent
// keyed on the full observation, and a SARSA agent keyed on a coarsened
// observation. Both own their value table, their exploration rate and their
// random source; nothing outside the agent mutates them except Load.
package agent

import (
	"context"

	"github.com/lox/blackjack-rl/internal/env"
)

// Agent is the capability shared by every learner
type Agent interface {
	// Name identifies the variant, e.g. "monte_carlo"
	Name() string

	// ChooseAction picks an action under the exploration policy. It never
	// touches the environment but may create table rows.
	ChooseAction(obs env.Observation) env.Action

	// GreedyAction picks the highest valued action with no exploration
	GreedyAction(obs env.Observation) env.Action

	// Train plays episodes rounds against e, learning as it goes. A
	// cancelled context stops training between episodes; the partial
	// result is returned together with ctx.Err().
	Train(ctx context.Context, e *env.Environment, episodes int, sink ProgressSink) (*Result, error)

	// Epsilon returns the current exploration rate
	Epsilon() float64

	// TableSize returns the number of states with value estimates
	TableSize() int

	Save(path string) error
	Load(path string) error
}

// Stat is one named value shown by a progress sink
type Stat struct {
	Name  string
	Value string
}

// Progress is handed to a ProgressSink at episode boundaries
type Progress struct {
	Agent   string
	Episode int
	Total   int
	Stats   []Stat
	LogTail []string
}

// Fraction returns how much of the run is complete, in [0, 1]
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Episode) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressSink receives training progress. Implementations must return
// quickly; an error is logged and otherwise ignored.
type ProgressSink interface {
	Render(Progress) error
}

// ProgressSinkFunc adapts a function to ProgressSink
type ProgressSinkFunc func(Progress) error

// Render calls f(p)
func (f ProgressSinkFunc) Render(p Progress) error { return f(p) }

// LogSource supplies the most recent log lines for progress displays
type LogSource interface {
	Lines() []string
}

// Snapshot samples the learner's state at a fixed episode interval
type Snapshot struct {
	Episode     int
	WinRate     float64
	Epsilon     float64
	Alpha       float64
	TotalReward float64
	TableSize   int
}

// Result summarises a training run
type Result struct {
	Rewards   []float64
	Wins      int
	Losses    int
	Draws     int
	Hits      int
	Stands    int
	Snapshots []Snapshot
}

// Episodes returns the number of completed episodes
func (r *Result) Episodes() int {
	return len(r.Rewards)
}

// TotalReward returns the sum of all episode rewards
func (r *Result) TotalReward() float64 {
	total := 0.0
	for _, v := range r.Rewards {
		total += v
	}
	return total
}

// WinRate returns wins over completed episodes
func (r *Result) WinRate() float64 {
	if len(r.Rewards) == 0 {
		return 0
	}
	return float64(r.Wins) / float64(len(r.Rewards))
}

func (r *Result) record(reward float64, outcome env.Outcome) {
	r.Rewards = append(r.Rewards, reward)
	switch outcome {
	case env.Win:
		r.Wins++
	case env.Loss:
		r.Losses++
	default:
		r.Draws++
	}
}

func (r *Result) count(a env.Action) {
	if a == env.Hit {
		r.Hits++
	} else {
		r.Stands++
	}
}
