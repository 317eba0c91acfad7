package agent

import (
	"context"
	"io"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/qtable"
)

type mcStep struct {
	key    FullKey
	action env.Action
	reward float64
}

type mcPair struct {
	key    FullKey
	action env.Action
}

// MonteCarlo is a first-visit Monte Carlo control agent. Each update moves
// the estimate all the way to the observed return.
type MonteCarlo struct {
	cfg     MonteCarloConfig
	logger  *log.Logger
	rng     *rand.Rand
	table   *qtable.Table[FullKey]
	epsilon float64
	trace   []mcStep
}

var _ Agent = (*MonteCarlo)(nil)

// NewMonteCarlo creates an agent with an empty table
func NewMonteCarlo(cfg MonteCarloConfig) (*MonteCarlo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &MonteCarlo{
		cfg:     cfg,
		logger:  logger.WithPrefix("montecarlo"),
		rng:     cfg.Rand,
		table:   qtable.New[FullKey](),
		epsilon: cfg.Epsilon,
	}, nil
}

func (m *MonteCarlo) Name() string { return "monte_carlo" }

// ChooseAction implements Agent
func (m *MonteCarlo) ChooseAction(obs env.Observation) env.Action {
	return epsilonGreedy(m.rng, m.epsilon, *m.table.Row(FullKeyFor(obs)))
}

// GreedyAction implements Agent
func (m *MonteCarlo) GreedyAction(obs env.Observation) env.Action {
	row, _ := m.table.Lookup(FullKeyFor(obs))
	return row.Best()
}

// Train implements Agent
func (m *MonteCarlo) Train(ctx context.Context, e *env.Environment, episodes int, sink ProgressSink) (*Result, error) {
	return train(ctx, m, m.cfg.Config, m.logger, e, episodes, sink)
}

func (m *MonteCarlo) playEpisode(e *env.Environment, r *Result) (float64, env.Outcome, error) {
	m.trace = m.trace[:0]
	total := 0.0

	obs := e.Reset()
	for {
		action := m.ChooseAction(obs)
		r.count(action)
		res, err := e.Step(action)
		if err != nil {
			return total, env.Draw, err
		}
		m.trace = append(m.trace, mcStep{key: FullKeyFor(obs), action: action, reward: res.Reward})
		total += res.Reward
		if res.Done {
			break
		}
		obs = res.Observation
	}

	m.learn()
	outcome := env.OutcomeFromReward(total)
	m.logger.Debug("episode complete", "steps", len(m.trace), "reward", total, "outcome", outcome)
	return total, outcome, nil
}

// learn walks the trace backwards accumulating the discounted return. Only
// the first occurrence of a pair in that reverse walk is updated.
func (m *MonteCarlo) learn() {
	seen := make(map[mcPair]struct{}, len(m.trace))
	g := 0.0
	for i := len(m.trace) - 1; i >= 0; i-- {
		st := m.trace[i]
		g = st.reward + m.cfg.Gamma*g

		pair := mcPair{key: st.key, action: st.action}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}

		row := m.table.Row(st.key)
		row[st.action] += g - row[st.action]
	}
}

func (m *MonteCarlo) endEpisode() {
	m.epsilon = decay(m.epsilon, m.cfg.EpsilonDecay, m.cfg.MinEpsilon)
}

func (m *MonteCarlo) stats(r *Result) []Stat {
	return baseStats(r, m.epsilon)
}

func (m *MonteCarlo) snapshot(r *Result, episode int) Snapshot {
	return Snapshot{
		Episode:     episode,
		Epsilon:     m.epsilon,
		TotalReward: r.TotalReward(),
		TableSize:   m.table.Len(),
	}
}

// Epsilon implements Agent
func (m *MonteCarlo) Epsilon() float64 { return m.epsilon }

// TableSize implements Agent
func (m *MonteCarlo) TableSize() int { return m.table.Len() }

// Table exposes the value table for inspection
func (m *MonteCarlo) Table() *qtable.Table[FullKey] { return m.table }

// Save implements Agent
func (m *MonteCarlo) Save(path string) error {
	if err := m.table.Save(path, FullKeySchema); err != nil {
		return err
	}
	m.logger.Info("value table saved", "path", path, "states", m.table.Len())
	return nil
}

// Load implements Agent
func (m *MonteCarlo) Load(path string) error {
	t, err := qtable.Load(path, FullKeySchema)
	if err != nil {
		return err
	}
	m.table = t
	m.logger.Info("value table loaded", "path", path, "states", t.Len())
	return nil
}
