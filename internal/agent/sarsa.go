package agent

import (
	"context"
	"io"
	rand "math/rand/v2"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/qtable"
)

type visitKey struct {
	key    CoarseKey
	action env.Action
}

// Sarsa is an on-policy temporal difference agent over coarsened states.
//
// The scalar alpha decays every episode. In FixedRate mode it sizes every
// update; in DynamicRate mode each pair uses 1/(1+visits) and the scalar is
// only reported.
type Sarsa struct {
	cfg     SarsaConfig
	logger  *log.Logger
	rng     *rand.Rand
	table   *qtable.Table[CoarseKey]
	visits  map[visitKey]int
	updates int
	epsilon float64
	alpha   float64
}

var _ Agent = (*Sarsa)(nil)

// NewSarsa creates an agent with an empty table
func NewSarsa(cfg SarsaConfig) (*Sarsa, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Sarsa{
		cfg:     cfg,
		logger:  logger.WithPrefix("sarsa"),
		rng:     cfg.Rand,
		table:   qtable.New[CoarseKey](),
		visits:  make(map[visitKey]int),
		epsilon: cfg.Epsilon,
		alpha:   cfg.Alpha,
	}, nil
}

func (s *Sarsa) Name() string { return "sarsa" }

// ChooseAction implements Agent
func (s *Sarsa) ChooseAction(obs env.Observation) env.Action {
	return s.choose(CoarseKeyFor(obs))
}

func (s *Sarsa) choose(key CoarseKey) env.Action {
	row := *s.table.Row(key)
	if s.cfg.Policy == Softmax {
		return softmaxAction(s.rng, row)
	}
	return epsilonGreedy(s.rng, s.epsilon, row)
}

// GreedyAction implements Agent
func (s *Sarsa) GreedyAction(obs env.Observation) env.Action {
	row, _ := s.table.Lookup(CoarseKeyFor(obs))
	return row.Best()
}

// Train implements Agent
func (s *Sarsa) Train(ctx context.Context, e *env.Environment, episodes int, sink ProgressSink) (*Result, error) {
	s.logger.Debug("sarsa settings", "policy", s.cfg.Policy, "learning_rate", s.cfg.LearningRate, "alpha", s.alpha)
	return train(ctx, s, s.cfg.Config, s.logger, e, episodes, sink)
}

func (s *Sarsa) playEpisode(e *env.Environment, r *Result) (float64, env.Outcome, error) {
	total := 0.0
	key := CoarseKeyFor(e.Reset())
	action := s.choose(key)

	for {
		r.count(action)
		res, err := e.Step(action)
		if err != nil {
			return total, env.Draw, err
		}
		total += res.Reward
		next := CoarseKeyFor(res.Observation)

		if res.Done {
			// no real next action exists; bootstrap from Hit in the final state
			s.update(key, action, res.Reward, next, env.Hit)
			break
		}
		nextAction := s.choose(next)
		s.update(key, action, res.Reward, next, nextAction)
		key, action = next, nextAction
	}

	outcome := env.ResolveOutcome(e.PlayerHand(), e.DealerHand())
	s.logger.Debug("episode complete", "reward", total, "outcome", outcome)
	return total, outcome, nil
}

// update applies one SARSA backup and returns the step size it used
func (s *Sarsa) update(key CoarseKey, action env.Action, reward float64, next CoarseKey, nextAction env.Action) float64 {
	target := reward + s.cfg.Gamma*s.table.Value(next, nextAction)
	alpha := s.stepSize(key, action)
	row := s.table.Row(key)
	row[action] += alpha * (target - row[action])
	return alpha
}

// stepSize returns the learning rate for the pair and records the visit
func (s *Sarsa) stepSize(key CoarseKey, action env.Action) float64 {
	vk := visitKey{key: key, action: action}
	visits := s.visits[vk]
	s.visits[vk] = visits + 1
	s.updates++

	if s.cfg.LearningRate == DynamicRate {
		return 1 / (1 + float64(visits))
	}
	return s.alpha
}

func (s *Sarsa) endEpisode() {
	s.epsilon = decay(s.epsilon, s.cfg.EpsilonDecay, s.cfg.MinEpsilon)
	s.alpha = decay(s.alpha, s.cfg.AlphaDecay, s.cfg.MinAlpha)
}

func (s *Sarsa) stats(r *Result) []Stat {
	return append(baseStats(r, s.epsilon),
		Stat{Name: "Alpha", Value: strconv.FormatFloat(s.alpha, 'f', 4, 64)},
		Stat{Name: "Visits", Value: strconv.Itoa(s.updates)},
	)
}

func (s *Sarsa) snapshot(r *Result, episode int) Snapshot {
	return Snapshot{
		Episode:     episode,
		Epsilon:     s.epsilon,
		Alpha:       s.alpha,
		TotalReward: r.TotalReward(),
		TableSize:   s.table.Len(),
	}
}

// Epsilon implements Agent
func (s *Sarsa) Epsilon() float64 { return s.epsilon }

// Alpha returns the current scalar learning rate
func (s *Sarsa) Alpha() float64 { return s.alpha }

// Visits returns how many updates the pair has received
func (s *Sarsa) Visits(key CoarseKey, action env.Action) int {
	return s.visits[visitKey{key: key, action: action}]
}

// TableSize implements Agent
func (s *Sarsa) TableSize() int { return s.table.Len() }

// Table exposes the value table for inspection
func (s *Sarsa) Table() *qtable.Table[CoarseKey] { return s.table }

// Save implements Agent
func (s *Sarsa) Save(path string) error {
	if err := s.table.Save(path, CoarseKeySchema); err != nil {
		return err
	}
	s.logger.Info("value table saved", "path", path, "states", s.table.Len())
	return nil
}

// Load implements Agent. Visit counts are not persisted and are cleared, so
// a loaded agent in DynamicRate mode starts every pair at full step size.
func (s *Sarsa) Load(path string) error {
	t, err := qtable.Load(path, CoarseKeySchema)
	if err != nil {
		return err
	}
	s.table = t
	s.visits = make(map[visitKey]int)
	s.updates = 0
	s.logger.Info("value table loaded", "path", path, "states", t.Len())
	return nil
}
