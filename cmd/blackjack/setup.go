package main

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/config"
	"github.com/lox/blackjack-rl/internal/randutil"
)

// Independent random streams derived from the run seed
const (
	envStream uint64 = iota + 1
	agentStream
)

// loadConfig reads the configuration file and applies global overrides
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.LogLevel != "" {
		cfg.Training.LogLevel = g.LogLevel
	}
	return cfg, nil
}

// agentOverrides are command line settings applied on top of an agent block
type agentOverrides struct {
	Policy       string
	LearningRate string
}

func (o agentOverrides) apply(cfg *config.Config, name string) error {
	a := cfg.Agent(name)
	if a == nil {
		return fmt.Errorf("no %s agent configured", name)
	}
	if o.Policy != "" {
		p, err := agent.ParsePolicyKind(o.Policy)
		if err != nil {
			return err
		}
		a.Policy = string(p)
	}
	if o.LearningRate != "" {
		lr, err := agent.ParseLearningRate(o.LearningRate)
		if err != nil {
			return err
		}
		a.LearningRate = string(lr)
	}
	return nil
}

// newAgent builds the named agent from configuration
func newAgent(cfg *config.Config, name string, rng *rand.Rand, logger *log.Logger, tail agent.LogSource) (agent.Agent, error) {
	switch name {
	case config.MonteCarlo:
		c, err := cfg.MonteCarloConfig(rng, logger)
		if err != nil {
			return nil, err
		}
		c.LogTail = tail
		mc, err := agent.NewMonteCarlo(c)
		if err != nil {
			return nil, err
		}
		return mc, nil
	case config.Sarsa:
		c, err := cfg.SarsaConfig(rng, logger)
		if err != nil {
			return nil, err
		}
		c.LogTail = tail
		s, err := agent.NewSarsa(c)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown agent %q (want %s or %s)", name, config.MonteCarlo, config.Sarsa)
}

// streams returns the environment and agent random sources for a seed
func streams(seed int64) (envRand, agentRand *rand.Rand) {
	return randutil.New(randutil.Derive(seed, envStream)), randutil.New(randutil.Derive(seed, agentStream))
}
