package main

import (
	"fmt"
	"os"

	"github.com/coder/quartz"
	"github.com/lox/blackjack-rl/internal/logging"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/lox/blackjack-rl/internal/simulator"
)

type EvalCmd struct {
	Agent string `arg:"" enum:"monte_carlo,sarsa" help:"Agent that produced the table (monte_carlo|sarsa)"`
	Table string `arg:"" type:"existingfile" help:"Saved value table"`

	Rounds      int   `short:"n" default:"10000" help:"Rounds to play"`
	Seed        int64 `help:"Seed for reproducible runs (0 for random)"`
	SingleRound bool  `help:"Hide the deck composition from observations"`
}

func (c *EvalCmd) Run(g *Globals) error {
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive: %d", c.Rounds)
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if c.SingleRound {
		multi := false
		cfg.Environment.MultiRound = &multi
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lh, err := logging.New(logging.Options{Level: cfg.Training.LogLevel, Console: true})
	if err != nil {
		return err
	}
	defer lh.Close()
	logger := lh.Logger

	seed := randutil.ResolveSeed(c.Seed, quartz.NewReal())
	envRand, agentRand := streams(seed)

	a, err := newAgent(cfg, c.Agent, agentRand, logger, nil)
	if err != nil {
		return err
	}
	if err := a.Load(c.Table); err != nil {
		return fmt.Errorf("load %s: %w", c.Table, err)
	}
	envCfg, err := cfg.EnvConfig(envRand, logger)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	logger.Info("Evaluating value table", "agent", a.Name(), "table", c.Table, "states", a.TableSize(), "rounds", c.Rounds, "seed", seed)
	sim := simulator.New(simulator.Config{Rounds: c.Rounds, Env: envCfg, Logger: logger})
	stats, err := sim.Run(ctx, a)
	if err != nil && stats == nil {
		return err
	}
	if err != nil {
		logger.Warn("Evaluation interrupted", "rounds", stats.Rounds)
	}
	simulator.PrintSummary(os.Stdout, stats, a.Name())
	return nil
}
