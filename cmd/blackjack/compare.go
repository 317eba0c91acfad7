package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coder/quartz"
	"github.com/lox/blackjack-rl/internal/config"
	"github.com/lox/blackjack-rl/internal/logging"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/lox/blackjack-rl/internal/simulator"
	"github.com/lox/blackjack-rl/internal/statistics"
	"github.com/lox/blackjack-rl/internal/tui"
)

// tableRef names a saved value table and the agent that wrote it, given as
// "<agent>:<path>"
type tableRef struct {
	Agent string
	Path  string
}

type CompareCmd struct {
	Challenger string `arg:"" help:"Challenger table as agent:path, e.g. sarsa:data/models/q_table_x.json"`
	Baseline   string `arg:"" help:"Baseline table as agent:path"`

	Rounds      int     `short:"n" default:"20000" help:"Rounds each table plays"`
	Seed        int64   `help:"Seed shared by both evaluations (0 for random)"`
	Alpha       float64 `default:"0.05" help:"Significance level"`
	SingleRound bool    `help:"Hide the deck composition from observations"`
}

func parseTableRef(s string) (tableRef, error) {
	name, path, ok := strings.Cut(s, ":")
	if !ok {
		return tableRef{}, fmt.Errorf("table %q must be given as agent:path", s)
	}
	if name != config.MonteCarlo && name != config.Sarsa {
		return tableRef{}, fmt.Errorf("unknown agent %q in %q", name, s)
	}
	if path == "" {
		return tableRef{}, fmt.Errorf("missing table path in %q", s)
	}
	return tableRef{Agent: name, Path: path}, nil
}

func (c *CompareCmd) Run(g *Globals) error {
	if c.Rounds <= 1 {
		return fmt.Errorf("rounds must be at least 2: %d", c.Rounds)
	}
	challenger, err := parseTableRef(c.Challenger)
	if err != nil {
		return err
	}
	baseline, err := parseTableRef(c.Baseline)
	if err != nil {
		return err
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

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	seed := randutil.ResolveSeed(c.Seed, quartz.NewReal())
	logger.Info("Comparing value tables", "challenger", challenger.Path, "baseline", baseline.Path, "rounds", c.Rounds, "seed", seed)

	results := make([]*statistics.Statistics, 0, 2)
	for _, ref := range []tableRef{challenger, baseline} {
		// both tables start from the same environment stream and shuffled
		// deck; deals drift apart once the policies draw different cards
		envRand, agentRand := streams(seed)
		a, err := newAgent(cfg, ref.Agent, agentRand, logger, nil)
		if err != nil {
			return err
		}
		if err := a.Load(ref.Path); err != nil {
			return fmt.Errorf("load %s: %w", ref.Path, err)
		}
		envCfg, err := cfg.EnvConfig(envRand, logger)
		if err != nil {
			return err
		}
		sim := simulator.New(simulator.Config{Rounds: c.Rounds, Env: envCfg, Logger: logger})
		stats, err := sim.Run(ctx, a)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", ref.Path, err)
		}
		results = append(results, stats)
	}

	printComparison(os.Stdout, challenger, baseline, results[0], results[1], c.Alpha)
	return nil
}

func printComparison(w io.Writer, challenger, baseline tableRef, a, b *statistics.Statistics, alpha float64) {
	cmp := statistics.Compare(a, b)

	fmt.Fprintln(w, tui.HeaderStyle.Render("Value table comparison"))
	for _, row := range []struct {
		label string
		ref   tableRef
		stats *statistics.Statistics
	}{{"Challenger", challenger, a}, {"Baseline", baseline, b}} {
		lo, hi := row.stats.ConfidenceInterval95()
		fmt.Fprintf(w, "%s %s (%s)\n  mean %.4f  95%% CI [%.4f, %.4f]  win rate %.1f%%\n",
			tui.StatNameStyle.Render(row.label+":"), row.ref.Path, row.ref.Agent,
			row.stats.Mean(), lo, hi, 100*row.stats.WinRate())
	}

	fmt.Fprintf(w, "%s %+.4f reward/round  95%% CI [%.4f, %.4f]\n",
		tui.StatNameStyle.Render("Difference:"), cmp.Difference, cmp.CI95Low, cmp.CI95High)
	fmt.Fprintf(w, "%s t=%.3f  df=%.0f  p=%.4g  d=%.3f (%s)\n",
		tui.StatNameStyle.Render("Welch t-test:"), cmp.TStatistic, cmp.DF, cmp.PValue,
		cmp.EffectSize, statistics.InterpretEffectSize(cmp.EffectSize))

	switch {
	case !cmp.Significant(alpha):
		fmt.Fprintln(w, tui.WarningStyle.Render(fmt.Sprintf("No significant difference at alpha=%.2f", alpha)))
	case cmp.Difference > 0:
		fmt.Fprintln(w, tui.SuccessStyle.Render("Challenger is significantly better"))
	default:
		fmt.Fprintln(w, tui.LossStyle.Render("Challenger is significantly worse"))
	}
}
