package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/config"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/history"
	"github.com/lox/blackjack-rl/internal/logging"
	"github.com/lox/blackjack-rl/internal/plot"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/lox/blackjack-rl/internal/tui"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
)

type TrainCmd struct {
	Agent string `arg:"" enum:"monte_carlo,sarsa" help:"Agent to train (monte_carlo|sarsa)"`

	Episodes     int    `short:"n" help:"Episodes to play (0 uses the config file)"`
	Seed         int64  `help:"Seed for reproducible runs (0 uses the config file, then the clock)"`
	Policy       string `help:"Exploration policy for sarsa (epsilon_greedy|softmax)"`
	LearningRate string `help:"Learning rate mode for sarsa (fixed|dynamic)"`
	SingleRound  bool   `help:"Hide the deck composition from observations"`
	Resume       string `type:"existingfile" help:"Value table to continue training from"`

	NoTUI     bool `name:"no-tui" help:"Print plain progress instead of the interactive display"`
	NoPlot    bool `help:"Skip the HTML training report"`
	NoHistory bool `help:"Do not record the run in the history database"`
}

func (c *TrainCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	clock := quartz.NewReal()
	session := history.NewSessionID(clock)
	seed := randutil.ResolveSeed(cfg.Training.Seed, clock)
	interactive := !c.NoTUI && isatty.IsTerminal(os.Stdout.Fd())

	tail := logging.NewTail(logging.DefaultTailSize)
	lh, err := logging.New(logging.Options{
		Level:   cfg.Training.LogLevel,
		Dir:     cfg.Training.LogDir,
		Session: session,
		Console: !interactive,
		Tail:    tail,
		Clock:   clock,
	})
	if err != nil {
		return err
	}
	defer lh.Close()
	logger := lh.Logger

	envRand, agentRand := streams(seed)
	envCfg, err := cfg.EnvConfig(envRand, logger)
	if err != nil {
		return err
	}
	e, err := env.New(envCfg)
	if err != nil {
		return err
	}
	a, err := newAgent(cfg, c.Agent, agentRand, logger, tail)
	if err != nil {
		return err
	}
	if c.Resume != "" {
		if err := a.Load(c.Resume); err != nil {
			return fmt.Errorf("resume from %s: %w", c.Resume, err)
		}
		logger.Info("Resumed value table", "path", c.Resume, "states", a.TableSize())
	}

	episodes := cfg.Training.Episodes
	logger.Info("Starting training",
		"agent", a.Name(),
		"session", session,
		"episodes", episodes,
		"seed", seed,
		"multi_round", envCfg.MultiRound,
		"log_file", lh.Path)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	var result *agent.Result
	if interactive {
		result, err = trainWithDisplay(ctx, cancel, a, e, episodes, logger)
	} else {
		result, err = a.Train(ctx, e, episodes, tui.NewDotReporter(os.Stdout, clock))
	}
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return fmt.Errorf("training failed: %w", err)
	}
	if interrupted {
		logger.Warn("Training interrupted, keeping partial results", "episodes", result.Episodes())
	}

	modelPath := filepath.Join(cfg.Training.ModelDir, fmt.Sprintf("q_table_%s.json", session))
	if err := a.Save(modelPath); err != nil {
		return fmt.Errorf("save value table: %w", err)
	}
	logger.Info("Saved value table", "path", modelPath, "states", a.TableSize())

	if !c.NoPlot {
		plotPath := filepath.Join(cfg.Training.PlotDir, fmt.Sprintf("training_%s.html", session))
		err := plot.Save(plotPath, plot.Report{
			Agent:         a.Name(),
			Session:       session,
			Result:        result,
			RollingWindow: cfg.Training.RollingWindow,
			MaxPoints:     cfg.Training.MaxPoints,
		})
		if err != nil {
			logger.Error("Failed to write training report", "error", err)
		} else {
			logger.Info("Wrote training report", "path", plotPath)
		}
	}

	if !c.NoHistory {
		run := history.NewRun(session, a.Name(), seed, result)
		run.Epsilon = a.Epsilon()
		run.TableSize = a.TableSize()
		run.ModelPath = modelPath
		run.Interrupted = interrupted
		if err := recordRun(cfg.Training.HistoryDB, clock, run); err != nil {
			logger.Error("Failed to record run history", "error", err)
		} else {
			logger.Info("Recorded run", "id", run.ID)
		}
	}

	printTrainingSummary(os.Stdout, a, result, modelPath)
	return nil
}

func (c *TrainCmd) applyOverrides(cfg *config.Config) error {
	if c.Episodes > 0 {
		cfg.Training.Episodes = c.Episodes
	}
	if c.Seed != 0 {
		cfg.Training.Seed = c.Seed
	}
	if c.SingleRound {
		multi := false
		cfg.Environment.MultiRound = &multi
	}
	return agentOverrides{Policy: c.Policy, LearningRate: c.LearningRate}.apply(cfg, c.Agent)
}

// trainWithDisplay runs training and the bubbletea display side by side.
// Quitting the display cancels training; training finishing closes the
// display.
func trainWithDisplay(ctx context.Context, cancel context.CancelFunc, a agent.Agent, e *env.Environment, episodes int, logger *log.Logger) (*agent.Result, error) {
	renderer := tui.NewRenderer(logger, cancel)

	var (
		result   *agent.Result
		trainErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer renderer.Finish()
		result, trainErr = a.Train(gctx, e, episodes, renderer)
		return nil
	})
	g.Go(renderer.Run)

	if err := g.Wait(); err != nil {
		logger.Error("Progress display failed", "error", err)
	}
	return result, trainErr
}

func recordRun(path string, clock quartz.Clock, run *history.Run) error {
	store, err := history.Open(path, clock)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(context.Background(), run)
}

func printTrainingSummary(w io.Writer, a agent.Agent, r *agent.Result, modelPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.HeaderStyle.Render(fmt.Sprintf("%s: %d episodes", a.Name(), r.Episodes())))
	fmt.Fprintf(w, "%s %d  %s %s  %s %d\n",
		tui.StatNameStyle.Render("Wins"), r.Wins,
		tui.StatNameStyle.Render("Losses"), tui.LossStyle.Render(fmt.Sprint(r.Losses)),
		tui.StatNameStyle.Render("Draws"), r.Draws)
	fmt.Fprintf(w, "%s %.1f%%  %s %.2f  %s %.4f  %s %d\n",
		tui.StatNameStyle.Render("Win rate"), 100*r.WinRate(),
		tui.StatNameStyle.Render("Total reward"), r.TotalReward(),
		tui.StatNameStyle.Render("Epsilon"), a.Epsilon(),
		tui.StatNameStyle.Render("States"), a.TableSize())
	fmt.Fprintln(w, tui.InfoStyle.Render("Value table: "+modelPath))
}
