package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/env"
)

// learner is the per-variant half of a training run
type learner interface {
	Name() string
	// playEpisode runs one round to completion, learning from it
	playEpisode(e *env.Environment, r *Result) (reward float64, outcome env.Outcome, err error)
	// endEpisode decays the exploration and learning rates
	endEpisode()
	stats(r *Result) []Stat
	snapshot(r *Result, episode int) Snapshot
}

// progressSteps is roughly how many progress updates a run emits
const progressSteps = 1000

func train(ctx context.Context, l learner, cfg Config, logger *log.Logger, e *env.Environment, episodes int, sink ProgressSink) (*Result, error) {
	if e == nil {
		return nil, fmt.Errorf("%s: environment is required", l.Name())
	}
	if episodes < 0 {
		return nil, fmt.Errorf("%s: episode count cannot be negative", l.Name())
	}

	result := &Result{Rewards: make([]float64, 0, episodes)}
	renderEvery := max(1, episodes/progressSteps)
	logEvery := max(1, episodes/10)
	windowWins := 0

	logger.Info("training started", "episodes", episodes, "multi_round", e.MultiRound())

	for ep := 1; ep <= episodes; ep++ {
		select {
		case <-ctx.Done():
			logger.Warn("training interrupted", "completed", result.Episodes(), "episodes", episodes)
			return result, ctx.Err()
		default:
		}

		winsBefore := result.Wins
		reward, outcome, err := l.playEpisode(e, result)
		if err != nil {
			return result, fmt.Errorf("%s episode %d: %w", l.Name(), ep, err)
		}
		result.record(reward, outcome)
		windowWins += result.Wins - winsBefore
		l.endEpisode()

		if cfg.SnapshotEvery > 0 && ep%cfg.SnapshotEvery == 0 {
			snap := l.snapshot(result, ep)
			snap.WinRate = float64(windowWins) / float64(cfg.SnapshotEvery)
			result.Snapshots = append(result.Snapshots, snap)
			windowWins = 0
		}

		if ep%logEvery == 0 {
			logger.Info("training progress", "episode", ep, "episodes", episodes,
				"win_rate", fmt.Sprintf("%.3f", result.WinRate()), "reward", fmt.Sprintf("%.2f", result.TotalReward()))
		}

		if sink != nil && (ep%renderEvery == 0 || ep == episodes) {
			p := Progress{
				Agent:   l.Name(),
				Episode: ep,
				Total:   episodes,
				Stats:   l.stats(result),
			}
			if cfg.LogTail != nil {
				p.LogTail = cfg.LogTail.Lines()
			}
			if err := sink.Render(p); err != nil {
				logger.Warn("progress sink failed", "episode", ep, "error", err)
			}
		}
	}

	logger.Info("training finished", "episodes", result.Episodes(),
		"wins", result.Wins, "losses", result.Losses, "draws", result.Draws)
	return result, nil
}

// baseStats are reported by every agent
func baseStats(r *Result, epsilon float64) []Stat {
	return []Stat{
		{Name: "Wins", Value: strconv.Itoa(r.Wins)},
		{Name: "Losses", Value: strconv.Itoa(r.Losses)},
		{Name: "Draws", Value: strconv.Itoa(r.Draws)},
		{Name: "Hits", Value: strconv.Itoa(r.Hits)},
		{Name: "Stands", Value: strconv.Itoa(r.Stands)},
		{Name: "Total Rewards", Value: strconv.FormatFloat(r.TotalReward(), 'f', 2, 64)},
		{Name: "Epsilon", Value: strconv.FormatFloat(epsilon, 'f', 4, 64)},
	}
}
