// Package simulator plays a trained policy greedily and collects statistics.
// Nothing is learned during a simulation.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/statistics"
)

// Policy picks an action without exploring
type Policy interface {
	GreedyAction(env.Observation) env.Action
}

// PolicyFunc adapts a function to Policy
type PolicyFunc func(env.Observation) env.Action

// GreedyAction calls f(obs)
func (f PolicyFunc) GreedyAction(obs env.Observation) env.Action { return f(obs) }

// maxActionsPerRound guards against a policy that never stands. Every hit
// adds at least one point to a total of at least two, so a hand busts
// within 20 hits however many aces a reshuffle deals.
const maxActionsPerRound = deck.Blackjack

// Config holds configuration for running simulations
type Config struct {
	Rounds int
	Env    env.Config
	Logger *log.Logger
}

// Simulator runs greedy evaluation rounds
type Simulator struct {
	config Config
	logger *log.Logger
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{config: config, logger: logger.WithPrefix("simulator")}
}

// Run plays the configured number of rounds with policy. A cancelled
// context stops between rounds and returns what was collected so far.
func (s *Simulator) Run(ctx context.Context, policy Policy) (*statistics.Statistics, error) {
	if policy == nil {
		return nil, errors.New("policy is required")
	}
	e, err := env.New(s.config.Env)
	if err != nil {
		return nil, fmt.Errorf("create environment: %w", err)
	}

	stats := &statistics.Statistics{}
	for round := 0; round < s.config.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("simulation interrupted", "completed", round)
			return stats, err
		}
		result, err := playRound(e, policy)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round+1, err)
		}
		stats.Add(result)
	}

	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	s.logger.Info("simulation finished", "rounds", stats.Rounds, "mean", stats.Mean(), "win_rate", stats.WinRate())
	return stats, nil
}

func playRound(e *env.Environment, policy Policy) (statistics.RoundResult, error) {
	obs := e.Reset()
	result := statistics.RoundResult{
		DealerCard: obs.DealerCard,
		Natural:    e.PlayerHand().IsNatural(),
	}

	for i := 0; ; i++ {
		if i >= maxActionsPerRound {
			return result, fmt.Errorf("round did not finish after %d actions", i)
		}
		action := policy.GreedyAction(obs)
		if action == env.Hit {
			result.Hits++
		}
		res, err := e.Step(action)
		if err != nil {
			return result, err
		}
		result.Reward += res.Reward
		if res.Done {
			break
		}
		obs = res.Observation
	}

	player := e.PlayerHand()
	result.Bust = player.IsBust()
	result.Outcome = env.ResolveOutcome(player, e.DealerHand())
	return result, nil
}

// PrintSummary writes a report of simulation results to w
func PrintSummary(w io.Writer, stats *statistics.Statistics, name string) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== RESULTS for %s ===\n", name)
	fmt.Fprintf(w, "Rounds played: %d\n", stats.Rounds)

	fmt.Fprintf(w, "\n=== STATISTICAL RESULTS ===\n")
	fmt.Fprintf(w, "Mean: %.4f reward/round\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.4f reward/round\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.4f\n", stats.StdDev())
	fmt.Fprintf(w, "Std Error: %.4f\n", stats.StdError())
	fmt.Fprintf(w, "95%% CI: [%.4f, %.4f]\n", low, high)
	fmt.Fprintf(w, "Percentiles: P5=%.3f, P25=%.3f, P75=%.3f, P95=%.3f\n",
		stats.Percentile(0.05), stats.Percentile(0.25), stats.Percentile(0.75), stats.Percentile(0.95))

	fmt.Fprintf(w, "\n=== OUTCOMES ===\n")
	if stats.Rounds > 0 {
		pct := func(n int) float64 { return 100 * float64(n) / float64(stats.Rounds) }
		fmt.Fprintf(w, "Wins: %d (%.1f%%)  Losses: %d (%.1f%%)  Draws: %d (%.1f%%)\n",
			stats.Wins, pct(stats.Wins), stats.Losses, pct(stats.Losses), stats.Draws, pct(stats.Draws))
		fmt.Fprintf(w, "Naturals: %d  Busts: %d  Hits/round: %.2f\n",
			stats.Naturals, stats.Busts, float64(stats.Hits)/float64(stats.Rounds))
	}

	fmt.Fprintf(w, "\n=== DEALER UP CARD ===\n")
	for _, card := range deck.Ranks {
		d := stats.ByDealer[card]
		if d.Rounds > 0 {
			fmt.Fprintf(w, "Dealer %s: %d rounds, %.3f reward/round, %.1f%% won\n",
				card, d.Rounds, stats.DealerMean(card), 100*float64(d.Wins)/float64(d.Rounds))
		}
	}
}
