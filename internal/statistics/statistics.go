// Package statistics summarises per-round rewards from evaluation runs.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"gonum.org/v1/gonum/stat"
)

// RoundResult is the outcome of a single evaluated round
type RoundResult struct {
	Reward     float64
	Outcome    env.Outcome
	DealerCard deck.Card
	Hits       int
	Natural    bool // player was dealt 21
	Bust       bool // player went over 21
}

// DealerStats tracks results against one dealer up card
type DealerStats struct {
	Rounds    int
	Wins      int
	SumReward float64
}

// Statistics accumulates round results
type Statistics struct {
	Rounds int
	Values []float64

	Wins     int
	Losses   int
	Draws    int
	Naturals int
	Busts    int
	Hits     int

	// ByDealer is indexed by the dealer's visible rank; index 0 is unused
	ByDealer [deck.Ten + 1]DealerStats
}

// Add incorporates a new round result
func (s *Statistics) Add(r RoundResult) {
	s.Rounds++
	s.Values = append(s.Values, r.Reward)
	s.Hits += r.Hits

	switch r.Outcome {
	case env.Win:
		s.Wins++
	case env.Loss:
		s.Losses++
	default:
		s.Draws++
	}
	if r.Natural {
		s.Naturals++
	}
	if r.Bust {
		s.Busts++
	}

	if r.DealerCard.Valid() {
		d := &s.ByDealer[r.DealerCard]
		d.Rounds++
		d.SumReward += r.Reward
		if r.Outcome == env.Win {
			d.Wins++
		}
	}
}

// Mean returns the average reward per round
func (s *Statistics) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// StdDev returns the sample standard deviation of rewards
func (s *Statistics) StdDev() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.StdDev(s.Values, nil)
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.StdErr(s.StdDev(), float64(len(s.Values)))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Percentile returns the empirical quantile p in [0, 1] of the rewards
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return stat.Quantile(math.Min(math.Max(p, 0), 1), stat.Empirical, sorted, nil)
}

// Median returns the median reward
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// WinRate returns the fraction of rounds won
func (s *Statistics) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Rounds)
}

// DealerMean returns the average reward against a dealer up card
func (s *Statistics) DealerMean(card deck.Card) float64 {
	if !card.Valid() {
		return 0
	}
	d := s.ByDealer[card]
	if d.Rounds == 0 {
		return 0
	}
	return d.SumReward / float64(d.Rounds)
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Rounds != len(s.Values) {
		return fmt.Errorf("round count %d does not match %d recorded rewards", s.Rounds, len(s.Values))
	}
	if s.Wins+s.Losses+s.Draws != s.Rounds {
		return fmt.Errorf("outcomes do not balance: wins=%d losses=%d draws=%d rounds=%d",
			s.Wins, s.Losses, s.Draws, s.Rounds)
	}
	dealerRounds := 0
	for _, d := range s.ByDealer {
		dealerRounds += d.Rounds
	}
	if dealerRounds > s.Rounds {
		return fmt.Errorf("dealer breakdown has %d rounds, more than %d total", dealerRounds, s.Rounds)
	}
	return nil
}

// Summary renders a one-line overview
func (s *Statistics) Summary() string {
	lo, hi := s.ConfidenceInterval95()
	return fmt.Sprintf("%d rounds, mean %.4f (95%% CI %.4f to %.4f), win rate %.1f%%",
		s.Rounds, s.Mean(), lo, hi, 100*s.WinRate())
}
