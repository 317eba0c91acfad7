package statistics

import (
	"math"
	"testing"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics_Empty(t *testing.T) {
	s := &Statistics{}

	assert.Zero(t, s.Mean())
	assert.Zero(t, s.StdDev())
	assert.Zero(t, s.StdError())
	assert.Zero(t, s.Median())
	assert.Zero(t, s.Percentile(0.9))
	assert.Zero(t, s.WinRate())
	assert.NoError(t, s.Validate())
}

func TestStatistics_SingleValue(t *testing.T) {
	s := &Statistics{}
	s.Add(RoundResult{Reward: 2, Outcome: env.Win, DealerCard: deck.Nine, Natural: true})

	assert.Equal(t, 1, s.Rounds)
	assert.Equal(t, 2.0, s.Mean())
	assert.Zero(t, s.StdDev())
	assert.Equal(t, 2.0, s.Median())
	assert.Equal(t, 1, s.Naturals)
	assert.Equal(t, 1.0, s.WinRate())
	assert.Equal(t, 2.0, s.DealerMean(deck.Nine))
	assert.NoError(t, s.Validate())
}

func TestStatistics_MultipleValues(t *testing.T) {
	s := &Statistics{}
	results := []RoundResult{
		{Reward: 1, Outcome: env.Win, DealerCard: deck.Six},
		{Reward: -1, Outcome: env.Loss, DealerCard: deck.Ten, Hits: 2, Bust: true},
		{Reward: 0, Outcome: env.Draw, DealerCard: deck.Ten},
		{Reward: 1.5, Outcome: env.Win, DealerCard: deck.Ten, Hits: 1},
		{Reward: -1, Outcome: env.Loss, DealerCard: deck.Ace},
	}
	for _, r := range results {
		s.Add(r)
	}
	require.NoError(t, s.Validate())

	assert.Equal(t, 5, s.Rounds)
	assert.InDelta(t, 0.1, s.Mean(), 1e-12)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 1, s.Draws)
	assert.Equal(t, 1, s.Busts)
	assert.Equal(t, 3, s.Hits)

	// sample variance of {1,-1,0,1.5,-1} around 0.1
	wantVar := (0.81 + 1.21 + 0.01 + 1.96 + 1.21) / 4
	assert.InDelta(t, math.Sqrt(wantVar), s.StdDev(), 1e-12)
	assert.InDelta(t, math.Sqrt(wantVar)/math.Sqrt(5), s.StdError(), 1e-12)

	lo, hi := s.ConfidenceInterval95()
	assert.InDelta(t, s.Mean(), (lo+hi)/2, 1e-12)
	assert.Less(t, lo, hi)

	assert.Equal(t, 0.0, s.Median())
	assert.Equal(t, -1.0, s.Percentile(0))
	assert.Equal(t, 1.5, s.Percentile(1))

	assert.Equal(t, 3, s.ByDealer[deck.Ten].Rounds)
	assert.InDelta(t, 0.5/3, s.DealerMean(deck.Ten), 1e-12)
	assert.Zero(t, s.DealerMean(deck.Two))
	assert.Zero(t, s.DealerMean(deck.Card(0)))
}

func TestStatistics_ValidateDetectsImbalance(t *testing.T) {
	s := &Statistics{}
	s.Add(RoundResult{Reward: 1, Outcome: env.Win})
	s.Wins++
	assert.Error(t, s.Validate())

	s = &Statistics{Rounds: 2, Values: []float64{1}}
	assert.Error(t, s.Validate())
}

func TestStatistics_Summary(t *testing.T) {
	s := &Statistics{}
	s.Add(RoundResult{Reward: 1, Outcome: env.Win})
	s.Add(RoundResult{Reward: -1, Outcome: env.Loss})
	assert.Contains(t, s.Summary(), "2 rounds")
	assert.Contains(t, s.Summary(), "win rate 50.0%")
}
