package agent

import (
	"math"
	rand "math/rand/v2"

	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/qtable"
	"gonum.org/v1/gonum/stat/distuv"
)

// epsilonGreedy explores uniformly with probability epsilon and otherwise
// exploits the row, resolving ties towards Hit.
func epsilonGreedy(rng *rand.Rand, epsilon float64, row qtable.ActionValues) env.Action {
	if rng.Float64() < epsilon {
		return env.Actions[rng.IntN(env.NumActions)]
	}
	return row.Best()
}

// softmaxAction samples an action with probability proportional to exp(Q).
// The maximum is subtracted first so large estimates cannot overflow.
func softmaxAction(rng *rand.Rand, row qtable.ActionValues) env.Action {
	weights := softmaxWeights(row)
	dist := distuv.NewCategorical(weights, rng)
	return env.Action(int(dist.Rand()))
}

func softmaxWeights(row qtable.ActionValues) []float64 {
	peak := row.Max()
	weights := make([]float64, len(row))
	for i, q := range row {
		weights[i] = math.Exp(q - peak)
	}
	return weights
}

func decay(value, factor, floor float64) float64 {
	return max(floor, value*factor)
}
