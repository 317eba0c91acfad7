package simulator

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(rounds int, seed int64) Config {
	envCfg := env.DefaultConfig()
	envCfg.MultiRound = false
	envCfg.Rand = randutil.New(seed)
	return Config{
		Rounds: rounds,
		Env:    envCfg,
		Logger: log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
	}
}

var (
	alwaysStand = PolicyFunc(func(env.Observation) env.Action { return env.Stand })
	alwaysHit   = PolicyFunc(func(env.Observation) env.Action { return env.Hit })
	// stands on 17 or more, like the dealer
	mimicDealer = PolicyFunc(func(o env.Observation) env.Action {
		if o.PlayerTotal >= 17 {
			return env.Stand
		}
		return env.Hit
	})
)

func TestRunCountsEveryRound(t *testing.T) {
	for name, policy := range map[string]Policy{
		"stand":  alwaysStand,
		"hit":    alwaysHit,
		"dealer": mimicDealer,
	} {
		t.Run(name, func(t *testing.T) {
			stats, err := New(testConfig(300, 7)).Run(context.Background(), policy)
			require.NoError(t, err)
			assert.Equal(t, 300, stats.Rounds)
			assert.Equal(t, 300, stats.Wins+stats.Losses+stats.Draws)
			assert.NoError(t, stats.Validate())
		})
	}
}

func TestAlwaysHitEventuallyBusts(t *testing.T) {
	stats, err := New(testConfig(200, 3)).Run(context.Background(), alwaysHit)
	require.NoError(t, err)

	// the policy never stands, so every round ends in a bust
	assert.Equal(t, 200, stats.Busts)
	assert.Equal(t, 200, stats.Losses)
	assert.InDelta(t, -1.0, stats.Mean(), 1e-12)
}

func TestLongRunOfLowCardsFinishes(t *testing.T) {
	cfg := testConfig(1, 5)
	e, err := env.New(cfg.Env)
	require.NoError(t, err)
	// eight aces, more than one deck holds, then twos: thirteen hits to bust
	e.StackDeck(deck.MustParseCards("AAT7" + "AAAAAA" + "2222222")...)

	result, err := playRound(e, alwaysHit)
	require.NoError(t, err)
	assert.Equal(t, 13, result.Hits)
	assert.True(t, result.Bust)
	assert.Equal(t, env.Loss, result.Outcome)
	assert.InDelta(t, -1.0, result.Reward, 1e-12)
}

func TestAlwaysStandNeverHits(t *testing.T) {
	stats, err := New(testConfig(200, 3)).Run(context.Background(), alwaysStand)
	require.NoError(t, err)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Busts)
}

func TestRunIsReproducible(t *testing.T) {
	a, err := New(testConfig(100, 11)).Run(context.Background(), mimicDealer)
	require.NoError(t, err)
	b, err := New(testConfig(100, 11)).Run(context.Background(), mimicDealer)
	require.NoError(t, err)
	assert.Equal(t, a.Values, b.Values)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := New(testConfig(100, 1)).Run(ctx, alwaysStand)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats)
	assert.Zero(t, stats.Rounds)
}

func TestRunRequiresPolicy(t *testing.T) {
	_, err := New(testConfig(1, 1)).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunRejectsBadEnvironment(t *testing.T) {
	cfg := testConfig(1, 1)
	cfg.Env.Rand = nil
	_, err := New(cfg).Run(context.Background(), alwaysStand)
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	stats, err := New(testConfig(50, 5)).Run(context.Background(), mimicDealer)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, stats, "dealer-mimic")
	out := buf.String()
	assert.Contains(t, out, "RESULTS for dealer-mimic")
	assert.Contains(t, out, "Rounds played: 50")
	assert.Contains(t, out, "95% CI")
	assert.Contains(t, out, "Dealer ")
}
