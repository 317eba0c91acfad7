package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarloFirstVisitUpdatesOnce(t *testing.T) {
	m := newMonteCarlo(t, 1, func(c *MonteCarloConfig) { c.Gamma = 1 })
	k := FullKeyFor(obs(14, false, deck.Six))
	other := FullKeyFor(obs(16, false, deck.Six))

	m.trace = []mcStep{
		{key: k, action: env.Hit, reward: -1},
		{key: other, action: env.Hit, reward: 0},
		{key: k, action: env.Hit, reward: 1},
	}
	m.learn()

	// the reverse pass meets (k, Hit) first with G=1; the earlier repeat
	// would have pulled it to G=0
	assert.Equal(t, 1.0, m.table.Value(k, env.Hit))
	assert.Equal(t, 1.0, m.table.Value(other, env.Hit))
	assert.Equal(t, 2, m.table.Len())
}

func TestMonteCarloDiscountedUnitStep(t *testing.T) {
	m := newMonteCarlo(t, 1)
	a := FullKeyFor(obs(12, false, deck.Ten))
	b := FullKeyFor(obs(19, false, deck.Ten))
	m.table.Row(a)[env.Hit] = 0.4

	m.trace = []mcStep{
		{key: a, action: env.Hit, reward: 0},
		{key: b, action: env.Stand, reward: 1},
	}
	m.learn()

	assert.InDelta(t, 1.0, m.table.Value(b, env.Stand), 1e-12)
	// unit step replaces the old estimate outright
	assert.InDelta(t, 0.95, m.table.Value(a, env.Hit), 1e-12)
	assert.Zero(t, m.table.Value(a, env.Stand))
}

func TestSarsaDynamicRateDecreases(t *testing.T) {
	s := newSarsa(t, 1, func(c *SarsaConfig) { c.LearningRate = DynamicRate })
	k := CoarseKey{PlayerTotal: 15, DealerCard: deck.Nine}
	terminal := CoarseKey{PlayerTotal: 25, DealerCard: deck.Nine}

	prev := 2.0
	for i := 0; i < 50; i++ {
		alpha := s.update(k, env.Hit, -1, terminal, env.Hit)
		assert.Less(t, alpha, prev, "update %d", i)
		assert.InDelta(t, 1/float64(i+1), alpha, 1e-12)
		prev = alpha
	}
	assert.Equal(t, 50, s.Visits(k, env.Hit))
	assert.Zero(t, s.Visits(k, env.Stand))
	// 1/n step sizes make the estimate the running mean of the targets
	assert.InDelta(t, -1.0, s.table.Value(k, env.Hit), 1e-12)
}

func TestSarsaFixedRateUpdate(t *testing.T) {
	s := newSarsa(t, 1)
	k := CoarseKey{PlayerTotal: 13, DealerCard: deck.Two}
	next := CoarseKey{PlayerTotal: 18, DealerCard: deck.Two}
	s.table.Row(next)[env.Stand] = 1

	alpha := s.update(k, env.Hit, 0.5, next, env.Stand)
	assert.Equal(t, 0.1, alpha)
	assert.InDelta(t, 0.1*(0.5+0.95*1), s.table.Value(k, env.Hit), 1e-12)

	alpha = s.update(k, env.Hit, 0.5, next, env.Stand)
	assert.Equal(t, 0.1, alpha, "fixed mode ignores visit counts")
	assert.Equal(t, 2, s.Visits(k, env.Hit))
}

func greedyOnly(c *Config) {
	c.Epsilon = 0
	c.MinEpsilon = 0
}

func TestSarsaTerminalStepBootstrapsFromHit(t *testing.T) {
	s := newSarsa(t, 1, func(c *SarsaConfig) { greedyOnly(&c.Config) })
	e := newEnv(t, false, 1)
	// player T6, dealer T7, and the hit draws a ten
	e.StackDeck(deck.MustParseCards("T6T7T")...)

	start := CoarseKey{PlayerTotal: 16, DealerCard: deck.Ten}
	bust := CoarseKey{PlayerTotal: 26, DealerCard: deck.Ten}
	s.table.Row(start)[env.Hit] = 1
	s.table.Row(bust)[env.Hit] = -0.4
	s.table.Row(bust)[env.Stand] = 0.8

	res, err := s.Train(context.Background(), e, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Hits)
	require.Zero(t, res.Stands)

	target := -1 + 0.95*-0.4
	assert.InDelta(t, 1+0.1*(target-1), s.table.Value(start, env.Hit), 1e-12)
	assert.Equal(t, 1, s.Visits(start, env.Hit))
	assert.Zero(t, s.Visits(bust, env.Hit), "the terminal state is never updated")
}

func TestAgentsClassifyPenalisedWinsDifferently(t *testing.T) {
	// player 12 stands against dealer 12, who draws a ten and busts. A
	// penalty of 1.5 per point under 13 leaves the round at -0.5.
	penalised := func(t *testing.T) *env.Environment {
		cfg := env.DefaultConfig()
		cfg.MultiRound = false
		cfg.StandPenalty = 1.5
		cfg.Rand = randutil.New(1)
		cfg.Logger = quietLogger()
		e, err := env.New(cfg)
		require.NoError(t, err)
		e.StackDeck(deck.MustParseCards("T2T2T")...)
		return e
	}
	o := obs(12, false, deck.Ten)

	t.Run("monte carlo counts by reward sign", func(t *testing.T) {
		m := newMonteCarlo(t, 1, func(c *MonteCarloConfig) { greedyOnly(&c.Config) })
		m.table.Row(FullKeyFor(o))[env.Stand] = 1

		res, err := m.Train(context.Background(), penalised(t), 1, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Stands)
		assert.InDelta(t, -0.5, res.TotalReward(), 1e-12)
		assert.Equal(t, 1, res.Losses)
		assert.Zero(t, res.Wins)
	})

	t.Run("sarsa counts by final hands", func(t *testing.T) {
		s := newSarsa(t, 1, func(c *SarsaConfig) { greedyOnly(&c.Config) })
		s.table.Row(CoarseKeyFor(o))[env.Stand] = 1

		res, err := s.Train(context.Background(), penalised(t), 1, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Stands)
		assert.InDelta(t, -0.5, res.TotalReward(), 1e-12)
		assert.Equal(t, 1, res.Wins)
		assert.Zero(t, res.Losses)
	})
}

func TestSarsaLoadResetsVisitCounts(t *testing.T) {
	s := newSarsa(t, 1, func(c *SarsaConfig) { c.LearningRate = DynamicRate })
	k := CoarseKey{PlayerTotal: 15, DealerCard: deck.Nine}
	terminal := CoarseKey{PlayerTotal: 25, DealerCard: deck.Nine}
	for i := 0; i < 3; i++ {
		s.update(k, env.Hit, -1, terminal, env.Hit)
	}
	require.Equal(t, 3, s.Visits(k, env.Hit))

	path := filepath.Join(t.TempDir(), "sarsa.json")
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Load(path))

	assert.Zero(t, s.Visits(k, env.Hit))
	assert.InDelta(t, -1.0, s.table.Value(k, env.Hit), 1e-12)
	assert.Equal(t, 1.0, s.update(k, env.Hit, -1, terminal, env.Hit), "first update after load uses a full step")
}

func TestSarsaScalarAlphaDecays(t *testing.T) {
	s := newSarsa(t, 1, func(c *SarsaConfig) {
		c.Alpha = 0.5
		c.AlphaDecay = 0.5
		c.MinAlpha = 0.1
	})
	s.endEpisode()
	assert.InDelta(t, 0.25, s.Alpha(), 1e-12)
	s.endEpisode()
	s.endEpisode()
	assert.InDelta(t, 0.1, s.Alpha(), 1e-12)
}

func TestKeys(t *testing.T) {
	o := env.Observation{PlayerTotal: 7, UsableAce: false, DealerCard: deck.Ace, HandCount: 2}
	assert.Equal(t, CoarseKey{PlayerTotal: 12, DealerCard: deck.Ace}, CoarseKeyFor(o))

	o.PlayerTotal = 17
	o.UsableAce = true
	assert.Equal(t, CoarseKey{PlayerTotal: 17, UsableAce: true, DealerCard: deck.Ace}, CoarseKeyFor(o))

	full := FullKeyFor(o)
	assert.False(t, full.Tracked)
	assert.Equal(t, deck.Composition{}, full.Composition)

	comp := deck.FullComposition()
	o.Composition = &comp
	full = FullKeyFor(o)
	assert.True(t, full.Tracked)
	assert.Equal(t, comp, full.Composition)

	// same values, different pointer: keys must still match
	again := deck.FullComposition()
	o.Composition = &again
	assert.Equal(t, full, FullKeyFor(o))
}

func TestFullKeySchemaRoundTrip(t *testing.T) {
	comp := deck.FullComposition()
	comp[deck.Five-1] = 0
	keys := []FullKey{
		{PlayerTotal: 15, DealerCard: deck.Ten, HandCount: 3},
		{PlayerTotal: 20, UsableAce: true, DealerCard: deck.Ace, HandCount: 2, Composition: comp, Tracked: true},
	}
	for _, k := range keys {
		fields := k.Fields()
		require.Len(t, fields, len(FullKeySchema.Kinds))
		got, err := FullKeySchema.Decode(fields)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}
