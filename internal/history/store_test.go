package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func sampleRun(agentName string) *Run {
	return &Run{
		Session:     "session",
		Agent:       agentName,
		Seed:        42,
		Episodes:    200,
		Wins:        90,
		Losses:      100,
		Draws:       10,
		Hits:        150,
		Stands:      200,
		TotalReward: -12.5,
		Epsilon:     0.4,
		TableSize:   180,
		ModelPath:   "data/models/q_table_session.json",
		Snapshots: []agent.Snapshot{
			{Episode: 100, WinRate: 0.41, Epsilon: 0.6, Alpha: 0.1, TotalReward: -8, TableSize: 120},
			{Episode: 200, WinRate: 0.49, Epsilon: 0.4, Alpha: 0.1, TotalReward: -12.5, TableSize: 180},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("sarsa")
	require.NoError(t, s.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), run.CreatedAt)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.InDelta(t, 0.45, got.WinRate(), 1e-12)
}

func TestGetRunByPrefix(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("monte_carlo")
	run.ID = "abc123"
	require.NoError(t, s.SaveRun(ctx, run))
	other := sampleRun("monte_carlo")
	other.ID = "abd456"
	require.NoError(t, s.SaveRun(ctx, other))

	got, err := s.GetRun(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)
	assert.Len(t, got.Snapshots, 2)

	_, err = s.GetRun(ctx, "ab")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = s.GetRun(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"monte_carlo", "sarsa", "sarsa"} {
		require.NoError(t, s.SaveRun(ctx, sampleRun(name)))
		clock.Advance(time.Minute)
	}

	runs, err := s.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.Equal(t, "monte_carlo", runs[2].Agent)
	assert.Nil(t, runs[0].Snapshots, "list does not load snapshots")

	runs, err = s.ListRuns(ctx, "sarsa", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDeleteRunRemovesSnapshots(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("sarsa")
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err := s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrNotFound)

	snaps, err := s.snapshots(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestDuplicateRunIDRollsBack(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("sarsa")
	require.NoError(t, s.SaveRun(ctx, run))

	dup := sampleRun("sarsa")
	dup.ID = run.ID
	dup.Snapshots = append(dup.Snapshots, agent.Snapshot{Episode: 300})
	assert.Error(t, s.SaveRun(ctx, dup))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Snapshots, 2)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	run := sampleRun("monte_carlo")
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.TotalReward, got.TotalReward)
}

func TestNewRunFromResult(t *testing.T) {
	res := &agent.Result{
		Rewards: []float64{1, -1, 0, 1.5},
		Wins:    2, Losses: 1, Draws: 1,
		Hits: 3, Stands: 4,
	}
	run := NewRun("s1", "sarsa", 7, res)
	assert.Equal(t, 4, run.Episodes)
	assert.InDelta(t, 1.5, run.TotalReward, 1e-12)
	assert.Equal(t, int64(7), run.Seed)
	assert.InDelta(t, 0.5, run.WinRate(), 1e-12)
}

func TestNewSessionID(t *testing.T) {
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC))

	a := NewSessionID(clock)
	b := NewSessionID(clock)
	assert.True(t, strings.HasPrefix(a, "20240301T093005-"), a)
	assert.Len(t, a, len("20240301T093005-")+8)
	assert.NotEqual(t, a, b)
}
