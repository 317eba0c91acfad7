package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, *cfg.Environment.MultiRound)
	assert.Equal(t, 0.1, *cfg.Environment.StandPenalty)
	assert.Equal(t, 0.001, *cfg.Environment.StandPenaltyDecay)
	assert.Equal(t, 100000, cfg.Training.Episodes)
	assert.Equal(t, "data/models", cfg.Training.ModelDir)
	require.NotNil(t, cfg.Agent(MonteCarlo))
	require.NotNil(t, cfg.Agent(Sarsa))
	assert.Equal(t, 0.95, cfg.Agent(Sarsa).Gamma)
	assert.Equal(t, "epsilon_greedy", cfg.Agent(Sarsa).Policy)
}

func TestLoadFillsMissingValues(t *testing.T) {
	path := writeConfig(t, `
environment {
  multi_round   = false
  stand_penalty = 0
}

agent "sarsa" {
  alpha         = 0.2
  policy        = "softmax"
  learning_rate = "dynamic"
}

training {
  episodes = 500
  seed     = 1234
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, *cfg.Environment.MultiRound, "explicit false must survive defaults")
	assert.Zero(t, *cfg.Environment.StandPenalty, "explicit zero must survive defaults")
	assert.Equal(t, 0.001, *cfg.Environment.StandPenaltyDecay)

	sarsa := cfg.Agent(Sarsa)
	assert.Equal(t, 0.2, sarsa.Alpha)
	assert.Equal(t, 0.95, sarsa.Gamma)
	assert.Equal(t, 0.2, sarsa.MinEpsilon)
	require.NotNil(t, cfg.Agent(MonteCarlo), "unlisted agents get defaults")

	assert.Equal(t, 500, cfg.Training.Episodes)
	assert.Equal(t, int64(1234), cfg.Training.Seed)
	assert.Equal(t, 100, cfg.Training.SnapshotEvery)
}

func TestConversions(t *testing.T) {
	path := writeConfig(t, `
agent "monte_carlo" {
  gamma       = 0.9
  min_epsilon = 0.05
}
agent "sarsa" {
  learning_rate = "dynamic"
}
training {
  snapshot_every = 25
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	envCfg, err := cfg.EnvConfig(randutil.New(1), nil)
	require.NoError(t, err)
	assert.True(t, envCfg.MultiRound)

	mc, err := cfg.MonteCarloConfig(randutil.New(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, mc.Gamma)
	assert.Equal(t, 0.05, mc.MinEpsilon)
	assert.Equal(t, 25, mc.SnapshotEvery)

	sarsa, err := cfg.SarsaConfig(randutil.New(1), nil)
	require.NoError(t, err)
	assert.Equal(t, agent.DynamicRate, sarsa.LearningRate)
	assert.Equal(t, agent.EpsilonGreedy, sarsa.Policy)
	assert.Equal(t, 0.1, sarsa.Alpha)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown agent", `agent "dqn" {}`},
		{"bad policy", `agent "sarsa" { policy = "greedy" }`},
		{"bad gamma", `agent "monte_carlo" { gamma = 2 }`},
		{"bad decay", `environment { stand_penalty_decay = 3 }`},
		{"bad level", `training { log_level = "loud" }`},
		{"negative episodes", `training { episodes = -5 }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadReportsSyntaxErrors(t *testing.T) {
	_, err := Load(writeConfig(t, `training { episodes = `))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `training { unknown_setting = 1 }`))
	assert.Error(t, err)
}

func TestSampleConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "blackjack.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, *cfg.Environment.MultiRound)
	assert.Equal(t, "epsilon_greedy", cfg.Agent(Sarsa).Policy)
	assert.Equal(t, 100000, cfg.Training.Episodes)
}
