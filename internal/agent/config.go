package agent

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
)

// PolicyKind selects how an agent explores
type PolicyKind string

const (
	EpsilonGreedy PolicyKind = "epsilon_greedy"
	Softmax       PolicyKind = "softmax"
)

// ParsePolicyKind validates a policy name
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(s) {
	case EpsilonGreedy, Softmax:
		return PolicyKind(s), nil
	}
	return "", fmt.Errorf("unknown policy %q (want %s or %s)", s, EpsilonGreedy, Softmax)
}

// LearningRate selects how SARSA sizes its updates
type LearningRate string

const (
	// FixedRate uses the scalar alpha for every update
	FixedRate LearningRate = "fixed"
	// DynamicRate uses 1/(1+visits) per state-action pair
	DynamicRate LearningRate = "dynamic"
)

// ParseLearningRate validates a learning rate mode
func ParseLearningRate(s string) (LearningRate, error) {
	switch LearningRate(s) {
	case FixedRate, DynamicRate:
		return LearningRate(s), nil
	}
	return "", fmt.Errorf("unknown learning rate %q (want %s or %s)", s, FixedRate, DynamicRate)
}

// DefaultSnapshotEvery is the episode interval between snapshots
const DefaultSnapshotEvery = 100

// Config holds the settings shared by every agent
type Config struct {
	Gamma        float64
	Epsilon      float64
	EpsilonDecay float64
	MinEpsilon   float64

	// SnapshotEvery controls how often a Snapshot is appended to the
	// result. Zero disables snapshots.
	SnapshotEvery int

	Rand   *rand.Rand
	Logger *log.Logger

	// LogTail, when set, is forwarded to progress sinks
	LogTail LogSource
}

// DefaultConfig returns the shared defaults
func DefaultConfig() Config {
	return Config{
		Gamma:         0.95,
		Epsilon:       1.0,
		EpsilonDecay:  0.995,
		MinEpsilon:    0.2,
		SnapshotEvery: DefaultSnapshotEvery,
	}
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return errors.New("gamma must be within [0, 1]")
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return errors.New("epsilon must be within [0, 1]")
	}
	if c.MinEpsilon < 0 || c.MinEpsilon > 1 {
		return errors.New("min epsilon must be within [0, 1]")
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return errors.New("epsilon decay must be within (0, 1]")
	}
	if c.SnapshotEvery < 0 {
		return errors.New("snapshot interval cannot be negative")
	}
	if c.Rand == nil {
		return errors.New("random source is required")
	}
	return nil
}

// MonteCarloConfig configures a MonteCarlo agent
type MonteCarloConfig struct {
	Config
}

// DefaultMonteCarloConfig returns the Monte Carlo defaults
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{Config: DefaultConfig()}
}

// SarsaConfig configures a Sarsa agent
type SarsaConfig struct {
	Config

	Alpha      float64
	AlphaDecay float64
	MinAlpha   float64

	Policy       PolicyKind
	LearningRate LearningRate
}

// DefaultSarsaConfig returns the SARSA defaults
func DefaultSarsaConfig() SarsaConfig {
	return SarsaConfig{
		Config:       DefaultConfig(),
		Alpha:        0.1,
		AlphaDecay:   1.0,
		MinAlpha:     0.001,
		Policy:       EpsilonGreedy,
		LearningRate: FixedRate,
	}
}

// Validate ensures the configuration is usable
func (c SarsaConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return errors.New("alpha must be within (0, 1]")
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay > 1 {
		return errors.New("alpha decay must be within (0, 1]")
	}
	if c.MinAlpha < 0 || c.MinAlpha > c.Alpha {
		return errors.New("min alpha must be within [0, alpha]")
	}
	if _, err := ParsePolicyKind(string(c.Policy)); err != nil {
		return err
	}
	if _, err := ParseLearningRate(string(c.LearningRate)); err != nil {
		return err
	}
	return nil
}
