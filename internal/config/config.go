// Package config loads training settings from an HCL file.
package config

import (
	"fmt"
	rand "math/rand/v2"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/randutil"
)

// Agent block labels
const (
	MonteCarlo = "monte_carlo"
	Sarsa      = "sarsa"
)

// Config represents the complete training configuration
type Config struct {
	Environment *EnvironmentConfig `hcl:"environment,block"`
	Agents      []AgentConfig      `hcl:"agent,block"`
	Training    *TrainingConfig    `hcl:"training,block"`
}

// EnvironmentConfig configures the Blackjack environment. Pointers mark
// settings whose zero value is meaningful.
type EnvironmentConfig struct {
	MultiRound        *bool    `hcl:"multi_round,optional"`
	StandPenalty      *float64 `hcl:"stand_penalty,optional"`
	StandPenaltyDecay *float64 `hcl:"stand_penalty_decay,optional"`
}

// AgentConfig holds the hyperparameters for one agent variant
type AgentConfig struct {
	Name         string  `hcl:"name,label"`
	Gamma        float64 `hcl:"gamma,optional"`
	Epsilon      float64 `hcl:"epsilon,optional"`
	EpsilonDecay float64 `hcl:"epsilon_decay,optional"`
	MinEpsilon   float64 `hcl:"min_epsilon,optional"`

	// SARSA only
	Alpha        float64 `hcl:"alpha,optional"`
	AlphaDecay   float64 `hcl:"alpha_decay,optional"`
	MinAlpha     float64 `hcl:"min_alpha,optional"`
	Policy       string  `hcl:"policy,optional"`
	LearningRate string  `hcl:"learning_rate,optional"`
}

// TrainingConfig controls a training run and where its artefacts go
type TrainingConfig struct {
	Episodes      int    `hcl:"episodes,optional"`
	SnapshotEvery int    `hcl:"snapshot_every,optional"`
	Seed          int64  `hcl:"seed,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	ModelDir      string `hcl:"model_dir,optional"`
	LogDir        string `hcl:"log_dir,optional"`
	PlotDir       string `hcl:"plot_dir,optional"`
	HistoryDB     string `hcl:"history_db,optional"`
	RollingWindow int    `hcl:"rolling_window,optional"`
	MaxPoints     int    `hcl:"max_points,optional"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults; settings left out of the file are filled in.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	envDefaults := env.DefaultConfig()
	if c.Environment == nil {
		c.Environment = &EnvironmentConfig{}
	}
	if c.Environment.MultiRound == nil {
		c.Environment.MultiRound = &envDefaults.MultiRound
	}
	if c.Environment.StandPenalty == nil {
		c.Environment.StandPenalty = &envDefaults.StandPenalty
	}
	if c.Environment.StandPenaltyDecay == nil {
		c.Environment.StandPenaltyDecay = &envDefaults.StandPenaltyDecay
	}

	for _, name := range []string{MonteCarlo, Sarsa} {
		if c.Agent(name) == nil {
			c.Agents = append(c.Agents, AgentConfig{Name: name})
		}
	}
	sarsa := agent.DefaultSarsaConfig()
	for i := range c.Agents {
		a := &c.Agents[i]
		if a.Gamma == 0 {
			a.Gamma = sarsa.Gamma
		}
		if a.Epsilon == 0 {
			a.Epsilon = sarsa.Epsilon
		}
		if a.EpsilonDecay == 0 {
			a.EpsilonDecay = sarsa.EpsilonDecay
		}
		if a.MinEpsilon == 0 {
			a.MinEpsilon = sarsa.MinEpsilon
		}
		if a.Alpha == 0 {
			a.Alpha = sarsa.Alpha
		}
		if a.AlphaDecay == 0 {
			a.AlphaDecay = sarsa.AlphaDecay
		}
		if a.MinAlpha == 0 {
			a.MinAlpha = sarsa.MinAlpha
		}
		if a.Policy == "" {
			a.Policy = string(sarsa.Policy)
		}
		if a.LearningRate == "" {
			a.LearningRate = string(sarsa.LearningRate)
		}
	}

	if c.Training == nil {
		c.Training = &TrainingConfig{}
	}
	t := c.Training
	if t.Episodes == 0 {
		t.Episodes = 100000
	}
	if t.SnapshotEvery == 0 {
		t.SnapshotEvery = agent.DefaultSnapshotEvery
	}
	if t.LogLevel == "" {
		t.LogLevel = "info"
	}
	if t.ModelDir == "" {
		t.ModelDir = "data/models"
	}
	if t.LogDir == "" {
		t.LogDir = "data/logs"
	}
	if t.PlotDir == "" {
		t.PlotDir = "data/plots"
	}
	if t.HistoryDB == "" {
		t.HistoryDB = "data/history.db"
	}
	if t.RollingWindow == 0 {
		t.RollingWindow = 100
	}
	if t.MaxPoints == 0 {
		t.MaxPoints = 1000
	}
}

// Agent returns the block for the named agent, or nil
func (c *Config) Agent(name string) *AgentConfig {
	for i := range c.Agents {
		if c.Agents[i].Name == name {
			return &c.Agents[i]
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.EnvConfig(randutil.New(1), nil); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	for _, a := range c.Agents {
		switch a.Name {
		case MonteCarlo:
			if _, err := c.MonteCarloConfig(randutil.New(1), nil); err != nil {
				return fmt.Errorf("agent %s: %w", a.Name, err)
			}
		case Sarsa:
			if _, err := c.SarsaConfig(randutil.New(1), nil); err != nil {
				return fmt.Errorf("agent %s: %w", a.Name, err)
			}
		default:
			return fmt.Errorf("unknown agent %q (want %s or %s)", a.Name, MonteCarlo, Sarsa)
		}
	}

	t := c.Training
	if t.Episodes < 0 {
		return fmt.Errorf("training: episodes cannot be negative: %d", t.Episodes)
	}
	if t.SnapshotEvery < 0 {
		return fmt.Errorf("training: snapshot_every cannot be negative: %d", t.SnapshotEvery)
	}
	if _, err := log.ParseLevel(t.LogLevel); err != nil {
		return fmt.Errorf("training: invalid log_level %q", t.LogLevel)
	}
	if t.RollingWindow < 1 {
		return fmt.Errorf("training: rolling_window must be positive: %d", t.RollingWindow)
	}
	if t.MaxPoints < 2 {
		return fmt.Errorf("training: max_points must be at least 2: %d", t.MaxPoints)
	}
	return nil
}

// EnvConfig builds the environment settings
func (c *Config) EnvConfig(rng *rand.Rand, logger *log.Logger) (env.Config, error) {
	cfg := env.Config{
		MultiRound:        *c.Environment.MultiRound,
		StandPenalty:      *c.Environment.StandPenalty,
		StandPenaltyDecay: *c.Environment.StandPenaltyDecay,
		Rand:              rng,
		Logger:            logger,
	}
	return cfg, cfg.Validate()
}

func (c *Config) agentBase(name string, rng *rand.Rand, logger *log.Logger) (agent.Config, *AgentConfig, error) {
	a := c.Agent(name)
	if a == nil {
		return agent.Config{}, nil, fmt.Errorf("no %s agent configured", name)
	}
	return agent.Config{
		Gamma:         a.Gamma,
		Epsilon:       a.Epsilon,
		EpsilonDecay:  a.EpsilonDecay,
		MinEpsilon:    a.MinEpsilon,
		SnapshotEvery: c.Training.SnapshotEvery,
		Rand:          rng,
		Logger:        logger,
	}, a, nil
}

// MonteCarloConfig builds the Monte Carlo agent settings
func (c *Config) MonteCarloConfig(rng *rand.Rand, logger *log.Logger) (agent.MonteCarloConfig, error) {
	base, _, err := c.agentBase(MonteCarlo, rng, logger)
	if err != nil {
		return agent.MonteCarloConfig{}, err
	}
	cfg := agent.MonteCarloConfig{Config: base}
	return cfg, cfg.Validate()
}

// SarsaConfig builds the SARSA agent settings
func (c *Config) SarsaConfig(rng *rand.Rand, logger *log.Logger) (agent.SarsaConfig, error) {
	base, a, err := c.agentBase(Sarsa, rng, logger)
	if err != nil {
		return agent.SarsaConfig{}, err
	}
	cfg := agent.SarsaConfig{
		Config:       base,
		Alpha:        a.Alpha,
		AlphaDecay:   a.AlphaDecay,
		MinAlpha:     a.MinAlpha,
		Policy:       agent.PolicyKind(a.Policy),
		LearningRate: agent.LearningRate(a.LearningRate),
	}
	return cfg, cfg.Validate()
}
