// Package env implements a single-player Blackjack round as a reinforcement
// learning environment.
//
// A round starts with Reset, which deals two cards to the player and two to
// the dealer, and advances with Step until the returned result is Done. The
// player can Hit or Stand; standing passes control to a fixed dealer policy
// (draw to 17) and resolves the round.
package env

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack-rl/internal/deck"
)

var (
	// ErrRoundOver is returned by Step when the round has already ended.
	// Callers must Reset before stepping again.
	ErrRoundOver = errors.New("round is over, reset the environment")

	// ErrInvalidAction is returned by Step for anything other than Hit or Stand.
	ErrInvalidAction = errors.New("invalid action")
)

const (
	// DealerStandsOn is the total at which the dealer stops drawing
	DealerStandsOn = 17

	// PenaltyThreshold is the total below which standing is penalised
	PenaltyThreshold = 13

	naturalBonus = 2.0
	twentyOneWin = 1.5
	plainWin     = 1.0
)

// Config controls how the environment behaves
type Config struct {
	// MultiRound keeps the deck across rounds and exposes its composition
	// in every observation.
	MultiRound bool

	// StandPenalty is the initial per-point penalty for standing below 13.
	StandPenalty float64

	// StandPenaltyDecay is the fraction the penalty shrinks by after every step.
	StandPenaltyDecay float64

	Rand   *rand.Rand
	Logger *log.Logger
}

// DefaultConfig returns the settings used for training runs
func DefaultConfig() Config {
	return Config{
		MultiRound:        true,
		StandPenalty:      0.1,
		StandPenaltyDecay: 0.001,
	}
}

// Validate ensures the configuration is usable
func (c Config) Validate() error {
	if c.StandPenalty < 0 {
		return errors.New("stand penalty cannot be negative")
	}
	if c.StandPenaltyDecay < 0 || c.StandPenaltyDecay > 1 {
		return errors.New("stand penalty decay must be within [0, 1]")
	}
	if c.Rand == nil {
		return errors.New("random source is required")
	}
	return nil
}

// Environment owns one round of Blackjack at a time
type Environment struct {
	cfg    Config
	logger *log.Logger

	deck   *deck.Deck
	player deck.Hand
	dealer deck.Hand
	state  State
	reward float64

	standPenalty float64
}

// New creates an environment with a freshly shuffled deck. No round is in
// progress until Reset is called.
func New(cfg Config) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	e := &Environment{
		cfg:          cfg,
		logger:       logger.WithPrefix("env"),
		deck:         deck.New(cfg.Rand),
		state:        Terminal,
		standPenalty: cfg.StandPenalty,
	}
	e.logger.Debug("environment ready", "multi_round", cfg.MultiRound, "stand_penalty", cfg.StandPenalty)
	return e, nil
}

// Reset deals a new round and returns the initial observation
func (e *Environment) Reset() Observation {
	e.player = deck.Hand{e.draw(), e.draw()}
	e.dealer = deck.Hand{e.draw(), e.draw()}
	e.state = AwaitingAction
	e.reward = 0

	obs := e.observe()
	e.logger.Debug("new round", "player", e.player, "dealer_up", e.dealer[0], "state", obs)
	return obs
}

// Step applies the player's action. Rewards are per step: 0 for a safe hit,
// -1 for a bust, and the resolved outcome (less any stand penalty) on stand.
func (e *Environment) Step(action Action) (StepResult, error) {
	if e.state == Terminal {
		e.logger.Error("step called on a finished round", "action", action)
		return StepResult{}, ErrRoundOver
	}
	if !action.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}
	e.logger.Debug("action", "action", action)

	switch action {
	case Hit:
		e.hit()
	case Stand:
		e.stand()
	}

	e.standPenalty *= 1 - e.cfg.StandPenaltyDecay

	return StepResult{
		Observation: e.observe(),
		Reward:      e.reward,
		Done:        e.state == Terminal,
	}, nil
}

func (e *Environment) hit() {
	e.player = append(e.player, e.draw())
	if e.player.IsBust() {
		e.logger.Debug("player busts", "hand", e.player)
		e.state = Terminal
		e.reward = -1
		return
	}
	e.reward = 0
}

func (e *Environment) stand() {
	e.state = Terminal

	playerTotal := e.player.Total()
	if playerTotal < PenaltyThreshold {
		penalty := e.standPenalty * float64(PenaltyThreshold-playerTotal)
		e.reward -= penalty
		e.logger.Debug("stand penalty", "total", playerTotal, "penalty", penalty)
	}

	dealerTotal := e.dealer.Total()
	for dealerTotal < DealerStandsOn {
		e.dealer = append(e.dealer, e.draw())
		dealerTotal = e.dealer.Total()
	}

	switch {
	case dealerTotal > deck.Blackjack || playerTotal > dealerTotal:
		switch {
		case e.player.IsNatural():
			e.reward += naturalBonus
		case playerTotal == deck.Blackjack:
			e.reward += twentyOneWin
		default:
			e.reward += plainWin
		}
		e.logger.Debug("player wins", "player", playerTotal, "dealer", dealerTotal)
	case playerTotal < dealerTotal:
		e.reward -= 1
		e.logger.Debug("dealer wins", "player", playerTotal, "dealer", dealerTotal)
	default:
		e.logger.Debug("push", "total", playerTotal)
	}
}

func (e *Environment) draw() deck.Card {
	card, reshuffled := e.deck.Draw()
	if reshuffled {
		if e.cfg.MultiRound {
			e.logger.Info("deck depleted, reshuffling")
		} else {
			e.logger.Debug("deck empty, reshuffling")
		}
	}
	return card
}

func (e *Environment) observe() Observation {
	total, usable := e.player.Value()
	obs := Observation{
		PlayerTotal: total,
		UsableAce:   usable,
		DealerCard:  e.dealer[0],
		HandCount:   len(e.player),
	}
	if e.cfg.MultiRound {
		comp := e.deck.Composition()
		obs.Composition = &comp
	}
	return obs
}

// ProbabilityOfBust returns the chance that drawing one card from comp takes
// total over 21. A nil composition means a full deck. Aces count as one.
func (e *Environment) ProbabilityOfBust(total int, comp *deck.Composition) float64 {
	p := ProbabilityOfBust(total, comp)
	e.logger.Debug("probability of bust", "total", total, "p", p)
	return p
}

// ProbabilityOfBust is the stateless form of Environment.ProbabilityOfBust
func ProbabilityOfBust(total int, comp *deck.Composition) float64 {
	c := deck.FullComposition()
	if comp != nil {
		c = *comp
	}
	remaining := c.Total()
	if remaining == 0 {
		return 0
	}
	busting := 0
	for _, r := range deck.Ranks {
		if total+r.Value() > deck.Blackjack {
			busting += c.Count(r)
		}
	}
	return float64(busting) / float64(remaining)
}

// State returns the phase of the current round
func (e *Environment) State() State { return e.state }

// Done reports whether the current round has been resolved
func (e *Environment) Done() bool { return e.state == Terminal }

// PlayerHand returns a copy of the player's cards
func (e *Environment) PlayerHand() deck.Hand { return e.player.Clone() }

// DealerHand returns a copy of the dealer's cards
func (e *Environment) DealerHand() deck.Hand { return e.dealer.Clone() }

// StandPenalty returns the current per-point stand penalty
func (e *Environment) StandPenalty() float64 { return e.standPenalty }

// MultiRound reports whether the deck persists across rounds
func (e *Environment) MultiRound() bool { return e.cfg.MultiRound }

// DeckRemaining returns the number of undealt cards
func (e *Environment) DeckRemaining() int { return e.deck.Remaining() }

// StackDeck discards the undealt cards and puts cards on top so they are
// drawn next, in order. The draw after the last stacked card reshuffles.
// Used to script deals.
func (e *Environment) StackDeck(cards ...deck.Card) { e.deck.Stack(cards...) }
