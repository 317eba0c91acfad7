package env

import (
	"fmt"

	"github.com/lox/blackjack-rl/internal/deck"
)

// Action is a player decision
type Action int

const (
	Hit Action = iota
	Stand
)

// Actions lists every action in index order
var Actions = [...]Action{Hit, Stand}

// NumActions is the size of the action space
const NumActions = len(Actions)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Valid reports whether a is Hit or Stand
func (a Action) Valid() bool {
	return a == Hit || a == Stand
}

// Observation is the immutable view of a round that agents act on.
// Composition is nil unless the environment runs in multi-round mode.
type Observation struct {
	PlayerTotal int
	UsableAce   bool
	DealerCard  deck.Card
	HandCount   int
	Composition *deck.Composition
}

// String renders the observation for logs
func (o Observation) String() string {
	s := fmt.Sprintf("player=%d ace=%t dealer=%s cards=%d", o.PlayerTotal, o.UsableAce, o.DealerCard, o.HandCount)
	if o.Composition != nil {
		s += " deck=[" + o.Composition.String() + "]"
	}
	return s
}

// StepResult is what the environment returns after an action
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
}

// State is the phase of the current round
type State int

const (
	AwaitingAction State = iota
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingAction:
		return "awaiting-action"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}
