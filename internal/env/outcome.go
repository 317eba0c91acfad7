package env

import "github.com/lox/blackjack-rl/internal/deck"

// Outcome is the result of a finished round from the player's point of view
type Outcome int

const (
	Draw Outcome = iota
	Win
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "draw"
	}
}

// OutcomeFromReward classifies a round by the sign of its total reward.
// Stand penalties can turn a nominal draw into a loss under this convention.
func OutcomeFromReward(total float64) Outcome {
	switch {
	case total > 0:
		return Win
	case total < 0:
		return Loss
	default:
		return Draw
	}
}

// ResolveOutcome classifies a round from the final hands, ignoring any
// reward shaping. A player bust loses even if the dealer would also bust.
func ResolveOutcome(player, dealer deck.Hand) Outcome {
	p := player.Total()
	d := dealer.Total()
	switch {
	case p > deck.Blackjack:
		return Loss
	case d > deck.Blackjack || p > d:
		return Win
	case p < d:
		return Loss
	default:
		return Draw
	}
}
