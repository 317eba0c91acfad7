package tui

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
)

// Grid bounds. Totals below GridMinTotal cannot bust on a hit and are
// folded into the first row.
const (
	GridMinTotal = 12
	GridMaxTotal = 21
)

// PolicyLookup returns the greedy action for a cell, or false if the cell
// has never been visited
type PolicyLookup func(total int, usableAce bool, dealer deck.Card) (env.Action, bool)

// dealerColumns orders the up card the way strategy charts do
var dealerColumns = []deck.Card{
	deck.Two, deck.Three, deck.Four, deck.Five, deck.Six,
	deck.Seven, deck.Eight, deck.Nine, deck.Ten, deck.Ace,
}

// RenderPolicyGrid draws the hard and soft greedy-action charts, player
// total down and dealer card across
func RenderPolicyGrid(title string, lookup PolicyLookup) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(PanelStyle.Render(renderGrid("Hard totals", false, lookup)))
	b.WriteString("\n")
	b.WriteString(PanelStyle.Render(renderGrid("Soft totals", true, lookup)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("%s hit  %s stand  %s unseen",
		HitStyle.Render("H"), StandStyle.Render("S"), UnseenStyle.Render("·"))))
	b.WriteString("\n")
	return b.String()
}

func renderGrid(label string, usableAce bool, lookup PolicyLookup) string {
	var b strings.Builder
	b.WriteString(StatNameStyle.Render(label))
	b.WriteString("\n    ")
	for _, d := range dealerColumns {
		fmt.Fprintf(&b, " %s", StatNameStyle.Render(d.String()))
	}
	for total := GridMaxTotal; total >= GridMinTotal; total-- {
		fmt.Fprintf(&b, "\n%s", StatNameStyle.Render(fmt.Sprintf("%3d ", total)))
		for _, d := range dealerColumns {
			b.WriteString(" ")
			b.WriteString(cell(lookup(total, usableAce, d)))
		}
	}
	return b.String()
}

func cell(action env.Action, seen bool) string {
	switch {
	case !seen:
		return UnseenStyle.Render("·")
	case action == env.Hit:
		return HitStyle.Render("H")
	default:
		return StandStyle.Render("S")
	}
}
