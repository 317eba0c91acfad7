package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/tui"
)

type BustCmd struct {
	Total int    `required:"" help:"Current hand total"`
	Cards string `help:"Cards left in the deck, e.g. 'T T 9 A' (omit for a full deck)"`
}

func (c *BustCmd) Run(g *Globals) error {
	comp, err := parseComposition(c.Cards)
	if err != nil {
		return err
	}
	p := env.ProbabilityOfBust(c.Total, comp)

	deckDesc := "full deck"
	if comp != nil {
		deckDesc = comp.String()
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", tui.StatNameStyle.Render("Deck:"), deckDesc)
	fmt.Fprintf(os.Stdout, "%s %s\n",
		tui.StatNameStyle.Render(fmt.Sprintf("P(bust | total %d):", c.Total)),
		tui.StatValueStyle.Render(fmt.Sprintf("%.4f", p)))
	return nil
}

// parseComposition counts the cards in s. An empty string means no
// composition is known.
func parseComposition(s string) (*deck.Composition, error) {
	if s == "" {
		return nil, nil
	}
	cards, err := deck.ParseCards(s)
	if err != nil {
		return nil, err
	}
	var comp deck.Composition
	for _, card := range cards {
		comp[card-1]++
	}
	return &comp, nil
}
