package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack-rl/internal/agent"
	"github.com/lox/blackjack-rl/internal/config"
	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/qtable"
	"github.com/lox/blackjack-rl/internal/tui"
)

type InspectCmd struct {
	Agent string `arg:"" enum:"monte_carlo,sarsa" help:"Agent that produced the table (monte_carlo|sarsa)"`
	Table string `arg:"" type:"existingfile" help:"Saved value table"`
}

func (c *InspectCmd) Run(g *Globals) error {
	var (
		cells map[agent.CoarseKey]qtable.ActionValues
		size  int
	)
	switch c.Agent {
	case config.MonteCarlo:
		t, err := qtable.Load(c.Table, agent.FullKeySchema)
		if err != nil {
			return fmt.Errorf("load %s: %w", c.Table, err)
		}
		cells = collapse(t, func(k agent.FullKey) agent.CoarseKey {
			return agent.CoarseKeyFor(env.Observation{
				PlayerTotal: k.PlayerTotal,
				UsableAce:   k.UsableAce,
				DealerCard:  k.DealerCard,
			})
		})
		size = t.Len()
	case config.Sarsa:
		t, err := qtable.Load(c.Table, agent.CoarseKeySchema)
		if err != nil {
			return fmt.Errorf("load %s: %w", c.Table, err)
		}
		cells = collapse(t, func(k agent.CoarseKey) agent.CoarseKey { return k })
		size = t.Len()
	default:
		return fmt.Errorf("unknown agent %q", c.Agent)
	}

	title := fmt.Sprintf("%s greedy policy (%d states)", c.Agent, size)
	fmt.Fprint(os.Stdout, tui.RenderPolicyGrid(title, gridLookup(cells)))
	return nil
}

// collapse sums the action values of every row that maps to the same grid
// cell. Monte Carlo rows that differ only by hand size or deck composition
// are pooled into one cell.
func collapse[K qtable.Key](t *qtable.Table[K], cell func(K) agent.CoarseKey) map[agent.CoarseKey]qtable.ActionValues {
	out := make(map[agent.CoarseKey]qtable.ActionValues)
	t.Range(func(k K, v qtable.ActionValues) bool {
		ck := cell(k)
		sum := out[ck]
		for a := range sum {
			sum[a] += v[a]
		}
		out[ck] = sum
		return true
	})
	return out
}

func gridLookup(cells map[agent.CoarseKey]qtable.ActionValues) tui.PolicyLookup {
	return func(total int, usableAce bool, dealer deck.Card) (env.Action, bool) {
		v, ok := cells[agent.CoarseKey{PlayerTotal: total, UsableAce: usableAce, DealerCard: dealer}]
		if !ok {
			return env.Hit, false
		}
		return v.Best(), true
	}
}
