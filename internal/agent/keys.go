package agent

import (
	"fmt"

	"github.com/lox/blackjack-rl/internal/deck"
	"github.com/lox/blackjack-rl/internal/env"
	"github.com/lox/blackjack-rl/internal/qtable"
)

// FullKey is the uncoarsened state used by the Monte Carlo agent. Tracked is
// false when the environment does not expose the deck, in which case
// Composition is always zero.
type FullKey struct {
	PlayerTotal int
	UsableAce   bool
	DealerCard  deck.Card
	HandCount   int
	Composition deck.Composition
	Tracked     bool
}

// FullKeyFor builds the Monte Carlo key for an observation
func FullKeyFor(obs env.Observation) FullKey {
	k := FullKey{
		PlayerTotal: obs.PlayerTotal,
		UsableAce:   obs.UsableAce,
		DealerCard:  obs.DealerCard,
		HandCount:   obs.HandCount,
	}
	if obs.Composition != nil {
		k.Composition = *obs.Composition
		k.Tracked = true
	}
	return k
}

// Fields implements qtable.Key
func (k FullKey) Fields() []qtable.Field {
	comp := qtable.AbsentField()
	if k.Tracked {
		m := make(map[int]int, len(k.Composition))
		for _, r := range deck.Ranks {
			m[int(r)] = k.Composition.Count(r)
		}
		comp = qtable.MultisetField(m)
	}
	return []qtable.Field{
		qtable.IntField(k.PlayerTotal),
		qtable.BoolField(k.UsableAce),
		qtable.IntField(int(k.DealerCard)),
		qtable.IntField(k.HandCount),
		comp,
	}
}

// FullKeySchema persists FullKey tables
var FullKeySchema = qtable.Schema[FullKey]{
	Name: "monte_carlo/v1",
	Kinds: []qtable.Kind{
		qtable.KindInt,
		qtable.KindBool,
		qtable.KindInt,
		qtable.KindInt,
		qtable.KindOptionalMultiset,
	},
	Decode: decodeFullKey,
}

func decodeFullKey(f []qtable.Field) (FullKey, error) {
	dealer := deck.Card(f[2].Int)
	if !dealer.Valid() {
		return FullKey{}, fmt.Errorf("dealer card %d out of range", f[2].Int)
	}
	k := FullKey{
		PlayerTotal: f[0].Int,
		UsableAce:   f[1].Bool,
		DealerCard:  dealer,
		HandCount:   f[3].Int,
	}
	if f[4].Kind == qtable.KindAbsent {
		return k, nil
	}
	k.Tracked = true
	for rank, n := range f[4].Multiset {
		c := deck.Card(rank)
		if !c.Valid() {
			return FullKey{}, fmt.Errorf("composition rank %d out of range", rank)
		}
		k.Composition[c-1] = n
	}
	return k, nil
}

// CoarseKey is the reduced state used by the SARSA agent
type CoarseKey struct {
	PlayerTotal int
	UsableAce   bool
	DealerCard  deck.Card
}

// minCoarseTotal is the lowest total kept in a CoarseKey. No card can bust
// a hand at or below 11, so lower totals are folded together.
const minCoarseTotal = 12

// CoarseKeyFor builds the SARSA key for an observation
func CoarseKeyFor(obs env.Observation) CoarseKey {
	return CoarseKey{
		PlayerTotal: max(obs.PlayerTotal, minCoarseTotal),
		UsableAce:   obs.UsableAce,
		DealerCard:  obs.DealerCard,
	}
}

// Fields implements qtable.Key
func (k CoarseKey) Fields() []qtable.Field {
	return []qtable.Field{
		qtable.IntField(k.PlayerTotal),
		qtable.BoolField(k.UsableAce),
		qtable.IntField(int(k.DealerCard)),
	}
}

// CoarseKeySchema persists CoarseKey tables
var CoarseKeySchema = qtable.Schema[CoarseKey]{
	Name:  "sarsa/v1",
	Kinds: []qtable.Kind{qtable.KindInt, qtable.KindBool, qtable.KindInt},
	Decode: func(f []qtable.Field) (CoarseKey, error) {
		dealer := deck.Card(f[2].Int)
		if !dealer.Valid() {
			return CoarseKey{}, fmt.Errorf("dealer card %d out of range", f[2].Int)
		}
		return CoarseKey{PlayerTotal: f[0].Int, UsableAce: f[1].Bool, DealerCard: dealer}, nil
	},
}
