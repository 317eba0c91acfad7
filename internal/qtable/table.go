// Package qtable stores action-value estimates keyed by typed state keys.
//
// A Table grows lazily: the first lookup of a key creates a row with every
// action valued at zero. Rows are never removed. Tables can be written to and
// read from a versioned JSON document (see Save and Load).
package qtable

import (
	"sort"

	"github.com/lox/blackjack-rl/internal/env"
)

// ActionValues holds the estimate for every action in one state
type ActionValues [env.NumActions]float64

// Best returns the highest valued action. Ties go to the first listed
// action, which is Hit.
func (v ActionValues) Best() env.Action {
	best := env.Actions[0]
	for _, a := range env.Actions[1:] {
		if v[a] > v[best] {
			best = a
		}
	}
	return best
}

// Max returns the value of the best action
func (v ActionValues) Max() float64 {
	return v[v.Best()]
}

// Table maps state keys to action values
type Table[K Key] struct {
	rows map[K]*ActionValues
}

// New creates an empty table
func New[K Key]() *Table[K] {
	return &Table[K]{rows: make(map[K]*ActionValues)}
}

// Row returns the mutable row for key, creating a zeroed one on first use
func (t *Table[K]) Row(key K) *ActionValues {
	row, ok := t.rows[key]
	if !ok {
		row = &ActionValues{}
		t.rows[key] = row
	}
	return row
}

// Value returns Q(key, action), materialising the row if needed
func (t *Table[K]) Value(key K, action env.Action) float64 {
	return t.Row(key)[action]
}

// Lookup returns a copy of the row for key without creating it
func (t *Table[K]) Lookup(key K) (ActionValues, bool) {
	row, ok := t.rows[key]
	if !ok {
		return ActionValues{}, false
	}
	return *row, true
}

// Len returns the number of materialised rows
func (t *Table[K]) Len() int {
	return len(t.rows)
}

// Keys returns every key ordered by its canonical encoding, so iteration
// order is stable between runs.
func (t *Table[K]) Keys() []K {
	type encoded struct {
		key K
		enc string
	}
	all := make([]encoded, 0, len(t.rows))
	for k := range t.rows {
		all = append(all, encoded{key: k, enc: EncodeKey(k.Fields())})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].enc < all[j].enc })

	keys := make([]K, len(all))
	for i, e := range all {
		keys[i] = e.key
	}
	return keys
}

// Range calls fn for each row in key order until fn returns false
func (t *Table[K]) Range(fn func(K, ActionValues) bool) {
	for _, k := range t.Keys() {
		if !fn(k, *t.rows[k]) {
			return
		}
	}
}
