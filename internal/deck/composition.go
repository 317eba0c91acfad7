package deck

import (
	"fmt"
	"strings"
)

// Composition is the number of remaining cards per rank, indexed by rank-1.
// It is a value type so it can be compared and used inside map keys.
type Composition [10]int

// FullComposition returns the composition of an untouched deck
func FullComposition() Composition {
	var c Composition
	for _, r := range Ranks {
		c[r-1] = 4
	}
	c[Ten-1] = 16
	return c
}

// Count returns the number of remaining cards of the given rank
func (c Composition) Count(card Card) int {
	if !card.Valid() {
		return 0
	}
	return c[card-1]
}

// Total returns the number of cards in the composition
func (c Composition) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// String renders the composition as "A:4 2:3 ..." skipping empty ranks
func (c Composition) String() string {
	var parts []string
	for _, r := range Ranks {
		if n := c.Count(r); n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", r, n))
		}
	}
	return strings.Join(parts, " ")
}
