package deck

import (
	rand "math/rand/v2"
)

// Size is the number of cards in a fresh deck
const Size = 52

// Deck is a single 52 card shoe. Cards are drawn from the end of the slice;
// once empty the deck regenerates and reshuffles itself.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a freshly shuffled deck using the supplied random source
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, Size),
		rng:   rng,
	}
	d.Reset()
	return d
}

// Reset restores the deck to a full 52 cards and shuffles it
func (d *Deck) Reset() {
	d.cards = d.cards[:0] // keep capacity
	for i := 0; i < 4; i++ {
		for _, r := range Ranks {
			d.cards = append(d.cards, r)
		}
		// J, Q and K
		d.cards = append(d.cards, Ten, Ten, Ten)
	}
	d.Shuffle()
}

// Shuffle randomizes the order of the remaining cards
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the next card. If the deck was empty it is
// rebuilt first and reshuffled reports true.
func (d *Deck) Draw() (card Card, reshuffled bool) {
	if len(d.cards) == 0 {
		d.Reset()
		reshuffled = true
	}
	last := len(d.cards) - 1
	card = d.cards[last]
	d.cards = d.cards[:last]
	return card, reshuffled
}

// Remaining returns the number of cards left before the next reshuffle
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Composition counts the remaining cards per rank
func (d *Deck) Composition() Composition {
	var c Composition
	for _, card := range d.cards {
		c[card-1]++
	}
	return c
}

// Stack replaces the remaining cards so that the given cards are drawn in
// order. Used to script deals in tests.
func (d *Deck) Stack(cards ...Card) {
	d.cards = d.cards[:0]
	for i := len(cards) - 1; i >= 0; i-- {
		d.cards = append(d.cards, cards[i])
	}
}
