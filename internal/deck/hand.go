package deck

// Blackjack is the best possible hand value
const Blackjack = 21

// Hand is an ordered set of cards held by the player or the dealer
type Hand []Card

// Value returns the best total of the hand and whether an Ace is counted
// as 11. At most one Ace can ever be soft.
func (h Hand) Value() (total int, usableAce bool) {
	hasAce := false
	for _, c := range h {
		total += c.Value()
		if c.IsAce() {
			hasAce = true
		}
	}
	if hasAce && total+10 <= Blackjack {
		return total + 10, true
	}
	return total, false
}

// Total returns the soft-adjusted value of the hand
func (h Hand) Total() int {
	total, _ := h.Value()
	return total
}

// IsBust returns true if the hand exceeds 21
func (h Hand) IsBust() bool {
	return h.Total() > Blackjack
}

// IsNatural returns true for a two card 21
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Total() == Blackjack
}

// Clone returns a copy that does not share storage with h
func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// String renders the hand as a space separated card list
func (h Hand) String() string {
	return FormatCards(h)
}
