package deck

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Card is a blackjack rank. Suits never matter, so a card is just its value:
// 1 is an Ace and 10 covers tens and every face card.
type Card int

const (
	Ace Card = 1
	Two Card = iota + 1
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
)

// Ranks lists every distinct card value in ascending order.
var Ranks = [...]Card{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten}

// String returns the single character form of a card ("A", "2".."9", "T")
func (c Card) String() string {
	switch {
	case c == Ace:
		return "A"
	case c == Ten:
		return "T"
	case c > Ace && c < Ten:
		return strconv.Itoa(int(c))
	default:
		return "?"
	}
}

// Value returns the hard value of the card (Aces count as 1)
func (c Card) Value() int {
	return int(c)
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c == Ace
}

// Valid reports whether the card is one of the ten ranks
func (c Card) Valid() bool {
	return c >= Ace && c <= Ten
}

// ParseCard parses a single card character. J, Q and K collapse to Ten.
func ParseCard(r rune) (Card, error) {
	switch unicode.ToUpper(r) {
	case 'A', '1':
		return Ace, nil
	case 'T', 'J', 'Q', 'K':
		return Ten, nil
	}
	if r >= '2' && r <= '9' {
		return Card(r - '0'), nil
	}
	return 0, fmt.Errorf("invalid card %q", r)
}

// ParseCards parses a compact card string such as "AT5" or "a 9 k".
// Whitespace and commas are ignored.
func ParseCards(s string) ([]Card, error) {
	cards := []Card{}
	for _, r := range s {
		if unicode.IsSpace(r) || r == ',' {
			continue
		}
		c, err := ParseCard(r)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is like ParseCards but panics on error. Intended for tests.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards renders cards as a space separated list
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
