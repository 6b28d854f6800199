package poker

import (
	"fmt"
	"strings"
)

// Card 以 0..51 编码一张牌，rank*4+suit。
type Card uint8

const deckSize = 52

// Rank returns 2..14 where 14 is the ace.
func (c Card) Rank() int { return int(c)/4 + 2 }

// Suit returns 0..3 in the order clubs, diamonds, hearts, spades.
func (c Card) Suit() int { return int(c) % 4 }

var rankRunes = "23456789TJQKA"
var suitRunes = "cdhs"

func (c Card) String() string {
	if int(c) >= deckSize {
		return "??"
	}
	return string(rankRunes[c.Rank()-2]) + string(suitRunes[c.Suit()])
}

// suitSymbols maps on-screen suit glyphs to letter suits.
var suitSymbols = map[rune]rune{
	'♣': 'c', '♦': 'd', '♥': 'h', '♠': 's',
	'c': 'c', 'd': 'd', 'h': 'h', 's': 's',
	'C': 'c', 'D': 'd', 'H': 'h', 'S': 's',
}

// NormalizeCard canonicalizes an on-screen card label to rank+suit
// letters ("10♥" -> "Th"). Hidden cards ("??", "") normalize to "??".
func NormalizeCard(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "?") {
		return "??"
	}
	s = strings.ReplaceAll(s, "10", "T")
	runes := []rune(s)
	if len(runes) != 2 {
		return "??"
	}
	rank := runes[0]
	if rank >= 'a' && rank <= 'z' {
		rank = rank - 'a' + 'A'
	}
	suit, ok := suitSymbols[runes[1]]
	if !ok {
		return "??"
	}
	return string(rank) + string(suit)
}

// ParseCard parses a canonical or on-screen card label. The second
// return is false for hidden or unreadable cards.
func ParseCard(raw string) (Card, bool) {
	s := NormalizeCard(raw)
	if s == "??" {
		return 0, false
	}
	rank := strings.IndexByte(rankRunes, s[0])
	suit := strings.IndexByte(suitRunes, s[1])
	if rank < 0 || suit < 0 {
		return 0, false
	}
	return Card(rank*4 + suit), true
}

// MustParseCard panics on unparseable input; test helper territory.
func MustParseCard(raw string) Card {
	c, ok := ParseCard(raw)
	if !ok {
		panic(fmt.Sprintf("bad card: %q", raw))
	}
	return c
}

// ParseCards parses a list of labels, counting hidden entries instead
// of failing on them.
func ParseCards(raw []string) (known []Card, hidden int) {
	for _, r := range raw {
		if c, ok := ParseCard(r); ok {
			known = append(known, c)
		} else {
			hidden++
		}
	}
	return known, hidden
}

// Deck returns all 52 cards excluding the given ones.
func Deck(exclude []Card) []Card {
	used := make(map[Card]bool, len(exclude))
	for _, c := range exclude {
		used[c] = true
	}
	out := make([]Card, 0, deckSize-len(exclude))
	for i := 0; i < deckSize; i++ {
		if !used[Card(i)] {
			out = append(out, Card(i))
		}
	}
	return out
}
