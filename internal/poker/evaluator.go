package poker

import "sort"

// Hand categories, ascending strength.
const (
	HighCard = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// categoryNames is indexed by the constants above.
var categoryNames = []string{
	"high card", "one pair", "two pair", "three of a kind", "straight",
	"flush", "full house", "four of a kind", "straight flush",
}

// CategoryName returns a human-readable label for a category constant.
func CategoryName(cat int) string {
	if cat < 0 || cat >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[cat]
}

// HandScore 将 5 张牌的强度编码为可直接比较的整数，
// 高 4 位为牌型，低位为按重要程度排序的 kicker。
type HandScore int

// Category extracts the hand category from a score.
func (s HandScore) Category() int { return int(s) >> 20 }

// Evaluate5 scores exactly five cards. Larger scores beat smaller
// ones; equal scores split the pot.
func Evaluate5(cards [5]Card) HandScore {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank()
		if c.Suit() != cards[0].Suit() {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighRank(ranks)
	if flush && straightHigh > 0 {
		return packScore(StraightFlush, []int{straightHigh})
	}

	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}
	// Group ranks by multiplicity, then by rank, descending.
	type group struct{ count, rank int }
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{n, r})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	kickers := make([]int, 0, 5)
	for _, g := range groups {
		kickers = append(kickers, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return packScore(FourOfAKind, kickers)
	case groups[0].count == 3 && groups[1].count == 2:
		return packScore(FullHouse, kickers)
	case flush:
		return packScore(Flush, ranks)
	case straightHigh > 0:
		return packScore(Straight, []int{straightHigh})
	case groups[0].count == 3:
		return packScore(ThreeOfAKind, kickers)
	case groups[0].count == 2 && groups[1].count == 2:
		return packScore(TwoPair, kickers)
	case groups[0].count == 2:
		return packScore(OnePair, kickers)
	default:
		return packScore(HighCard, ranks)
	}
}

// straightHighRank returns the high card of a straight formed by the
// given descending unique-or-not ranks, or 0. The wheel (A-5) counts
// with high card 5.
func straightHighRank(desc []int) int {
	uniq := desc[:0:0]
	for i, r := range desc {
		if i == 0 || r != desc[i-1] {
			uniq = append(uniq, r)
		}
	}
	if len(uniq) != 5 {
		return 0
	}
	if uniq[0]-uniq[4] == 4 {
		return uniq[0]
	}
	// Ace plays low in A-5-4-3-2.
	if uniq[0] == 14 && uniq[1] == 5 && uniq[4] == 2 {
		return 5
	}
	return 0
}

// packScore folds category and kickers into one comparable int.
// Kickers use base 15 so each position cannot overflow into the next.
func packScore(category int, kickers []int) HandScore {
	v := 0
	for i := 0; i < 5; i++ {
		v *= 15
		if i < len(kickers) {
			v += kickers[i]
		}
	}
	return HandScore(category<<20 | v)
}

// choose7to5 enumerates the 21 five-card subsets of seven cards.
var choose7to5 = [][5]int{
	{0, 1, 2, 3, 4}, {0, 1, 2, 3, 5}, {0, 1, 2, 3, 6}, {0, 1, 2, 4, 5},
	{0, 1, 2, 4, 6}, {0, 1, 2, 5, 6}, {0, 1, 3, 4, 5}, {0, 1, 3, 4, 6},
	{0, 1, 3, 5, 6}, {0, 1, 4, 5, 6}, {0, 2, 3, 4, 5}, {0, 2, 3, 4, 6},
	{0, 2, 3, 5, 6}, {0, 2, 4, 5, 6}, {0, 3, 4, 5, 6}, {1, 2, 3, 4, 5},
	{1, 2, 3, 4, 6}, {1, 2, 3, 5, 6}, {1, 2, 4, 5, 6}, {1, 3, 4, 5, 6},
	{2, 3, 4, 5, 6},
}

// Evaluate7 scores the best five-card hand out of seven cards.
func Evaluate7(cards [7]Card) HandScore {
	best := HandScore(-1)
	var hand [5]Card
	for _, idx := range choose7to5 {
		for i, j := range idx {
			hand[i] = cards[j]
		}
		if s := Evaluate5(hand); s > best {
			best = s
		}
	}
	return best
}
