package poker

import (
	"fmt"
	"math/rand"

	"limp/internal/logger"
)

// EquitySimulator 用蒙特卡洛模拟估计底牌对抗随机范围的胜率。
type EquitySimulator struct {
	iterations int
	rng        *rand.Rand
}

// NewEquitySimulator returns a simulator. A zero seed picks a fixed
// default so repeated runs over the same episode agree.
func NewEquitySimulator(iterations int, seed int64) *EquitySimulator {
	if iterations <= 0 {
		iterations = 10000
	}
	if seed == 0 {
		seed = 1
	}
	return &EquitySimulator{
		iterations: iterations,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Equity estimates the probability that the hero's hand wins at
// showdown against one opponent holding random cards. Hidden hero
// cards and missing board cards are filled from the remaining deck
// each iteration. Ties count as half a win.
func (s *EquitySimulator) Equity(heroCards, board []string) (float64, error) {
	hero, heroHidden := ParseCards(heroCards)
	if len(hero) > 2 {
		return 0, fmt.Errorf("hero holds %d cards, expected at most 2", len(hero))
	}
	heroNeed := 2 - len(hero)
	if heroHidden > heroNeed {
		heroHidden = heroNeed
	}
	community, _ := ParseCards(board)
	if len(community) > 5 {
		return 0, fmt.Errorf("board holds %d cards, expected at most 5", len(community))
	}
	boardNeed := 5 - len(community)

	known := append(append([]Card(nil), hero...), community...)
	stock := Deck(known)
	need := heroNeed + boardNeed + 2
	if len(stock) < need {
		return 0, fmt.Errorf("deck exhausted: need %d cards, %d left", need, len(stock))
	}

	wins := 0.0
	var heroHand, villainHand [7]Card
	for it := 0; it < s.iterations; it++ {
		s.rng.Shuffle(len(stock), func(i, j int) {
			stock[i], stock[j] = stock[j], stock[i]
		})
		draw := stock[:need]
		k := 0
		for i := 0; i < 2; i++ {
			if i < len(hero) {
				heroHand[i] = hero[i]
			} else {
				heroHand[i] = draw[k]
				k++
			}
		}
		villainHand[0] = draw[k]
		villainHand[1] = draw[k+1]
		k += 2
		for i := 0; i < 5; i++ {
			var c Card
			if i < len(community) {
				c = community[i]
			} else {
				c = draw[k]
				k++
			}
			heroHand[i+2] = c
			villainHand[i+2] = c
		}
		hs := Evaluate7(heroHand)
		vs := Evaluate7(villainHand)
		switch {
		case hs > vs:
			wins++
		case hs == vs:
			wins += 0.5
		}
	}
	eq := wins / float64(s.iterations)
	logger.Debugf("equity: hero=%v board=%v -> %.3f (%d iters)", heroCards, board, eq, s.iterations)
	return eq, nil
}
