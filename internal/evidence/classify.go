package evidence

import (
	"sort"

	"limp/internal/poker"
	"limp/internal/types"
)

// 牌面质地、动作风格和下注比例的分桶标签。
const (
	TextureWet = "wet"
	TextureDry = "dry"

	StyleAggressive = "aggressive"
	StylePassive    = "passive"
	StyleUnknown    = "unknown"

	SizeSmall   = "small"
	SizeMedium  = "medium"
	SizeLarge   = "large"
	SizeUnknown = "unknown"
)

// BoardTexture 把公共牌面分为湿/干：出现同花听牌（同一花色至少两张）
// 或相邻牌间距不超过 2 的对子出现两次以上即为湿面。空牌面返回空串。
func BoardTexture(board []string) string {
	cards, _ := poker.ParseCards(board)
	if len(cards) == 0 {
		return ""
	}
	var suitCount [4]int
	ranks := make([]int, 0, len(cards))
	for _, c := range cards {
		suitCount[c.Suit()]++
		ranks = append(ranks, c.Rank())
	}
	sort.Ints(ranks)
	flushDraw := false
	for _, n := range suitCount {
		if n >= 2 {
			flushDraw = true
		}
	}
	connected := 0
	for i := 1; i < len(ranks); i++ {
		if ranks[i]-ranks[i-1] <= 2 {
			connected++
		}
	}
	if flushDraw || connected >= 2 {
		return TextureWet
	}
	return TextureDry
}

// ActionStyle 从动作序列归纳风格：出现过下注/加注/全下即激进，
// 只见过过牌/跟注算保守，其余情况未知。
func ActionStyle(seq []types.ActionRef) string {
	passive := false
	for _, a := range seq {
		switch a.Kind {
		case types.ActionBet, types.ActionRaise, types.ActionAllIn:
			return StyleAggressive
		case types.ActionCheck, types.ActionCall:
			passive = true
		}
	}
	if passive {
		return StylePassive
	}
	return StyleUnknown
}

// BetSizeCategory 按下注额与底池的比例分桶：不足三分之一为小注，
// 不足三分之二为中注，其余为大注。
func BetSizeCategory(amount, pot float64) string {
	if amount <= 0 || pot <= 0 {
		return SizeUnknown
	}
	ratio := amount / pot
	switch {
	case ratio < 0.33:
		return SizeSmall
	case ratio < 0.66:
		return SizeMedium
	default:
		return SizeLarge
	}
}
