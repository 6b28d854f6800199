package dataset

import (
	"fmt"

	"limp/internal/poker"
	"limp/internal/types"
)

// template 一道题的题干和未标注答案的选项。
type template struct {
	Question string
	Type     types.QuestionType
	Options  []types.QAOption
}

func actionDesc(kind types.ActionKind, amount float64) string {
	desc := string(kind)
	if amount > 0 {
		desc += " " + poker.FormatAmount(amount)
	}
	return desc
}

// intentTemplate 动作意图三选题：诈唬 / 价值 / 控池。
func intentTemplate(player string, kind types.ActionKind, amount float64) template {
	desc := actionDesc(kind, amount)
	return template{
		Question: fmt.Sprintf("%s 的这次 %s 最可能的意图是什么？", player, desc),
		Type:     types.TypeIntent,
		Options: []types.QAOption{
			{Key: "A", Text: fmt.Sprintf("Bluff（诈唬）- %s 试图通过激进下注逼对手弃牌，手牌可能较弱", player)},
			{Key: "B", Text: fmt.Sprintf("Value（价值）- %s 认为自己领先，希望对手跟注以获取更多价值", player)},
			{Key: "C", Text: fmt.Sprintf("Control（控池）- %s 试图控制底池大小，保持灵活性", player)},
		},
	}
}

// bluffTemplate 是否诈唬二选题。
func bluffTemplate(player string, kind types.ActionKind, amount float64) template {
	desc := actionDesc(kind, amount)
	return template{
		Question: fmt.Sprintf("%s 的这次 %s 是否是诈唬（Bluff）？", player, desc),
		Type:     types.TypeBinary,
		Options: []types.QAOption{
			{Key: "A", Text: fmt.Sprintf("是 - %s 正在诈唬，手牌实力可能不如表现出的那么强", player)},
			{Key: "B", Text: fmt.Sprintf("否 - %s 不是在诈唬，这是基于手牌实力的正常下注", player)},
		},
	}
}

// strategyTemplate 阶段整体策略三选题。
func strategyTemplate(player string, phase types.PhaseKind) template {
	return template{
		Question: fmt.Sprintf("在 %s 阶段，%s 的整体策略最可能是什么？", phase, player),
		Type:     types.TypeIntent,
		Options: []types.QAOption{
			{Key: "A", Text: fmt.Sprintf("激进诈唬策略 - %s 利用位置或牌面优势施加压力，试图逼对手弃牌", player)},
			{Key: "B", Text: fmt.Sprintf("价值导向策略 - %s 认为自己领先，逐步建立底池以最大化收益", player)},
			{Key: "C", Text: fmt.Sprintf("控池防守策略 - %s 保持谨慎，控制底池大小以保持灵活性", player)},
		},
	}
}

// advantageTemplate 阶段结束时局面优势三选题。
func advantageTemplate(playerA, playerB string, phase types.PhaseKind) template {
	return template{
		Question: fmt.Sprintf("在 %s 阶段结束时，哪位玩家的处境更有利？", phase),
		Type:     types.TypeIntent,
		Options: []types.QAOption{
			{Key: "A", Text: fmt.Sprintf("%s - 基于牌面和行动，%s 更可能占据优势", playerA, playerA)},
			{Key: "B", Text: fmt.Sprintf("%s - 基于牌面和行动，%s 更可能占据优势", playerB, playerB)},
			{Key: "C", Text: "势均力敌 - 双方优势接近，局势尚不明朗"},
		},
	}
}

// secondOrderTemplate 二阶信念三选题：A 认为 B 怎么看自己的牌力。
func secondOrderTemplate(playerA, playerB string) template {
	return template{
		Question: fmt.Sprintf("%s 认为 %s 对自己手牌实力的判断是什么？", playerA, playerB),
		Type:     types.TypeSecondOrder,
		Options: []types.QAOption{
			{Key: "A", Text: fmt.Sprintf("%s 认为 %s 觉得自己手牌很强", playerA, playerB)},
			{Key: "B", Text: fmt.Sprintf("%s 认为 %s 觉得自己手牌较弱", playerA, playerB)},
			{Key: "C", Text: fmt.Sprintf("%s 认为 %s 对自己的手牌实力不确定", playerA, playerB)},
		},
	}
}

// markCorrect sets is_correct on the option matching the answer key.
func (t template) markCorrect(answer string) []types.QAOption {
	opts := make([]types.QAOption, len(t.Options))
	copy(opts, t.Options)
	for i := range opts {
		opts[i].Correct = opts[i].Key == answer
	}
	return opts
}
