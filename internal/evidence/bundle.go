package evidence

import (
	"fmt"
	"strings"

	"limp/internal/types"
)

// Bundle 汇集回答单个问题可用的全部证据，字段均可缺失；
// 各 agent 自行决定哪些字段是它的硬依赖。
type Bundle struct {
	Question *types.QAItem
	Episode  *types.Episode

	// Behavior 是行为主体（题目聚焦的玩家）的窗口行为摘要。
	Behavior *types.BehaviorSummary
	// ActionSequence 到目前为止该玩家的动作序列。
	ActionSequence []types.ActionRef
	// DecisionTime 聚焦动作的决策耗时（秒），0 表示未知。
	DecisionTime float64
	// Equity 蒙特卡洛胜率。零值表示牌面不可见（没算过），
	// StatusFailed 表示模拟尝试过但失败。
	Equity ScalarEstimate
	// Transcript 语音转写内容（若有）。
	Transcript string

	// BoardTexture 牌面质地（wet/dry），翻牌前为空。
	BoardTexture string
	// ActionStyle 动作序列的整体风格。
	ActionStyle string
	// BetSizeCategory 聚焦动作相对底池的下注档位。
	BetSizeCategory string
}

// FromQuestion pulls the evidence a question carries in its own
// context. Equity and transcript are filled separately by the caller.
func FromQuestion(q *types.QAItem, ep *types.Episode) *Bundle {
	b := &Bundle{Question: q, Episode: ep}
	if q == nil {
		return b
	}
	b.ActionSequence = q.Context.ActionSequence
	b.DecisionTime = q.Context.DecisionTime
	b.BoardTexture = BoardTexture(q.Context.Board)
	b.ActionStyle = ActionStyle(q.Context.ActionSequence)
	b.BetSizeCategory = SizeUnknown
	if q.Context.Action != nil {
		if b.ActionStyle == StyleUnknown {
			b.ActionStyle = ActionStyle([]types.ActionRef{*q.Context.Action})
		}
		if q.Context.Pot != nil {
			b.BetSizeCategory = BetSizeCategory(q.Context.Action.Amount, *q.Context.Pot)
		}
		for _, sum := range q.Context.Behavior {
			if sum != nil {
				b.Behavior = sum
				break
			}
		}
		if sum, ok := q.Context.Behavior[q.Context.Action.Player]; ok {
			b.Behavior = sum
		}
	}
	return b
}

// OptionKeys returns the option keys of the underlying question in
// declaration order, or the default A..E set when absent.
func (b *Bundle) OptionKeys() []string {
	if b.Question != nil && len(b.Question.Options) > 0 {
		return b.Question.OptionKeySet()
	}
	return types.OptionKeys
}

// OptionText returns the text of the option with the given key.
func (b *Bundle) OptionText(key string) string {
	if b.Question == nil {
		return ""
	}
	for _, o := range b.Question.Options {
		if o.Key == key {
			return o.Text
		}
	}
	return ""
}

// Describe renders a compact textual account of the evidence for
// prompting language models.
func (b *Bundle) Describe() string {
	var parts []string
	if b.Question != nil {
		if b.Question.Context.Phase != "" {
			parts = append(parts, fmt.Sprintf("phase=%s", b.Question.Context.Phase))
		}
		if len(b.Question.Context.Board) > 0 {
			parts = append(parts, fmt.Sprintf("board=%s", strings.Join(b.Question.Context.Board, " ")))
		}
		if b.BoardTexture != "" {
			parts = append(parts, "board_texture="+b.BoardTexture)
		}
		if b.Question.Context.Pot != nil {
			parts = append(parts, fmt.Sprintf("pot=%.0f", *b.Question.Context.Pot))
		}
		if a := b.Question.Context.Action; a != nil {
			parts = append(parts, fmt.Sprintf("action=%s %s %.0f", a.Player, a.Kind, a.Amount))
		}
		if b.ActionStyle != "" && b.ActionStyle != StyleUnknown {
			parts = append(parts, "action_style="+b.ActionStyle)
		}
		if b.BetSizeCategory != "" && b.BetSizeCategory != SizeUnknown {
			parts = append(parts, "bet_size="+b.BetSizeCategory)
		}
	}
	if len(b.ActionSequence) > 0 {
		seq := make([]string, 0, len(b.ActionSequence))
		for _, a := range b.ActionSequence {
			seq = append(seq, fmt.Sprintf("%s(%.0f)", a.Kind, a.Amount))
		}
		parts = append(parts, "sequence="+strings.Join(seq, ","))
	}
	switch {
	case b.Equity.OK():
		parts = append(parts, fmt.Sprintf("equity=%.3f", b.Equity.Value))
	case b.Equity.Status == StatusFailed:
		parts = append(parts, "equity=failed")
	}
	if b.DecisionTime > 0 {
		parts = append(parts, fmt.Sprintf("decision_time=%.1fs", b.DecisionTime))
	}
	if b.Behavior != nil {
		bs := b.Behavior
		parts = append(parts, fmt.Sprintf("posture=%s fidgeting=%v emotion=%s",
			bs.DominantPosture, bs.FidgetingDetected, bs.DominantEmotion))
	}
	if b.Transcript != "" {
		parts = append(parts, "transcript="+b.Transcript)
	}
	return strings.Join(parts, "; ")
}
