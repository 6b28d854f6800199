package annotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/types"
)

// keyword bundles mapping commentary phrases to labels.
var (
	bluffWords = []string{"bluff", "bluffing", "representing"}
	valueWords = []string{"value", "has it", "holding"}

	actionWords = []struct {
		words []string
		kind  types.ActionKind
	}{
		{[]string{"fold", "folding", "gives up"}, types.ActionFold},
		{[]string{"all in", "all-in", "shoves"}, types.ActionAllIn},
		{[]string{"raises", "raise"}, types.ActionRaise},
		{[]string{"calls", "call"}, types.ActionCall},
		{[]string{"checks", "check"}, types.ActionCheck},
	}
)

// ExtractActionGT 用关键词把转写片段转成动作级真值条目。
// 没有命中任何标签的片段被丢弃。
func ExtractActionGT(segments []Segment) []ActionGT {
	var out []ActionGT
	for _, seg := range segments {
		text := strings.ToLower(seg.Text)
		entry := ActionGT{Start: seg.Start, End: seg.End, Text: seg.Text}
		if containsAny(text, bluffWords) {
			entry.Labels.IsBluff = true
		}
		if containsAny(text, valueWords) {
			entry.Labels.IsValue = true
		}
		for _, aw := range actionWords {
			if containsAny(text, aw.words) {
				entry.Labels.Action = aw.kind
				break
			}
		}
		if !entry.Labels.Empty() {
			out = append(out, entry)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

const factTranscriptLimit = 6000

// ExtractFacts 用模型从完整转写中抽取结构化事实。
// 返回空 Facts 而不是错误，标注缺失不应中断流水线。
func ExtractFacts(ctx context.Context, p provider.ModelProvider, transcript string) Facts {
	if p == nil || !p.Enabled() || transcript == "" {
		return Facts{}
	}
	if len(transcript) > factTranscriptLimit {
		transcript = transcript[:factTranscriptLimit]
	}

	prompt := fmt.Sprintf(`Analyze this poker commentary transcript and extract ground truth facts.

Transcript:
%s

Extract and output as JSON:
{
    "players": [
        {"name": "...", "hole_cards": ["Ah", "Kd"], "position": "SB/BB"}
    ],
    "winner": "player name or null if not mentioned",
    "final_hand": "winning hand description if mentioned",
    "strategy_insights": ["any strategic comments from commentators"]
}
`, transcript)

	logger.LogLLMRequest("annotation", p.ID(), "facts", "", prompt, nil, "")
	reply, err := p.Call(ctx, provider.ChatPayload{User: prompt, ExpectJSON: true})
	if err != nil {
		logger.Warnf("annotation: fact extraction failed: %v", err)
		return Facts{}
	}
	logger.LogLLMResponse("annotation", p.ID(), "facts", reply)
	return parseFacts(reply)
}

func parseFacts(reply string) Facts {
	var facts Facts
	body := gjson.Parse(reply)
	if !body.IsObject() {
		start := strings.Index(reply, "{")
		end := strings.LastIndex(reply, "}")
		if start < 0 || end <= start {
			return facts
		}
		body = gjson.Parse(reply[start : end+1])
	}

	body.Get("players").ForEach(func(_, v gjson.Result) bool {
		fact := PlayerFact{
			Name:     v.Get("name").String(),
			Position: v.Get("position").String(),
		}
		v.Get("hole_cards").ForEach(func(_, c gjson.Result) bool {
			fact.HoleCards = append(fact.HoleCards, c.String())
			return true
		})
		if fact.Name != "" {
			facts.Players = append(facts.Players, fact)
		}
		return true
	})
	if w := body.Get("winner"); w.Type == gjson.String {
		facts.Winner = w.String()
	}
	facts.FinalHand = body.Get("final_hand").String()
	body.Get("strategy_insights").ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			facts.StrategyInsights = append(facts.StrategyInsights, s)
		}
		return true
	})
	return facts
}
