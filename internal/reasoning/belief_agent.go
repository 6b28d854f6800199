package reasoning

import (
	"context"
	"fmt"
	"strings"

	"limp/internal/evidence"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
)

// BeliefAgent 让语言模型推断行动者对对手手牌范围的信念，并据此
// 打分。没有可用模型时该 agent 整体缺席。
type BeliefAgent struct {
	provider provider.ModelProvider
}

func NewBeliefAgent(p provider.ModelProvider) *BeliefAgent {
	return &BeliefAgent{provider: p}
}

func (a *BeliefAgent) Name() string { return "belief" }

func (a *BeliefAgent) Assess(ctx context.Context, b *evidence.Bundle, keys []string) evidence.Estimate {
	if b == nil || b.Question == nil {
		return evidence.Unavailable()
	}
	if a.provider == nil || !a.provider.Enabled() {
		return evidence.Unavailable()
	}
	prompt := a.buildPrompt(b, keys)
	logger.LogLLMRequest("reasoning", a.provider.ID(), "belief", "", prompt, nil, "")
	raw, err := a.provider.Call(ctx, provider.ChatPayload{
		User:       prompt,
		ExpectJSON: true,
	})
	if err != nil {
		return evidence.Failed(fmt.Errorf("belief model call: %w", err))
	}
	logger.LogLLMResponse("reasoning", a.provider.ID(), "belief", raw)
	parsed, err := parseLLMScores(raw, keys)
	if err != nil {
		return evidence.Failed(fmt.Errorf("belief model output: %w", err))
	}
	return evidence.Value(Normalize(parsed.Scores, keys))
}

func (a *BeliefAgent) buildPrompt(b *evidence.Bundle, keys []string) string {
	q := b.Question
	var sb strings.Builder
	sb.WriteString("You are analyzing a poker player's beliefs in a Theory of Mind reasoning task.\n\n")
	sb.WriteString("Current Situation:\n")
	fmt.Fprintf(&sb, "- Phase: %s\n", orUnknown(string(q.Context.Phase)))
	fmt.Fprintf(&sb, "- Board: %s\n", boardDesc(q.Context.Board))
	if b.BoardTexture != "" {
		fmt.Fprintf(&sb, "- Board Texture: %s\n", b.BoardTexture)
	}
	if q.Context.Pot != nil {
		fmt.Fprintf(&sb, "- Pot: $%.0f\n", *q.Context.Pot)
	}
	if act := q.Context.Action; act != nil {
		fmt.Fprintf(&sb, "- Current Action: %s did %s $%.0f\n", act.Player, act.Kind, act.Amount)
	}
	if b.BetSizeCategory != "" && b.BetSizeCategory != evidence.SizeUnknown {
		fmt.Fprintf(&sb, "- Bet Size: %s relative to the pot\n", b.BetSizeCategory)
	}
	sb.WriteString("\nAction History:\n")
	if len(b.ActionSequence) == 0 {
		sb.WriteString("No previous actions\n")
	} else {
		for _, act := range b.ActionSequence {
			fmt.Fprintf(&sb, "- %s: %s $%.0f\n", act.Player, act.Kind, act.Amount)
		}
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n\nOptions:\n", q.Question)
	for _, o := range q.Options {
		fmt.Fprintf(&sb, "%s) %s\n", o.Key, o.Text)
	}
	sb.WriteString("\nBased on the betting patterns and game state, analyze what the acting player likely believes about their opponent's hand range. Then score each option based on how consistent it is with the player's likely beliefs.\n\n")
	sb.WriteString("Output JSON:\n{\n")
	sb.WriteString("    \"belief_analysis\": \"Brief analysis of what the player likely believes\",\n")
	fmt.Fprintf(&sb, "    \"option_scores\": {%s},\n", scoreKeysHint(keys))
	sb.WriteString("    \"confidence\": 0.0-1.0\n}\n\n")
	sb.WriteString("Note: Scores should sum to approximately 1.0.")
	return sb.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func boardDesc(board []string) string {
	if len(board) == 0 {
		return "No community cards yet"
	}
	return strings.Join(board, ", ")
}

func scoreKeysHint(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("\"%s\": 0.0-1.0", k))
	}
	return strings.Join(parts, ", ")
}
