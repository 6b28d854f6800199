package reasoning

import (
	"context"
	"fmt"
	"strings"

	"limp/internal/evidence"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/types"
)

// SocialAgent 推断行动者的社交/策略目标（诈唬、价值、控池、慢打）。
// 有模型时走 LLM 叙事一致性评估；没有或失败时退化为序列反演：
// 逐动作累计对数似然再 softmax。
type SocialAgent struct {
	provider provider.ModelProvider
}

func NewSocialAgent(p provider.ModelProvider) *SocialAgent {
	return &SocialAgent{provider: p}
}

func (a *SocialAgent) Name() string { return "social" }

func (a *SocialAgent) Assess(ctx context.Context, b *evidence.Bundle, keys []string) evidence.Estimate {
	if b == nil || b.Question == nil {
		return evidence.Unavailable()
	}
	if a.provider != nil && a.provider.Enabled() {
		if est, ok := a.assessWithModel(ctx, b, keys); ok {
			return est
		}
		// Model path failed; the action sequence still carries signal.
	}
	return a.assessFromSequence(b, keys)
}

func (a *SocialAgent) assessWithModel(ctx context.Context, b *evidence.Bundle, keys []string) (evidence.Estimate, bool) {
	prompt := a.buildPrompt(b)
	logger.LogLLMRequest("reasoning", a.provider.ID(), "social", "", prompt, nil, "")
	raw, err := a.provider.Call(ctx, provider.ChatPayload{User: prompt, ExpectJSON: true})
	if err != nil {
		logger.Warnf("social agent model call failed, falling back to sequence scoring: %v", err)
		return evidence.Estimate{}, false
	}
	logger.LogLLMResponse("reasoning", a.provider.ID(), "social", raw)
	parsed, err := parseLLMScores(raw, keys)
	if err != nil {
		logger.Warnf("social agent output unusable, falling back to sequence scoring: %v", err)
		return evidence.Estimate{}, false
	}
	return evidence.Value(Normalize(parsed.Scores, keys)), true
}

// assessFromSequence scores a betting line by how consistent each
// hypothesis is with it. Passive actions are inconsistent with a
// bluff (bluffs usually keep betting) and mildly consistent with a
// trapping value hand.
func (a *SocialAgent) assessFromSequence(b *evidence.Bundle, keys []string) evidence.Estimate {
	if len(b.ActionSequence) == 0 {
		return evidence.Unavailable()
	}
	logits := make(map[string]float64, len(keys))
	for _, act := range b.ActionSequence {
		if act.Kind.Passive() {
			logits["A"] -= 1.0
			logits["B"] += 0.5
		}
	}
	return evidence.Value(Softmax(logits, keys))
}

func (a *SocialAgent) buildPrompt(b *evidence.Bundle) string {
	q := b.Question
	var sb strings.Builder
	sb.WriteString("You are an expert poker analyst determining a player's strategic intent.\n\n")
	sb.WriteString("Social Goal Categories:\n")
	sb.WriteString("- BLUFF: Player is representing a stronger hand than they have, trying to make opponent fold\n")
	sb.WriteString("- VALUE: Player believes they have the best hand and wants to extract value\n")
	sb.WriteString("- CONTROL: Player is managing pot size, not committing too much\n")
	sb.WriteString("- TRAP: Player is slowplaying a strong hand to induce action\n\n")
	sb.WriteString("Game State:\n")
	fmt.Fprintf(&sb, "- Phase: %s\n", orUnknown(string(q.Context.Phase)))
	fmt.Fprintf(&sb, "- Board: %s\n", boardDesc(q.Context.Board))
	if b.BoardTexture != "" {
		fmt.Fprintf(&sb, "- Board Texture: %s\n", b.BoardTexture)
	}
	if q.Context.Pot != nil {
		fmt.Fprintf(&sb, "- Pot: $%.0f\n", *q.Context.Pot)
	}
	if act := q.Context.Action; act != nil {
		fmt.Fprintf(&sb, "- Action: %s %s $%.0f\n", act.Player, act.Kind, act.Amount)
	}
	if b.ActionStyle != "" && b.ActionStyle != evidence.StyleUnknown {
		fmt.Fprintf(&sb, "- Action Style: %s\n", b.ActionStyle)
	}
	if b.BetSizeCategory != "" && b.BetSizeCategory != evidence.SizeUnknown {
		fmt.Fprintf(&sb, "- Bet Size: %s relative to the pot\n", b.BetSizeCategory)
	}
	if len(q.Context.VisibleCards) > 0 {
		sb.WriteString("\nKnown hole cards:\n")
		for player, cards := range q.Context.VisibleCards {
			fmt.Fprintf(&sb, "- %s: %s\n", player, strings.Join(cards, ", "))
		}
	}
	sb.WriteString("\nBehavioral Observations:\n")
	sb.WriteString(behaviorDesc(b.Behavior))
	if b.DecisionTime > 0 {
		fmt.Fprintf(&sb, "\nDecision time: %.1f seconds", b.DecisionTime)
	}
	fmt.Fprintf(&sb, "\n\nQuestion: %s\n\nOptions:\n", q.Question)
	for _, o := range q.Options {
		fmt.Fprintf(&sb, "%s) %s\n", o.Key, o.Text)
	}
	sb.WriteString("\nAnalyze the betting line, bet sizing relative to pot, and behavioral cues to determine the most likely social goal. Consider:\n")
	sb.WriteString("1. Is the bet size consistent with value or a bluff?\n")
	sb.WriteString("2. Does the betting line tell a coherent story?\n")
	sb.WriteString("3. Do behavioral cues match the stated action?\n\n")
	sb.WriteString("Output JSON:\n{\n")
	sb.WriteString("    \"inferred_social_goal\": \"bluff|value|control|trap\",\n")
	sb.WriteString("    \"reasoning\": \"Brief explanation of your analysis\",\n")
	fmt.Fprintf(&sb, "    \"option_scores\": {%s},\n", scoreKeysHint(b.OptionKeys()))
	sb.WriteString("    \"confidence\": 0.0-1.0\n}\n\n")
	sb.WriteString("Scores should sum to approximately 1.0.")
	return sb.String()
}

func behaviorDesc(sum *types.BehaviorSummary) string {
	if sum == nil {
		return "No behavioral data available"
	}
	var parts []string
	if sum.DominantPosture != "" {
		parts = append(parts, "Posture: "+sum.DominantPosture)
	}
	if sum.DominantEmotion != "" {
		parts = append(parts, "Emotion: "+sum.DominantEmotion)
	}
	if sum.FidgetingDetected {
		parts = append(parts, "Fidgeting detected")
	}
	if len(parts) == 0 {
		return "No behavioral data available"
	}
	return strings.Join(parts, ", ")
}
