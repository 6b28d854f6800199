package reasoning

import (
	"context"

	"limp/internal/evidence"
	"limp/internal/logger"
	"limp/internal/types"
)

// 行为指征表。命中一项加 0.15，小动作和状态切换再单独加分。
var bluffIndicators = map[string][]string{
	"posture": {"Leaning back", "Neutral"},
	"hands":   {"Playing with chips", "Touching face"},
	"gaze":    {"Looking away", "Looking down"},
	"emotion": {"Tense", "Uncertain"},
}

var valueIndicators = map[string][]string{
	"posture": {"Leaning forward"},
	"hands":   {"On table", "Folded"},
	"gaze":    {"Staring at opponent", "Looking at board"},
	"emotion": {"Confident", "Neutral"},
}

// PostureAgent 从体态/微表情摘要推断下注意图。纯规则，无外部调用。
type PostureAgent struct {
	// SlowThink/FastAct 决策时长的慢/快阈值（秒）。
	SlowThink float64
	FastAct   float64
}

// NewPostureAgent returns the agent with the given decision-time
// thresholds; non-positive values take the conventional 10s/2s split.
func NewPostureAgent(slow, fast float64) *PostureAgent {
	if slow <= 0 {
		slow = 10
	}
	if fast <= 0 {
		fast = 2
	}
	return &PostureAgent{SlowThink: slow, FastAct: fast}
}

func (a *PostureAgent) Name() string { return "posture" }

func (a *PostureAgent) Assess(_ context.Context, b *evidence.Bundle, keys []string) evidence.Estimate {
	if b == nil || b.Question == nil {
		return evidence.Unavailable()
	}
	if b.Behavior == nil && b.DecisionTime <= 0 {
		return evidence.Unavailable()
	}

	bluff, value := 0.0, 0.0
	if sum := b.Behavior; sum != nil {
		dims := map[string]string{
			"posture": sum.DominantPosture,
			"hands":   sum.DominantHands,
			"gaze":    sum.DominantGaze,
			"emotion": sum.DominantEmotion,
		}
		for dim, val := range dims {
			if contains(bluffIndicators[dim], val) {
				bluff += 0.15
			}
			if contains(valueIndicators[dim], val) {
				value += 0.15
			}
		}
		// Fidgeting is the classic nervousness tell.
		if sum.FidgetingDetected {
			bluff += 0.2
		}
		if sum.PostureChanged || sum.EmotionChanged {
			bluff += 0.1
		}
	}
	if b.DecisionTime > a.SlowThink {
		// Long tanks lean toward acting.
		bluff += 0.1
	} else if b.DecisionTime > 0 && b.DecisionTime < a.FastAct {
		value += 0.1
	}

	scores := make(map[string]float64, len(keys))
	switch b.Question.Type {
	case types.TypeIntent:
		for _, k := range keys {
			scores[k] = 0.33
		}
		scores["A"] = 0.33 + bluff
		scores["B"] = 0.33 + value
		if _, ok := scores["C"]; ok {
			scores["C"] = 0.33 + (1-bluff-value)*0.3
		}
	case types.TypeBinary:
		total := bluff + value + 0.01
		scores["A"] = bluff / total
		scores["B"] = value / total
	default:
		return evidence.Unavailable()
	}
	logger.Debugf("posture agent: bluff=%.2f value=%.2f", bluff, value)
	return evidence.Value(Normalize(scores, keys))
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
