package perception

import "limp/internal/types"

// fidgetHands 中出现的手部状态视为小动作（紧张信号）。
var fidgetHands = map[string]bool{
	"Playing with chips": true,
	"Touching face":      true,
}

// SummarizeBehavior aggregates one player's behavioral cues over a
// decision window. Returns nil when the window holds no cues for the
// player at all.
func SummarizeBehavior(window []types.FrameState, player string) *types.BehaviorSummary {
	var postures, hands, gazes, emotions []string
	frames := 0
	for i := range window {
		p := window[i].Player(player)
		if p == nil || p.Cues.Empty() {
			continue
		}
		frames++
		if p.Cues.Posture != "" {
			postures = append(postures, p.Cues.Posture)
		}
		if p.Cues.Hands != "" {
			hands = append(hands, p.Cues.Hands)
		}
		if p.Cues.Gaze != "" {
			gazes = append(gazes, p.Cues.Gaze)
		}
		if p.Cues.Emotion != "" {
			emotions = append(emotions, p.Cues.Emotion)
		}
	}
	if frames == 0 {
		return nil
	}
	sum := &types.BehaviorSummary{FrameCount: frames}
	sum.DominantPosture, sum.PostureChanged = dominantAndChanged(postures)
	sum.DominantHands, _ = dominantAndChanged(hands)
	sum.DominantGaze, sum.GazeChanged = dominantAndChanged(gazes)
	sum.DominantEmotion, sum.EmotionChanged = dominantAndChanged(emotions)
	for _, h := range hands {
		if fidgetHands[h] {
			sum.FidgetingDetected = true
			break
		}
	}
	return sum
}

// dominantAndChanged returns the most frequent value and whether more
// than one distinct value was seen. Ties go to the earliest value.
func dominantAndChanged(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, len(order) > 1
}
