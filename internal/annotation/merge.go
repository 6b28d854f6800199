package annotation

import (
	"sort"

	"limp/internal/logger"
	"limp/internal/types"
)

// MergeTimeline 把真值中漏检的动作补进时间线，来源标记为 audio_gt。
// 视觉检测到的动作永远优先；同一区间内已有同类动作时真值条目被跳过。
func MergeTimeline(ep *types.Episode, gt *GroundTruth) int {
	if ep == nil || gt == nil {
		return 0
	}
	merged := 0
	for _, entry := range gt.ActionGT {
		if entry.Labels.Action == "" {
			continue
		}
		phase := phaseAt(ep, entry.Start)
		if phase == nil {
			continue
		}
		if hasActionInWindow(phase, entry) {
			continue
		}
		phase.Actions = append(phase.Actions, types.ActionEvent{
			Timestamp:     entry.Start,
			Player:        entry.playerHint(gt),
			Kind:          entry.Labels.Action,
			DecisionStart: entry.Start,
			Source:        types.SourceAudioGT,
			Confidence:    1.0,
		})
		sort.SliceStable(phase.Actions, func(i, j int) bool {
			return phase.Actions[i].Timestamp < phase.Actions[j].Timestamp
		})
		merged++
	}
	if merged > 0 {
		logger.Infof("annotation: merged %d commentary actions into timeline of %s", merged, ep.ID)
	}
	return merged
}

func phaseAt(ep *types.Episode, ts float64) *types.Phase {
	for i := range ep.Timeline {
		p := &ep.Timeline[i]
		if ts >= p.Start && ts <= p.End {
			return p
		}
	}
	// commentary past the last boundary still belongs to the last phase
	if n := len(ep.Timeline); n > 0 && ts > ep.Timeline[n-1].End {
		return &ep.Timeline[n-1]
	}
	return nil
}

func hasActionInWindow(phase *types.Phase, entry ActionGT) bool {
	for _, a := range phase.Actions {
		if a.Kind != entry.Labels.Action {
			continue
		}
		if a.Timestamp >= entry.Start-gtTrailingWindow && a.Timestamp <= entry.End+gtTrailingWindow {
			return true
		}
	}
	return false
}

// playerHint resolves the acting player when the segment text names
// exactly one annotated player.
func (a ActionGT) playerHint(gt *GroundTruth) string {
	var hit string
	for _, p := range gt.Facts.Players {
		if p.Name == "" {
			continue
		}
		if containsAny(a.Text, []string{p.Name}) {
			if hit != "" {
				return "" // ambiguous
			}
			hit = p.Name
		}
	}
	return hit
}
