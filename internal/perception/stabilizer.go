package perception

import (
	"limp/internal/logger"
	"limp/internal/types"
)

// PhaseStabilizer 对逐帧的阶段读数去抖，只允许阶段按牌局顺序前进。
// 乱序或回退的读数视为识别噪声被丢弃。
type PhaseStabilizer struct {
	threshold int
	confirmed types.PhaseKind
	candidate types.PhaseKind
	streak    int
}

// NewPhaseStabilizer 以给定去抖阈值创建稳定器，初始确认阶段为 Pre-flop。
func NewPhaseStabilizer(threshold int) *PhaseStabilizer {
	if threshold < 1 {
		threshold = 1
	}
	return &PhaseStabilizer{
		threshold: threshold,
		confirmed: types.PhasePreFlop,
	}
}

// Seed overrides the confirmed phase before any observation. Unknown
// seeds are ignored.
func (s *PhaseStabilizer) Seed(initial types.PhaseKind) {
	if initial.Order() < 0 {
		return
	}
	s.confirmed = initial
	s.candidate = ""
	s.streak = 0
}

// Confirmed returns the currently confirmed phase.
func (s *PhaseStabilizer) Confirmed() types.PhaseKind {
	return s.confirmed
}

// Observe feeds one raw per-frame reading and returns the stabilized
// phase for that frame. Unknown readings inherit the confirmed phase
// without touching the debounce state. Observe never fails; bad input
// degrades to the last confirmed phase.
func (s *PhaseStabilizer) Observe(raw types.PhaseKind) types.PhaseKind {
	order := raw.Order()
	if order < 0 {
		return s.confirmed
	}
	diff := order - s.confirmed.Order()
	switch {
	case diff == 0:
		s.candidate = ""
		s.streak = 0
	case diff == 1:
		if s.candidate != raw {
			s.candidate = raw
			s.streak = 1
		} else {
			s.streak++
		}
		if s.streak >= s.threshold {
			s.confirmed = raw
			s.candidate = ""
			s.streak = 0
		}
	default:
		// Phase skip or regression, cannot happen in a real hand.
		logger.Debugf("phase stabilizer rejected %s (confirmed=%s, diff=%d)", raw, s.confirmed, diff)
		s.candidate = ""
		s.streak = 0
	}
	return s.confirmed
}

// StabilizePhases runs the stabilizer over a whole frame sequence and
// returns one stabilized phase per frame. The initial confirmed phase
// is the first non-unknown reading in the sequence, defaulting to
// Pre-flop when every frame is unknown.
func StabilizePhases(states []types.FrameState, threshold int) []types.PhaseKind {
	st := NewPhaseStabilizer(threshold)
	for _, s := range states {
		if s.Phase.Order() >= 0 {
			st.Seed(s.Phase)
			break
		}
	}
	out := make([]types.PhaseKind, len(states))
	for i, s := range states {
		out[i] = st.Observe(s.Phase)
	}
	return out
}
