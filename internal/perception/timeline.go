package perception

import (
	"limp/internal/config"
	"limp/internal/logger"
	"limp/internal/types"
)

// TimelineBuilder 将稳定后的帧序列切分为阶段时间线，并在每对相邻帧
// 之间运行动作检测。
type TimelineBuilder struct {
	debounce int
	window   int
	detector *ActionDetector
}

// NewTimelineBuilder wires a builder from pipeline settings.
func NewTimelineBuilder(cfg config.PipelineConfig) *TimelineBuilder {
	return &TimelineBuilder{
		debounce: cfg.DebounceFrames,
		window:   cfg.BehaviorWindow,
		detector: NewActionDetector(cfg.NoiseThreshold, cfg.AllInThreshold, cfg.RaisePotRatio),
	}
}

// Build converts a frame sequence into a phase timeline. The input is
// not modified; phase snapshots point into the given slice.
func (b *TimelineBuilder) Build(states []types.FrameState) []types.Phase {
	if len(states) == 0 {
		return nil
	}
	stabilized := StabilizePhases(states, b.debounce)
	current := types.Phase{
		Kind:    stabilized[0],
		Start:   states[0].Timestamp,
		Initial: &states[0],
	}
	var timeline []types.Phase
	for i := 1; i < len(states); i++ {
		if stabilized[i] != current.Kind {
			current.End = states[i].Timestamp
			current.Final = &states[i-1]
			timeline = append(timeline, current)
			current = types.Phase{
				Kind:    stabilized[i],
				Start:   states[i].Timestamp,
				Initial: &states[i],
			}
		}
		lo := i - b.window
		if lo < 0 {
			lo = 0
		}
		events := b.detector.Detect(&states[i-1], &states[i], states[lo:i+1])
		current.Actions = append(current.Actions, events...)
	}
	current.End = states[len(states)-1].Timestamp
	current.Final = &states[len(states)-1]
	timeline = append(timeline, current)
	logger.Debugf("timeline: %d frames -> %d phases", len(states), len(timeline))
	return timeline
}
