package perception

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"limp/internal/config"
	"limp/internal/logger"
	"limp/internal/types"
)

// Pipeline 单个 episode 的感知流水线：抽帧状态 → 时间线。
// 帧与帧之间相互独立，抽取阶段可以并行。
type Pipeline struct {
	extractor *FrameExtractor
	builder   *TimelineBuilder
	workers   int
	protocol  string
}

// NewPipeline assembles a perception pipeline from config.
func NewPipeline(extractor *FrameExtractor, cfg config.PipelineConfig, protocol string) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		extractor: extractor,
		builder:   NewTimelineBuilder(cfg),
		workers:   workers,
		protocol:  protocol,
	}
}

// Run processes every sampled frame of an episode and assembles the
// validated timeline.
func (p *Pipeline) Run(ctx context.Context, source FrameSource) (*types.Episode, error) {
	episodeID := source.EpisodeID()
	logger.Infof("perception: starting episode %s", episodeID)

	frames, err := source.Frames()
	if err != nil {
		return nil, fmt.Errorf("load frames for %s: %w", episodeID, err)
	}

	states := make([]types.FrameState, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, frame := range frames {
		i, frame := i, frame
		g.Go(func() error {
			state, err := p.extractor.Extract(gctx, episodeID, frame.Index, frame.Timestamp, frame.Image)
			if err != nil {
				return fmt.Errorf("frame %d: %w", frame.Index, err)
			}
			states[i] = *state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timeline := p.builder.Build(states)

	duration := 0.0
	if n := len(states); n > 0 {
		duration = states[n-1].Timestamp
	}
	ep := &types.Episode{
		ID:       episodeID,
		Protocol: p.protocol,
		Meta: map[string]any{
			"run_id":      uuid.NewString(),
			"frame_count": len(states),
			"duration":    duration,
		},
		Timeline: timeline,
	}

	actions := 0
	for _, phase := range timeline {
		actions += len(phase.Actions)
	}
	logger.Infof("perception: episode %s done (%d frames, %d phases, %d actions)",
		episodeID, len(states), len(timeline), actions)
	return ep, nil
}
