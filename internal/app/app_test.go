package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"limp/internal/config"
	"limp/internal/gateway/provider"
	"limp/internal/perception"
)

type stubFrameSource struct {
	id     string
	frames []perception.Frame
}

func (s *stubFrameSource) EpisodeID() string                  { return s.id }
func (s *stubFrameSource) Frames() ([]perception.Frame, error) { return s.frames, nil }

// scriptedModel answers vision calls from a frame table and fails every
// text-only call so the LLM agents degrade.
type scriptedModel struct {
	replies map[string]string
}

func (m *scriptedModel) ID() string           { return "stub:scripted" }
func (m *scriptedModel) Enabled() bool        { return true }
func (m *scriptedModel) SupportsVision() bool { return true }
func (m *scriptedModel) ExpectsJSON() bool    { return true }

func (m *scriptedModel) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	if len(payload.Images) != 1 {
		return "", fmt.Errorf("model offline")
	}
	reply, ok := m.replies[payload.Images[0].Description]
	if !ok {
		return "", fmt.Errorf("unexpected frame %q", payload.Images[0].Description)
	}
	return reply, nil
}

func frameReply(phase string, board []string, pot, ivey, dwan float64) string {
	boardJSON := "[]"
	if len(board) > 0 {
		boardJSON = `["Ah", "7d", "2c"]`
	}
	return fmt.Sprintf(`{"phase": %q, "board": %s, "pot": %v, "players": [
		{"name": "Ivey", "stack": %v, "is_active": true},
		{"name": "Dwan", "stack": %v, "is_active": true}
	]}`, phase, boardJSON, pot, ivey, dwan)
}

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{HTTPAddr: ":0", LogLevel: "warn"},
		Pipeline: config.PipelineConfig{
			DebounceFrames: 2,
			NoiseThreshold: 100,
			AllInThreshold: 100,
			RaisePotRatio:  1.5,
			BehaviorWindow: 3,
			Workers:        2,
		},
		Extractor: config.ExtractorConfig{ValidateSchema: true, MaxRetries: 1, FPS: 1, SampleFPS: 1},
		Equity:    config.EquityConfig{Iterations: 200, Seed: 7},
		Fusion: config.FusionConfig{
			Method:           "product",
			Weights:          map[string]float64{"posture": 0.2, "equity": 0.15, "belief": 0.3, "social": 0.35},
			DecisionTimeSlow: 10,
			DecisionTimeFast: 2,
		},
		Dataset: config.DatasetConfig{
			OutputDir:            filepath.Join(dir, "datasets"),
			Version:              "v3",
			Protocols:            []string{"audience", "player"},
			BluffAmountThreshold: 10000,
		},
		Annotation: config.AnnotationConfig{Dir: filepath.Join(dir, "annotations"), Enabled: true},
		Store:      config.StoreConfig{Path: filepath.Join(dir, "limp.db")},
		Report:     config.ReportConfig{OutputDir: filepath.Join(dir, "reports"), Charts: true},
	}
}

// Seven frames: two stable pre-flop checks, the flop comes, Ivey bets
// 12k, Dwan calls, then one steady tail frame.
func scriptedEpisode(id string) (*stubFrameSource, *scriptedModel) {
	scripted := []string{
		frameReply("Pre-flop", nil, 0, 100000, 100000),
		frameReply("Pre-flop", nil, 0, 100000, 100000),
		frameReply("Pre-flop", nil, 0, 100000, 100000),
		frameReply("Flop", []string{"Ah", "7d", "2c"}, 0, 100000, 100000),
		frameReply("Flop", []string{"Ah", "7d", "2c"}, 0, 100000, 100000),
		frameReply("Flop", []string{"Ah", "7d", "2c"}, 12000, 88000, 100000),
		frameReply("Flop", []string{"Ah", "7d", "2c"}, 24000, 88000, 88000),
		frameReply("Flop", []string{"Ah", "7d", "2c"}, 24000, 88000, 88000),
	}
	replies := map[string]string{}
	var frames []perception.Frame
	for i, reply := range scripted {
		key := fmt.Sprintf("frame_%03d", i)
		replies[key] = reply
		frames = append(frames, perception.Frame{
			Index:     i,
			Timestamp: float64(i),
			Image:     provider.ImagePayload{Description: key},
		})
	}
	return &stubFrameSource{id: id, frames: frames}, &scriptedModel{replies: replies}
}

func buildTestApp(t *testing.T, cfg *config.Config, model provider.ModelProvider, source perception.FrameSource) *App {
	t.Helper()
	builder := NewAppBuilder(cfg,
		WithProvidersFn(func(config.AIConfig) ([]provider.ModelProvider, error) {
			return []provider.ModelProvider{model}, nil
		}),
		WithFrameCacheFn(func(config.ExtractorConfig) (*perception.FrameCache, error) {
			return nil, nil
		}),
		WithFrameSourceFn(func(_ *config.Config, episodeID string) (perception.FrameSource, error) {
			return source, nil
		}),
	)
	app, err := builder.Build()
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestAppAnalyze(t *testing.T) {
	cfg := testAppConfig(t)
	source, model := scriptedEpisode("ep01")
	app := buildTestApp(t, cfg, model, source)

	ctx := context.Background()
	run, err := app.Analyze(ctx, "ep01")
	require.NoError(t, err)

	// last configured protocol wins the returned record
	assert.Equal(t, "ep01", run.EpisodeID)
	assert.Equal(t, "player", run.Protocol)
	assert.NotEmpty(t, run.RunID)

	ep, err := app.Store().GetEpisode(ctx, "ep01")
	require.NoError(t, err)
	require.NotNil(t, ep)
	require.Len(t, ep.Timeline, 2)
	flop := ep.Timeline[1]
	require.Len(t, flop.Actions, 2)
	assert.Equal(t, "Ivey", flop.Actions[0].Player)
	assert.Equal(t, "Dwan", flop.Actions[1].Player)

	// two actions over the bluff threshold plus flop strategy questions
	assert.Equal(t, 7, run.Report.Total)

	runs, err := app.Store().ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	for _, protocol := range []string{"audience", "player"} {
		path := filepath.Join(cfg.Dataset.OutputDir, fmt.Sprintf("ep01_qa_%s.json", protocol))
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
	chart := filepath.Join(cfg.Report.OutputDir, "ep01_player.html")
	_, err = os.Stat(chart)
	assert.NoError(t, err)
}

func TestAppAnalyzeConcurrentEpisodes(t *testing.T) {
	cfg := testAppConfig(t)
	ids := []string{"ep01", "ep02", "ep03"}
	sources := map[string]*stubFrameSource{}
	var model *scriptedModel
	for _, id := range ids {
		sources[id], model = scriptedEpisode(id)
	}
	builder := NewAppBuilder(cfg,
		WithProvidersFn(func(config.AIConfig) ([]provider.ModelProvider, error) {
			return []provider.ModelProvider{model}, nil
		}),
		WithFrameCacheFn(func(config.ExtractorConfig) (*perception.FrameCache, error) {
			return nil, nil
		}),
		WithFrameSourceFn(func(_ *config.Config, episodeID string) (perception.FrameSource, error) {
			src, ok := sources[episodeID]
			if !ok {
				return nil, fmt.Errorf("unknown episode %s", episodeID)
			}
			return src, nil
		}),
	)
	app, err := builder.Build()
	require.NoError(t, err)
	t.Cleanup(app.Close)

	var g errgroup.Group
	g.SetLimit(2)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := app.Analyze(context.Background(), id)
			return err
		})
	}
	require.NoError(t, g.Wait())

	ctx := context.Background()
	for _, id := range ids {
		ep, err := app.Store().GetEpisode(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, ep, id)
		assert.Len(t, ep.Timeline, 2, id)
	}
	runs, err := app.Store().ListRuns(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, runs, len(ids)*2)
}

func TestAppAnalyzeRejectsEmptyID(t *testing.T) {
	cfg := testAppConfig(t)
	source, model := scriptedEpisode("ep01")
	app := buildTestApp(t, cfg, model, source)

	_, err := app.Analyze(context.Background(), "  ")
	assert.Error(t, err)
}

func TestAppAnalyzeNoProtocols(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Dataset.Protocols = nil
	source, model := scriptedEpisode("ep02")
	app := buildTestApp(t, cfg, model, source)

	_, err := app.Analyze(context.Background(), "ep02")
	assert.Error(t, err)
}
