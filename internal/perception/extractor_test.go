package perception

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/config"
	"limp/internal/gateway/provider"
	"limp/internal/types"
)

type stubVision struct {
	replies []string
	err     error
	calls   int
}

func (s *stubVision) ID() string           { return "stub:vision" }
func (s *stubVision) Enabled() bool        { return true }
func (s *stubVision) SupportsVision() bool { return true }
func (s *stubVision) ExpectsJSON() bool    { return true }

func (s *stubVision) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

const sampleReply = `{
  "phase": "Flop",
  "pot": 12000,
  "board": ["A♥", "10d", "7c"],
  "players": [
    {"name": "Ivey", "stack": "123k", "position": "SB", "is_active": true,
     "behavioral_cues": {"posture": "Leaning forward", "hands": "Playing with chips", "gaze": "Staring at opponent", "emotion": "Neutral"}},
    {"name": "Dwan", "stack": null, "is_active": false, "hole_cards": ["Ah", "??"]}
  ]
}`

func testExtractorConfig() config.ExtractorConfig {
	return config.ExtractorConfig{ValidateSchema: true, MaxRetries: 3}
}

func TestParseFrameState(t *testing.T) {
	state := parseFrameState(sampleReply, 42.0)

	assert.Equal(t, 42.0, state.Timestamp)
	assert.Equal(t, types.PhaseFlop, state.Phase)
	require.NotNil(t, state.Pot)
	assert.Equal(t, 12000.0, *state.Pot)

	// suit glyphs and "10" ranks normalized
	assert.Equal(t, []string{"Ah", "Td", "7c"}, state.Board)

	require.Len(t, state.Players, 2)
	ivey := state.Players[0]
	require.NotNil(t, ivey.Stack)
	assert.Equal(t, 123000.0, *ivey.Stack)
	assert.True(t, ivey.Active)
	require.NotNil(t, ivey.Cues)
	assert.Equal(t, "Playing with chips", ivey.Cues.Hands)

	dwan := state.Players[1]
	assert.Nil(t, dwan.Stack)
	assert.False(t, dwan.Active)
	assert.Equal(t, []string{"Ah", "??"}, dwan.HoleCards)
}

func TestParseFrameStateTolerance(t *testing.T) {
	t.Run("unknown phase label", func(t *testing.T) {
		state := parseFrameState(`{"phase": "Commercial break"}`, 1)
		assert.Equal(t, types.PhaseUnknown, state.Phase)
	})

	t.Run("null pot stays nil", func(t *testing.T) {
		state := parseFrameState(`{"phase": "Turn", "pot": null}`, 1)
		assert.Nil(t, state.Pot)
	})

	t.Run("unreadable stack string", func(t *testing.T) {
		state := parseFrameState(`{"phase": "Turn", "players": [{"name": "X", "stack": "???"}]}`, 1)
		require.Len(t, state.Players, 1)
		assert.Nil(t, state.Players[0].Stack)
	})

	t.Run("missing name", func(t *testing.T) {
		state := parseFrameState(`{"phase": "Turn", "players": [{"stack": 100}]}`, 1)
		require.Len(t, state.Players, 1)
		assert.Equal(t, "Unknown", state.Players[0].Name)
	})
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSONObject(`Sure! {"a":1}`))
	assert.Empty(t, extractJSONObject("no json at all"))
}

func TestExtractorUsesCache(t *testing.T) {
	cache, err := NewFrameCache(filepath.Join(t.TempDir(), "cache.db"), 16)
	require.NoError(t, err)
	defer cache.Close()

	stub := &stubVision{replies: []string{sampleReply}}
	ex := NewFrameExtractor(stub, cache, testExtractorConfig())

	first, err := ex.Extract(context.Background(), "ep01", 7, 7.0, provider.ImagePayload{})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFlop, first.Phase)
	assert.Equal(t, 1, stub.calls)

	second, err := ex.Extract(context.Background(), "ep01", 7, 7.0, provider.ImagePayload{})
	require.NoError(t, err)
	assert.Equal(t, first.Phase, second.Phase)
	assert.Equal(t, 1, stub.calls, "second extraction must hit the cache")
}

func TestExtractorRetriesThenDegrades(t *testing.T) {
	stub := &stubVision{err: errors.New("model overloaded")}
	ex := NewFrameExtractor(stub, nil, testExtractorConfig())

	state, err := ex.Extract(context.Background(), "ep01", 0, 3.0, provider.ImagePayload{})
	require.NoError(t, err)
	assert.Equal(t, 3, stub.calls)
	assert.Equal(t, types.PhaseUnknown, state.Phase)
	assert.Equal(t, 3.0, state.Timestamp)
}

func TestExtractorSchemaRejection(t *testing.T) {
	// first reply is structurally broken, second is fine
	stub := &stubVision{replies: []string{`{"pot": 500}`, sampleReply}}
	ex := NewFrameExtractor(stub, nil, testExtractorConfig())

	state, err := ex.Extract(context.Background(), "ep01", 0, 1.0, provider.ImagePayload{})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, types.PhaseFlop, state.Phase)
}

func TestFrameCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := NewFrameCache(path, 2)
	require.NoError(t, err)

	pot := 500.0
	state := &types.FrameState{Timestamp: 9, Phase: types.PhaseRiver, Pot: &pot}
	require.NoError(t, cache.Put("ep01", 3, state))

	_, ok := cache.Get("ep01", 4)
	assert.False(t, ok)

	got, ok := cache.Get("ep01", 3)
	require.True(t, ok)
	assert.Equal(t, types.PhaseRiver, got.Phase)
	require.NotNil(t, got.Pot)
	assert.Equal(t, 500.0, *got.Pot)
	require.NoError(t, cache.Close())

	// persisted across reopen
	reopened, err := NewFrameCache(path, 2)
	require.NoError(t, err)
	defer reopened.Close()
	got, ok = reopened.Get("ep01", 3)
	require.True(t, ok)
	assert.Equal(t, types.PhaseRiver, got.Phase)
}
