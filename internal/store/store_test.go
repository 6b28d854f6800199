package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/evaluation"
	"limp/internal/reasoning"
	"limp/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "limp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEpisodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ep := &types.Episode{
		ID:       "ep01",
		Protocol: "audience",
		Timeline: []types.Phase{
			{Kind: types.PhaseFlop, Start: 0, End: 30, Actions: []types.ActionEvent{
				{Timestamp: 12, Player: "Ivey", Kind: types.ActionBet, Amount: 600},
			}},
		},
	}
	require.NoError(t, s.SaveEpisode(ctx, ep))

	got, err := s.GetEpisode(ctx, "ep01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "audience", got.Protocol)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, types.ActionBet, got.Timeline[0].Actions[0].Kind)

	t.Run("upsert replaces payload", func(t *testing.T) {
		ep.Protocol = "player"
		require.NoError(t, s.SaveEpisode(ctx, ep))
		got, err := s.GetEpisode(ctx, "ep01")
		require.NoError(t, err)
		assert.Equal(t, "player", got.Protocol)

		ids, err := s.ListEpisodes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ep01"}, ids)
	})

	t.Run("missing episode is nil", func(t *testing.T) {
		got, err := s.GetEpisode(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestAnswersRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []evaluation.Record{
		{
			Question: types.QAItem{ID: "ep01_act_001", Answer: "A", Type: types.TypeIntent},
			Result:   reasoning.Result{Predicted: "A", Confidence: 0.62},
		},
		{
			Question: types.QAItem{ID: "ep01_act_001_bluff", Answer: "B", Type: types.TypeBinary},
			Result:   reasoning.Result{Predicted: "A", Confidence: 0.55},
		},
	}
	require.NoError(t, s.SaveAnswers(ctx, "ep01", "audience", records))

	got, err := s.GetAnswers(ctx, "ep01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ep01_act_001", got[0].Question.ID)
	assert.True(t, got[0].Correct())
	assert.False(t, got[1].Correct())

	t.Run("rerun overwrites", func(t *testing.T) {
		records[1].Result.Predicted = "B"
		require.NoError(t, s.SaveAnswers(ctx, "ep01", "audience", records))
		got, err := s.GetAnswers(ctx, "ep01")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[1].Correct())
	})
}

func TestAnswersKeptPerProtocol(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []evaluation.Record{
		{
			Question: types.QAItem{ID: "ep01_act_001", Answer: "A", Type: types.TypeIntent},
			Result:   reasoning.Result{Predicted: "A", Confidence: 0.62},
		},
	}
	require.NoError(t, s.SaveAnswers(ctx, "ep01", "audience", records))

	records[0].Result.Predicted = "B"
	require.NoError(t, s.SaveAnswers(ctx, "ep01", "player", records))

	got, err := s.GetAnswers(ctx, "ep01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Result.Predicted)
	assert.Equal(t, "B", got[1].Result.Predicted)

	t.Run("rerun overwrites only its protocol", func(t *testing.T) {
		records[0].Result.Predicted = "C"
		require.NoError(t, s.SaveAnswers(ctx, "ep01", "player", records))
		got, err := s.GetAnswers(ctx, "ep01")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "A", got[0].Result.Predicted)
		assert.Equal(t, "C", got[1].Result.Predicted)
	})
}

func TestRunRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := evaluation.Evaluate([]evaluation.Record{
		{Question: types.QAItem{Answer: "A", Type: types.TypeIntent, Level: types.LevelAction}, Result: reasoning.Result{Predicted: "A"}},
		{Question: types.QAItem{Answer: "B", Type: types.TypeIntent, Level: types.LevelAction}, Result: reasoning.Result{Predicted: "A"}},
	})

	require.NoError(t, s.SaveRun(ctx, RunRecord{
		RunID:     "run-1",
		EpisodeID: "ep01",
		Protocol:  "audience",
		Report:    report,
	}))

	run, err := s.LatestRun(ctx, "ep01")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, 2, run.Report.Total)
	assert.InDelta(t, 0.5, run.Report.Overall, 1e-9)

	t.Run("missing run is nil", func(t *testing.T) {
		run, err := s.LatestRun(ctx, "ep99")
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("list runs", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "ep01", runs[0].EpisodeID)
	})

	t.Run("empty run id rejected", func(t *testing.T) {
		assert.Error(t, s.SaveRun(ctx, RunRecord{EpisodeID: "ep01"}))
	})
}
