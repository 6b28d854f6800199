package dataset

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/annotation"
	"limp/internal/config"
	"limp/internal/types"
)

func fp(v float64) *float64 { return &v }

func testDatasetConfig(t *testing.T) config.DatasetConfig {
	t.Helper()
	return config.DatasetConfig{
		OutputDir:            t.TempDir(),
		Version:              "v3",
		Protocols:            []string{"audience", "player"},
		BluffAmountThreshold: 10000,
	}
}

func testEpisode() *types.Episode {
	return &types.Episode{
		ID: "ep01",
		Timeline: []types.Phase{
			{
				Kind:  types.PhaseFlop,
				Start: 0,
				End:   60,
				Actions: []types.ActionEvent{
					{Timestamp: 10, Player: "Ivey", Kind: types.ActionBet, Amount: 12000, Duration: 8},
					{Timestamp: 20, Player: "Dwan", Kind: types.ActionCall, Amount: 12000, Duration: 3},
					{Timestamp: 30, Player: "Ivey", Kind: types.ActionFold},
				},
				Initial: &types.FrameState{
					Players: []types.PlayerSnapshot{
						{Name: "Ivey", Active: true},
						{Name: "Dwan", Active: true},
					},
				},
				Final: &types.FrameState{
					Board: []string{"Ah", "7d", "2c"},
					Pot:   fp(30000),
					Players: []types.PlayerSnapshot{
						{Name: "Ivey", Stack: fp(90000)},
						{Name: "Dwan", Stack: fp(60000)},
					},
				},
			},
		},
	}
}

func questionByID(t *testing.T, ds *types.QADataset, id string) types.QAItem {
	t.Helper()
	for _, q := range ds.Questions {
		if q.ID == id {
			return q
		}
	}
	t.Fatalf("question %s not generated", id)
	return types.QAItem{}
}

func TestGenerateActionQuestions(t *testing.T) {
	g := NewGenerator(testDatasetConfig(t))
	ds := g.Generate(testEpisode(), nil, "audience")

	t.Run("folds and checks skipped", func(t *testing.T) {
		for _, q := range ds.Questions {
			if q.Context.Action != nil {
				assert.NotEqual(t, types.ActionFold, q.Context.Action.Kind)
			}
		}
	})

	t.Run("intent question defaults without ground truth", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001")
		assert.Equal(t, types.LevelAction, q.Level)
		assert.Equal(t, types.TypeIntent, q.Type)
		assert.Equal(t, "A", q.Answer)
		assert.Equal(t, "rule_based", q.AnswerSource)
		require.Len(t, q.Options, 3)
		assert.True(t, q.Options[0].Correct)
		assert.False(t, q.Options[1].Correct)
		assert.Contains(t, q.Question, "Ivey")
		assert.Contains(t, q.Question, "$12,000")
	})

	t.Run("bluff question only above threshold", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001_bluff")
		assert.Equal(t, types.TypeBinary, q.Type)
		assert.Equal(t, "B", q.Answer) // default: not a bluff
		require.Len(t, q.Options, 2)
	})

	t.Run("second order needs commentary labels", func(t *testing.T) {
		for _, q := range ds.Questions {
			assert.NotEqual(t, types.TypeSecondOrder, q.Type)
		}
	})

	t.Run("context carries phase end state", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001")
		assert.Equal(t, []string{"Ah", "7d", "2c"}, q.Context.Board)
		require.NotNil(t, q.Context.Pot)
		assert.Equal(t, 30000.0, *q.Context.Pot)
		assert.Equal(t, 8.0, q.Context.DecisionTime)
	})
}

func TestGenerateWithGroundTruth(t *testing.T) {
	gt := &annotation.GroundTruth{
		Facts: annotation.Facts{Players: []annotation.PlayerFact{
			{Name: "Ivey", HoleCards: []string{"9h", "8h"}},
			{Name: "Dwan", HoleCards: []string{"Ac", "Kc"}},
		}},
		ActionGT: []annotation.ActionGT{
			{Start: 8, End: 12, Labels: annotation.Labels{IsBluff: true}},
		},
	}
	g := NewGenerator(testDatasetConfig(t))
	ds := g.Generate(testEpisode(), gt, "audience")

	t.Run("intent answer from commentary", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001")
		assert.Equal(t, "A", q.Answer)
		assert.Equal(t, "audio_commentary", q.AnswerSource)
		require.NotNil(t, q.ToM)
		assert.Equal(t, types.GoalBluff, q.ToM.SocialGoal)
	})

	t.Run("bluff answer flips to yes", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001_bluff")
		assert.Equal(t, "A", q.Answer)
	})

	t.Run("second order generated for labelled big bet", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001_belief")
		assert.Equal(t, types.TypeSecondOrder, q.Type)
		assert.Equal(t, "A", q.Answer) // bluffer wants to be read as strong
	})

	t.Run("audience sees all revealed cards", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_act_001")
		assert.Len(t, q.Context.VisibleCards, 2)
	})
}

func TestPlayerProtocolHidesOpponentCards(t *testing.T) {
	gt := &annotation.GroundTruth{
		Facts: annotation.Facts{Players: []annotation.PlayerFact{
			{Name: "Ivey", HoleCards: []string{"9h", "8h"}},
			{Name: "Dwan", HoleCards: []string{"Ac", "Kc"}},
		}},
	}
	g := NewGenerator(testDatasetConfig(t))
	ds := g.Generate(testEpisode(), gt, "player")

	q := questionByID(t, ds, "ep01_act_001")
	require.Len(t, q.Context.VisibleCards, 1)
	assert.Equal(t, []string{"9h", "8h"}, q.Context.VisibleCards["Ivey"])
	assert.Equal(t, "player", q.Protocol)
}

func TestGeneratePhaseQuestions(t *testing.T) {
	g := NewGenerator(testDatasetConfig(t))
	ds := g.Generate(testEpisode(), nil, "audience")

	t.Run("strategy per player", func(t *testing.T) {
		// Ivey: 1 bet vs 1 fold -> aggressive==passive(0)? bet>0 passive=0 -> A
		q := questionByID(t, ds, "ep01_phase_00_Ivey")
		assert.Equal(t, types.LevelPhase, q.Level)
		assert.Equal(t, "A", q.Answer)

		// Dwan: single call -> conservative
		q = questionByID(t, ds, "ep01_phase_00_Dwan")
		assert.Equal(t, "B", q.Answer)
	})

	t.Run("advantage follows aggression", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_phase_00_advantage")
		assert.Equal(t, "A", q.Answer) // Ivey is the only aggressor
		assert.Contains(t, q.Options[0].Text, "Ivey")
	})

	t.Run("sequence context aggregated", func(t *testing.T) {
		q := questionByID(t, ds, "ep01_phase_00_advantage")
		assert.Len(t, q.Context.ActionSequence, 3)
		assert.InDelta(t, 11.0, q.Context.DecisionTime, 1e-9)
	})
}

func TestInferStrategy(t *testing.T) {
	cases := []struct {
		name    string
		actions []types.ActionEvent
		want    string
	}{
		{"no actions", nil, "B"},
		{"raises dominate", []types.ActionEvent{
			{Kind: types.ActionRaise}, {Kind: types.ActionBet}, {Kind: types.ActionCall},
		}, "A"},
		{"aggression with nervous tells", []types.ActionEvent{
			{Kind: types.ActionBet, Behavior: &types.BehaviorSummary{FidgetingDetected: true}},
			{Kind: types.ActionCall},
			{Kind: types.ActionCheck},
		}, "C"},
		{"mostly passive", []types.ActionEvent{
			{Kind: types.ActionCheck}, {Kind: types.ActionCall},
		}, "B"},
		{"folded out", []types.ActionEvent{
			{Kind: types.ActionFold},
		}, "B"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, inferStrategy(c.actions))
		})
	}
}

func TestInferAdvantageStackFallback(t *testing.T) {
	phase := &types.Phase{
		Kind: types.PhaseTurn,
		Actions: []types.ActionEvent{
			{Player: "Ivey", Kind: types.ActionCheck},
			{Player: "Dwan", Kind: types.ActionCheck},
		},
		Final: &types.FrameState{Players: []types.PlayerSnapshot{
			{Name: "Ivey", Stack: fp(150000)},
			{Name: "Dwan", Stack: fp(50000)},
		}},
	}
	assert.Equal(t, "A", inferAdvantage("Ivey", "Dwan", phase))

	// inside the 1.2x band it stays unclear
	phase.Final.Players[1].Stack = fp(140000)
	assert.Equal(t, "C", inferAdvantage("Ivey", "Dwan", phase))
}

func TestGenerateAllAndSave(t *testing.T) {
	cfg := testDatasetConfig(t)
	g := NewGenerator(cfg)

	sets := g.GenerateAll(testEpisode(), nil)
	require.Len(t, sets, 2)
	assert.Equal(t, "audience", sets[0].Protocol)
	assert.Equal(t, "player", sets[1].Protocol)
	assert.Equal(t, "v3", sets[0].Version)

	path, err := g.Save(sets[0])
	require.NoError(t, err)
	assert.Contains(t, path, "ep01_qa_audience.json")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded types.QADataset
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.Equal(t, len(sets[0].Questions), len(loaded.Questions))
}
