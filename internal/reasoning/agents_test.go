package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/evidence"
	"limp/internal/gateway/provider"
	"limp/internal/types"
)

var intentKeys = []string{"A", "B", "C"}

func intentQuestion() *types.QAItem {
	return &types.QAItem{
		ID:   "ep1_act_001",
		Type: types.TypeIntent,
		Context: types.QAContext{
			Action: &types.ActionRef{Player: "alice", Kind: types.ActionBet, Amount: 600},
		},
		Options: []types.QAOption{
			{Key: "A", Text: "Bluffing"},
			{Key: "B", Text: "Value betting"},
			{Key: "C", Text: "Uncertain"},
		},
	}
}

func TestPostureAgentFidgetingFavorsBluff(t *testing.T) {
	a := NewPostureAgent(10, 2)
	b := &evidence.Bundle{
		Question: intentQuestion(),
		Behavior: &types.BehaviorSummary{
			DominantHands:     "Playing with chips",
			FidgetingDetected: true,
		},
	}
	est := a.Assess(context.Background(), b, intentKeys)
	require.True(t, est.OK())
	assert.Greater(t, est.Scores["A"], est.Scores["B"])
}

func TestPostureAgentConfidentLeanFavorsValue(t *testing.T) {
	a := NewPostureAgent(10, 2)
	b := &evidence.Bundle{
		Question: intentQuestion(),
		Behavior: &types.BehaviorSummary{
			DominantPosture: "Leaning forward",
			DominantGaze:    "Staring at opponent",
			DominantEmotion: "Confident",
		},
		DecisionTime: 1.2,
	}
	est := a.Assess(context.Background(), b, intentKeys)
	require.True(t, est.OK())
	assert.Greater(t, est.Scores["B"], est.Scores["A"])
}

func TestPostureAgentLongTankFavorsBluff(t *testing.T) {
	a := NewPostureAgent(10, 2)
	b := &evidence.Bundle{Question: intentQuestion(), DecisionTime: 14}
	est := a.Assess(context.Background(), b, intentKeys)
	require.True(t, est.OK())
	assert.Greater(t, est.Scores["A"], est.Scores["B"])
}

func TestPostureAgentNoEvidenceIsUnavailable(t *testing.T) {
	a := NewPostureAgent(10, 2)
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	assert.Equal(t, evidence.StatusUnavailable, est.Status)
}

func TestEquityAgentBands(t *testing.T) {
	a := NewEquityAgent()
	cases := []struct {
		name   string
		equity float64
		favors string
	}{
		{"low equity reads bluff", 0.2, "A"},
		{"high equity reads value", 0.8, "B"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &evidence.Bundle{Question: intentQuestion(), Equity: evidence.ScalarValue(tc.equity)}
			est := a.Assess(context.Background(), b, intentKeys)
			require.True(t, est.OK())
			assert.Equal(t, tc.favors, Argmax(est.Scores, intentKeys))
		})
	}
}

func TestEquityAgentMiddleBandStaysFlat(t *testing.T) {
	a := NewEquityAgent()
	b := &evidence.Bundle{Question: intentQuestion(), Equity: evidence.ScalarValue(0.5)}
	est := a.Assess(context.Background(), b, intentKeys)
	require.True(t, est.OK())
	assert.InDelta(t, est.Scores["A"], est.Scores["B"], 1e-9)
}

func TestEquityAgentWithoutEquityIsUnavailable(t *testing.T) {
	a := NewEquityAgent()
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	assert.Equal(t, evidence.StatusUnavailable, est.Status)
}

func TestPromptsCarryEvidenceClassifications(t *testing.T) {
	pot := 1000.0
	q := intentQuestion()
	q.Context.Board = []string{"Ah", "7h", "2c"}
	q.Context.Pot = &pot
	q.Context.ActionSequence = []types.ActionRef{*q.Context.Action}
	b := evidence.FromQuestion(q, nil)

	belief := NewBeliefAgent(nil).buildPrompt(b, intentKeys)
	assert.Contains(t, belief, "Board Texture: wet")
	assert.Contains(t, belief, "Bet Size: medium")

	social := NewSocialAgent(nil).buildPrompt(b)
	assert.Contains(t, social, "Board Texture: wet")
	assert.Contains(t, social, "Action Style: aggressive")
}

func TestEquityAgentFailedSimulationPropagates(t *testing.T) {
	a := NewEquityAgent()
	b := &evidence.Bundle{
		Question: intentQuestion(),
		Equity:   evidence.ScalarFailed(errors.New("too many board cards")),
	}
	est := a.Assess(context.Background(), b, intentKeys)
	assert.Equal(t, evidence.StatusFailed, est.Status)
	assert.Error(t, est.Err)
}

// stubProvider fakes a model for agent tests.
type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) ID() string           { return "stub" }
func (s *stubProvider) Enabled() bool        { return true }
func (s *stubProvider) SupportsVision() bool { return false }
func (s *stubProvider) ExpectsJSON() bool    { return true }
func (s *stubProvider) Call(context.Context, provider.ChatPayload) (string, error) {
	return s.reply, s.err
}

func TestBeliefAgentParsesModelScores(t *testing.T) {
	a := NewBeliefAgent(&stubProvider{
		reply: `{"belief_analysis": "thinks opponent is weak", "option_scores": {"A": 0.7, "B": 0.2, "C": 0.1}, "confidence": 0.8}`,
	})
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	require.True(t, est.OK())
	assert.InDelta(t, 0.7, est.Scores["A"], 1e-9)
}

func TestBeliefAgentToleratesFencedJSON(t *testing.T) {
	a := NewBeliefAgent(&stubProvider{
		reply: "```json\n{\"option_scores\": {\"A\": 0.6, \"B\": 0.4, \"C\": 0.0}}\n```",
	})
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	require.True(t, est.OK())
	assert.InDelta(t, 0.6, est.Scores["A"], 1e-9)
}

func TestBeliefAgentBareLetterAnswer(t *testing.T) {
	a := NewBeliefAgent(&stubProvider{reply: "B"})
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	require.True(t, est.OK())
	assert.InDelta(t, 1.0, est.Scores["B"], 1e-9)
}

func TestBeliefAgentFailsOnModelError(t *testing.T) {
	a := NewBeliefAgent(&stubProvider{err: errors.New("rate limited")})
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	assert.Equal(t, evidence.StatusFailed, est.Status)
}

func TestBeliefAgentWithoutProviderIsUnavailable(t *testing.T) {
	a := NewBeliefAgent(nil)
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	assert.Equal(t, evidence.StatusUnavailable, est.Status)
}

func TestSocialAgentSequenceFallback(t *testing.T) {
	a := NewSocialAgent(nil)
	b := &evidence.Bundle{
		Question: intentQuestion(),
		ActionSequence: []types.ActionRef{
			{Player: "alice", Kind: types.ActionCheck},
			{Player: "alice", Kind: types.ActionCall, Amount: 200},
		},
	}
	est := a.Assess(context.Background(), b, intentKeys)
	require.True(t, est.OK())
	// Two passive actions are inconsistent with a bluff line.
	assert.Greater(t, est.Scores["B"], est.Scores["A"])
}

func TestSocialAgentFallsBackWhenModelErrors(t *testing.T) {
	a := NewSocialAgent(&stubProvider{err: errors.New("down")})
	b := &evidence.Bundle{
		Question:       intentQuestion(),
		ActionSequence: []types.ActionRef{{Player: "alice", Kind: types.ActionCall, Amount: 100}},
	}
	est := a.Assess(context.Background(), b, intentKeys)
	assert.True(t, est.OK())
}

func TestSocialAgentNothingToWorkWith(t *testing.T) {
	a := NewSocialAgent(nil)
	est := a.Assess(context.Background(), &evidence.Bundle{Question: intentQuestion()}, intentKeys)
	assert.Equal(t, evidence.StatusUnavailable, est.Status)
}
