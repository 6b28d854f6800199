package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limp/internal/evidence"
	"limp/internal/reasoning"
	"limp/internal/types"
)

func record(level types.QuestionLevel, qType types.QuestionType, gold, predicted string) Record {
	return Record{
		Question: types.QAItem{
			ID:     "q_" + gold + predicted,
			Level:  level,
			Type:   qType,
			Answer: gold,
		},
		Result: reasoning.Result{
			Predicted:  predicted,
			Confidence: 0.7,
			Reports: []reasoning.AgentReport{
				{Agent: "posture", Weight: 0.2, Estimate: evidence.Value(map[string]float64{"A": 0.6, "B": 0.4})},
				{Agent: "equity", Weight: 0.15, Estimate: evidence.Unavailable()},
			},
		},
	}
}

func TestEvaluate(t *testing.T) {
	records := []Record{
		record(types.LevelAction, types.TypeIntent, "A", "A"),
		record(types.LevelAction, types.TypeIntent, "B", "A"),
		record(types.LevelAction, types.TypeBinary, "A", "A"),
		record(types.LevelPhase, types.TypeIntent, "C", "C"),
	}

	report := Evaluate(records)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Correct)
	assert.InDelta(t, 0.75, report.Overall, 1e-9)

	t.Run("by type", func(t *testing.T) {
		assert.InDelta(t, 2.0/3.0, report.ByType[types.TypeIntent], 1e-9)
		assert.InDelta(t, 1.0, report.ByType[types.TypeBinary], 1e-9)
	})

	t.Run("by level", func(t *testing.T) {
		assert.InDelta(t, 2.0/3.0, report.ByLevel[types.LevelAction], 1e-9)
		assert.InDelta(t, 1.0, report.ByLevel[types.LevelPhase], 1e-9)
	})

	t.Run("confusion matrix", func(t *testing.T) {
		assert.Equal(t, 2, report.Confusion["A"]["A"])
		assert.Equal(t, 1, report.Confusion["B"]["A"])
		assert.Equal(t, 1, report.Confusion["C"]["C"])
	})

	t.Run("agent contribution ignores unavailable", func(t *testing.T) {
		posture := report.Agents["posture"]
		assert.Equal(t, 4, posture.Invocations)
		assert.InDelta(t, 0.6, posture.AvgConfidence, 1e-9)
		_, ok := report.Agents["equity"]
		assert.False(t, ok)
	})
}

func TestEvaluateEmpty(t *testing.T) {
	report := Evaluate(nil)
	assert.Equal(t, 0, report.Total)
	assert.Zero(t, report.Overall)
}

func TestEvaluateCountsDegraded(t *testing.T) {
	records := []Record{
		{
			Question: types.QAItem{Answer: "A"},
			Result:   reasoning.Result{Predicted: "A", Degraded: true},
		},
	}
	report := Evaluate(records)
	assert.Equal(t, 1, report.Degraded)
}

func TestSummaryFormat(t *testing.T) {
	records := []Record{
		record(types.LevelAction, types.TypeIntent, "A", "A"),
		record(types.LevelAction, types.TypeBinary, "B", "A"),
	}
	summary := Evaluate(records).Summary()

	assert.Contains(t, summary, "Evaluation Report")
	assert.Contains(t, summary, "Total Questions: 2")
	assert.Contains(t, summary, "Overall Accuracy: 50.00%")
	assert.Contains(t, summary, "intent: 100.00%")
	assert.Contains(t, summary, "posture: avg_conf=0.60")
}

func TestRenderCharts(t *testing.T) {
	records := []Record{
		record(types.LevelAction, types.TypeIntent, "A", "A"),
		record(types.LevelPhase, types.TypeIntent, "B", "C"),
	}
	dir := t.TempDir()

	path, err := RenderCharts(Evaluate(records), dir, "eval_report")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eval_report.html"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Confusion Matrix")
}
