package evaluation

import (
	"fmt"
	"sort"
	"strings"

	"limp/internal/reasoning"
	"limp/internal/types"
)

// Record 一道题与推理流水线对它的作答。
type Record struct {
	Question types.QAItem     `json:"question"`
	Result   reasoning.Result `json:"result"`
}

// Correct reports whether the predicted option matches the gold answer.
func (r *Record) Correct() bool {
	return r.Result.Predicted == r.Question.Answer
}

// AgentContribution 单个证据源在一次评测里的聚合表现。
type AgentContribution struct {
	AvgConfidence float64 `json:"avg_confidence"`
	Invocations   int     `json:"invocations"`
}

// Report 一次评测的全部指标。
type Report struct {
	Total     int                              `json:"total"`
	Answered  int                              `json:"answered"`
	Correct   int                              `json:"correct"`
	Overall   float64                          `json:"overall_accuracy"`
	ByType    map[types.QuestionType]float64   `json:"accuracy_by_type"`
	ByLevel   map[types.QuestionLevel]float64  `json:"accuracy_by_level"`
	Confusion map[string]map[string]int        `json:"confusion_matrix"`
	Agents    map[string]AgentContribution     `json:"agent_contribution"`
	Degraded  int                              `json:"degraded"`
}

type bucket struct {
	correct int
	total   int
}

func (b bucket) accuracy() float64 {
	if b.total == 0 {
		return 0
	}
	return float64(b.correct) / float64(b.total)
}

// Evaluate 根据作答记录计算总体/分类型/分层级准确率、混淆矩阵
// 和各证据源的贡献。
func Evaluate(records []Record) Report {
	report := Report{
		Total:     len(records),
		ByType:    make(map[types.QuestionType]float64),
		ByLevel:   make(map[types.QuestionLevel]float64),
		Confusion: make(map[string]map[string]int),
		Agents:    make(map[string]AgentContribution),
	}
	if len(records) == 0 {
		return report
	}

	byType := make(map[types.QuestionType]bucket)
	byLevel := make(map[types.QuestionLevel]bucket)
	type agentAcc struct {
		confidence float64
		count      int
	}
	agents := make(map[string]agentAcc)

	for i := range records {
		rec := &records[i]
		if rec.Result.Predicted != "" {
			report.Answered++
		}
		if rec.Result.Degraded {
			report.Degraded++
		}

		correct := rec.Correct()
		if correct {
			report.Correct++
		}

		tb := byType[rec.Question.Type]
		tb.total++
		if correct {
			tb.correct++
		}
		byType[rec.Question.Type] = tb

		lb := byLevel[rec.Question.Level]
		lb.total++
		if correct {
			lb.correct++
		}
		byLevel[rec.Question.Level] = lb

		row := report.Confusion[rec.Question.Answer]
		if row == nil {
			row = make(map[string]int)
			report.Confusion[rec.Question.Answer] = row
		}
		row[rec.Result.Predicted]++

		for _, ar := range rec.Result.Reports {
			if !ar.Estimate.OK() {
				continue
			}
			acc := agents[ar.Agent]
			acc.confidence += topScore(ar.Estimate.Scores)
			acc.count++
			agents[ar.Agent] = acc
		}
	}

	report.Overall = float64(report.Correct) / float64(report.Total)
	for k, b := range byType {
		report.ByType[k] = b.accuracy()
	}
	for k, b := range byLevel {
		report.ByLevel[k] = b.accuracy()
	}
	for name, acc := range agents {
		contribution := AgentContribution{Invocations: acc.count}
		if acc.count > 0 {
			contribution.AvgConfidence = acc.confidence / float64(acc.count)
		}
		report.Agents[name] = contribution
	}
	return report
}

// topScore is the probability mass the agent put on its favorite
// option, used as a per-call confidence proxy.
func topScore(scores map[string]float64) float64 {
	best := 0.0
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	return best
}

// Summary renders a text report block.
func (r Report) Summary() string {
	var b strings.Builder
	bar := strings.Repeat("=", 50)

	fmt.Fprintln(&b, bar)
	fmt.Fprintln(&b, "Evaluation Report")
	fmt.Fprintln(&b, bar)
	fmt.Fprintf(&b, "Total Questions: %d\n", r.Total)
	fmt.Fprintf(&b, "Overall Accuracy: %.2f%%\n", r.Overall*100)
	if r.Degraded > 0 {
		fmt.Fprintf(&b, "Degraded Answers: %d\n", r.Degraded)
	}

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "Accuracy by Question Type:")
	for _, k := range sortedKeys(r.ByType) {
		fmt.Fprintf(&b, "  %s: %.2f%%\n", k, r.ByType[types.QuestionType(k)]*100)
	}

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "Accuracy by Question Level:")
	for _, k := range sortedKeys(r.ByLevel) {
		fmt.Fprintf(&b, "  %s: %.2f%%\n", k, r.ByLevel[types.QuestionLevel(k)]*100)
	}

	fmt.Fprintln(&b, "")
	fmt.Fprintln(&b, "Agent Contributions:")
	agentNames := make([]string, 0, len(r.Agents))
	for name := range r.Agents {
		agentNames = append(agentNames, name)
	}
	sort.Strings(agentNames)
	for _, name := range agentNames {
		c := r.Agents[name]
		fmt.Fprintf(&b, "  %s: avg_conf=%.2f, invocations=%d\n", name, c.AvgConfidence, c.Invocations)
	}

	fmt.Fprintln(&b, bar)
	return b.String()
}

func sortedKeys[K ~string](m map[K]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
