package reasoning

import (
	"context"

	"limp/internal/evidence"
	"limp/internal/logger"
)

// Equity bands for intent scoring. Below the low band an aggressive
// bet reads as a bluff; above the high band it reads as value.
const (
	equityLowBand  = 0.35
	equityHighBand = 0.65
)

// EquityAgent 用蒙特卡洛胜率为选项打分：低胜率下的大额下注更可能
// 是诈唬，高胜率则更可能是价值下注。
type EquityAgent struct{}

func NewEquityAgent() *EquityAgent { return &EquityAgent{} }

func (a *EquityAgent) Name() string { return "equity" }

func (a *EquityAgent) Assess(_ context.Context, b *evidence.Bundle, keys []string) evidence.Estimate {
	if b == nil || b.Question == nil || b.Question.Context.Action == nil {
		return evidence.Unavailable()
	}
	if b.Equity.Status == evidence.StatusFailed {
		return evidence.Failed(b.Equity.Err)
	}
	if !b.Equity.OK() {
		return evidence.Unavailable()
	}
	eq := b.Equity.Value

	scores := make(map[string]float64, len(keys))
	for _, k := range keys {
		scores[k] = 0.33
	}
	switch {
	case eq < equityLowBand:
		scores["A"] = 0.5
		scores["B"] = 0.2
	case eq > equityHighBand:
		scores["A"] = 0.2
		scores["B"] = 0.5
	default:
		scores["A"] = 0.33
		scores["B"] = 0.33
	}
	if _, ok := scores["C"]; ok {
		scores["C"] = 1.0 - scores["A"] - scores["B"]
	}
	logger.Debugf("equity agent: equity=%.3f -> A=%.2f B=%.2f", eq, scores["A"], scores["B"])
	return evidence.Value(Normalize(scores, keys))
}
