package reasoning

import (
	"strings"

	"limp/internal/logger"
)

// Fusion methods.
const (
	MethodProduct  = "product"
	MethodWeighted = "weighted"
)

// Result 是多证据融合后的最终答案分布。
type Result struct {
	// Probabilities 在选项键上归一化。
	Probabilities map[string]float64 `json:"probabilities"`
	// Predicted 为 argmax 选项，平票取键序靠前者。
	Predicted string `json:"predicted"`
	// Confidence 等于最大概率。
	Confidence float64 `json:"confidence"`
	// Degraded 表示没有任何 agent 给出可用估计，分布为均匀。
	Degraded bool `json:"degraded"`
	// Reports 保留每个 agent 的原始估计，供评估与归因。
	Reports []AgentReport `json:"reports,omitempty"`
}

// Fuser 将多个 agent 的估计融合为单一分布。
type Fuser struct {
	method string
}

// NewFuser returns a fuser for the given method; unrecognized names
// fall back to product of experts.
func NewFuser(method string) *Fuser {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodWeighted:
		return &Fuser{method: MethodWeighted}
	default:
		return &Fuser{method: MethodProduct}
	}
}

// Method returns the active fusion method.
func (f *Fuser) Method() string { return f.method }

// Fuse combines the usable reports into one distribution over keys.
// Agents without usable estimates are dropped entirely; when nothing
// remains the result is uniform with zero confidence and the Degraded
// flag set.
func (f *Fuser) Fuse(reports []AgentReport, keys []string) Result {
	usable := make([]AgentReport, 0, len(reports))
	for _, r := range reports {
		if r.Estimate.OK() {
			usable = append(usable, r)
		} else if r.Estimate.Err != nil {
			logger.Warnf("fusion: dropping agent %s: %v", r.Agent, r.Estimate.Err)
		}
	}
	if len(usable) == 0 {
		probs := Uniform(keys)
		return Result{
			Probabilities: probs,
			Predicted:     Argmax(probs, keys),
			Confidence:    0,
			Degraded:      true,
			Reports:       reports,
		}
	}

	var fused map[string]float64
	switch f.method {
	case MethodWeighted:
		fused = fuseWeighted(usable, keys)
	default:
		fused = fuseProduct(usable, keys)
	}
	fused = Normalize(fused, keys)
	predicted := Argmax(fused, keys)
	return Result{
		Probabilities: fused,
		Predicted:     predicted,
		Confidence:    fused[predicted],
		Reports:       reports,
	}
}

// fuseProduct multiplies the per-option scores of every reporting
// agent. Independent evidence sources sharpen each other this way.
func fuseProduct(reports []AgentReport, keys []string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[k] = 1
	}
	for _, r := range reports {
		scores := Normalize(r.Estimate.Scores, keys)
		for _, k := range keys {
			out[k] *= scores[k]
		}
	}
	return out
}

// fuseWeighted takes the weighted arithmetic mean of the normalized
// per-agent distributions. Weights renormalize over the agents that
// actually reported.
func fuseWeighted(reports []AgentReport, keys []string) map[string]float64 {
	totalWeight := 0.0
	for _, r := range reports {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		totalWeight += w
	}
	out := make(map[string]float64, len(keys))
	for _, r := range reports {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		scores := Normalize(r.Estimate.Scores, keys)
		for _, k := range keys {
			out[k] += w * scores[k] / totalWeight
		}
	}
	return out
}
