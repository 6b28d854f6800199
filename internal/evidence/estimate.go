package evidence

// EstimateStatus 区分"没有证据可用"与"评估过程出错"。
type EstimateStatus int

const (
	// StatusUnavailable 表示该 agent 缺少它需要的证据。
	StatusUnavailable EstimateStatus = iota
	// StatusFailed 表示 agent 尝试评估但失败了。
	StatusFailed
	// StatusOK 表示 Scores 是有效的选项分布。
	StatusOK
)

// Estimate 是单个 agent 对选项分布的输出。只有 StatusOK 的估计
// 参与融合，其余两种在融合时整体剔除。
type Estimate struct {
	Status EstimateStatus     `json:"status"`
	Scores map[string]float64 `json:"scores,omitempty"`
	Err    error              `json:"-"`
}

// Unavailable marks an agent that had nothing to work with.
func Unavailable() Estimate {
	return Estimate{Status: StatusUnavailable}
}

// Failed marks an agent that attempted an assessment and errored.
func Failed(err error) Estimate {
	return Estimate{Status: StatusFailed, Err: err}
}

// Value wraps a score map as a usable estimate.
func Value(scores map[string]float64) Estimate {
	return Estimate{Status: StatusOK, Scores: scores}
}

// OK reports whether the estimate carries usable scores.
func (e Estimate) OK() bool {
	return e.Status == StatusOK && len(e.Scores) > 0
}

// ScalarEstimate 是单个数值证据（如胜率）的三态结果。零值即
// StatusUnavailable，所以"没算过"无需显式构造。
type ScalarEstimate struct {
	Status EstimateStatus `json:"status"`
	Value  float64        `json:"value,omitempty"`
	Err    error          `json:"-"`
}

// ScalarFailed marks a computation that was attempted and errored.
func ScalarFailed(err error) ScalarEstimate {
	return ScalarEstimate{Status: StatusFailed, Err: err}
}

// ScalarValue wraps a computed number.
func ScalarValue(v float64) ScalarEstimate {
	return ScalarEstimate{Status: StatusOK, Value: v}
}

// OK reports whether the value is usable.
func (e ScalarEstimate) OK() bool {
	return e.Status == StatusOK
}
