package reasoning

import (
	"context"

	"limp/internal/evidence"
)

// Agent 从某一类证据出发，为题目选项给出一个概率分布估计。
// 证据缺失时返回 Unavailable，评估出错时返回 Failed；两者都会
// 被融合器整体剔除而不是混入噪声。
type Agent interface {
	Name() string
	Assess(ctx context.Context, b *evidence.Bundle, keys []string) evidence.Estimate
}

// AgentReport pairs an agent's estimate with its fusion weight.
type AgentReport struct {
	Agent    string            `json:"agent"`
	Weight   float64           `json:"weight"`
	Estimate evidence.Estimate `json:"estimate"`
}
