package reasoning

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"limp/internal/config"
	"limp/internal/evidence"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/poker"
	"limp/internal/types"
)

// Pipeline 为单个问题组装证据、并发运行所有 agent 并融合结果。
type Pipeline struct {
	fuser   *Fuser
	agents  []Agent
	weights map[string]float64
	sim     *poker.EquitySimulator
}

// NewPipeline wires the standard agent set. The model provider may be
// nil; rule-based agents keep the pipeline useful without one.
func NewPipeline(fusionCfg config.FusionConfig, equityCfg config.EquityConfig, p provider.ModelProvider) *Pipeline {
	candidates := []Agent{
		NewPostureAgent(fusionCfg.DecisionTimeSlow, fusionCfg.DecisionTimeFast),
		NewEquityAgent(),
		NewBeliefAgent(p),
		NewSocialAgent(p),
	}
	agents := make([]Agent, 0, len(candidates))
	for _, a := range candidates {
		if fusionCfg.AgentEnabled(a.Name()) {
			agents = append(agents, a)
		}
	}
	return &Pipeline{
		fuser:   NewFuser(fusionCfg.Method),
		agents:  agents,
		weights: fusionCfg.Weights,
		sim:     poker.NewEquitySimulator(equityCfg.Iterations, equityCfg.Seed),
	}
}

// Answer produces the fused answer distribution for one question.
func (p *Pipeline) Answer(ctx context.Context, ep *types.Episode, q *types.QAItem) Result {
	bundle := evidence.FromQuestion(q, ep)
	p.fillEquity(bundle)
	keys := bundle.OptionKeys()

	reports := make([]AgentReport, len(p.agents))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range p.agents {
		i, agent := i, agent
		g.Go(func() error {
			est := agent.Assess(gctx, bundle, keys)
			mu.Lock()
			reports[i] = AgentReport{
				Agent:    agent.Name(),
				Weight:   p.weights[agent.Name()],
				Estimate: est,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := p.fuser.Fuse(reports, keys)
	if q != nil {
		logger.Debugf("reasoning: question=%s predicted=%s confidence=%.3f degraded=%v",
			q.ID, result.Predicted, result.Confidence, result.Degraded)
	}
	return result
}

// fillEquity runs the Monte Carlo simulation when the acting player's
// hole cards are visible in the question context.
func (p *Pipeline) fillEquity(b *evidence.Bundle) {
	q := b.Question
	if q == nil || q.Context.Action == nil {
		return
	}
	cards, ok := q.Context.VisibleCards[q.Context.Action.Player]
	if !ok || len(cards) == 0 {
		return
	}
	eq, err := p.sim.Equity(cards, q.Context.Board)
	if err != nil {
		logger.Warnf("equity simulation failed for %s: %v", q.ID, err)
		b.Equity = evidence.ScalarFailed(err)
		return
	}
	b.Equity = evidence.ScalarValue(eq)
}
