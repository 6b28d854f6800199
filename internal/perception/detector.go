package perception

import (
	"limp/internal/logger"
	"limp/internal/types"
)

// Detection confidence attached to inferred events.
const (
	foldConfidence  = 0.9
	stackConfidence = 0.75
)

// ActionDetector 通过相邻帧的筹码/底池差分推断离散玩家动作。
// 检测只依赖可见状态，永远不产生 check（视觉上不可区分）。
type ActionDetector struct {
	// NoiseThreshold 小于该值的筹码减少视为读数噪声。
	NoiseThreshold float64
	// AllInThreshold 动作后任一玩家剩余筹码低于该值时判为 all-in。
	AllInThreshold float64
	// RaisePotRatio 底池增量超过筹码减量的该倍数时判为 raise。
	RaisePotRatio float64
}

// NewActionDetector returns a detector with the given thresholds.
func NewActionDetector(noise, allIn, raiseRatio float64) *ActionDetector {
	if raiseRatio <= 1 {
		raiseRatio = 1.5
	}
	return &ActionDetector{
		NoiseThreshold: noise,
		AllInThreshold: allIn,
		RaisePotRatio:  raiseRatio,
	}
}

// classifyContext carries everything a classification rule may look at.
type classifyContext struct {
	stackDiff   float64
	potIncrease float64
	prevPot     float64
	curr        *types.FrameState
	allIn       float64
	raiseRatio  float64
}

// classifyRule 是有序决策表中的一行，首个命中的规则决定动作类型。
type classifyRule struct {
	name string
	when func(classifyContext) bool
	kind types.ActionKind
}

// betRules is evaluated top to bottom; order is part of the semantics.
// The raise check is strictly greater than, so a pot increase exactly
// at the ratio boundary does not count as a raise.
var betRules = []classifyRule{
	{
		name: "all_in",
		when: func(c classifyContext) bool {
			for _, p := range c.curr.Players {
				if p.Stack != nil && *p.Stack < c.allIn {
					return true
				}
			}
			return false
		},
		kind: types.ActionAllIn,
	},
	{
		name: "raise",
		when: func(c classifyContext) bool {
			return c.potIncrease > c.stackDiff*c.raiseRatio
		},
		kind: types.ActionRaise,
	},
	{
		name: "call",
		when: func(c classifyContext) bool { return c.prevPot > 0 },
		kind: types.ActionCall,
	},
	{
		name: "bet",
		when: func(classifyContext) bool { return true },
		kind: types.ActionBet,
	},
}

// Detect compares two consecutive frames and returns the actions that
// must have happened between them, one per acting player. The window
// provides behavioral context ending at the current frame.
func (d *ActionDetector) Detect(prev, curr *types.FrameState, window []types.FrameState) []types.ActionEvent {
	if prev == nil || curr == nil {
		return nil
	}
	var events []types.ActionEvent
	for i := range curr.Players {
		cp := &curr.Players[i]
		pp := prev.Player(cp.Name)
		if pp == nil {
			continue
		}
		if ev := d.detectPlayer(pp, cp, prev, curr, window); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

func (d *ActionDetector) detectPlayer(pp, cp *types.PlayerSnapshot, prev, curr *types.FrameState, window []types.FrameState) *types.ActionEvent {
	// A player leaving the hand is visible even when chip counts are not.
	if pp.Active && !cp.Active {
		ev := d.newEvent(cp.Name, types.ActionFold, 0, prev, curr, window)
		ev.Confidence = foldConfidence
		return ev
	}
	if pp.Stack == nil || cp.Stack == nil {
		return nil
	}
	stackDiff := *pp.Stack - *cp.Stack
	if stackDiff <= d.NoiseThreshold {
		return nil
	}
	ctx := classifyContext{
		stackDiff:   stackDiff,
		potIncrease: curr.PotValue() - prev.PotValue(),
		prevPot:     prev.PotValue(),
		curr:        curr,
		allIn:       d.AllInThreshold,
		raiseRatio:  d.RaisePotRatio,
	}
	kind := types.ActionBet
	for _, rule := range betRules {
		if rule.when(ctx) {
			kind = rule.kind
			logger.Debugf("action detector: %s matched %s (stack_diff=%.0f pot_inc=%.0f)", cp.Name, rule.name, stackDiff, ctx.potIncrease)
			break
		}
	}
	ev := d.newEvent(cp.Name, kind, stackDiff, prev, curr, window)
	ev.Confidence = stackConfidence
	return ev
}

func (d *ActionDetector) newEvent(player string, kind types.ActionKind, amount float64, prev, curr *types.FrameState, window []types.FrameState) *types.ActionEvent {
	return &types.ActionEvent{
		Timestamp:     curr.Timestamp,
		Player:        player,
		Kind:          kind,
		Amount:        amount,
		DecisionStart: prev.Timestamp,
		Duration:      curr.Timestamp - prev.Timestamp,
		Behavior:      SummarizeBehavior(window, player),
		Source:        types.SourceVisual,
	}
}
