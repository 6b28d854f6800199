package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"limp/internal/annotation"
	"limp/internal/config"
	"limp/internal/logger"
	"limp/internal/types"
)

const (
	ProtocolAudience = "audience"
	ProtocolPlayer   = "player"
)

// answer provenance
const (
	sourceCommentary = "audio_commentary"
	sourceRuleBased  = "rule_based"
)

// Generator 从感知时间线和标注真值生成多选题数据集。
type Generator struct {
	cfg config.DatasetConfig
}

func NewGenerator(cfg config.DatasetConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Generate 为一个 episode 在指定协议下生成全部题目。
// gt 可以为 nil，此时答案全部来自规则。
func (g *Generator) Generate(ep *types.Episode, gt *annotation.GroundTruth, protocol string) *types.QADataset {
	logger.Infof("dataset: generating QA for episode %s (protocol=%s)", ep.ID, protocol)

	questions := g.actionQuestions(ep, gt, protocol)
	phaseQs := g.phaseQuestions(ep, gt, protocol)
	questions = append(questions, phaseQs...)

	logger.Infof("dataset: generated %d questions (%d action-level, %d phase-level)",
		len(questions), len(questions)-len(phaseQs), len(phaseQs))

	return &types.QADataset{
		EpisodeID: ep.ID,
		Protocol:  protocol,
		Version:   g.cfg.Version,
		Questions: questions,
	}
}

// GenerateAll 对配置中启用的每个协议各生成一份数据集。
func (g *Generator) GenerateAll(ep *types.Episode, gt *annotation.GroundTruth) []*types.QADataset {
	var out []*types.QADataset
	for _, protocol := range g.cfg.Protocols {
		out = append(out, g.Generate(ep, gt, protocol))
	}
	return out
}

// Save writes a dataset to <output_dir>/<episode>_qa_<protocol>.json.
func (g *Generator) Save(ds *types.QADataset) (string, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create dataset dir: %w", err)
	}
	path := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("%s_qa_%s.json", ds.EpisodeID, ds.Protocol))
	raw, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write dataset: %w", err)
	}
	logger.Infof("dataset: saved %d questions to %s", len(ds.Questions), path)
	return path, nil
}

func (g *Generator) actionQuestions(ep *types.Episode, gt *annotation.GroundTruth, protocol string) []types.QAItem {
	var questions []types.QAItem
	count := 0

	for pi := range ep.Timeline {
		phase := &ep.Timeline[pi]
		for _, action := range phase.Actions {
			// folds and checks carry no betting intent to question
			if action.Kind == types.ActionFold || action.Kind == types.ActionCheck {
				continue
			}
			count++
			actionID := fmt.Sprintf("%s_act_%03d", ep.ID, count)

			ctx := g.actionContext(&action, phase, gt, protocol)
			labels := gt.LabelsForTimestamp(action.Timestamp)

			questions = append(questions, g.intentQuestion(actionID, &action, ctx, labels, protocol))

			if action.Amount > g.cfg.BluffAmountThreshold {
				questions = append(questions, g.bluffQuestion(actionID+"_bluff", &action, ctx, labels, protocol))
				if q, ok := g.secondOrderQuestion(actionID+"_belief", &action, phase, ctx, labels, protocol); ok {
					questions = append(questions, q)
				}
			}
		}
	}
	return questions
}

func (g *Generator) phaseQuestions(ep *types.Episode, gt *annotation.GroundTruth, protocol string) []types.QAItem {
	var questions []types.QAItem

	for i := range ep.Timeline {
		phase := &ep.Timeline[i]
		if len(phase.Actions) == 0 {
			continue
		}
		phaseID := fmt.Sprintf("%s_phase_%02d", ep.ID, i)

		players := phasePlayers(phase)
		if len(players) < 2 {
			continue
		}

		ctx := g.phaseContext(phase, gt, protocol)

		for _, player := range players {
			if q, ok := g.strategyQuestion(phaseID+"_"+player, player, phase, ctx, protocol); ok {
				questions = append(questions, q)
			}
		}
		questions = append(questions, g.advantageQuestion(phaseID+"_advantage", players, phase, ctx, protocol))
	}
	return questions
}

func (g *Generator) actionContext(action *types.ActionEvent, phase *types.Phase, gt *annotation.GroundTruth, protocol string) types.QAContext {
	ctx := types.QAContext{
		Phase: phase.Kind,
		Action: &types.ActionRef{
			Player: action.Player,
			Kind:   action.Kind,
			Amount: action.Amount,
		},
		DecisionTime: action.Duration,
		VisibleCards: visibleCards(gt, protocol, action.Player),
	}
	if phase.Final != nil {
		ctx.Board = phase.Final.Board
		ctx.Pot = phase.Final.Pot
	}
	if action.Behavior != nil {
		ctx.Behavior = map[string]*types.BehaviorSummary{action.Player: action.Behavior}
	}
	return ctx
}

func (g *Generator) phaseContext(phase *types.Phase, gt *annotation.GroundTruth, protocol string) types.QAContext {
	ctx := types.QAContext{Phase: phase.Kind}
	if phase.Final != nil {
		ctx.Board = phase.Final.Board
		ctx.Pot = phase.Final.Pot
	}
	ctx.VisibleCards = visibleCards(gt, protocol, "")

	var totalTime float64
	for i := range phase.Actions {
		action := &phase.Actions[i]
		ctx.ActionSequence = append(ctx.ActionSequence, types.ActionRef{
			Player: action.Player,
			Kind:   action.Kind,
			Amount: action.Amount,
		})
		totalTime += action.Duration
		if action.Behavior == nil {
			continue
		}
		if ctx.Behavior == nil {
			ctx.Behavior = make(map[string]*types.BehaviorSummary)
		}
		if existing, ok := ctx.Behavior[action.Player]; ok {
			mergeBehavior(existing, action.Behavior)
		} else {
			cp := *action.Behavior
			ctx.Behavior[action.Player] = &cp
		}
	}
	ctx.DecisionTime = totalTime
	return ctx
}

// visibleCards trims annotated hole cards per protocol: the audience
// sees every revealed hand, a player only their own.
func visibleCards(gt *annotation.GroundTruth, protocol, self string) map[string][]string {
	cards := gt.HoleCards()
	if len(cards) == 0 {
		return nil
	}
	if protocol == ProtocolAudience {
		return cards
	}
	if self == "" {
		return nil
	}
	own, ok := cards[self]
	if !ok {
		return nil
	}
	return map[string][]string{self: own}
}

// mergeBehavior folds a later summary into an earlier one, keeping
// earlier dominants unless the later window observed something.
func mergeBehavior(dst, src *types.BehaviorSummary) {
	if src.DominantPosture != "" {
		dst.DominantPosture = src.DominantPosture
	}
	if src.DominantHands != "" {
		dst.DominantHands = src.DominantHands
	}
	if src.DominantGaze != "" {
		dst.DominantGaze = src.DominantGaze
	}
	if src.DominantEmotion != "" {
		dst.DominantEmotion = src.DominantEmotion
	}
	dst.PostureChanged = dst.PostureChanged || src.PostureChanged
	dst.FidgetingDetected = dst.FidgetingDetected || src.FidgetingDetected
	dst.GazeChanged = dst.GazeChanged || src.GazeChanged
	dst.EmotionChanged = dst.EmotionChanged || src.EmotionChanged
	dst.FrameCount += src.FrameCount
}

// phasePlayers lists the players involved in a phase in a stable
// order: actors first, then remaining active players from the
// opening snapshot.
func phasePlayers(phase *types.Phase) []string {
	seen := make(map[string]bool)
	var players []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		players = append(players, name)
	}
	for _, a := range phase.Actions {
		add(a.Player)
	}
	if phase.Initial != nil {
		for _, p := range phase.Initial.Players {
			if p.Active {
				add(p.Name)
			}
		}
	}
	return players
}

func (g *Generator) intentQuestion(id string, action *types.ActionEvent, ctx types.QAContext, labels *annotation.Labels, protocol string) types.QAItem {
	tpl := intentTemplate(action.Player, action.Kind, action.Amount)

	answer := "A"
	source := sourceRuleBased
	var tom *types.ToMLabels
	if labels != nil {
		source = sourceCommentary
		switch {
		case labels.IsBluff:
			answer = "A"
			tom = &types.ToMLabels{SocialGoal: types.GoalBluff}
		case labels.IsValue:
			answer = "B"
			tom = &types.ToMLabels{SocialGoal: types.GoalValue}
		default:
			answer = "C"
			tom = &types.ToMLabels{SocialGoal: types.GoalControl}
		}
	}

	return types.QAItem{
		ID:           id,
		Level:        types.LevelAction,
		Type:         tpl.Type,
		Protocol:     protocol,
		Timestamp:    action.Timestamp,
		Phase:        ctx.Phase,
		Context:      ctx,
		Question:     tpl.Question,
		Options:      tpl.markCorrect(answer),
		Answer:       answer,
		AnswerSource: source,
		ToM:          tom,
	}
}

func (g *Generator) bluffQuestion(id string, action *types.ActionEvent, ctx types.QAContext, labels *annotation.Labels, protocol string) types.QAItem {
	tpl := bluffTemplate(action.Player, action.Kind, action.Amount)

	answer := "B"
	source := sourceRuleBased
	if labels != nil {
		source = sourceCommentary
		if labels.IsBluff {
			answer = "A"
		}
	}

	return types.QAItem{
		ID:           id,
		Level:        types.LevelAction,
		Type:         tpl.Type,
		Protocol:     protocol,
		Timestamp:    action.Timestamp,
		Phase:        ctx.Phase,
		Context:      ctx,
		Question:     tpl.Question,
		Options:      tpl.markCorrect(answer),
		Answer:       answer,
		AnswerSource: source,
	}
}

// secondOrderQuestion asks what the actor thinks the opponent
// believes. Generated only when the commentary labelled the action,
// a rule-based answer would be a coin flip here.
func (g *Generator) secondOrderQuestion(id string, action *types.ActionEvent, phase *types.Phase, ctx types.QAContext, labels *annotation.Labels, protocol string) (types.QAItem, bool) {
	if labels == nil {
		return types.QAItem{}, false
	}
	opponent := ""
	for _, name := range phasePlayers(phase) {
		if name != action.Player {
			opponent = name
			break
		}
	}
	if opponent == "" {
		return types.QAItem{}, false
	}

	tpl := secondOrderTemplate(action.Player, opponent)
	answer := "C"
	switch {
	case labels.IsBluff:
		// a bluffer wants the opponent to read strength
		answer = "A"
	case labels.IsValue:
		answer = "B"
	}

	return types.QAItem{
		ID:           id,
		Level:        types.LevelAction,
		Type:         tpl.Type,
		Protocol:     protocol,
		Timestamp:    action.Timestamp,
		Phase:        ctx.Phase,
		Context:      ctx,
		Question:     tpl.Question,
		Options:      tpl.markCorrect(answer),
		Answer:       answer,
		AnswerSource: sourceCommentary,
	}, true
}

func (g *Generator) strategyQuestion(id, player string, phase *types.Phase, ctx types.QAContext, protocol string) (types.QAItem, bool) {
	var playerActions []types.ActionEvent
	for _, a := range phase.Actions {
		if a.Player == player {
			playerActions = append(playerActions, a)
		}
	}
	if len(playerActions) == 0 {
		return types.QAItem{}, false
	}

	tpl := strategyTemplate(player, phase.Kind)
	answer := inferStrategy(playerActions)

	return types.QAItem{
		ID:           id,
		Level:        types.LevelPhase,
		Type:         tpl.Type,
		Protocol:     protocol,
		Phase:        phase.Kind,
		Context:      ctx,
		Question:     tpl.Question,
		Options:      tpl.markCorrect(answer),
		Answer:       answer,
		AnswerSource: sourceRuleBased,
	}, true
}

func (g *Generator) advantageQuestion(id string, players []string, phase *types.Phase, ctx types.QAContext, protocol string) types.QAItem {
	tpl := advantageTemplate(players[0], players[1], phase.Kind)
	answer := inferAdvantage(players[0], players[1], phase)

	return types.QAItem{
		ID:           id,
		Level:        types.LevelPhase,
		Type:         tpl.Type,
		Protocol:     protocol,
		Phase:        phase.Kind,
		Context:      ctx,
		Question:     tpl.Question,
		Options:      tpl.markCorrect(answer),
		Answer:       answer,
		AnswerSource: sourceRuleBased,
	}
}

// inferStrategy maps a player's action pattern in a phase to
// A aggressive / B conservative / C deceptive.
func inferStrategy(actions []types.ActionEvent) string {
	if len(actions) == 0 {
		return "B"
	}

	var aggressive, passive, folds int
	deceptionHints := false
	for _, a := range actions {
		switch {
		case a.Kind.Aggressive():
			aggressive++
		case a.Kind.Passive():
			passive++
		case a.Kind == types.ActionFold:
			folds++
		}
		if b := a.Behavior; b != nil && (b.FidgetingDetected || b.PostureChanged) {
			deceptionHints = true
		}
	}

	switch {
	case aggressive > passive:
		return "A"
	case deceptionHints && aggressive > 0:
		return "C"
	case folds > 0:
		return "B"
	case passive > aggressive:
		return "B"
	default:
		return "C"
	}
}

// advantageStackFactor: equal aggression falls back to stacks, a
// fifth more chips counts as an edge.
const advantageStackFactor = 1.2

func inferAdvantage(playerA, playerB string, phase *types.Phase) string {
	var aAggr, bAggr int
	for _, a := range phase.Actions {
		if !a.Kind.Aggressive() {
			continue
		}
		switch a.Player {
		case playerA:
			aAggr++
		case playerB:
			bAggr++
		}
	}
	if aAggr > bAggr {
		return "A"
	}
	if bAggr > aAggr {
		return "B"
	}

	if phase.Final != nil {
		var aStack, bStack *float64
		if p := phase.Final.Player(playerA); p != nil {
			aStack = p.Stack
		}
		if p := phase.Final.Player(playerB); p != nil {
			bStack = p.Stack
		}
		if aStack != nil && bStack != nil {
			if *aStack > *bStack*advantageStackFactor {
				return "A"
			}
			if *bStack > *aStack*advantageStackFactor {
				return "B"
			}
		}
	}
	return "C"
}

