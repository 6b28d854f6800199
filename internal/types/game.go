package types

// PhaseKind 表示一手牌的阶段（街）。
type PhaseKind string

const (
	PhasePreFlop  PhaseKind = "Pre-flop"
	PhaseFlop     PhaseKind = "Flop"
	PhaseTurn     PhaseKind = "Turn"
	PhaseRiver    PhaseKind = "River"
	PhaseShowdown PhaseKind = "Showdown"
	PhaseUnknown  PhaseKind = "Unknown"
)

// phaseOrder fixes the only legal progression; Unknown never confirms.
var phaseOrder = map[PhaseKind]int{
	PhasePreFlop:  0,
	PhaseFlop:     1,
	PhaseTurn:     2,
	PhaseRiver:    3,
	PhaseShowdown: 4,
	PhaseUnknown:  -1,
}

// Order returns the position of the phase in the forward progression,
// or -1 for Unknown / unrecognized labels.
func (p PhaseKind) Order() int {
	if v, ok := phaseOrder[p]; ok {
		return v
	}
	return -1
}

// ActionKind 表示玩家动作类型。
type ActionKind string

const (
	ActionCheck   ActionKind = "check"
	ActionBet     ActionKind = "bet"
	ActionCall    ActionKind = "call"
	ActionRaise   ActionKind = "raise"
	ActionFold    ActionKind = "fold"
	ActionAllIn   ActionKind = "all-in"
	ActionUnknown ActionKind = "unknown"
)

// Aggressive reports whether the action applies pressure on the opponent.
func (a ActionKind) Aggressive() bool {
	switch a {
	case ActionBet, ActionRaise, ActionAllIn:
		return true
	}
	return false
}

// Passive reports whether the action yields initiative.
func (a ActionKind) Passive() bool {
	switch a {
	case ActionCheck, ActionCall:
		return true
	}
	return false
}

// BehavioralCues 单帧的微表情/体态观察，各维度均可缺失。
type BehavioralCues struct {
	Posture string `json:"posture,omitempty"` // Leaning forward / Leaning back / Neutral
	Hands   string `json:"hands,omitempty"`   // Playing with chips / Touching face / Hidden / Folded
	Gaze    string `json:"gaze,omitempty"`    // Staring at opponent / Looking at board / Looking down
	Emotion string `json:"emotion,omitempty"` // Neutral / Tense / Confident / Uncertain
}

// Empty reports whether no dimension carries a value.
func (c *BehavioralCues) Empty() bool {
	return c == nil || (c.Posture == "" && c.Hands == "" && c.Gaze == "" && c.Emotion == "")
}

// PlayerSnapshot 单个玩家在某一帧的状态。
type PlayerSnapshot struct {
	Name      string          `json:"name"`
	Position  string          `json:"position,omitempty"` // SB / BB
	Stack     *float64        `json:"stack"`              // nil = unreadable on this frame
	HoleCards []string        `json:"hole_cards,omitempty"`
	Active    bool            `json:"is_active"`
	Cues      *BehavioralCues `json:"behavioral_cues,omitempty"`
}

// FrameState 单个采样帧的完整牌局状态，由感知层产出后不再修改。
type FrameState struct {
	Timestamp float64          `json:"timestamp"`
	Phase     PhaseKind        `json:"phase"`
	Board     []string         `json:"board"`
	Pot       *float64         `json:"pot"`
	Players   []PlayerSnapshot `json:"players"`
}

// Player returns the snapshot with the given name, or nil.
func (s *FrameState) Player(name string) *PlayerSnapshot {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return &s.Players[i]
		}
	}
	return nil
}

// PotValue returns the pot or 0 when unreadable.
func (s *FrameState) PotValue() float64 {
	if s.Pot == nil {
		return 0
	}
	return *s.Pot
}

// BehaviorSummary 聚合决策窗口内的行为线索。
type BehaviorSummary struct {
	DominantPosture   string `json:"dominant_posture,omitempty"`
	PostureChanged    bool   `json:"posture_changed"`
	DominantHands     string `json:"dominant_hands,omitempty"`
	FidgetingDetected bool   `json:"fidgeting_detected"`
	DominantGaze      string `json:"dominant_gaze,omitempty"`
	GazeChanged       bool   `json:"gaze_changed"`
	DominantEmotion   string `json:"dominant_emotion,omitempty"`
	EmotionChanged    bool   `json:"emotion_changed"`
	FrameCount        int    `json:"frame_count"`
}

// Detection sources for ActionEvent.
const (
	SourceVisual   = "visual"
	SourceAudioGT  = "audio_gt"
	SourceInferred = "inferred"
)

// ActionEvent 由状态差分推断出的一次离散玩家动作；创建后只追加不修改。
type ActionEvent struct {
	Timestamp     float64          `json:"timestamp"`
	Player        string           `json:"player_name"`
	Kind          ActionKind       `json:"action_type"`
	Amount        float64          `json:"amount"`
	DecisionStart float64          `json:"decision_start_time"`
	Duration      float64          `json:"duration"`
	Behavior      *BehaviorSummary `json:"behavioral_summary,omitempty"`
	Source        string           `json:"detection_source"`
	Confidence    float64          `json:"confidence"`
}

// Phase 一段已确认阶段的完整记录，关闭后不可变。
type Phase struct {
	Kind    PhaseKind     `json:"phase"`
	Start   float64       `json:"start_time"`
	End     float64       `json:"end_time"`
	Actions []ActionEvent `json:"actions"`
	Initial *FrameState   `json:"initial_state,omitempty"`
	Final   *FrameState   `json:"final_state,omitempty"`
}

// Episode 一手牌的全部感知输出。
type Episode struct {
	ID       string         `json:"episode_id"`
	Protocol string         `json:"protocol"` // "audience" | "player"
	Meta     map[string]any `json:"meta,omitempty"`
	Timeline []Phase        `json:"timeline"`
}

// Actions flattens the timeline into a single time-ordered sequence.
func (e *Episode) Actions() []ActionEvent {
	var out []ActionEvent
	for _, p := range e.Timeline {
		out = append(out, p.Actions...)
	}
	return out
}
