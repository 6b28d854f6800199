package types

// QuestionLevel 题目所处的推理粒度。
type QuestionLevel string

const (
	LevelAction QuestionLevel = "action"
	LevelPhase  QuestionLevel = "phase"
	LevelGame   QuestionLevel = "game"
)

// QuestionType 题目类型。
type QuestionType string

const (
	TypeIntent      QuestionType = "intent"
	TypeBinary      QuestionType = "binary"
	TypeStrategy    QuestionType = "strategy"
	TypeSecondOrder QuestionType = "second_order"
)

// SocialGoal 一次动作背后的社交意图标签。
type SocialGoal string

const (
	GoalBluff   SocialGoal = "bluff"
	GoalValue   SocialGoal = "value"
	GoalControl SocialGoal = "control"
	GoalTrap    SocialGoal = "trap"
	GoalUnknown SocialGoal = "unknown"
)

// OptionKeys is the fixed option ordering used everywhere a
// multiple-choice distribution is indexed or argmaxed.
var OptionKeys = []string{"A", "B", "C", "D", "E"}

// QAOption 单个选项。
type QAOption struct {
	Key     string `json:"key"`
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

// ActionRef 题目上下文中对某次动作的引用。
type ActionRef struct {
	Player string     `json:"player_name"`
	Kind   ActionKind `json:"action_type"`
	Amount float64    `json:"amount"`
}

// QAContext 回答问题时可见的牌局信息，按协议裁剪。
type QAContext struct {
	Phase          PhaseKind                   `json:"phase,omitempty"`
	Board          []string                    `json:"board,omitempty"`
	Pot            *float64                    `json:"pot,omitempty"`
	Action         *ActionRef                  `json:"action,omitempty"`
	ActionSequence []ActionRef                 `json:"action_sequence,omitempty"`
	VisibleCards   map[string][]string         `json:"visible_cards,omitempty"`
	Behavior       map[string]*BehaviorSummary `json:"behavior,omitempty"`
	DecisionTime   float64                     `json:"decision_time,omitempty"`
}

// ToMLabels 标注该题考察的心智状态。
type ToMLabels struct {
	SocialGoal SocialGoal `json:"social_goal,omitempty"`
	Belief     string     `json:"belief,omitempty"`
}

// QAItem 一条多选题，连同规则生成的标准答案。
type QAItem struct {
	ID           string        `json:"question_id"`
	Level        QuestionLevel `json:"level"`
	Type         QuestionType  `json:"question_type"`
	Protocol     string        `json:"protocol"`
	Timestamp    float64       `json:"timestamp,omitempty"`
	Phase        PhaseKind     `json:"phase,omitempty"`
	Context      QAContext     `json:"context"`
	Question     string        `json:"question"`
	Options      []QAOption    `json:"options"`
	Answer       string        `json:"answer"`
	AnswerSource string        `json:"answer_source"`
	ToM          *ToMLabels    `json:"tom_labels,omitempty"`
}

// OptionKeySet returns the option keys present on this item, in order.
func (q *QAItem) OptionKeySet() []string {
	keys := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		keys = append(keys, o.Key)
	}
	return keys
}

// QADataset 一个 episode 生成的全部题目。
type QADataset struct {
	EpisodeID string   `json:"episode_id"`
	Protocol  string   `json:"protocol"`
	Version   string   `json:"version"`
	Questions []QAItem `json:"questions"`
}

// ByLevel filters questions of the given level, preserving order.
func (d *QADataset) ByLevel(level QuestionLevel) []QAItem {
	var out []QAItem
	for _, q := range d.Questions {
		if q.Level == level {
			out = append(out, q)
		}
	}
	return out
}
