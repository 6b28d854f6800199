package annotation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"limp/internal/logger"
	"limp/internal/types"
)

// Segment 解说音频转写出的一个带时间戳的片段。
type Segment struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Text  string  `yaml:"text" json:"text"`
}

// Labels 从一段解说中抽取出的动作级标签。
type Labels struct {
	IsBluff bool             `yaml:"is_bluff,omitempty" json:"is_bluff,omitempty"`
	IsValue bool             `yaml:"is_value,omitempty" json:"is_value,omitempty"`
	Action  types.ActionKind `yaml:"action,omitempty" json:"action,omitempty"`
}

// Empty reports whether no label was extracted.
func (l Labels) Empty() bool {
	return !l.IsBluff && !l.IsValue && l.Action == ""
}

// ActionGT 覆盖某个时间区间的动作级真值条目。
type ActionGT struct {
	Start  float64 `yaml:"start" json:"start"`
	End    float64 `yaml:"end" json:"end"`
	Text   string  `yaml:"text,omitempty" json:"text,omitempty"`
	Labels Labels  `yaml:"labels" json:"labels"`
}

// PlayerFact 解说中提到的玩家事实，底牌用于 audience 协议的可见牌。
type PlayerFact struct {
	Name      string   `yaml:"name" json:"name"`
	HoleCards []string `yaml:"hole_cards,omitempty" json:"hole_cards,omitempty"`
	Position  string   `yaml:"position,omitempty" json:"position,omitempty"`
}

// Facts 整手牌级别的真值事实。
type Facts struct {
	Players          []PlayerFact `yaml:"players,omitempty" json:"players,omitempty"`
	Winner           string       `yaml:"winner,omitempty" json:"winner,omitempty"`
	FinalHand        string       `yaml:"final_hand,omitempty" json:"final_hand,omitempty"`
	StrategyInsights []string     `yaml:"strategy_insights,omitempty" json:"strategy_insights,omitempty"`
}

// GroundTruth 一个 episode 的全部标注真值。音频只用于出题，不参与推理。
type GroundTruth struct {
	Transcript string     `yaml:"transcript,omitempty" json:"transcript,omitempty"`
	Segments   []Segment  `yaml:"segments,omitempty" json:"segments,omitempty"`
	Facts      Facts      `yaml:"facts,omitempty" json:"facts,omitempty"`
	ActionGT   []ActionGT `yaml:"action_gt,omitempty" json:"action_gt,omitempty"`
}

// gtTrailingWindow extends each GT interval forward, the commentary
// usually lags the action on screen.
const gtTrailingWindow = 5.0

// LabelsForTimestamp returns the labels of the first GT entry whose
// interval covers ts, or nil when none does.
func (g *GroundTruth) LabelsForTimestamp(ts float64) *Labels {
	if g == nil {
		return nil
	}
	for i := range g.ActionGT {
		entry := &g.ActionGT[i]
		if entry.Start <= ts && ts <= entry.End+gtTrailingWindow {
			return &entry.Labels
		}
	}
	return nil
}

// HoleCards returns the annotated hole cards per player, or nil when
// the commentary never revealed any.
func (g *GroundTruth) HoleCards() map[string][]string {
	if g == nil {
		return nil
	}
	var out map[string][]string
	for _, p := range g.Facts.Players {
		if len(p.HoleCards) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[p.Name] = p.HoleCards
	}
	return out
}

// Library 从标注目录按 episode 读取真值文件（<episode_id>.yaml）。
type Library struct {
	dir string
}

// NewLibrary 创建真值库；dir 为空表示没有任何标注。
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// ForEpisode loads the ground truth for an episode. A missing file is
// not an error, it just means the episode has no annotation.
func (l *Library) ForEpisode(episodeID string) (*GroundTruth, error) {
	if l == nil || l.dir == "" {
		return nil, nil
	}
	path := filepath.Join(l.dir, episodeID+".yaml")
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debugf("annotation: no ground truth for episode %s", episodeID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ground truth %s: %w", path, err)
	}
	var gt GroundTruth
	if err := yaml.Unmarshal(raw, &gt); err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}
	if len(gt.ActionGT) == 0 && len(gt.Segments) > 0 {
		gt.ActionGT = ExtractActionGT(gt.Segments)
	}
	logger.Infof("annotation: loaded ground truth for %s (%d action entries)", episodeID, len(gt.ActionGT))
	return &gt, nil
}
