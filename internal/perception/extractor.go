package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"limp/internal/config"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/poker"
	"limp/internal/types"
)

// extractionPrompt 帧解析默认提示词；prompts 配置里有 frame_extraction
// 模板时以模板为准。
const extractionPrompt = `Analyze this poker game frame. Extract strict JSON:

1. "phase": Pre-flop/Flop/Turn/River/Showdown/Unknown
2. "pot": Total pot value (number). If unsure, output null.
3. "board": List of community cards ["Ah", "Kd", "7c"] etc. Empty list if pre-flop.
4. "players": List of visible players. For EACH player:
   - "name": Name or identifier visible on screen
   - "stack": Current stack size (number). If unreadable, output null.
   - "position": "SB" or "BB" (look for Dealer button)
   - "is_active": Boolean (has not folded, still in hand)
   - "hole_cards": List like ["Ah", "??"] if shown, else empty list
   - "behavioral_cues":
     - "posture": "Leaning forward" / "Leaning back" / "Neutral"
     - "hands": "Playing with chips" / "Touching face" / "Hidden" / "Folded" / "On table"
     - "gaze": "Staring at opponent" / "Looking at board" / "Looking down" / "Looking away"
     - "emotion": "Neutral" / "Tense" / "Confident" / "Uncertain"

Output ONLY the JSON object, no markdown formatting.`

// frameStateSchema rejects structurally broken VLM replies before they
// reach the timeline.
const frameStateSchema = `{
  "type": "object",
  "required": ["phase"],
  "properties": {
    "phase": {"type": "string"},
    "pot": {"type": ["number", "string", "null"]},
    "board": {"type": ["array", "null"], "items": {"type": "string"}},
    "players": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "stack": {"type": ["number", "string", "null"]},
          "position": {"type": ["string", "null"]},
          "is_active": {"type": ["boolean", "null"]},
          "hole_cards": {"type": ["array", "null"], "items": {"type": "string"}},
          "behavioral_cues": {"type": ["object", "null"]}
        }
      }
    }
  }
}`

func compileFrameSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("frame_state.json", strings.NewReader(frameStateSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("frame_state.json")
}

// FrameExtractor 调用视觉模型把单帧截图转成结构化 FrameState。
type FrameExtractor struct {
	provider   provider.ModelProvider
	cache      *FrameCache
	schema     *jsonschema.Schema
	prompt     string
	maxRetries int
}

// NewFrameExtractor builds an extractor around the given vision
// provider. cache may be nil to disable caching.
func NewFrameExtractor(p provider.ModelProvider, cache *FrameCache, cfg config.ExtractorConfig) *FrameExtractor {
	ex := &FrameExtractor{
		provider:   p,
		cache:      cache,
		prompt:     extractionPrompt,
		maxRetries: cfg.MaxRetries,
	}
	if cfg.ValidateSchema {
		ex.schema = compileFrameSchema()
	}
	if ex.maxRetries < 1 {
		ex.maxRetries = 1
	}
	return ex
}

// SetPrompt overrides the extraction prompt (hot-reloaded templates).
func (e *FrameExtractor) SetPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		e.prompt = prompt
	}
}

// Extract returns the game state visible on one frame. Model failures
// degrade to an Unknown-phase state instead of failing the episode.
func (e *FrameExtractor) Extract(ctx context.Context, episodeID string, frameIdx int, timestamp float64, image provider.ImagePayload) (*types.FrameState, error) {
	if state, ok := e.cache.Get(episodeID, frameIdx); ok {
		logger.Debugf("frame %s#%d served from cache", episodeID, frameIdx)
		return state, nil
	}
	if e.provider == nil || !e.provider.Enabled() {
		return nil, fmt.Errorf("no vision provider available")
	}

	payload := provider.ChatPayload{
		User:       e.prompt,
		Images:     []provider.ImagePayload{image},
		ExpectJSON: true,
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		reply, err := e.provider.Call(ctx, payload)
		if err != nil {
			lastErr = err
			logger.Warnf("frame extraction attempt %d/%d failed at %.1fs: %v", attempt+1, e.maxRetries, timestamp, err)
			continue
		}
		state, err := e.parseReply(reply, timestamp)
		if err != nil {
			lastErr = err
			logger.Warnf("frame reply rejected at %.1fs: %v", timestamp, err)
			continue
		}
		if err := e.cache.Put(episodeID, frameIdx, state); err != nil {
			logger.Warnf("frame cache write failed: %v", err)
		}
		return state, nil
	}

	// degraded placeholder keeps the timeline index-aligned
	logger.Errorf("frame extraction gave up at %.1fs: %v", timestamp, lastErr)
	return &types.FrameState{Timestamp: timestamp, Phase: types.PhaseUnknown}, nil
}

func (e *FrameExtractor) parseReply(reply string, timestamp float64) (*types.FrameState, error) {
	body := extractJSONObject(reply)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	if e.schema != nil {
		var doc any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("reply is not valid JSON: %w", err)
		}
		if err := e.schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("reply failed schema validation: %w", err)
		}
	}
	return parseFrameState(body, timestamp), nil
}

// parseFrameState 容错地把模型 JSON 转成 FrameState：
// 不认识的阶段归为 Unknown，读不出的数值保留 nil。
func parseFrameState(body string, timestamp float64) *types.FrameState {
	root := gjson.Parse(body)
	state := &types.FrameState{
		Timestamp: timestamp,
		Phase:     parsePhase(root.Get("phase").String()),
	}

	if pot, ok := parseOptionalAmount(root.Get("pot")); ok {
		state.Pot = &pot
	}

	root.Get("board").ForEach(func(_, v gjson.Result) bool {
		state.Board = append(state.Board, normalizeCardLabel(v.String()))
		return true
	})

	root.Get("players").ForEach(func(_, v gjson.Result) bool {
		name := v.Get("name").String()
		if name == "" {
			name = "Unknown"
		}
		snap := types.PlayerSnapshot{
			Name:     name,
			Position: v.Get("position").String(),
			Active:   true,
		}
		if active := v.Get("is_active"); active.Exists() && active.Type != gjson.Null {
			snap.Active = active.Bool()
		}
		if stack, ok := parseOptionalAmount(v.Get("stack")); ok {
			snap.Stack = &stack
		}
		v.Get("hole_cards").ForEach(func(_, c gjson.Result) bool {
			snap.HoleCards = append(snap.HoleCards, normalizeCardLabel(c.String()))
			return true
		})
		if cues := parseCues(v.Get("behavioral_cues")); !cues.Empty() {
			snap.Cues = cues
		}
		state.Players = append(state.Players, snap)
		return true
	})

	return state
}

func parsePhase(label string) types.PhaseKind {
	phase := types.PhaseKind(strings.TrimSpace(label))
	if phase.Order() >= 0 {
		return phase
	}
	return types.PhaseUnknown
}

// parseOptionalAmount accepts numbers and overlay strings like "123k".
func parseOptionalAmount(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		amount, err := poker.ParseAmount(v.String())
		if err != nil {
			return 0, false
		}
		return amount, true
	default:
		return 0, false
	}
}

func normalizeCardLabel(label string) string {
	return poker.NormalizeCard(label)
}

func parseCues(v gjson.Result) *types.BehavioralCues {
	if !v.IsObject() {
		return nil
	}
	return &types.BehavioralCues{
		Posture: v.Get("posture").String(),
		Hands:   v.Get("hands").String(),
		Gaze:    v.Get("gaze").String(),
		Emotion: v.Get("emotion").String(),
	}
}

// extractJSONObject tolerates markdown fences around the object.
func extractJSONObject(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
