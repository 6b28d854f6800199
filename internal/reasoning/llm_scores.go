package reasoning

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// extractJSONBody strips markdown code fences, which smaller models
// wrap around JSON even when told not to.
func extractJSONBody(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start > 0 {
		s = s[start:]
	}
	return s
}

// llmScores is the parsed shape of a reasoning model's answer.
type llmScores struct {
	Scores     map[string]float64
	Reasoning  string
	Confidence float64
	// Inferred 保存模型给出的分类标签（如 social goal），可为空。
	Inferred string
}

// parseLLMScores pulls option scores out of a model response without
// requiring strict JSON. A response that is just a bare option letter
// still parses, matching how weaker models answer.
func parseLLMScores(raw string, keys []string) (llmScores, error) {
	body := extractJSONBody(raw)
	out := llmScores{Scores: make(map[string]float64, len(keys))}
	if gjson.Valid(body) {
		root := gjson.Parse(body)
		scores := root.Get("option_scores")
		if !scores.Exists() {
			scores = root
		}
		found := false
		for _, k := range keys {
			if v := scores.Get(k); v.Exists() {
				out.Scores[k] = v.Float()
				found = true
			}
		}
		if found {
			out.Reasoning = firstString(root, "reasoning", "belief_analysis", "analysis")
			out.Inferred = firstString(root, "inferred_social_goal", "social_goal")
			if c := root.Get("confidence"); c.Exists() {
				out.Confidence = c.Float()
			} else {
				out.Confidence = 0.5
			}
			return out, nil
		}
	}
	// Last resort: treat a leading option letter as a hard vote.
	first := strings.ToUpper(strings.TrimSpace(raw))
	if first != "" {
		letter := string(first[0])
		for _, k := range keys {
			if k == letter {
				for _, kk := range keys {
					out.Scores[kk] = 0
				}
				out.Scores[letter] = 1
				out.Confidence = 0.5
				return out, nil
			}
		}
	}
	return out, fmt.Errorf("no option scores in model output")
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
