package provider

import (
	"fmt"
	"strings"
	"time"

	"limp/internal/config"
	"limp/internal/logger"
)

// BuildProvidersFromConfig 把配置中的模型条目转换为可调用的 provider，
// 跳过被禁用的条目。
func BuildProvidersFromConfig(models []config.ResolvedModelConfig, timeout time.Duration) []ModelProvider {
	out := make([]ModelProvider, 0, len(models))
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			base := strings.TrimSpace(m.Provider)
			if base == "" {
				base = "provider"
			}
			model := strings.TrimSpace(m.Model)
			if model != "" {
				id = fmt.Sprintf("%s:%s", base, model)
			} else {
				id = base
			}
			logger.Warnf("未配置 ai.models.id，已为 %q 生成 ID: %s", m.Provider, id)
		}
		client := &OpenAIChatClient{
			BaseURL:      m.APIURL,
			APIKey:       m.APIKey,
			Model:        m.Model,
			ExtraHeaders: m.Headers,
		}
		if timeout > 0 {
			client.Timeout = timeout
		}
		out = append(out, NewOpenAIModelProvider(id, true, m.SupportsVision, m.ExpectJSON, client))
	}
	return out
}

// SelectProvider returns the provider with the given id, or the first
// enabled one when id is empty. Nil when nothing matches.
func SelectProvider(providers []ModelProvider, id string) ModelProvider {
	id = strings.TrimSpace(id)
	for _, p := range providers {
		if !p.Enabled() {
			continue
		}
		if id == "" || p.ID() == id {
			return p
		}
	}
	return nil
}

// SelectVisionProvider returns the first enabled provider claiming
// vision support, preferring the given id.
func SelectVisionProvider(providers []ModelProvider, id string) ModelProvider {
	if p := SelectProvider(providers, id); p != nil && p.SupportsVision() {
		return p
	}
	for _, p := range providers {
		if p.Enabled() && p.SupportsVision() {
			return p
		}
	}
	return nil
}
