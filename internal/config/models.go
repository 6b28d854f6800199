package config

import (
	"fmt"
	"strings"
)

// ResolveModelConfigs merges each model entry with its preset and
// returns the final connection settings, preserving declaration order.
func (a *AIConfig) ResolveModelConfigs() ([]ResolvedModelConfig, error) {
	out := make([]ResolvedModelConfig, 0, len(a.Models))
	for i, m := range a.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			id = fmt.Sprintf("model_%d", i)
		}
		resolved := ResolvedModelConfig{
			ID:       id,
			Provider: strings.TrimSpace(m.Provider),
			Enabled:  m.Enabled,
			APIURL:   strings.TrimSpace(m.APIURL),
			APIKey:   strings.TrimSpace(m.APIKey),
			Model:    strings.TrimSpace(m.Model),
			Headers:  mergeHeaders(nil, m.Headers),
		}
		presetName := strings.TrimSpace(m.Preset)
		if presetName != "" {
			preset, ok := a.ProviderPresets[presetName]
			if !ok {
				return nil, fmt.Errorf("ai.models.%s references unknown preset: %s", id, presetName)
			}
			if resolved.APIURL == "" {
				resolved.APIURL = strings.TrimSpace(preset.APIURL)
			}
			if resolved.APIKey == "" {
				resolved.APIKey = strings.TrimSpace(preset.APIKey)
			}
			resolved.Headers = mergeHeaders(preset.Headers, m.Headers)
			resolved.SupportsVision = preset.SupportsVision
			resolved.ExpectJSON = preset.ExpectJSON
		}
		if m.SupportsVision != nil {
			resolved.SupportsVision = *m.SupportsVision
		}
		if m.ExpectJSON != nil {
			resolved.ExpectJSON = *m.ExpectJSON
		}
		out = append(out, resolved)
	}
	return out, nil
}

func mergeHeaders(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
