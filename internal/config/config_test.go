package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":9935", cfg.App.HTTPAddr)
	assert.Equal(t, 3, cfg.Pipeline.DebounceFrames)
	assert.Equal(t, 1.0, cfg.Extractor.FPS)
	assert.Equal(t, "data/frames", cfg.Extractor.FramesDir)
	assert.Equal(t, 10000, cfg.Equity.Iterations)
	assert.Equal(t, "product", cfg.Fusion.Method)
	assert.InDelta(t, 0.35, cfg.Fusion.Weights["social"], 1e-9)
	assert.Equal(t, []string{"audience", "player"}, cfg.Dataset.Protocols)
	assert.Equal(t, "data/db/llm_calls.db", cfg.AI.CallLogPath)
	assert.True(t, cfg.Report.Charts)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  debounce_frames: 5
  workers: 2
fusion:
  method: weighted
  weights:
    posture: 0.5
dataset:
  protocols: [player]
  bluff_amount_threshold: 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.DebounceFrames)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, "weighted", cfg.Fusion.Method)
	assert.InDelta(t, 0.5, cfg.Fusion.Weights["posture"], 1e-9)
	// unspecified weights keep defaults
	assert.InDelta(t, 0.3, cfg.Fusion.Weights["belief"], 1e-9)
	assert.Equal(t, []string{"player"}, cfg.Dataset.Protocols)
	assert.InDelta(t, 5000, cfg.Dataset.BluffAmountThreshold, 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad fusion method": `
fusion:
  method: vote
`,
		"bad protocol": `
dataset:
  protocols: [spectator]
`,
		"raise ratio too low": `
pipeline:
  raise_pot_ratio: 0.5
`,
		"enabled model without model name": `
ai:
  models:
    - id: broken
      provider: openrouter
      api_url: https://example.com/v1
      enabled: true
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestResolveModelConfigsMergesPresets(t *testing.T) {
	ai := AIConfig{
		ProviderPresets: map[string]ModelPreset{
			"openrouter": {
				APIURL:         "https://openrouter.ai/api/v1",
				APIKey:         "preset-key",
				SupportsVision: true,
				ExpectJSON:     true,
			},
		},
		Models: []AIModelConfig{
			{ID: "vl", Provider: "openrouter", Preset: "openrouter", Model: "qwen-vl", Enabled: true},
			{ID: "txt", Provider: "openrouter", Preset: "openrouter", Model: "deepseek", Enabled: true,
				APIKey: "own-key", SupportsVision: boolPtr(false)},
		},
	}
	resolved, err := ai.ResolveModelConfigs()
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	assert.Equal(t, "https://openrouter.ai/api/v1", resolved[0].APIURL)
	assert.Equal(t, "preset-key", resolved[0].APIKey)
	assert.True(t, resolved[0].SupportsVision)

	// explicit fields override the preset
	assert.Equal(t, "own-key", resolved[1].APIKey)
	assert.False(t, resolved[1].SupportsVision)
}

func TestAgentEnabled(t *testing.T) {
	f := FusionConfig{}
	assert.True(t, f.AgentEnabled("posture"))

	f.Agents = []string{"Posture", " equity "}
	assert.True(t, f.AgentEnabled("posture"))
	assert.True(t, f.AgentEnabled("equity"))
	assert.False(t, f.AgentEnabled("belief"))
}

func TestProtocolEnabled(t *testing.T) {
	d := DatasetConfig{Protocols: []string{"audience"}}
	assert.True(t, d.ProtocolEnabled("Audience"))
	assert.False(t, d.ProtocolEnabled("player"))
}

func boolPtr(v bool) *bool { return &v }
