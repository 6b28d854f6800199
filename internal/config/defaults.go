package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9935"
	defaultAppLogPath      = "data/logs/limp.log"
	defaultAppLLMLogPath   = "data/logs/limp-llm.log"
	defaultDebounceFrames  = 3
	defaultNoiseThreshold  = 100
	defaultAllInThreshold  = 100
	defaultRaisePotRatio   = 1.5
	defaultBehaviorWindow  = 5
	defaultWorkers         = 4
	defaultExtractorCache  = "data/db/frame_cache.db"
	defaultMemCacheSize    = 256
	defaultExtractorRetry  = 3
	defaultFramesDir       = "data/frames"
	defaultFrameFPS        = 1.0
	defaultSampleFPS       = 1.0
	defaultEquityIters     = 10000
	defaultFusionMethod    = "product"
	defaultDecisionSlow    = 10
	defaultDecisionFast    = 2
	defaultAITimeout       = 120
	defaultAICallLogPath   = "data/db/llm_calls.db"
	defaultDatasetDir      = "data/datasets"
	defaultDatasetVersion  = "v3"
	defaultBluffAmount     = 10000
	defaultAnnotationDir   = "data/annotations"
	defaultStorePath       = "data/db/limp.db"
	defaultReportDir       = "data/reports"
	defaultPromptTemplates = "configs/prompts.yaml"
)

// 融合权重默认值，按 agent 名索引。
var defaultFusionWeights = map[string]float64{
	"posture": 0.2,
	"equity":  0.15,
	"belief":  0.3,
	"social":  0.35,
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
	c.Extractor.applyDefaults(keys)
	c.Equity.applyDefaults(keys)
	c.Fusion.applyDefaults(keys)
	c.Prompt.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Dataset.applyDefaults(keys)
	c.Annotation.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "pipeline.debounce_frames",
			need:  func() bool { return p.DebounceFrames <= 0 },
			apply: func() { p.DebounceFrames = defaultDebounceFrames },
		},
		fieldDefault{
			key:   "pipeline.noise_threshold",
			need:  func() bool { return p.NoiseThreshold <= 0 },
			apply: func() { p.NoiseThreshold = defaultNoiseThreshold },
		},
		fieldDefault{
			key:   "pipeline.all_in_threshold",
			need:  func() bool { return p.AllInThreshold <= 0 },
			apply: func() { p.AllInThreshold = defaultAllInThreshold },
		},
		fieldDefault{
			key:   "pipeline.raise_pot_ratio",
			need:  func() bool { return p.RaisePotRatio <= 0 },
			apply: func() { p.RaisePotRatio = defaultRaisePotRatio },
		},
		fieldDefault{
			key:   "pipeline.behavior_window",
			need:  func() bool { return p.BehaviorWindow <= 0 },
			apply: func() { p.BehaviorWindow = defaultBehaviorWindow },
		},
		fieldDefault{
			key:   "pipeline.workers",
			need:  func() bool { return p.Workers <= 0 },
			apply: func() { p.Workers = defaultWorkers },
		},
	)
}

func (e *ExtractorConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("extractor.validate_schema", &e.ValidateSchema, true),
		stringFieldDefault("extractor.cache_path", &e.CachePath, defaultExtractorCache),
		fieldDefault{
			key:   "extractor.mem_cache_size",
			need:  func() bool { return e.MemCacheSize <= 0 },
			apply: func() { e.MemCacheSize = defaultMemCacheSize },
		},
		fieldDefault{
			key:   "extractor.max_retries",
			need:  func() bool { return e.MaxRetries <= 0 },
			apply: func() { e.MaxRetries = defaultExtractorRetry },
		},
		stringFieldDefault("extractor.frames_dir", &e.FramesDir, defaultFramesDir),
		fieldDefault{
			key:   "extractor.fps",
			need:  func() bool { return e.FPS <= 0 },
			apply: func() { e.FPS = defaultFrameFPS },
		},
		fieldDefault{
			key:   "extractor.sample_fps",
			need:  func() bool { return e.SampleFPS <= 0 },
			apply: func() { e.SampleFPS = defaultSampleFPS },
		},
	)
}

func (e *EquityConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "equity.iterations",
			need:  func() bool { return e.Iterations <= 0 },
			apply: func() { e.Iterations = defaultEquityIters },
		},
	)
}

func (f *FusionConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("fusion.method", &f.Method, defaultFusionMethod),
		fieldDefault{
			key:   "fusion.decision_time_slow",
			need:  func() bool { return f.DecisionTimeSlow <= 0 },
			apply: func() { f.DecisionTimeSlow = defaultDecisionSlow },
		},
		fieldDefault{
			key:   "fusion.decision_time_fast",
			need:  func() bool { return f.DecisionTimeFast <= 0 },
			apply: func() { f.DecisionTimeFast = defaultDecisionFast },
		},
	)
	if f.Weights == nil {
		f.Weights = make(map[string]float64)
	}
	for name, w := range defaultFusionWeights {
		if _, ok := f.Weights[name]; !ok {
			f.Weights[name] = w
		}
	}
}

func (p *PromptConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("prompt.dir", &p.Dir, "prompts"),
		stringFieldDefault("prompt.templates_path", &p.TemplatesPath, defaultPromptTemplates),
		stringFieldDefault("prompt.system_template", &p.SystemTemplate, "default"),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	if a.ProviderPresets == nil {
		a.ProviderPresets = make(map[string]ModelPreset)
	}
	applyFieldDefaults(keys,
		boolFieldDefault("ai.log_each_model", &a.LogEachModel, true),
		stringFieldDefault("ai.call_log_path", &a.CallLogPath, defaultAICallLogPath),
		fieldDefault{
			key:   "ai.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAITimeout },
		},
	)
	a.ProviderPreference = normalizePreferenceList(a.ProviderPreference)
}

func (d *DatasetConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("dataset.output_dir", &d.OutputDir, defaultDatasetDir),
		stringFieldDefault("dataset.version", &d.Version, defaultDatasetVersion),
		fieldDefault{
			key:   "dataset.bluff_amount_threshold",
			need:  func() bool { return d.BluffAmountThreshold <= 0 },
			apply: func() { d.BluffAmountThreshold = defaultBluffAmount },
		},
	)
	if len(d.Protocols) == 0 {
		d.Protocols = []string{"audience", "player"}
	}
}

func (a *AnnotationConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("annotation.dir", &a.Dir, defaultAnnotationDir),
		boolFieldDefault("annotation.enabled", &a.Enabled, true),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("report.output_dir", &r.OutputDir, defaultReportDir),
		boolFieldDefault("report.charts", &r.Charts, true),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizePreferenceList(pref []string) []string {
	if len(pref) == 0 {
		return nil
	}
	out := make([]string, 0, len(pref))
	seen := make(map[string]bool, len(pref))
	for _, id := range pref {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
