package config

import "strings"

// Config 是 LIMP 的主配置载体。
type Config struct {
	App        AppConfig       `toml:"app"`
	Pipeline   PipelineConfig  `toml:"pipeline"`
	Extractor  ExtractorConfig `toml:"extractor"`
	Equity     EquityConfig    `toml:"equity"`
	Fusion     FusionConfig    `toml:"fusion"`
	Prompt     PromptConfig    `toml:"prompt"`
	AI         AIConfig        `toml:"ai"`
	Dataset    DatasetConfig   `toml:"dataset"`
	Annotation AnnotationConfig `toml:"annotation"`
	Store      StoreConfig     `toml:"store"`
	Report     ReportConfig    `toml:"report"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// PipelineConfig 控制感知流水线的状态机参数。
type PipelineConfig struct {
	// DebounceFrames 连续一致帧数达到该值才确认阶段切换。
	DebounceFrames int `toml:"debounce_frames"`
	// NoiseThreshold 小于该值的筹码变动按读数噪声忽略。
	NoiseThreshold float64 `toml:"noise_threshold"`
	// AllInThreshold 剩余筹码低于该值时大额下注判为 all-in。
	AllInThreshold float64 `toml:"all_in_threshold"`
	// RaisePotRatio 底池增量超过筹码减量的该倍数时判为 raise。
	RaisePotRatio float64 `toml:"raise_pot_ratio"`
	// BehaviorWindow 决策窗口回看的帧数。
	BehaviorWindow int `toml:"behavior_window"`
	// Workers 并行处理 episode 的协程数。
	Workers int `toml:"workers"`
}

// ExtractorConfig 控制视觉帧状态抽取。
type ExtractorConfig struct {
	Provider       string `toml:"provider"`
	ValidateSchema bool   `toml:"validate_schema"`
	CachePath      string `toml:"cache_path"`
	MemCacheSize   int    `toml:"mem_cache_size"`
	MaxRetries     int    `toml:"max_retries"`
	// FramesDir 帧图片根目录，每个 episode 一个同名子目录。
	FramesDir string `toml:"frames_dir"`
	// FPS 抽帧时源视频的帧率，用于把帧序号换算为秒。
	FPS       float64 `toml:"fps"`
	SampleFPS float64 `toml:"sample_fps"`
}

// EquityConfig 控制蒙特卡洛胜率估计。
type EquityConfig struct {
	Iterations int   `toml:"iterations"`
	Seed       int64 `toml:"seed"`
}

// FusionConfig 控制多证据概率融合。
type FusionConfig struct {
	// Method "product" (专家乘积) 或 "weighted" (加权平均)。
	Method  string             `toml:"method"`
	Weights map[string]float64 `toml:"weights"`
	// Agents 为空时启用全部内置 agent。
	Agents []string `toml:"agents"`
	// DecisionTimeSlow/Fast 决策时长的快慢阈值（秒）。
	DecisionTimeSlow float64 `toml:"decision_time_slow"`
	DecisionTimeFast float64 `toml:"decision_time_fast"`
}

type PromptConfig struct {
	Dir            string `toml:"dir"`
	TemplatesPath  string `toml:"templates_path"`
	SystemTemplate string `toml:"system_template"`
}

// AIConfig 包含模型网关相关的所有设置。
type AIConfig struct {
	LogEachModel bool `toml:"log_each_model"`
	// CallLogPath 模型调用审计库，LogEachModel 打开时生效。
	CallLogPath        string                 `toml:"call_log_path"`
	ProviderPreference []string               `toml:"provider_preference"`
	ProviderPresets    map[string]ModelPreset `toml:"provider_presets"`
	Models             []AIModelConfig        `toml:"models"`
	TimeoutSeconds     int                    `toml:"timeout_seconds"`
}

// ModelPreset 描述可复用的 API 连接配置。
type ModelPreset struct {
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	Headers        map[string]string `toml:"headers"`
	SupportsVision bool              `toml:"supports_vision"`
	ExpectJSON     bool              `toml:"expect_json"`
}

// AIModelConfig 代表一个可被调用的模型条目。
type AIModelConfig struct {
	ID       string            `toml:"id"`
	Provider string            `toml:"provider"`
	Preset   string            `toml:"preset"`
	Enabled  bool              `toml:"enabled"`
	APIURL   string            `toml:"api_url"`
	APIKey   string            `toml:"api_key"`
	Model    string            `toml:"model"`
	Headers  map[string]string `toml:"headers"`
	// SupportsVision/ExpectJSON 使用指针以区分"显式 false"与"沿用预设值"。
	SupportsVision *bool `toml:"supports_vision"`
	ExpectJSON     *bool `toml:"expect_json"`
}

// ResolvedModelConfig 是合并预设后的最终模型配置。
type ResolvedModelConfig struct {
	ID             string
	Provider       string
	Enabled        bool
	APIURL         string
	APIKey         string
	Model          string
	Headers        map[string]string
	SupportsVision bool
	ExpectJSON     bool
}

// DatasetConfig 控制问答数据集生成。
type DatasetConfig struct {
	OutputDir string `toml:"output_dir"`
	Version   string `toml:"version"`
	// Protocols 允许生成的协议，"audience" 与 "player"。
	Protocols []string `toml:"protocols"`
	// BluffAmountThreshold 二分类题中视为大额下注的金额。
	BluffAmountThreshold float64 `toml:"bluff_amount_threshold"`
}

// AnnotationConfig 指定人工标注/语音转写真值的位置。
type AnnotationConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
	Charts    bool   `toml:"charts"`
}

// AgentEnabled reports whether the named agent participates in fusion.
// An empty agents list enables everything.
func (f FusionConfig) AgentEnabled(name string) bool {
	if len(f.Agents) == 0 {
		return true
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range f.Agents {
		if strings.ToLower(strings.TrimSpace(a)) == name {
			return true
		}
	}
	return false
}

// ProtocolEnabled reports whether the named generation protocol is active.
func (d DatasetConfig) ProtocolEnabled(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range d.Protocols {
		if strings.ToLower(strings.TrimSpace(p)) == name {
			return true
		}
	}
	return false
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
