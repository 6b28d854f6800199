package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"limp/internal/annotation"
	"limp/internal/config"
	cfgloader "limp/internal/config/loader"
	"limp/internal/dataset"
	"limp/internal/gateway/database"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/perception"
	"limp/internal/reasoning"
	"limp/internal/store"
	httpapi "limp/internal/transport/http"
)

// AppBuilder 按配置装配应用依赖。构造函数字段可在测试中替换，
// 以便在不触达磁盘或模型网关的情况下组装 App。
type AppBuilder struct {
	cfg *config.Config

	providersFn  func(config.AIConfig) ([]provider.ModelProvider, error)
	frameCacheFn func(config.ExtractorConfig) (*perception.FrameCache, error)
	storeFn      func(config.StoreConfig) (*store.Store, error)
	templatesFn  func(config.PromptConfig) (*cfgloader.TemplateLoader, error)
	sourceFn     func(cfg *config.Config, episodeID string) (perception.FrameSource, error)
}

type AppBuilderOption func(*AppBuilder)

// WithProvidersFn 替换模型 provider 的构造方式。
func WithProvidersFn(fn func(config.AIConfig) ([]provider.ModelProvider, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.providersFn = fn }
}

// WithStoreFn 替换持久层的构造方式。
func WithStoreFn(fn func(config.StoreConfig) (*store.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = fn }
}

// WithFrameCacheFn 替换帧状态缓存的构造方式。
func WithFrameCacheFn(fn func(config.ExtractorConfig) (*perception.FrameCache, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.frameCacheFn = fn }
}

// WithFrameSourceFn 替换 episode 帧来源的解析方式。
func WithFrameSourceFn(fn func(cfg *config.Config, episodeID string) (perception.FrameSource, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.sourceFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		providersFn:  buildModelProviders,
		frameCacheFn: openFrameCache,
		storeFn:      openStore,
		templatesFn:  loadTemplates,
		sourceFn:     newDirFrameSource,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildModelProviders(aiCfg config.AIConfig) ([]provider.ModelProvider, error) {
	models, err := aiCfg.ResolveModelConfigs()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(aiCfg.TimeoutSeconds) * time.Second
	return provider.BuildProvidersFromConfig(models, timeout), nil
}

func openFrameCache(cfg config.ExtractorConfig) (*perception.FrameCache, error) {
	if strings.TrimSpace(cfg.CachePath) == "" {
		return nil, nil
	}
	return perception.NewFrameCache(cfg.CachePath, cfg.MemCacheSize)
}

func openStore(cfg config.StoreConfig) (*store.Store, error) {
	return store.NewStore(cfg.Path)
}

func loadTemplates(cfg config.PromptConfig) (*cfgloader.TemplateLoader, error) {
	if strings.TrimSpace(cfg.TemplatesPath) == "" {
		return nil, nil
	}
	return cfgloader.NewTemplateLoader(cfg.TemplatesPath)
}

func newDirFrameSource(cfg *config.Config, episodeID string) (perception.FrameSource, error) {
	dir := filepath.Join(cfg.Extractor.FramesDir, episodeID)
	return perception.NewDirFrameSource(episodeID, dir, cfg.Extractor.FPS, cfg.Extractor.SampleFPS), nil
}

// Build 装配完整的依赖图（不启动任何服务）。
func (b *AppBuilder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	providers, err := b.providersFn(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("build model providers: %w", err)
	}

	var callLog *database.CallLogStore
	if cfg.AI.LogEachModel && strings.TrimSpace(cfg.AI.CallLogPath) != "" {
		callLog, err = database.NewCallLogStore(cfg.AI.CallLogPath)
		if err != nil {
			logger.Warnf("打开调用审计库失败（%s）：%v", cfg.AI.CallLogPath, err)
		} else {
			for i, p := range providers {
				providers[i] = provider.WithAudit(p, callLog)
			}
		}
	}

	vision := provider.SelectVisionProvider(providers, cfg.Extractor.Provider)
	if vision == nil {
		logger.Warnf("未找到支持视觉的模型，帧抽取只能命中缓存")
	}
	text := provider.SelectProvider(providers, "")

	frameCache, err := b.frameCacheFn(cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("open frame cache: %w", err)
	}
	extractor := perception.NewFrameExtractor(vision, frameCache, cfg.Extractor)

	templates, err := b.templatesFn(cfg.Prompt)
	if err != nil {
		// 模板文件缺失不致命，继续使用内置提示词。
		logger.Warnf("加载提示词模板失败（%s）：%v", cfg.Prompt.TemplatesPath, err)
		templates = nil
	}
	if templates != nil {
		templates.Subscribe(func(snap cfgloader.TemplateSnapshot) {
			if def, ok := snap.Lookup(frameTemplateName); ok {
				extractor.SetPrompt(def.User)
			}
		})
	}

	st, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app := &App{
		cfg:        cfg,
		providers:  providers,
		text:       text,
		callLog:    callLog,
		frameCache: frameCache,
		perception: perception.NewPipeline(extractor, cfg.Pipeline, dataset.ProtocolAudience),
		library:    annotation.NewLibrary(cfg.Annotation.Dir),
		generator:  dataset.NewGenerator(cfg.Dataset),
		reasoner:   reasoning.NewPipeline(cfg.Fusion, cfg.Equity, text),
		store:      st,
		templates:  templates,
		sourceFn:   func(episodeID string) (perception.FrameSource, error) { return b.sourceFn(cfg, episodeID) },
	}

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Store:     st,
		Calls:     callLog,
		ReportDir: cfg.Report.OutputDir,
		Analyze:   app.Analyze,
		Refresh:   app.Refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}
	app.server = server
	return app, nil
}
