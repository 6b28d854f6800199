package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"limp/internal/annotation"
	"limp/internal/config"
	cfgloader "limp/internal/config/loader"
	"limp/internal/dataset"
	"limp/internal/evaluation"
	"limp/internal/gateway/database"
	"limp/internal/gateway/provider"
	"limp/internal/logger"
	"limp/internal/perception"
	"limp/internal/reasoning"
	"limp/internal/store"
	httpapi "limp/internal/transport/http"
	"limp/internal/types"
)

// frameTemplateName 热更新模板里帧抽取提示词的键名。
const frameTemplateName = "frame_extraction"

// App 负责应用级编排：感知→标注合并→出题→推理→评测→落库。
type App struct {
	cfg *config.Config

	providers []provider.ModelProvider
	text      provider.ModelProvider
	callLog   *database.CallLogStore

	frameCache *perception.FrameCache
	perception *perception.Pipeline
	library    *annotation.Library
	generator  *dataset.Generator
	reasoner   *reasoning.Pipeline
	store      *store.Store
	server     *httpapi.Server
	templates  *cfgloader.TemplateLoader
	sourceFn   func(episodeID string) (perception.FrameSource, error)
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg).Build()
}

// Run 启动 HTTP 服务并阻塞到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 释放持久层句柄。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}
	if a.frameCache != nil {
		if err := a.frameCache.Close(); err != nil {
			logger.Warnf("close frame cache: %v", err)
		}
	}
	if a.callLog != nil {
		if err := a.callLog.Close(); err != nil {
			logger.Warnf("close call log: %v", err)
		}
	}
}

// Refresh 清空某个 episode 的帧状态缓存，下次分析将重新调用视觉模型。
func (a *App) Refresh(episodeID string) error {
	if a.frameCache == nil {
		return nil
	}
	return a.frameCache.Purge(episodeID)
}

// Store exposes the persistence layer (for harnesses and tests).
func (a *App) Store() *store.Store {
	if a == nil {
		return nil
	}
	return a.store
}

// Analyze 对单个 episode 跑完整流程，返回最后一个协议的评测记录。
func (a *App) Analyze(ctx context.Context, episodeID string) (*store.RunRecord, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return nil, fmt.Errorf("episode id cannot be empty")
	}
	started := time.Now()

	source, err := a.sourceFn(episodeID)
	if err != nil {
		return nil, fmt.Errorf("resolve frame source for %s: %w", episodeID, err)
	}
	ep, err := a.perception.Run(ctx, source)
	if err != nil {
		return nil, err
	}

	gt := a.loadGroundTruth(ctx, episodeID)
	if merged := annotation.MergeTimeline(ep, gt); merged > 0 {
		logger.Infof("annotation: merged %d audio actions into %s", merged, episodeID)
	}

	if err := a.store.SaveEpisode(ctx, ep); err != nil {
		return nil, fmt.Errorf("save episode %s: %w", episodeID, err)
	}

	var last *store.RunRecord
	for _, protocol := range a.cfg.Dataset.Protocols {
		run, err := a.analyzeProtocol(ctx, ep, gt, protocol)
		if err != nil {
			return nil, err
		}
		last = run
	}
	if last == nil {
		return nil, fmt.Errorf("no dataset protocols configured")
	}
	logger.Infof("analyze: episode %s done in %s", episodeID, time.Since(started).Round(time.Millisecond))
	return last, nil
}

// loadGroundTruth 读取音频真值，缺失时静默降级为 nil。
func (a *App) loadGroundTruth(ctx context.Context, episodeID string) *annotation.GroundTruth {
	if !a.cfg.Annotation.Enabled {
		return nil
	}
	gt, err := a.library.ForEpisode(episodeID)
	if err != nil {
		logger.Warnf("annotation: load %s failed: %v", episodeID, err)
		return nil
	}
	if gt == nil {
		logger.Infof("annotation: no ground truth for %s", episodeID)
		return nil
	}
	if len(gt.Facts.Players) == 0 && strings.TrimSpace(gt.Transcript) != "" && a.text != nil {
		gt.Facts = annotation.ExtractFacts(ctx, a.text, gt.Transcript)
	}
	return gt
}

func (a *App) analyzeProtocol(ctx context.Context, ep *types.Episode, gt *annotation.GroundTruth, protocol string) (*store.RunRecord, error) {
	ds := a.generator.Generate(ep, gt, protocol)
	if path, err := a.generator.Save(ds); err != nil {
		logger.Warnf("dataset: save %s/%s failed: %v", ep.ID, protocol, err)
	} else {
		logger.Infof("dataset: wrote %s (%d questions)", path, len(ds.Questions))
	}

	records := make([]evaluation.Record, 0, len(ds.Questions))
	for i := range ds.Questions {
		q := ds.Questions[i]
		result := a.reasoner.Answer(ctx, ep, &q)
		records = append(records, evaluation.Record{Question: q, Result: result})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	report := evaluation.Evaluate(records)
	logger.InfoBlock(report.Summary())

	if err := a.store.SaveAnswers(ctx, ep.ID, protocol, records); err != nil {
		return nil, fmt.Errorf("save answers %s/%s: %w", ep.ID, protocol, err)
	}
	run := store.RunRecord{
		RunID:     uuid.NewString(),
		EpisodeID: ep.ID,
		Protocol:  protocol,
		Report:    report,
		CreatedAt: time.Now(),
	}
	if err := a.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run %s/%s: %w", ep.ID, protocol, err)
	}

	if a.cfg.Report.Charts {
		name := fmt.Sprintf("%s_%s", ep.ID, protocol)
		if path, err := evaluation.RenderCharts(report, a.cfg.Report.OutputDir, name); err != nil {
			logger.Warnf("report: render charts for %s failed: %v", name, err)
		} else {
			logger.Infof("report: wrote %s", path)
		}
	}
	return &run, nil
}
