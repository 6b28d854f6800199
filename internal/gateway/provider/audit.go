package provider

import (
	"context"
	"time"

	"limp/internal/logger"
)

// CallLog 一次模型调用的审计摘要。
type CallLog struct {
	Timestamp  time.Time
	ProviderID string
	System     string
	User       string
	ImageCount int
	Output     string
	Err        string
	Latency    time.Duration
}

// CallSink 接收调用审计记录。落库失败不应影响调用本身。
type CallSink interface {
	RecordCall(ctx context.Context, log CallLog) error
}

type auditedProvider struct {
	ModelProvider
	sink CallSink
}

// WithAudit wraps a provider so every call is recorded to the sink.
// A nil sink returns the provider unchanged.
func WithAudit(p ModelProvider, sink CallSink) ModelProvider {
	if p == nil || sink == nil {
		return p
	}
	return &auditedProvider{ModelProvider: p, sink: sink}
}

func (a *auditedProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	started := time.Now()
	out, err := a.ModelProvider.Call(ctx, payload)

	entry := CallLog{
		Timestamp:  started,
		ProviderID: a.ID(),
		System:     payload.System,
		User:       payload.User,
		ImageCount: len(payload.Images),
		Output:     out,
		Latency:    time.Since(started),
	}
	if err != nil {
		entry.Err = err.Error()
	}
	if rerr := a.sink.RecordCall(context.WithoutCancel(ctx), entry); rerr != nil {
		logger.Warnf("call audit: record failed for %s: %v", a.ID(), rerr)
	}
	return out, err
}
