package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"limp/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TemplateDefinition 描述一组 system/user 提示词模板。
type TemplateDefinition struct {
	Name   string `mapstructure:"-"`
	System string `mapstructure:"system"`
	User   string `mapstructure:"user"`
	// ExpectJSON 指示模板输出需要按 JSON 解析。
	ExpectJSON bool `mapstructure:"expect_json"`
	// SchemaRef 指向可选的 JSON Schema 文件，用于校验模型输出。
	SchemaRef string `mapstructure:"schema"`
}

// FileConfig 是完整的模板配置文件结构。
type FileConfig struct {
	Templates map[string]TemplateDefinition `mapstructure:"templates"`
}

// TemplateSnapshot 对外暴露的只读快照。
type TemplateSnapshot struct {
	Version   int64
	LoadedAt  time.Time
	Templates map[string]TemplateDefinition
}

// Lookup returns the named template, falling back to "default".
func (s TemplateSnapshot) Lookup(name string) (TemplateDefinition, bool) {
	if def, ok := s.Templates[name]; ok {
		return def, true
	}
	def, ok := s.Templates["default"]
	return def, ok
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(TemplateSnapshot)

// TemplateLoader 负责从 YAML 文件中加载提示词模板，并监听热更新。
type TemplateLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  TemplateSnapshot
	listeners []ChangeListener
}

// NewTemplateLoader 读取模板文件并开始监听 FS 事件。
func NewTemplateLoader(path string) (*TemplateLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("template loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read template config failed: %w", err)
	}
	loader := &TemplateLoader{path: path, v: v}
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("template reload failed (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Snapshot 返回当前模板快照（深拷贝）。
func (l *TemplateLoader) Snapshot() TemplateSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (l *TemplateLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("template listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *TemplateLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("template listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *TemplateLoader) reload() error {
	var fileCfg FileConfig
	if err := l.v.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("parse template config failed: %w", err)
	}
	normalized := make(map[string]TemplateDefinition)
	for name, def := range fileCfg.Templates {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		def.Name = key
		def.SchemaRef = strings.TrimSpace(def.SchemaRef)
		normalized[key] = def
	}
	l.mu.Lock()
	l.snapshot = TemplateSnapshot{
		Version:   l.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Templates: normalized,
	}
	l.mu.Unlock()
	logger.Infof("Template loader reloaded %d templates from %s", len(normalized), filepath.Base(l.path))
	return nil
}

func cloneSnapshot(src TemplateSnapshot) TemplateSnapshot {
	dst := TemplateSnapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Templates: make(map[string]TemplateDefinition, len(src.Templates)),
	}
	for name, def := range src.Templates {
		dst.Templates[name] = def
	}
	return dst
}
