// Package logger 进程级日志门面，分析流水线各包直接调用包级函数，
// 不传递 logger 实例。输出目标和级别可在运行中切换。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar slog.LevelVar
	rootMu   sync.RWMutex
	root     *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	root = textLogger(os.Stdout)
}

func textLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

// SetOutput 重定向全部日志输出。
func SetOutput(w io.Writer) {
	rootMu.Lock()
	root = textLogger(w)
	rootMu.Unlock()
}

// SetLevel 按配置字符串调整级别，未识别的值回落到 info。
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func active() *slog.Logger {
	rootMu.RLock()
	l := root
	rootMu.RUnlock()
	if l != nil {
		return l
	}
	rootMu.Lock()
	defer rootMu.Unlock()
	if root == nil {
		root = textLogger(os.Stdout)
	}
	return root
}

func Debugf(format string, v ...any) {
	active().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	active().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	active().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	active().Error(fmt.Sprintf(format, v...))
}

// InfoBlock 把多行文本按行输出，用于评测汇总这类整块内容。
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}
