package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextKey 避免 context key 冲突
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	ContractIDKey ContextKey = "contract_id"
)

// Config 日志配置
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New 根据配置创建 slog.Logger
func New(cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Init 初始化全局 logger
func Init(cfg *Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}

// WithContractID 把合同 ID 放进 context，后续日志自动带上
func WithContractID(ctx context.Context, contractID string) context.Context {
	return context.WithValue(ctx, ContractIDKey, contractID)
}

// FromContext 从 context 中取出 request_id / contract_id 附加到 logger
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		base = base.With("request_id", requestID)
	}
	if contractID, ok := ctx.Value(ContractIDKey).(string); ok && contractID != "" {
		base = base.With("contract_id", contractID)
	}
	return base
}

// WithContext 基于默认 logger
func WithContext(ctx context.Context) *slog.Logger {
	return FromContext(ctx, slog.Default())
}

// Truncate 截断长文本，用于打印 LLM 原始输出
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
