package logger

import (
	"context"
)

// Logger 日志接口
type Logger interface {
	// 基础日志方法
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// 带上下文的日志方法
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	// 带字段的日志器
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Discard 返回丢弃所有输出的日志器，主要用于测试
func Discard() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(string, ...any)                          {}
func (discard) Info(string, ...any)                           {}
func (discard) Warn(string, ...any)                           {}
func (discard) Error(string, ...any)                          {}
func (discard) DebugContext(context.Context, string, ...any) {}
func (discard) InfoContext(context.Context, string, ...any)  {}
func (discard) WarnContext(context.Context, string, ...any)  {}
func (discard) ErrorContext(context.Context, string, ...any) {}
func (d discard) With(...any) Logger                          { return d }
func (d discard) WithGroup(string) Logger                     { return d }
