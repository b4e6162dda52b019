package log

import (
	"sync/atomic"

	"github.com/hatlonely/odbx/log/logger"
)

// holder 保证 atomic.Value 中存放的具体类型一致
type holder struct {
	logger logger.Logger
}

var defaultLogger atomic.Value

func init() {
	// 默认向终端输出 text 格式日志
	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(holder{logger: slog})
}

func Default() logger.Logger {
	return defaultLogger.Load().(holder).logger
}

// SetDefault 替换全局默认日志器，nil 会被忽略
func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(holder{logger: l})
	}
}

// NewLoggerWithOptions 根据选项创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *logger.SLogOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	return logger.NewSLogWithOptions(options)
}

// Discard 返回丢弃所有输出的日志器
func Discard() logger.Logger {
	return logger.Discard()
}
