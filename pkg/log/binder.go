package log

import "go.uber.org/atomic"

var (
	_ WithLogger   = &Binder{}
	_ LoggerBinder = &Binder{}
)

// WithLogger 由持有组件级 Logger 的类型实现。
type WithLogger interface {
	Logger() *MLogger
}

// LoggerBinder 由允许外部注入 Logger 的类型实现。
type LoggerBinder interface {
	SetLogger(logger *MLogger)
}

// Binder 供组件嵌入，例如 serializer.Registry，用于绑定组件级 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

// SetLogger 绑定 Logger。
func (w *Binder) SetLogger(logger *MLogger) {
	w.logger.Store(logger)
}

// Logger 返回绑定的 Logger，未绑定时退回全局 Logger。
func (w *Binder) Logger() *MLogger {
	if l := w.logger.Load(); l != nil {
		return l
	}
	return With()
}
