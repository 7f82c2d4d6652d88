package auth

import (
	"go.uber.org/zap"
)

// Logger is the leveled, structured logger used across the package.
// Arguments after msg are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger. A nil logger yields a no-op logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l.Sugar()}
}

func (z zapLogger) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }

// GetLogger satisfies LoggerProvider by naming the underlying zap logger
func (z zapLogger) GetLogger(name string) Logger {
	return zapLogger{l: z.l.Named(name)}
}

// ZapProvider returns a LoggerProvider backed by l
func ZapProvider(l *zap.Logger) LoggerProvider {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l.Sugar()}
}

// NopLogger discards everything
func NopLogger() Logger {
	return NewZapLogger(nil)
}

// ResolveLogger picks the logger for a component: an explicit logger wins,
// then a named logger from the provider, then a no-op logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return provider, logger
	}
	if provider != nil {
		return provider, provider.GetLogger(name)
	}
	return nil, NopLogger()
}
