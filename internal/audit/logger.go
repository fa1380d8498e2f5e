// Package audit provides audit logging for the forecast service's
// actor-context middleware.
package audit

import (
	"time"

	"go.uber.org/zap"
)

// Logger records authorization decisions in structured form.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new audit logger.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger}
}

// Record logs one authorization decision: the "method:path" action, the
// resolved actor subject (empty if anonymous), and whether it was allowed.
func (l *Logger) Record(action, subject string, allowed bool) {
	fields := []zap.Field{
		zap.String("audit.action", action),
		zap.String("audit.subject", subject),
		zap.Bool("audit.allowed", allowed),
		zap.Time("audit.timestamp", time.Now()),
	}
	if allowed {
		l.logger.Info("authorization allowed", fields...)
	} else {
		l.logger.Warn("authorization denied", fields...)
	}
}
