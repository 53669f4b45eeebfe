package opts

import (
	"time"

	"go.uber.org/zap"
)

// EvaluatorLogEvent describes a rule evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Option   string
	Duration time.Duration
	// Compiled is set when the program was built for this call rather than
	// taken from the cache.
	Compiled bool
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// NewZapEvaluatorLogger writes evaluation events to logger at debug level and
// failures at warn level.
func NewZapEvaluatorLogger(logger *zap.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		fields := []zap.Field{
			zap.String("engine", event.Engine),
			zap.String("expr", event.Expr),
			zap.String("option", event.Option),
			zap.Duration("duration", event.Duration),
			zap.Bool("compiled", event.Compiled),
		}
		if event.Err != nil {
			logger.Warn("option rule evaluation failed", append(fields, zap.Error(event.Err))...)
			return
		}
		logger.Debug("option rule evaluated", fields...)
	})
}
