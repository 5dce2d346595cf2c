package telemetry

import (
	"go.uber.org/zap"

	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// LoggingHook logs every rule application
type LoggingHook[T any] struct {
	logger *zap.Logger
}

var _ rulekit.Hook[struct{}] = (*LoggingHook[struct{}])(nil)

// NewLoggingHook creates a new logging hook
func NewLoggingHook[T any](logger *zap.Logger) *LoggingHook[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHook[T]{logger: logger}
}

// BeforeApply logs the rule about to be applied
func (h *LoggingHook[T]) BeforeApply(rule rulekit.Rule[T], _ *T) error {
	h.logger.Debug("applying rule",
		zap.String("rule", rule.Name()),
		zap.Uint32("priority", rule.Priority()),
	)
	return nil
}

// AfterApply logs the rule that was applied
func (h *LoggingHook[T]) AfterApply(rule rulekit.Rule[T], _ *T) error {
	h.logger.Info("rule applied",
		zap.String("rule", rule.Name()),
		zap.Uint32("priority", rule.Priority()),
	)
	return nil
}
