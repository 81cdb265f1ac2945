package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogStorage пишет события в zap, когда БД не настроена.
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("decisions")}
}

func (s *LogStorage) WriteBatch(_ context.Context, events []DecisionEvent) error {
	for _, e := range events {
		s.logger.Info("decision",
			zap.String("action_id", e.ActionID),
			zap.String("request_id", e.RequestID),
			zap.String("kind", e.Kind),
			zap.String("scope", e.Scope),
			zap.String("decision", e.Decision),
			zap.String("outcome", e.Outcome),
			zap.String("message", e.Message),
			zap.Int64("duration_ms", e.DurationMs),
		)
	}
	return nil
}
