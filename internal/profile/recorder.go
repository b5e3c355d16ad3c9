package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/history"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

// NewRecorder persists a session's graded answers for userID. Failures are
// logged and never reach the session.
func NewRecorder(service *Service, userID string, logger *zap.Logger) session.Recorder {
	return session.RecorderFunc(func(ctx context.Context, outcome session.Outcome) {
		_, err := service.RecordAttempt(ctx, history.Attempt{
			UserID:     userID,
			Mode:       string(outcome.Mode),
			Operation:  string(outcome.Question.Operation),
			Prompt:     outcome.Question.Prompt,
			Expected:   outcome.Question.Answer,
			Given:      outcome.Given,
			Correct:    outcome.Correct,
			AnsweredAt: outcome.AnsweredAt,
		})
		if err != nil {
			logger.Warn("record answer",
				zap.String("user_id", userID),
				zap.Uint64("generation", outcome.Generation),
				zap.Error(err),
			)
		}
	})
}
