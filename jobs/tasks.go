package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/token"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTokenPurge sweeps terminated refresh tokens past the retention window.
	TaskTokenPurge = "token:purge"
)

// TokenPurgePayload carries the retention window for a purge sweep.
type TokenPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewTokenPurgeTask constructs an Asynq task for the purge sweep.
func NewTokenPurgeTask(payload TokenPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenPurge, data), nil
}

// TokenPurgeHandler returns the handler for TaskTokenPurge tasks.
func TokenPurgeHandler(tokens *token.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TokenPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		removed, err := tokens.PurgeExpired(ctx, payload.Retention)
		if err != nil {
			logger.Error("token purge sweep", slog.Any("error", err), slog.Int64("removed", removed))
			return err
		}
		logger.Info("token purge sweep complete", slog.Int64("removed", removed))
		return nil
	}
}
