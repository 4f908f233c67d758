package worker

import (
	"context"
	"fmt"

	"git.appkode.ru/pub/go/failure"
	"github.com/hibiken/asynq"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/observability"
)

// LivabilityService is the slice of the scoring service the background
// workers need.
type LivabilityService interface {
	RefreshScore(ctx context.Context, addressID int64) (*entity.Score, error)
	SweepStale(ctx context.Context, batchSize int) (entity.SweepSummary, error)
}

type Handlers struct {
	svc     LivabilityService
	metrics *observability.Metrics
}

func NewHandlers(svc LivabilityService) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) WithMetrics(metrics *observability.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// HandleRecalculate refetches environment signals for the address in the
// payload and stores the fresh score.
func (h *Handlers) HandleRecalculate(ctx context.Context, task *asynq.Task) error {
	var payload RecalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", TaskScoreRecalculate, err, asynq.SkipRetry)
	}

	score, err := h.svc.RefreshScore(ctx, payload.AddressID)
	if err != nil {
		// The address existed when the task was queued; a missing row now
		// will not reappear on retry.
		if failure.IsNotFoundError(err) {
			h.observe("error")
			return fmt.Errorf("address %d vanished: %w", payload.AddressID, asynq.SkipRetry)
		}

		h.observe("error")
		return fmt.Errorf("refresh score for address %d: %w", payload.AddressID, err)
	}

	h.observe("success")
	logger(ctx).Info("score recalculated",
		"address_id", payload.AddressID,
		"total", score.Total,
	)

	return nil
}

func (h *Handlers) observe(outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.TasksProcessed.WithLabelValues(outcome).Inc()
}
