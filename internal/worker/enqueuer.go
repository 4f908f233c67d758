package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/hibiken/asynq"

	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/pkg/errcodes"
)

const (
	taskMaxRetry     = 3
	taskTimeout      = 2 * time.Minute
	taskUniqueWindow = 10 * time.Minute
)

// Enqueuer submits recalculate tasks to the asynq queue. Satisfies
// livability.RecalcEnqueuer.
type Enqueuer struct {
	client  *asynq.Client
	queue   string
	metrics *observability.Metrics
}

func NewEnqueuer(client *asynq.Client, queue string) *Enqueuer {
	return &Enqueuer{client: client, queue: queue}
}

func (e *Enqueuer) WithMetrics(metrics *observability.Metrics) *Enqueuer {
	e.metrics = metrics
	return e
}

func (e *Enqueuer) EnqueueRecalculate(ctx context.Context, addressID int64) (string, error) {
	task, err := NewRecalculateTask(addressID)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(e.queue),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Timeout(taskTimeout),
		asynq.Unique(taskUniqueWindow),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return "", failure.NewConflictError(
				fmt.Sprintf("recalculation already queued for address %d", addressID),
				failure.WithCode(errcodes.RecalcAlreadyQueued),
				failure.WithDescription("Recalculation is already queued for this address"),
			)
		}
		return "", fmt.Errorf("enqueue %s: %w", TaskScoreRecalculate, err)
	}

	if e.metrics != nil {
		e.metrics.TasksEnqueued.Inc()
	}

	return info.ID, nil
}
