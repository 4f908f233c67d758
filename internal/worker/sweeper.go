package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/observability"
)

const (
	defaultSweepInterval  = time.Hour
	defaultSweepBatchSize = 50
)

// Sweeper periodically enqueues recalculate tasks for scores older than the
// freshness TTL. One pass runs at start, then one per interval.
type Sweeper struct {
	svc       LivabilityService
	summaries chan<- entity.SweepSummary

	interval  time.Duration
	batchSize int

	clock   clockwork.Clock
	metrics *observability.Metrics

	// Control fields
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	wg         sync.WaitGroup
}

func NewSweeper(svc LivabilityService) *Sweeper {
	return &Sweeper{
		svc:       svc,
		interval:  defaultSweepInterval,
		batchSize: defaultSweepBatchSize,
		clock:     clockwork.NewRealClock(),
	}
}

func (w *Sweeper) WithInterval(interval time.Duration) *Sweeper {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

func (w *Sweeper) WithBatchSize(size int) *Sweeper {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// WithSummaries mirrors each pass into ch. Sends never block: when the
// consumer lags, summaries are dropped.
func (w *Sweeper) WithSummaries(ch chan<- entity.SweepSummary) *Sweeper {
	w.summaries = ch
	return w
}

func (w *Sweeper) WithClock(clock clockwork.Clock) *Sweeper {
	w.clock = clock
	return w
}

func (w *Sweeper) WithMetrics(metrics *observability.Metrics) *Sweeper {
	w.metrics = metrics
	return w
}

func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("sweeper is already running")
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		if err := w.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger(sweepCtx).Error("sweeper stopped with error", "error", err)
		}
	}()

	return nil
}

func (w *Sweeper) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Sweeper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *Sweeper) Run(ctx context.Context) error {
	logger(ctx).Info("stale score sweeper started",
		"interval", w.interval,
		"batch_size", w.batchSize,
	)

	w.sweep(ctx)

	timer := w.clock.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger(ctx).Info("stale score sweeper stopped")
			return ctx.Err()
		case <-timer.Chan():
			w.sweep(ctx)
			timer.Reset(w.interval)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	summary, err := w.svc.SweepStale(ctx, w.batchSize)
	if err != nil {
		logger(ctx).Error("sweep failed", "error", err)
		w.observe("error")
		return
	}

	w.observe("success")
	if w.metrics != nil {
		w.metrics.SweepEnqueued.Add(float64(summary.Enqueued))
	}

	if summary.Enqueued > 0 || summary.Failed > 0 {
		logger(ctx).Info("sweep completed",
			"scanned", summary.Scanned,
			"enqueued", summary.Enqueued,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
		)
	}

	if w.summaries == nil {
		return
	}
	select {
	case w.summaries <- summary:
	default:
	}
}

func (w *Sweeper) observe(outcome string) {
	if w.metrics == nil {
		return
	}
	w.metrics.SweepRuns.WithLabelValues(outcome).Inc()
}
