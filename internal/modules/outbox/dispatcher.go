package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 5
	defaultBatchSize   = 50
)

// Handler processes one task. A returned error leaves the task pending
// with its attempt count bumped; it will be retried up to the cap.
type Handler func(ctx context.Context, t Task) error

// Dispatcher drains pending tasks. Side effects registered here are
// best-effort relative to the transaction that enqueued them: one task
// failing never blocks the others, it only stays on the queue with its
// error recorded.
type Dispatcher struct {
	db       *gorm.DB
	logger   *slog.Logger
	handlers map[string]Handler
	sweeps   []func(ctx context.Context) error

	kick chan struct{}
}

func NewDispatcher(db *gorm.DB, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		db:       db,
		logger:   logger,
		handlers: make(map[string]Handler),
		kick:     make(chan struct{}, 1),
	}
}

func (d *Dispatcher) Handle(topic string, h Handler) {
	d.handlers[topic] = h
}

// AddSweep registers housekeeping run on every tick (e.g. expiring stale
// payment intents).
func (d *Dispatcher) AddSweep(fn func(ctx context.Context) error) {
	d.sweeps = append(d.sweeps, fn)
}

// Kick requests an immediate drain without waiting for the next tick.
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Start runs the drain loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if err := d.RunOnce(ctx); err != nil {
			d.logger.ErrorContext(ctx, "outbox drain failed", "err", err)
		}
		for _, sweep := range d.sweeps {
			if err := sweep(ctx); err != nil {
				d.logger.ErrorContext(ctx, "outbox sweep failed", "err", err)
			}
		}
	}
}

// RunOnce drains one batch. Tasks run concurrently; they are isolated
// from each other by design, so a stock shortfall does not delay the
// loyalty settlement for the same order.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	tasks, err := fetchPending(ctx, d.db, defaultMaxAttempts, defaultBatchSize)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		h, ok := d.handlers[t.Topic]
		if !ok {
			d.markFailed(ctx, t, "no handler registered")
			continue
		}
		wg.Add(1)
		go func(t Task, h Handler) {
			defer wg.Done()
			if err := h(ctx, t); err != nil {
				d.logger.ErrorContext(ctx, "outbox task failed",
					"task_id", t.ID, "topic", t.Topic, "key", t.Key, "attempt", t.Attempts+1, "err", err)
				d.markFailed(ctx, t, err.Error())
				return
			}
			d.markDone(ctx, t)
		}(t, h)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) markDone(ctx context.Context, t Task) {
	now := time.Now()
	if err := d.db.WithContext(ctx).Model(&Task{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"processed_at": &now,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   nil,
		}).Error; err != nil {
		d.logger.ErrorContext(ctx, "outbox mark done failed", "task_id", t.ID, "err", err)
	}
}

func (d *Dispatcher) markFailed(ctx context.Context, t Task, msg string) {
	if len(msg) > 250 {
		msg = msg[:250]
	}
	if err := d.db.WithContext(ctx).Model(&Task{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error; err != nil {
		d.logger.ErrorContext(ctx, "outbox mark failed failed", "task_id", t.ID, "err", err)
	}
}
