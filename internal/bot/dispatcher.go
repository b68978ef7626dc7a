package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/metrics"
)

// ErrStopped is returned by Enqueue once Shutdown has begun.
var ErrStopped = errors.New("dispatcher stopped")

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update) error
}

// Dispatcher runs updates on a fixed pool of workers. Updates of one user
// always land on the same worker, so they are handled in arrival order.
type Dispatcher struct {
	handler UpdateHandler
	queues  []chan tgbotapi.Update
	timeout time.Duration
	log     logger.ILogger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
	abort   context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher builds a pool of numWorkers, each with a queue of queueSize.
// timeout bounds the handling of a single update.
func NewDispatcher(handler UpdateHandler, numWorkers, queueSize int, timeout time.Duration, log logger.ILogger, m *metrics.Metrics) *Dispatcher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	queues := make([]chan tgbotapi.Update, numWorkers)
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, queueSize)
	}
	return &Dispatcher{handler: handler, queues: queues, timeout: timeout, log: log, metrics: m}
}

// Start launches the workers. ctx is the parent of every handler context;
// workers exit once their queue is closed and drained.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, abort := context.WithCancel(ctx)
	d.mu.Lock()
	d.abort = abort
	d.mu.Unlock()

	for w, q := range d.queues {
		d.wg.Add(1)
		go func(w int, q <-chan tgbotapi.Update) {
			defer d.wg.Done()
			for upd := range q {
				d.process(ctx, w, upd)
			}
			d.log.Debug(module, "Worker shutting down", map[string]interface{}{"worker": w})
		}(w, q)
	}
}

func (d *Dispatcher) process(ctx context.Context, worker int, upd tgbotapi.Update) {
	var (
		hctx   context.Context
		cancel context.CancelFunc
	)
	if d.timeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		hctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error(module, "Handler panicked", map[string]interface{}{"update_id": upd.UpdateID, "worker": worker, "panic": r})
		}
	}()

	if err := d.handler.HandleUpdate(hctx, upd); err != nil {
		d.log.Error(module, "Error processing update", map[string]interface{}{"update_id": upd.UpdateID, "worker": worker, "error": err})
	}
}

// Enqueue schedules an update. It blocks while the user's queue is full.
func (d *Dispatcher) Enqueue(ctx context.Context, upd tgbotapi.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.metrics.UpdateDropped()
		return ErrStopped
	}

	q := d.queues[shard(userOf(upd), len(d.queues))]
	select {
	case q <- upd:
		return nil
	case <-ctx.Done():
		d.metrics.UpdateDropped()
		return ctx.Err()
	}
}

// Shutdown stops accepting updates and waits for queued ones to finish. If
// ctx expires first, running handlers are cancelled and Shutdown still waits
// for the workers to exit before returning ctx's error, so nothing touches
// shared clients after it returns.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, q := range d.queues {
			close(q)
		}
	}
	abort := d.abort
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	d.log.Warn(module, "Drain deadline passed, cancelling running updates", nil)
	if abort != nil {
		abort()
	}
	<-done
	return ctx.Err()
}

func userOf(upd tgbotapi.Update) int64 {
	if upd.Message != nil {
		if upd.Message.From != nil {
			return upd.Message.From.ID
		}
		if upd.Message.Chat != nil {
			return upd.Message.Chat.ID
		}
	}
	return int64(upd.UpdateID)
}

func shard(id int64, n int) int {
	i := id % int64(n)
	if i < 0 {
		i = -i
	}
	return int(i)
}
