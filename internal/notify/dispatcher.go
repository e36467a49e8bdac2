package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDeliveryTimeout = 30 * time.Second

// AsyncDispatcher hands notifications to a bounded in-process queue that a
// single background goroutine drains into a Deliverer. A full queue drops
// the notification.
type AsyncDispatcher struct {
	queue     chan Notification
	deliverer Deliverer
	logger    *slog.Logger
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	start  sync.Once
}

func NewAsyncDispatcher(deliverer Deliverer, size int, logger *slog.Logger) *AsyncDispatcher {
	if size <= 0 {
		size = 1
	}
	return &AsyncDispatcher{
		queue:     make(chan Notification, size),
		deliverer: deliverer,
		logger:    logger,
		timeout:   defaultDeliveryTimeout,
		done:      make(chan struct{}),
	}
}

// Start launches the delivery goroutine. Calling it more than once is a no-op.
func (d *AsyncDispatcher) Start() {
	d.start.Do(func() {
		go d.run()
	})
}

func (d *AsyncDispatcher) Notify(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "event", n.Event, "task_id", n.TaskID)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification dropped, queue full", "event", n.Event, "task_id", n.TaskID)
	}
}

// Close stops accepting notifications and waits until the queued ones are
// delivered or ctx expires.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.Start()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *AsyncDispatcher) deliver(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification delivery panicked", "event", n.Event, "task_id", n.TaskID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.deliverer.Deliver(ctx, n); err != nil {
		d.logger.Error("notification delivery failed",
			"event", n.Event,
			"task_id", n.TaskID,
			"recipient", n.Recipient,
			"error", err,
		)
		return
	}

	d.logger.Debug("notification delivered", "event", n.Event, "task_id", n.TaskID)
}
