package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/member-portal/internal/events"
)

// ErrQueueFull is returned to the publisher when the notification backlog is
// at capacity. The event is dropped.
var ErrQueueFull = errors.New("notification queue full")

const defaultQueueSize = 256

// Notifier handles one event off the request path.
// *service.NotificationService satisfies it.
type Notifier interface {
	EventTypes() []events.EventType
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker drains account events into the notifier on a single
// goroutine so request handlers never wait on e-mail delivery.
type NotificationWorker struct {
	notifier Notifier
	logger   *zap.Logger
	queue    chan events.Event
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// StartNotificationWorker subscribes the worker to every event the notifier
// understands and starts processing. Call Stop on shutdown.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan events.Event, queueSize),
		cancel:   cancel,
	}
	for _, eventType := range notifier.EventTypes() {
		dispatcher.Subscribe(eventType, w.enqueue)
	}

	w.wg.Add(1)
	go w.run(ctx)
	return w
}

// Stop processes events that are already queued, then returns.
func (w *NotificationWorker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping notification", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.queue:
			w.handle(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.handle(event)
				default:
					return
				}
			}
		}
	}
}

func (w *NotificationWorker) handle(event events.Event) {
	// Request contexts are gone by now.
	if err := w.notifier.Handle(context.Background(), event); err != nil {
		w.logger.Error("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}
