package eventlogger

import (
	"context"
	"log/slog"
	"sync"
)

// Worker drains the event channel onto an EventLogger in the background.
// Log never blocks: when the buffer is full the event is dropped and a
// warning logged, since the audit trail is best-effort.
type Worker struct {
	eventCh  chan Event
	logger   EventLogger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewWorker(logger EventLogger, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.drain()
				return
			case event := <-w.eventCh:
				// Not w.ctx: an event picked up in the same iteration the
				// context is cancelled must still reach the sink.
				if err := w.logger.Save(context.Background(), event); err != nil {
					slog.Error("failed to save event", "error", err, "event_type", event.Type)
				}
			}
		}
	}()
}

// drain flushes whatever is buffered before shutdown, with a fresh
// context since the worker's own context is already cancelled.
func (w *Worker) drain() {
	remaining := len(w.eventCh)
	if remaining > 0 {
		slog.Info("draining events before shutdown", "remaining_events", remaining)
	}
	for len(w.eventCh) > 0 {
		event := <-w.eventCh
		if err := w.logger.Save(context.Background(), event); err != nil {
			slog.Error("failed to save event during shutdown", "error", err, "event_type", event.Type)
		}
	}
}

func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() {
		w.cancel()
		w.wg.Wait()
		close(w.eventCh)
	})
}
