package webhook

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher decouples webhook acceptance from processing. Enqueue never
// blocks the caller: the acknowledgment contract is "accepted for
// processing", not "processed". Processing errors go to the log sink only.
type Dispatcher struct {
	processor *Processor
	queue     chan Payload
	workers   int
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func NewDispatcher(processor *Processor, queueSize, workers int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		queue:     make(chan Payload, queueSize),
		workers:   workers,
		logger:    logger.With(zap.String("component", "webhook_dispatcher")),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// done.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-d.queue:
			if err := d.processor.Process(ctx, payload); err != nil {
				d.logger.Error("Webhook processing failed",
					zap.String("transaction_id", payload.TransactionID),
					zap.String("quote_id", payload.QuoteID),
					zap.Error(err))
			}
		}
	}
}

// Enqueue hands a payload to the worker pool. Returns false when the queue
// is full; the payload is dropped and the sender is expected to retry.
func (d *Dispatcher) Enqueue(payload Payload) bool {
	select {
	case d.queue <- payload:
		return true
	default:
		d.logger.Error("Webhook queue full, dropping payload",
			zap.String("transaction_id", payload.TransactionID),
			zap.String("quote_id", payload.QuoteID))
		return false
	}
}

// Wait blocks until all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
