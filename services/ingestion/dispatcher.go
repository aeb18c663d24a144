package ingestion

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"

	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/tracing"
)

// Dispatcher is the bounded hand-off between email acceptance and the
// ingestion workers. Enqueue never blocks: a full queue is reported to the
// caller so the email stays in received and the poller re-drives it later.
type Dispatcher struct {
	log      logger.Logger
	service  *Service
	queue    chan string
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewDispatcher(log logger.Logger, service *Service, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		log:     log,
		service: service,
		queue:   make(chan string, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool. Workers drain the queue until Stop closes
// it or ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.log.Infof("ingestion dispatcher started with %d workers, queue size %d", d.workers, cap(d.queue))
}

// Enqueue schedules an email for processing. Returns ErrDispatchQueueFull
// when the buffer is at capacity.
func (d *Dispatcher) Enqueue(emailID string) error {
	select {
	case d.queue <- emailID:
		return nil
	default:
		d.log.Warnf("ingestion queue full, leaving email %s for the poller", emailID)
		return errs.ErrDispatchQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case emailID, ok := <-d.queue:
			if !ok {
				return
			}
			d.process(ctx, emailID, id)
		}
	}
}

// process isolates one job so a panic in a single email never takes the
// worker down.
func (d *Dispatcher) process(ctx context.Context, emailID string, worker int) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("ingestion worker %d panicked on email %s: %v", worker, emailID, r)
		}
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatcher.process")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	if err := d.service.ProcessEmail(ctx, emailID); err != nil {
		tracing.TraceErr(span, err)
		d.log.Errorf("ingestion worker %d failed on email %s: %v", worker, emailID, err)
	}
}
