package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"manbo/internal/metrics"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

// Runner executes one analysis job. Satisfied by *Pipeline.
type Runner interface {
	Run(ctx context.Context, params JobParams) (*Result, error)
}

// DispatcherOptions size the worker pool and submission queue.
type DispatcherOptions struct {
	Workers         int
	QueueSize       int
	DefaultAnalysts []string
	KnownRoles      map[string]bool
}

// Dispatcher accepts analysis submissions and executes them on a bounded
// worker pool. When the queue is full, submissions are rejected rather
// than buffered without limit.
type Dispatcher struct {
	store  Store
	runner Runner
	opts   DispatcherOptions

	queue    chan string
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the given store and runner.
func NewDispatcher(store Store, runner Runner, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Dispatcher{
		store:  store,
		runner: runner,
		opts:   opts,
		queue:  make(chan string, opts.QueueSize),
		quit:   make(chan struct{}),
		log:    logger.Get().With("component", "dispatcher"),
	}
}

// Start launches the worker pool. Workers drain the queue until Stop is
// called or the given context is cancelled; ctx is also what each job
// runs under, so pass one that outlives the jobs you want to finish.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.log.Infof("started %d workers, queue capacity %d", d.opts.Workers, d.opts.QueueSize)
}

// Stop tells the workers to take no more jobs and waits for in-flight
// jobs to finish. Jobs still sitting in the queue stay queued.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}

// Submit validates the request, persists a queued record and hands it to
// the pool. Validation failures leave no record behind. A full queue fails
// the freshly created record and returns ErrQueueFull.
func (d *Dispatcher) Submit(ctx context.Context, params JobParams) (*JobRecord, error) {
	params.Normalize(d.opts.DefaultAnalysts)
	if err := params.Validate(d.opts.KnownRoles); err != nil {
		metrics.JobsSubmitted.WithLabelValues("rejected").Inc()
		return nil, err
	}

	record := &JobRecord{
		ID:        NewJobID(time.Now()),
		Status:    StatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}
	if err := d.store.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "create job record")
	}

	select {
	case d.queue <- record.ID:
		metrics.JobsSubmitted.WithLabelValues("accepted").Inc()
		metrics.QueueDepth.Inc()
		d.log.Infof("job %s queued for %s", record.ID, params.Symbol)
		return d.store.Get(ctx, record.ID)
	default:
		metrics.JobsSubmitted.WithLabelValues("queue_full").Inc()
		if err := d.store.Transition(ctx, record.ID, StatusFailed,
			Update{Error: "submission queue full"}); err != nil {
			d.log.Errorf("failed to mark rejected job %s: %v", record.ID, err)
		}
		return nil, errors.Wrapf(errors.ErrQueueFull, "job %s rejected", record.ID)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	log := d.log.With("worker", id)
	for {
		select {
		case <-d.quit:
			return
		case <-ctx.Done():
			return
		case jobID := <-d.queue:
			metrics.QueueDepth.Dec()
			d.execute(ctx, log, jobID)
		}
	}
}

// execute drives one job to a terminal state. Panics in the pipeline are
// converted to a failed status instead of killing the worker.
func (d *Dispatcher) execute(ctx context.Context, log *logger.Logger, jobID string) {
	record, err := d.store.Get(ctx, jobID)
	if err != nil {
		log.Errorf("job %s vanished before execution: %v", jobID, err)
		return
	}

	if err := d.store.Transition(ctx, jobID, StatusRunning, Update{}); err != nil {
		log.Errorf("job %s could not start: %v", jobID, err)
		return
	}

	start := time.Now()
	result, runErr := d.runGuarded(ctx, record.Params)

	if runErr != nil {
		log.Errorf("job %s failed after %s: %v", jobID, time.Since(start), runErr)
		metrics.JobsFinished.WithLabelValues(string(StatusFailed)).Inc()
		metrics.JobDuration.WithLabelValues(string(StatusFailed)).Observe(time.Since(start).Seconds())
		if err := d.store.Transition(ctx, jobID, StatusFailed, Update{Error: runErr.Error()}); err != nil {
			log.Errorf("job %s could not be marked failed: %v", jobID, err)
		}
		return
	}

	log.Infof("job %s completed in %s", jobID, time.Since(start))
	metrics.JobsFinished.WithLabelValues(string(StatusCompleted)).Inc()
	metrics.JobDuration.WithLabelValues(string(StatusCompleted)).Observe(time.Since(start).Seconds())
	if err := d.store.Transition(ctx, jobID, StatusCompleted, Update{Result: Flatten(result)}); err != nil {
		log.Errorf("job %s could not be marked completed: %v", jobID, err)
	}
}

func (d *Dispatcher) runGuarded(ctx context.Context, params JobParams) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.Wrapf(errors.ErrInternal, "analysis panicked: %v", r)
		}
	}()

	result, err = d.runner.Run(ctx, params)
	if err == nil && result == nil {
		return nil, fmt.Errorf("runner returned no result")
	}
	return result, err
}
