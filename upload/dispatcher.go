// Copyright 2025 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calyptra/shipmark/core"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultWorkers      = 2
	defaultMaxRetries   = 3
	defaultRetryDelay   = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
	defaultStopGrace    = 30 * time.Second
	defaultForceGrace   = 10 * time.Second
)

// Sink delivers a batch of items to the remote object store. Implementations
// must be safe for concurrent use; an error means the whole batch failed and
// the task will be retried as a unit.
type Sink interface {
	PushAll(ctx context.Context, items []core.UploadItem) error
}

// Stats is a point-in-time snapshot of the pipeline counters. The three
// fields are read independently and may transiently disagree with each other
// under concurrent mutation; they are advisory, for observability only.
type Stats struct {
	QueueSize int64  `json:"queueSize"`
	Processed uint64 `json:"processed"`
	Errors    uint64 `json:"errors"`
}

// Dispatcher owns the delivery queue, the worker pool and the retry
// scheduler. Create one with New, call Start once at process init and Stop
// once at teardown.
type Dispatcher struct {
	sink  Sink
	queue *queue
	pool  *ants.Pool

	workers      int
	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration
	stopGrace    time.Duration
	forceGrace   time.Duration
	logger       *slog.Logger

	queueSize atomic.Int64
	processed atomic.Uint64
	failures  atomic.Uint64

	started      atomic.Bool
	shuttingDown atomic.Bool
	stopc        chan struct{}
	flightCtx    context.Context
	cancelFlight context.CancelFunc
	wg           sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithWorkers sets the number of parallel delivery workers.
// Default is 2. Values below 1 are raised to 1.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) error {
		if n < 1 {
			n = 1
		}
		d.workers = n
		return nil
	}
}

// WithMaxRetries caps how many times a failed task is re-queued.
// A task is attempted at most maxRetries+1 times in total. Default is 3.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) error {
		if n < 0 {
			n = 0
		}
		d.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the fixed delay before a failed task re-enters the
// queue. Default is 5s.
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Dispatcher) error {
		d.retryDelay = delay
		return nil
	}
}

// WithPollInterval sets how long an idle worker sleeps between queue polls.
// Default is 100ms.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) error {
		d.pollInterval = interval
		return nil
	}
}

// WithStopGrace sets the bounded wait for in-flight work during Stop.
// Default is 30s.
func WithStopGrace(grace time.Duration) Option {
	return func(d *Dispatcher) error {
		d.stopGrace = grace
		return nil
	}
}

// WithForceGrace sets the secondary wait after in-flight deliveries are
// cancelled. Default is 10s.
func WithForceGrace(grace time.Duration) Option {
	return func(d *Dispatcher) error {
		d.forceGrace = grace
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// New creates an upload dispatcher delivering to sink.
func New(sink Sink, opts ...Option) (*Dispatcher, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}

	flightCtx, cancelFlight := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:         sink,
		queue:        newQueue(),
		workers:      defaultWorkers,
		maxRetries:   defaultMaxRetries,
		retryDelay:   defaultRetryDelay,
		pollInterval: defaultPollInterval,
		stopGrace:    defaultStopGrace,
		forceGrace:   defaultForceGrace,
		logger:       slog.Default(),
		stopc:        make(chan struct{}),
		flightCtx:    flightCtx,
		cancelFlight: cancelFlight,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			cancelFlight()
			return nil, err
		}
	}

	return d, nil
}

// Start allocates the worker pool and begins draining the queue.
func (d *Dispatcher) Start() error {
	if d.started.Swap(true) {
		return ErrAlreadyStarted
	}

	pool, err := ants.NewPool(d.workers)
	if err != nil {
		return err
	}
	d.pool = pool

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		if err := pool.Submit(func() {
			defer d.wg.Done()
			d.run()
		}); err != nil {
			d.wg.Done()
			return err
		}
	}

	d.logger.Info("upload dispatcher started", "workers", d.workers)
	return nil
}

// Submit groups items into tasks by correlation key and queues them for
// delivery. It never blocks on delivery and returns before any attempt is
// made; delivery outcome is not reported back.
//
// Items failing validation are rejected and reported through the returned
// error; valid items in the same batch are still queued. An empty batch is
// a no-op.
func (d *Dispatcher) Submit(items []core.UploadItem) error {
	if d.shuttingDown.Load() {
		return ErrStopped
	}
	if len(items) == 0 {
		return nil
	}

	var errs []error
	groups := make(map[string][]core.UploadItem)
	var order []string
	for i := range items {
		item := items[i]
		if err := core.ValidateUploadItem(&item); err != nil {
			errs = append(errs, err)
			continue
		}
		key := core.TaskKeyFromPath(item.Path)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	now := time.Now().UTC()
	for _, key := range order {
		d.queue.offer(&Task{Key: key, Items: groups[key], CreatedAt: now})
		d.queueSize.Add(1)
		d.logger.Debug("task queued for upload", "key", key, "items", len(groups[key]))
	}

	return errors.Join(errs...)
}

// Snapshot returns the current pipeline counters.
func (d *Dispatcher) Snapshot() Stats {
	return Stats{
		QueueSize: d.queueSize.Load(),
		Processed: d.processed.Load(),
		Errors:    d.failures.Load(),
	}
}

// Stop shuts the pipeline down. It stops the retry scheduler from re-queueing
// delayed work, then waits up to the stop grace period for workers and
// pending timers; if they have not finished it cancels in-flight deliveries
// and waits the force grace period. Work still pending at that point is lost.
func (d *Dispatcher) Stop() {
	if d.shuttingDown.Swap(true) {
		return
	}
	close(d.stopc)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.stopGrace):
		d.logger.Warn("graceful stop window elapsed, cancelling in-flight uploads")
		d.cancelFlight()
		select {
		case <-done:
		case <-time.After(d.forceGrace):
			d.logger.Warn("upload workers did not terminate gracefully")
		}
	}

	d.cancelFlight()
	if d.pool != nil {
		d.pool.Release()
	}
	d.logger.Info("upload dispatcher stopped",
		"processed", d.processed.Load(), "errors", d.failures.Load())
}

// run is the worker loop: poll, deliver, sleep when idle. The shutdown flag
// is observed once per iteration; an in-progress delivery is only abandoned
// by the forced-cancellation step in Stop.
func (d *Dispatcher) run() {
	for {
		if d.shuttingDown.Load() {
			return
		}
		task := d.queue.poll()
		if task == nil {
			select {
			case <-d.stopc:
				return
			case <-time.After(d.pollInterval):
			}
			continue
		}
		d.queueSize.Add(-1)
		d.deliver(task)
	}
}

// deliver makes one delivery attempt and applies the retry policy.
func (d *Dispatcher) deliver(task *Task) {
	err := d.sink.PushAll(d.flightCtx, task.Items)
	if err == nil {
		d.processed.Add(1)
		d.logger.Info("uploaded task", "key", task.Key, "items", len(task.Items))
		return
	}

	d.failures.Add(1)
	d.logger.Error("upload attempt failed",
		"key", task.Key, "attempt", task.Attempts(), "err", err)

	if task.RetryCount >= d.maxRetries {
		d.logger.Error("dropping task after exhausting retries",
			"key", task.Key, "attempts", task.Attempts())
		return
	}
	if d.shuttingDown.Load() {
		d.logger.Warn("shutdown in progress, abandoning failed task", "key", task.Key)
		return
	}

	task.RetryCount++
	d.scheduleRetry(task)
}

// scheduleRetry re-queues the task after the retry delay. The timer is
// abandoned if shutdown begins before it fires, so no task re-enters the
// queue once Stop is underway.
func (d *Dispatcher) scheduleRetry(task *Task) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		timer := time.NewTimer(d.retryDelay)
		defer timer.Stop()
		select {
		case <-d.stopc:
			return
		case <-timer.C:
		}
		if d.shuttingDown.Load() {
			return
		}
		d.queue.offer(task)
		d.queueSize.Add(1)
		d.logger.Info("task requeued for retry",
			"key", task.Key, "retryCount", task.RetryCount)
	}()
}
