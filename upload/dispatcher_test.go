package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/calyptra/shipmark/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSink records every batch it receives and can be configured to fail
// some or all attempts.
type stubSink struct {
	mu      sync.Mutex
	batches [][]core.UploadItem
	stamps  []time.Time
	failFor map[string]int // task key -> remaining attempts to fail
	failAll bool
	blockc  chan struct{} // when non-nil, PushAll blocks until closed or ctx done
}

func (s *stubSink) PushAll(ctx context.Context, items []core.UploadItem) error {
	if s.blockc != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.blockc:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]core.UploadItem, len(items))
	copy(cp, items)
	s.batches = append(s.batches, cp)
	s.stamps = append(s.stamps, time.Now())

	if s.failAll {
		return errors.New("store unavailable")
	}
	key := core.TaskKeyFromPath(items[0].Path)
	if n := s.failFor[key]; n > 0 {
		s.failFor[key] = n - 1
		return errors.New("store unavailable")
	}
	return nil
}

// attempts counts delivery attempts for a given task key.
func (s *stubSink) attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, batch := range s.batches {
		if core.TaskKeyFromPath(batch[0].Path) == key {
			n++
		}
	}
	return n
}

func (s *stubSink) totalBatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func testItem(key string, n int) core.UploadItem {
	return core.UploadItem{
		Content: fmt.Sprintf("# doc %d\n", n),
		Path:    fmt.Sprintf("jira/%s/file%d.md", key, n),
		Source:  core.SourceJiraIWPB,
	}
}

// newTestDispatcher builds a started dispatcher with timings shrunk for
// tests. Cleanup stops it.
func newTestDispatcher(t *testing.T, sink Sink, opts ...Option) *Dispatcher {
	t.Helper()

	base := []Option{
		WithPollInterval(2 * time.Millisecond),
		WithRetryDelay(20 * time.Millisecond),
		WithStopGrace(500 * time.Millisecond),
		WithForceGrace(200 * time.Millisecond),
	}
	d, err := New(sink, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	t.Cleanup(d.Stop)
	return d
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 2*time.Millisecond, msg)
}

func TestNewRequiresSink(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrSinkRequired)
}

func TestStartTwice(t *testing.T) {
	d := newTestDispatcher(t, &stubSink{})
	assert.ErrorIs(t, d.Start(), ErrAlreadyStarted)
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	sink := &stubSink{}
	d := newTestDispatcher(t, sink)

	require.NoError(t, d.Submit(nil))
	require.NoError(t, d.Submit([]core.UploadItem{}))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.totalBatches())
	assert.Equal(t, Stats{}, d.Snapshot())
}

func TestSubmitDeliversAllTasks(t *testing.T) {
	sink := &stubSink{}
	d := newTestDispatcher(t, sink)

	items := []core.UploadItem{
		testItem("TFX-1", 0),
		testItem("TFX-2", 0),
		testItem("TFX-1", 1),
	}
	require.NoError(t, d.Submit(items))

	waitFor(t, func() bool { return d.Snapshot().Processed == 2 }, "both tasks delivered")

	stats := d.Snapshot()
	assert.Equal(t, uint64(2), stats.Processed)
	assert.Equal(t, uint64(0), stats.Errors)
	assert.Equal(t, int64(0), stats.QueueSize)

	// Mixed submission is partitioned per correlation key.
	assert.Equal(t, 1, sink.attempts("TFX-1"))
	assert.Equal(t, 1, sink.attempts("TFX-2"))
}

func TestSubmitPreservesItemOrderWithinTask(t *testing.T) {
	sink := &stubSink{}
	d := newTestDispatcher(t, sink)

	items := []core.UploadItem{
		testItem("TFX-7", 0),
		testItem("TFX-7", 1),
		testItem("TFX-7", 2),
	}
	require.NoError(t, d.Submit(items))

	waitFor(t, func() bool { return sink.totalBatches() == 1 }, "task delivered as one batch")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	batch := sink.batches[0]
	require.Len(t, batch, 3)
	for i, item := range batch {
		assert.Equal(t, items[i].Path, item.Path)
		assert.Equal(t, items[i].Content, item.Content)
	}
}

func TestSubmitValidation(t *testing.T) {
	sink := &stubSink{}
	d := newTestDispatcher(t, sink)

	items := []core.UploadItem{
		{Content: "", Path: "jira/TFX-9/bad.md", Source: core.SourceJiraIWPB},
		testItem("TFX-9", 1),
	}
	err := d.Submit(items)
	assert.ErrorIs(t, err, core.ErrInvalidUploadItem)

	// The valid sibling still ships.
	waitFor(t, func() bool { return d.Snapshot().Processed == 1 }, "valid item delivered")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 1)
}

func TestRetryUntilCapThenDrop(t *testing.T) {
	sink := &stubSink{failAll: true}
	d := newTestDispatcher(t, sink, WithMaxRetries(3))

	require.NoError(t, d.Submit([]core.UploadItem{testItem("TFX-13", 0)}))

	// 1 initial attempt + 3 retries, then the task is dropped for good.
	waitFor(t, func() bool { return sink.attempts("TFX-13") == 4 }, "four attempts made")

	// No further attempts after the cap.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 4, sink.attempts("TFX-13"))

	stats := d.Snapshot()
	assert.Equal(t, uint64(0), stats.Processed)
	assert.Equal(t, uint64(4), stats.Errors)
	assert.Equal(t, int64(0), stats.QueueSize)
}

func TestRetryDelaySpacing(t *testing.T) {
	sink := &stubSink{failAll: true}
	retryDelay := 30 * time.Millisecond
	d := newTestDispatcher(t, sink, WithMaxRetries(2), WithRetryDelay(retryDelay))

	require.NoError(t, d.Submit([]core.UploadItem{testItem("TFX-21", 0)}))
	waitFor(t, func() bool { return sink.attempts("TFX-21") == 3 }, "three attempts made")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.stamps, 3)
	for i := 1; i < len(sink.stamps); i++ {
		gap := sink.stamps[i].Sub(sink.stamps[i-1])
		assert.GreaterOrEqual(t, gap, retryDelay-5*time.Millisecond,
			"attempt %d followed too quickly", i+1)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	sink := &stubSink{failFor: map[string]int{"TFX-34": 2}}
	d := newTestDispatcher(t, sink, WithMaxRetries(3))

	require.NoError(t, d.Submit([]core.UploadItem{testItem("TFX-34", 0)}))

	waitFor(t, func() bool { return d.Snapshot().Processed == 1 }, "task eventually delivered")

	stats := d.Snapshot()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(2), stats.Errors) // errors counted per attempt
	assert.Equal(t, int64(0), stats.QueueSize)
	assert.Equal(t, 3, sink.attempts("TFX-34"))
}

func TestConcurrentSubmissions(t *testing.T) {
	const submitters = 8
	const tasksPer = 5

	sink := &stubSink{}
	d := newTestDispatcher(t, sink, WithWorkers(3))

	var wg sync.WaitGroup
	for s := 0; s < submitters; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < tasksPer; i++ {
				key := fmt.Sprintf("TFX-%d-%d", s, i)
				if err := d.Submit([]core.UploadItem{testItem(key, 0)}); err != nil {
					t.Error(err)
				}
			}
		}(s)
	}
	wg.Wait()

	total := uint64(submitters * tasksPer)
	waitFor(t, func() bool { return d.Snapshot().Processed == total }, "all tasks delivered")

	stats := d.Snapshot()
	assert.Equal(t, total, stats.Processed)
	assert.Equal(t, uint64(0), stats.Errors)
	assert.Equal(t, int64(0), stats.QueueSize)

	// No duplication: each task delivered exactly once.
	for s := 0; s < submitters; s++ {
		for i := 0; i < tasksPer; i++ {
			key := fmt.Sprintf("TFX-%d-%d", s, i)
			assert.Equal(t, 1, sink.attempts(key), "key %s", key)
		}
	}
}

func TestNoRequeueAfterStop(t *testing.T) {
	sink := &stubSink{failAll: true}
	d, err := New(sink,
		WithPollInterval(2*time.Millisecond),
		WithRetryDelay(50*time.Millisecond),
		WithStopGrace(300*time.Millisecond),
		WithForceGrace(100*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	require.NoError(t, d.Submit([]core.UploadItem{testItem("TFX-55", 0)}))
	waitFor(t, func() bool { return sink.attempts("TFX-55") == 1 }, "first attempt made")

	// Stop while the retry timer is pending: the task must not re-enter the
	// queue, and Stop must return without waiting the full retry schedule.
	d.Stop()

	attempts := sink.attempts("TFX-55")
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, attempts, sink.attempts("TFX-55"), "no attempts after stop")
	assert.ErrorIs(t, d.Submit([]core.UploadItem{testItem("TFX-56", 0)}), ErrStopped)
}

func TestStopCancelsStalledDelivery(t *testing.T) {
	sink := &stubSink{blockc: make(chan struct{})}
	d, err := New(sink,
		WithPollInterval(2*time.Millisecond),
		WithStopGrace(50*time.Millisecond),
		WithForceGrace(200*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	require.NoError(t, d.Submit([]core.UploadItem{testItem("TFX-77", 0)}))

	// Let a worker pick the task up and stall inside the sink call.
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	d.Stop()
	elapsed := time.Since(start)

	// Stop must return within the two bounded windows even though the sink
	// never completes on its own.
	assert.Less(t, elapsed, time.Second)
}

func TestSnapshotReachesZeroQueueUnderFailure(t *testing.T) {
	sink := &stubSink{failAll: true}
	d := newTestDispatcher(t, sink, WithMaxRetries(1), WithRetryDelay(10*time.Millisecond))

	require.NoError(t, d.Submit([]core.UploadItem{
		testItem("TFX-81", 0),
		testItem("TFX-82", 0),
	}))

	waitFor(t, func() bool {
		s := d.Snapshot()
		return s.Errors == 4 && s.QueueSize == 0
	}, "queue drains once every task reaches a terminal state")
}
