package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/pricing"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/queue"
)

// fakeRunner blocks inside RunBatch until released, to exercise the busy policy.
type fakeRunner struct {
	mu          sync.Mutex
	batchCalls  int
	singleCalls []int64
	release     chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: make(chan struct{})}
}

func (f *fakeRunner) RunBatch(ctx context.Context) (*pricing.BatchResult, error) {
	f.mu.Lock()
	f.batchCalls++
	f.mu.Unlock()
	<-f.release
	return &pricing.BatchResult{Skipped: map[pricing.SkipReason]int{}}, nil
}

func (f *fakeRunner) RunSingle(ctx context.Context, listingID int64) (*pricing.ListingOutcome, error) {
	f.mu.Lock()
	f.singleCalls = append(f.singleCalls, listingID)
	f.mu.Unlock()
	return &pricing.ListingOutcome{
		ListingID: listingID,
		Status:    pricing.OutcomeSkipped,
		Reason:    pricing.SkipNoAdjustment,
	}, nil
}

func newTestScheduler(runner *fakeRunner) *Scheduler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := queue.NewRepriceQueue(8, logger)
	return NewScheduler(runner, nil, q, time.Hour, time.Hour, logger)
}

func TestRunBatchNowDropsConcurrentTrigger(t *testing.T) {
	runner := newFakeRunner()
	s := newTestScheduler(runner)

	done := make(chan struct{})
	go func() {
		_, err := s.RunBatchNow(context.Background())
		assert.NoError(t, err)
		close(done)
	}()

	// Wait until the first run is in flight
	require.Eventually(t, s.IsRunning, time.Second, 5*time.Millisecond)

	// A second trigger while running is dropped with ErrBusy
	_, err := s.RunBatchNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(runner.release)
	<-done

	// After the run finishes, triggers work again
	runner.release = make(chan struct{})
	close(runner.release)
	_, err = s.RunBatchNow(context.Background())
	assert.NoError(t, err)

	runner.mu.Lock()
	assert.Equal(t, 2, runner.batchCalls)
	runner.mu.Unlock()
}

func TestTriggerListingFlowsThroughQueue(t *testing.T) {
	runner := newFakeRunner()
	close(runner.release)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := queue.NewRepriceQueue(8, logger)
	s := NewScheduler(runner, nil, q, time.Hour, time.Hour, logger)

	s.repriceQ.Subscribe(s.handleRepriceRequest)
	s.repriceQ.Start()
	defer s.repriceQ.Close()

	require.NoError(t, s.TriggerListing(42))

	assert.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return len(runner.singleCalls) == 1 && runner.singleCalls[0] == 42
	}, time.Second, 5*time.Millisecond)
}

func TestTriggerListingQueueFull(t *testing.T) {
	runner := newFakeRunner()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	q := queue.NewRepriceQueue(1, logger)
	s := NewScheduler(runner, nil, q, time.Hour, time.Hour, logger)

	// The queue is never started, so the buffer fills up
	require.NoError(t, s.TriggerListing(1))
	assert.ErrorIs(t, s.TriggerListing(2), queue.ErrQueueFull)
}

func TestNotifierReceivesBatchResult(t *testing.T) {
	runner := newFakeRunner()
	close(runner.release)
	s := newTestScheduler(runner)

	var mu sync.Mutex
	var got *pricing.BatchResult
	s.SetNotifier(notifierFunc(func(result *pricing.BatchResult) error {
		mu.Lock()
		got = result
		mu.Unlock()
		return nil
	}))

	_, err := s.RunBatchNow(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.NotNil(t, got)
	mu.Unlock()
}

type notifierFunc func(*pricing.BatchResult) error

func (f notifierFunc) NotifyBatchResult(result *pricing.BatchResult) error {
	return f(result)
}
