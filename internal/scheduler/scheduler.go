package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/pricing"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/queue"
)

// ErrBusy is returned when a batch trigger arrives while a run is in flight.
// The trigger is dropped; the next scheduled tick recomputes from fresh data.
var ErrBusy = errors.New("repricing run already in progress")

// BatchRunner is the orchestrator surface the scheduler drives.
type BatchRunner interface {
	RunBatch(ctx context.Context) (*pricing.BatchResult, error)
	RunSingle(ctx context.Context, listingID int64) (*pricing.ListingOutcome, error)
}

// SnapshotRefresher rebuilds demand snapshots between pricing runs.
type SnapshotRefresher interface {
	RefreshAll(ctx context.Context) error
}

// Notifier receives batch summaries. Optional.
type Notifier interface {
	NotifyBatchResult(result *pricing.BatchResult) error
}

// Scheduler owns the two trigger surfaces: the fixed-interval full-catalog
// tick and the on-demand single-listing queue.
type Scheduler struct {
	engine     BatchRunner
	aggregator SnapshotRefresher
	notifier   Notifier
	repriceQ   *queue.RepriceQueue
	logger     *logrus.Logger

	runInterval   time.Duration
	statsInterval time.Duration

	running  atomic.Bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewScheduler(
	engine BatchRunner,
	aggregator SnapshotRefresher,
	repriceQ *queue.RepriceQueue,
	runInterval time.Duration,
	statsInterval time.Duration,
	logger *logrus.Logger,
) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		engine:        engine,
		aggregator:    aggregator,
		repriceQ:      repriceQ,
		logger:        logger,
		runInterval:   runInterval,
		statsInterval: statsInterval,
		stopChan:      make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// SetNotifier attaches an optional batch-summary notifier.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start begins the scheduled tasks and the on-demand queue worker.
func (s *Scheduler) Start() {
	s.repriceQ.Subscribe(s.handleRepriceRequest)
	s.repriceQ.Start()

	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Startup run so a restarted worker does not wait a full interval
	go func() {
		s.logger.Info("Running startup repricing jobs")
		s.refreshSnapshots()
		if _, err := s.RunBatchNow(s.ctx); err != nil && !errors.Is(err, ErrBusy) {
			s.logger.WithError(err).Error("Startup repricing run failed")
		}
		s.logger.Info("Startup repricing jobs completed")
	}()

	runTicker := time.NewTicker(s.runInterval)
	defer runTicker.Stop()

	statsTicker := time.NewTicker(s.statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-statsTicker.C:
			s.refreshSnapshots()
		case <-runTicker.C:
			s.logger.Info("Starting scheduled repricing run")
			if _, err := s.RunBatchNow(s.ctx); err != nil {
				if errors.Is(err, ErrBusy) {
					s.logger.Warn("Previous repricing run still in flight, tick dropped")
				} else {
					s.logger.WithError(err).Error("Scheduled repricing run failed")
				}
			}
		}
	}
}

// RunBatchNow runs a full-catalog reprice immediately. At most one run may be
// in flight; concurrent triggers get ErrBusy (drop-and-log policy).
func (s *Scheduler) RunBatchNow(ctx context.Context) (*pricing.BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	result, err := s.engine.RunBatch(ctx)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyBatchResult(result); err != nil {
			s.logger.WithError(err).Error("Failed to send batch summary notification")
		}
	}
	return result, nil
}

// TriggerListing enqueues an on-demand reprice of one listing, independent
// of the periodic cadence.
func (s *Scheduler) TriggerListing(listingID int64) error {
	return s.repriceQ.Push(queue.Request{
		ListingID:   listingID,
		RequestedAt: time.Now().UTC(),
	})
}

// IsRunning reports whether a batch run is in flight.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) handleRepriceRequest(req queue.Request) error {
	log := s.logger.WithField("listing_id", req.ListingID)
	log.Info("Processing on-demand reprice request")

	outcome, err := s.engine.RunSingle(s.ctx, req.ListingID)
	if err != nil {
		return err
	}

	switch outcome.Status {
	case pricing.OutcomeChanged:
		log.WithFields(logrus.Fields{
			"old_price": outcome.Change.OldPrice,
			"new_price": outcome.Change.NewPrice,
		}).Info("On-demand reprice applied")
	case pricing.OutcomeSkipped:
		log.WithField("reason", outcome.Reason).Info("On-demand reprice skipped")
	case pricing.OutcomeFailed:
		return outcome.Err
	}
	return nil
}

func (s *Scheduler) refreshSnapshots() {
	if s.aggregator == nil {
		return
	}
	if err := s.aggregator.RefreshAll(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WithError(err).Error("Demand snapshot refresh failed")
	}
}

// Stop gracefully stops the scheduler. Cancellation takes effect between
// listings, never inside a price+history commit.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.cancel()
	s.wg.Wait()
	s.repriceQ.Close()
}
