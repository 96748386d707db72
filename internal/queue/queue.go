package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Request is an on-demand reprice of a single listing.
type Request struct {
	ListingID   int64
	RequestedAt time.Time
}

// RepriceQueue buffers on-demand reprice requests between the admin surface
// and the scheduler's worker.
type RepriceQueue struct {
	items    chan Request
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(Request) error
}

// NewRepriceQueue creates a queue with the specified buffer size
func NewRepriceQueue(bufferSize int, logger *logrus.Logger) *RepriceQueue {
	return &RepriceQueue{
		items:    make(chan Request, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(Request) error, 0),
	}
}

// Push adds a reprice request to the queue
func (q *RepriceQueue) Push(req Request) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- req:
		q.logger.WithField("listing_id", req.ListingID).Debug("Pushed reprice request to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each request
func (q *RepriceQueue) Subscribe(handler func(Request) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing requests in the queue
func (q *RepriceQueue) Start() {
	go q.process()
}

func (q *RepriceQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case req := <-q.items:
			q.dispatch(req)
		}
	}
}

// dispatch sends the request to all subscribed handlers
func (q *RepriceQueue) dispatch(req Request) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(req); err != nil {
			q.logger.WithError(err).WithField("listing_id", req.ListingID).Error("Handler failed to process reprice request")
		}
	}
}

// Close stops the queue and prevents new requests from being added.
// The items channel is left open: a Push racing Close must never hit a
// closed channel, and the worker exits via done without draining
// zero-value requests.
func (q *RepriceQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	return nil
}

// Len returns the current number of requests in the queue
func (q *RepriceQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *RepriceQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
