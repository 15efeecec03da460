package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
)

// DocumentProcessor runs the ingestion pipeline for one approved document.
// Failures are recorded on the document itself, so the queue only logs them.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID, userID string) error
}

// ErrQueueFull is returned when the queue cannot accept more work.
var ErrQueueFull = errors.New("processing queue is full")

// ErrQueueStopped is returned when work is submitted after shutdown began.
var ErrQueueStopped = errors.New("processing queue is stopped")

type task struct {
	documentID string
	userID     string
}

// ProcessingQueue is a bounded in-process executor for document ingestion.
// Approvals enqueue; a fixed pool of workers drains. Enqueue never blocks:
// a full queue is reported to the caller instead of stalling the approval
// request.
type ProcessingQueue struct {
	processor DocumentProcessor
	tasks     chan task
	workers   int

	mu       sync.Mutex
	stopped  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewProcessingQueue creates a queue with the given buffer size and worker count.
func NewProcessingQueue(processor DocumentProcessor, queueSize, workers int) *ProcessingQueue {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 2
	}
	return &ProcessingQueue{
		processor: processor,
		tasks:     make(chan task, queueSize),
		workers:   workers,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Enqueue submits a document for background processing.
func (q *ProcessingQueue) Enqueue(documentID, userID string) error {
	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return ErrQueueStopped
	}

	select {
	case q.tasks <- task{documentID: documentID, userID: userID}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker pool. It blocks until Stop is called or the
// context is cancelled, mirroring how the serve loop runs background work.
func (q *ProcessingQueue) Start(ctx context.Context) {
	defer close(q.doneChan)

	log.Printf("processing queue started (%d workers, buffer %d)", q.workers, cap(q.tasks))

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.run(ctx)
		}()
	}
	wg.Wait()
}

func (q *ProcessingQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopChan:
			// Drain what is already queued before exiting
			for {
				select {
				case t := <-q.tasks:
					q.process(ctx, t)
				default:
					return
				}
			}
		case t := <-q.tasks:
			q.process(ctx, t)
		}
	}
}

func (q *ProcessingQueue) process(ctx context.Context, t task) {
	if err := q.processor.Process(ctx, t.documentID, t.userID); err != nil {
		log.Printf("processing queue: document %s failed: %v", t.documentID, err)
	}
}

// Stop rejects new work, drains queued tasks, and waits for the workers.
func (q *ProcessingQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		<-q.doneChan
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.stopChan)
	<-q.doneChan
	log.Println("processing queue shutdown complete")
}
