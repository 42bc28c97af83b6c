package jobs

import (
	"context"
	"log"
	"time"
)

// BatchProcessor drains one batch of queued jobs per call.
type BatchProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls the jobs table on a fixed interval. Claiming uses SKIP
// LOCKED, so several workers can share one database without coordination.
type Worker struct {
	processor    BatchProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor BatchProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. Queued jobs are drained once immediately so work enqueued
// before startup does not wait a full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("job worker polling every %v", w.pollInterval)
	w.drain(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopping: context cancelled")
			return
		case <-w.stopChan:
			log.Println("job worker stopping")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job worker: %v", err)
	}
}

// Stop signals the loop to exit and waits for the current batch to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
