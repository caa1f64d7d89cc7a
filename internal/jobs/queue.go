// internal/jobs/queue.go
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of background work. Handlers must be safe to re-run: the
// queue delivers at least once and retries failed jobs.
type Job struct {
	Name    string
	Run     func() error
	attempt int
}

// Queue is an in-process background job runner: a buffered channel drained by
// a fixed pool of worker goroutines. A job whose Run returns an error is
// re-enqueued with a delay until MaxRetries is exhausted.
type Queue struct {
	jobs       chan Job
	workers    int
	maxRetries int
	retryDelay time.Duration
	wg         sync.WaitGroup
	mu         sync.RWMutex
	stopOnce   sync.Once
	stopped    chan struct{}
}

func NewQueue(workers, queueSize, maxRetries int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 16
	}
	return &Queue{
		jobs:       make(chan Job, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		retryDelay: 2 * time.Second,
		stopped:    make(chan struct{}),
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	logrus.WithField("workers", q.workers).Info("Background job queue started")
}

// Enqueue schedules a job. It returns an error instead of blocking when the
// queue is full or already stopped.
func (q *Queue) Enqueue(name string, run func() error) error {
	// The read lock keeps Stop from closing the channel between the
	// stopped check and the send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	select {
	case <-q.stopped:
		return fmt.Errorf("job queue is stopped")
	default:
	}

	select {
	case q.jobs <- Job{Name: name, Run: run}:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Stop closes the queue and waits for in-flight jobs to finish. Jobs still
// buffered are drained before the workers exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		close(q.stopped)
		close(q.jobs)
		q.mu.Unlock()
	})
	q.wg.Wait()
	logrus.Info("Background job queue stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for job := range q.jobs {
		q.execute(job)
	}
	_ = id
}

func (q *Queue) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"job":   job.Name,
				"panic": r,
			}).Error("Background job panicked")
		}
	}()

	err := job.Run()
	if err == nil {
		return
	}

	job.attempt++
	if job.attempt > q.maxRetries {
		logrus.WithError(err).WithFields(logrus.Fields{
			"job":      job.Name,
			"attempts": job.attempt,
		}).Error("Background job failed permanently")
		return
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"job":     job.Name,
		"attempt": job.attempt,
	}).Warn("Background job failed, retrying")

	// Retry after a delay without blocking the worker pool.
	retry := job
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-q.stopped:
			return
		case <-time.After(q.retryDelay * time.Duration(retry.attempt)):
		}
		q.execute(retry)
	}()
}
