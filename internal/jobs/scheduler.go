// internal/jobs/scheduler.go
package jobs

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CutoffScheduler fires a task once per day when the calendar day matches the
// configured billing cutoff day. It drives the scheduled inactivity
// expiration pass; the task itself is idempotent, so an extra invocation
// after a restart is harmless.
type CutoffScheduler struct {
	cutoffDay int
	interval  time.Duration
	task      func()
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

func NewCutoffScheduler(cutoffDay int, task func()) *CutoffScheduler {
	if cutoffDay < 1 || cutoffDay > 31 {
		logrus.WithField("cutoff_day", cutoffDay).Warn("Invalid billing cutoff day, defaulting to 1")
		cutoffDay = 1
	}
	return &CutoffScheduler{
		cutoffDay: cutoffDay,
		interval:  time.Hour,
		task:      task,
		stop:      make(chan struct{}),
	}
}

func (s *CutoffScheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	}()
	logrus.WithField("cutoff_day", s.cutoffDay).Info("Cutoff scheduler started")
}

func (s *CutoffScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *CutoffScheduler) tick(now time.Time) {
	if now.Day() != s.cutoffDay {
		return
	}

	s.mu.Lock()
	alreadyRan := sameDay(s.lastRun, now)
	if !alreadyRan {
		s.lastRun = now
	}
	s.mu.Unlock()

	if alreadyRan {
		return
	}

	logrus.WithField("day", now.Format("2006-01-02")).Info("Billing cutoff day reached, running scheduled expiration")
	s.task()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
