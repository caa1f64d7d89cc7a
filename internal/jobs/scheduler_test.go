// internal/jobs/scheduler_test.go
package jobs

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresOnCutoffDay(t *testing.T) {
	var fired int32
	s := NewCutoffScheduler(15, func() { atomic.AddInt32(&fired, 1) })

	day := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	s.tick(day)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	// A later tick on the same day is a no-op.
	s.tick(day.Add(time.Hour))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	// The next month's cutoff day fires again.
	s.tick(time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fired))
}

func TestSchedulerIgnoresOtherDays(t *testing.T) {
	var fired int32
	s := NewCutoffScheduler(15, func() { atomic.AddInt32(&fired, 1) })

	s.tick(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	s.tick(time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestSchedulerSanitizesCutoffDay(t *testing.T) {
	s := NewCutoffScheduler(0, func() {})
	assert.Equal(t, 1, s.cutoffDay)

	s = NewCutoffScheduler(99, func() {})
	assert.Equal(t, 1, s.cutoffDay)
}
