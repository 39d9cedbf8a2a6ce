package duplication

import (
	"sync"
	"time"
)

// captureStats tracks capture outcomes for one manager.
type captureStats struct {
	mu sync.RWMutex

	framesCaptured uint64
	timeouts       uint64
	accessDenied   uint64
	accessLost     uint64
	failures       uint64
	acquisitions   uint64
	acquireFails   uint64

	lastCaptureTime time.Duration
	startTime       time.Time
}

func newCaptureStats() *captureStats {
	return &captureStats{startTime: time.Now()}
}

func (s *captureStats) recordFrame(d time.Duration) {
	s.mu.Lock()
	s.framesCaptured++
	s.lastCaptureTime = d
	s.mu.Unlock()
}

func (s *captureStats) recordTimeout() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeouts++
	return s.timeouts
}

func (s *captureStats) recordAccessDenied() {
	s.mu.Lock()
	s.accessDenied++
	s.mu.Unlock()
}

func (s *captureStats) recordAccessLost() {
	s.mu.Lock()
	s.accessLost++
	s.mu.Unlock()
}

func (s *captureStats) recordFailure() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

func (s *captureStats) recordAcquire(ok bool) {
	s.mu.Lock()
	if ok {
		s.acquisitions++
	} else {
		s.acquireFails++
	}
	s.mu.Unlock()
}

// StatsSnapshot is a point-in-time copy of a manager's counters.
type StatsSnapshot struct {
	FramesCaptured uint64
	Timeouts       uint64
	AccessDenied   uint64
	AccessLost     uint64
	Failures       uint64
	Acquisitions   uint64
	AcquireFails   uint64
	CaptureMs      float64
	Uptime         time.Duration
}

func (s *captureStats) snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StatsSnapshot{
		FramesCaptured: s.framesCaptured,
		Timeouts:       s.timeouts,
		AccessDenied:   s.accessDenied,
		AccessLost:     s.accessLost,
		Failures:       s.failures,
		Acquisitions:   s.acquisitions,
		AcquireFails:   s.acquireFails,
		CaptureMs:      float64(s.lastCaptureTime.Microseconds()) / 1000.0,
		Uptime:         time.Since(s.startTime),
	}
}
