package cmd

import (
	"math"
	"sync"
	"time"

	"github.com/nedrysoft/pathping/core"
)

// stats aggregates a ping run's results into the min/avg/max/mdev summary
// printed on exit using running sums, so memory use stays flat regardless
// of how many samples a run collects.
type stats struct {
	mu sync.Mutex

	totalOk   uint32
	totalLost uint32

	rttMin, rttMax, rttSum, rttSqSum int64
}

func newStats() *stats {
	return &stats{rttMin: math.MaxInt64}
}

// recordResult folds one completed probe into the running totals. Every
// transmitted probe eventually produces exactly one PingResult (Ok or
// NoReply), so totalSent is derived rather than tracked separately.
func (s *stats) recordResult(r core.PingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Status != core.Ok {
		s.totalLost++
		return
	}

	s.totalOk++

	rtt := r.RoundTrip.Nanoseconds()
	s.rttMin = min64(s.rttMin, rtt)
	s.rttMax = max64(s.rttMax, rtt)
	s.rttSum += rtt
	s.rttSqSum += rtt * rtt
}

func (s *stats) summary() (sent, received uint32, loss float64, rttMin, rttAvg, rttMax, rttMDev time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	received = s.totalOk
	sent = s.totalOk + s.totalLost

	if sent > 0 {
		loss = 1 - float64(received)/float64(sent)
	}

	if received == 0 {
		return
	}

	avg := s.rttSum / int64(received)
	variance := float64(s.rttSqSum/int64(received) - avg*avg)
	if variance < 0 {
		variance = 0
	}

	return sent, received, loss,
		time.Duration(s.rttMin),
		time.Duration(avg),
		time.Duration(s.rttMax),
		time.Duration(int64(math.Sqrt(variance)))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
