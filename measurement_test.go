package yacs

import (
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func TestTimerRecordsLatencies(t *testing.T) {
	timer := NewTimer("select")
	for i := 1; i <= 1000; i++ {
		timer.Update(int64(i) * int64(time.Microsecond))
	}
	require.Equal(t, int64(1000), timer.Count())

	s := timer.Snapshot()
	require.Equal(t, int64(1000), s.Count)
	// samples are 1..1000us, so the median sits near 500us
	require.True(t, s.Median >= 450)
	require.True(t, s.Median <= 550)
	require.True(t, s.P99 >= 950)
	require.True(t, s.Max >= 990)
	require.True(t, s.Mean > 0)
}

func TestTimerClampsOutOfRangeSamples(t *testing.T) {
	timer := NewTimer("mutation")
	timer.Update(0)
	timer.Update(int64(time.Hour))
	require.Equal(t, int64(2), timer.Count())
	s := timer.Snapshot()
	require.True(t, s.Max <= NanosToMicros(histogramMaxValue)+NanosToMicros(histogramMaxValue)/100)
}

func TestMeterCounts(t *testing.T) {
	meter := NewMeter()
	meter.Mark(1)
	meter.Mark(3)
	require.Equal(t, int64(4), meter.Count())
	s := meter.Snapshot()
	require.Equal(t, int64(4), s.Count)
	require.True(t, s.MeanRate > 0)
}

func TestEWMATickDecay(t *testing.T) {
	e := NewEWMA(alpha1)
	e.Update(300)
	e.Tick()
	// 300 events over one 5s tick
	require.Equal(t, 60.0, e.Rate())
	for i := 0; i < 12; i++ {
		e.Tick()
	}
	require.True(t, e.Rate() < 60.0)
	require.True(t, e.Rate() > 0.0)
}

func TestMetricsTimerFor(t *testing.T) {
	m := NewMetrics()
	require.Equal(t, m.Selects, m.TimerFor(OperationSelect))
	require.Equal(t, m.Mutations, m.TimerFor(OperationMutation))
	require.Equal(t, m.Deletions, m.TimerFor(OperationDeletion))
	require.Equal(t, m.Populate, m.TimerFor(OperationPopulate))
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.Selects.Update(1000)
	m.Populate.Update(1000)
	m.Errors.Mark(5)
	require.Equal(t, int64(7), m.TotalCount())

	m.Reset()
	require.Equal(t, int64(0), m.TotalCount())
	require.Equal(t, int64(0), m.Populate.Count())
	require.Equal(t, int64(0), m.Errors.Count())
	s := m.Selects.Snapshot()
	require.Equal(t, int64(0), s.Max)
}

func TestRateLimiterDisabledAtZero(t *testing.T) {
	limiter := NewRateLimiter(0)
	require.False(t, limiter.Enabled())
	start := time.Now()
	for i := 0; i < 100000; i++ {
		limiter.Acquire()
	}
	require.True(t, time.Since(start) < time.Second)
	require.True(t, limiter.TryAcquire(time.Millisecond))
}

func TestRateLimiterGatesBeyondBurst(t *testing.T) {
	limiter := NewRateLimiter(50)
	require.True(t, limiter.Enabled())
	start := time.Now()
	// the bucket holds 50 tokens; 25 more refill at 50/s
	for i := 0; i < 75; i++ {
		limiter.Acquire()
	}
	elapsed := time.Since(start)
	require.True(t, elapsed >= 300*time.Millisecond)
	require.True(t, elapsed < 3*time.Second)
}

func TestRateLimiterTryAcquireTimeout(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.True(t, limiter.TryAcquire(2*time.Second))
	// bucket drained; the next token is a full second away
	ok := limiter.TryAcquire(10 * time.Millisecond)
	require.False(t, ok)
}
