package yacs

import (
	"time"

	"github.com/hhkbp2/go-strftime"
)

// StatusReporter prints a one line summary of the run at a fixed
// cadence: operation counts, the rate over the last window and current
// p99 latencies. The completion path only bumps counters; printing
// happens on the reporter's own routine.
type StatusReporter struct {
	metrics  *Metrics
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}

	prevCount int64
	prevTime  int64
}

func NewStatusReporter(metrics *Metrics, interval time.Duration) *StatusReporter {
	self := &StatusReporter{
		metrics:  metrics,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		prevTime: NowNanos(),
	}
	go self.loop()
	return self
}

func (self *StatusReporter) Collect(ctx *StressContext, op *Operation,
	result *OperationResult, startNanos, endNanos int64) {
	// counters live in the metrics bundle already
}

func (self *StatusReporter) Close() error {
	close(self.stop)
	<-self.done
	return nil
}

func (self *StatusReporter) loop() {
	defer close(self.done)
	ticker := time.NewTicker(self.interval)
	defer ticker.Stop()
	for {
		select {
		case <-self.stop:
			return
		case <-ticker.C:
			self.report()
		}
	}
}

func (self *StatusReporter) report() {
	now := NowNanos()
	snapshot := self.metrics.Snapshot()
	total := snapshot.Selects.Count + snapshot.Mutations.Count +
		snapshot.Deletions.Count + snapshot.Populate.Count + snapshot.Errors.Count

	elapsed := float64(now-self.prevTime) / float64(time.Second)
	var rate float64
	if elapsed > 0 {
		rate = float64(total-self.prevCount) / elapsed
	}
	self.prevCount = total
	self.prevTime = now

	Printf("%s ops=%d rate=%.0f/s errors=%d "+
		"p99(us) select=%d mutation=%d delete=%d populate=%d",
		strftime.Format("%Y-%m-%d %H:%M:%S", time.Now()),
		total, rate, snapshot.Errors.Count,
		snapshot.Selects.P99, snapshot.Mutations.P99,
		snapshot.Deletions.P99, snapshot.Populate.P99)
}
