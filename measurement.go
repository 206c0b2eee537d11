package yacs

import (
	"math"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"go.uber.org/atomic"
)

const (
	// Latencies are recorded in nanoseconds; anything beyond the
	// trackable ceiling is clamped before entering the histogram.
	histogramMinValue = 1
	histogramMaxValue = int64(10 * time.Minute)
	histogramSigfigs  = 3

	meterTickInterval = 5 * time.Second
)

var (
	alpha1  = 1 - math.Exp(-5.0/60.0)
	alpha5  = 1 - math.Exp(-5.0/60.0/5.0)
	alpha15 = 1 - math.Exp(-5.0/60.0/15.0)
)

// EWMA is one exponentially weighted moving average of a rate,
// advanced in fixed five second ticks.
type EWMA struct {
	alpha       float64
	uncounted   *atomic.Int64
	rate        *atomic.Float64
	initialized *atomic.Bool
}

func NewEWMA(alpha float64) *EWMA {
	return &EWMA{
		alpha:       alpha,
		uncounted:   atomic.NewInt64(0),
		rate:        atomic.NewFloat64(0),
		initialized: atomic.NewBool(false),
	}
}

func (self *EWMA) Update(n int64) {
	self.uncounted.Add(n)
}

func (self *EWMA) Tick() {
	count := self.uncounted.Swap(0)
	instant := float64(count) / meterTickInterval.Seconds()
	if self.initialized.CompareAndSwap(false, true) {
		self.rate.Store(instant)
		return
	}
	current := self.rate.Load()
	self.rate.Store(current + self.alpha*(instant-current))
}

// Rate reports the average in events per second.
func (self *EWMA) Rate() float64 {
	return self.rate.Load()
}

func (self *EWMA) Reset() {
	self.uncounted.Store(0)
	self.rate.Store(0)
	self.initialized.Store(false)
}

// Meter counts events and keeps 1, 5 and 15 minute moving rates. Ticks
// are driven lazily from Mark and the snapshot path, so an idle meter
// still decays correctly on the next access.
type Meter struct {
	count      *atomic.Int64
	startNanos *atomic.Int64
	lastTick   *atomic.Int64
	m1         *EWMA
	m5         *EWMA
	m15        *EWMA
}

func NewMeter() *Meter {
	now := NowNanos()
	return &Meter{
		count:      atomic.NewInt64(0),
		startNanos: atomic.NewInt64(now),
		lastTick:   atomic.NewInt64(now),
		m1:         NewEWMA(alpha1),
		m5:         NewEWMA(alpha5),
		m15:        NewEWMA(alpha15),
	}
}

func (self *Meter) Mark(n int64) {
	self.tickIfNecessary()
	self.count.Add(n)
	self.m1.Update(n)
	self.m5.Update(n)
	self.m15.Update(n)
}

func (self *Meter) tickIfNecessary() {
	old := self.lastTick.Load()
	now := NowNanos()
	elapsed := now - old
	if elapsed < int64(meterTickInterval) {
		return
	}
	ticks := elapsed / int64(meterTickInterval)
	if !self.lastTick.CompareAndSwap(old, old+ticks*int64(meterTickInterval)) {
		return
	}
	for i := int64(0); i < ticks; i++ {
		self.m1.Tick()
		self.m5.Tick()
		self.m15.Tick()
	}
}

func (self *Meter) Count() int64 {
	return self.count.Load()
}

func (self *Meter) Reset() {
	now := NowNanos()
	self.count.Store(0)
	self.startNanos.Store(now)
	self.lastTick.Store(now)
	self.m1.Reset()
	self.m5.Reset()
	self.m15.Reset()
}

// MeterSnapshot is the externally visible state of a meter.
type MeterSnapshot struct {
	Count    int64   `json:"count"`
	MeanRate float64 `json:"mean_rate"`
	Rate1    float64 `json:"rate_1min"`
	Rate5    float64 `json:"rate_5min"`
	Rate15   float64 `json:"rate_15min"`
}

func (self *Meter) Snapshot() *MeterSnapshot {
	self.tickIfNecessary()
	count := self.count.Load()
	elapsed := float64(NowNanos()-self.startNanos.Load()) / float64(time.Second)
	var mean float64
	if elapsed > 0 {
		mean = float64(count) / elapsed
	}
	return &MeterSnapshot{
		Count:    count,
		MeanRate: mean,
		Rate1:    self.m1.Rate(),
		Rate5:    self.m5.Rate(),
		Rate15:   self.m15.Rate(),
	}
}

// Timer measures the latency distribution and rate of one operation
// kind. Samples enter in nanoseconds; snapshots report microseconds.
type Timer struct {
	name      string
	meter     *Meter
	lock      sync.Mutex
	histogram *hdrhistogram.Histogram
}

func NewTimer(name string) *Timer {
	return &Timer{
		name:      name,
		meter:     NewMeter(),
		histogram: hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSigfigs),
	}
}

func (self *Timer) Name() string {
	return self.name
}

func (self *Timer) Update(latencyNanos int64) {
	self.meter.Mark(1)
	if latencyNanos < histogramMinValue {
		latencyNanos = histogramMinValue
	} else if latencyNanos > histogramMaxValue {
		latencyNanos = histogramMaxValue
	}
	self.lock.Lock()
	self.histogram.RecordValue(latencyNanos)
	self.lock.Unlock()
}

func (self *Timer) Count() int64 {
	return self.meter.Count()
}

func (self *Timer) Reset() {
	self.meter.Reset()
	self.lock.Lock()
	self.histogram = hdrhistogram.New(histogramMinValue, histogramMaxValue, histogramSigfigs)
	self.lock.Unlock()
}

// TimerSnapshot is the externally visible state of a timer. Latencies
// are reported in microseconds.
type TimerSnapshot struct {
	Count    int64   `json:"count"`
	MeanRate float64 `json:"mean_rate"`
	Rate1    float64 `json:"rate_1min"`
	Rate5    float64 `json:"rate_5min"`
	Rate15   float64 `json:"rate_15min"`
	Mean     float64 `json:"mean"`
	Median   int64   `json:"median"`
	P95      int64   `json:"p95"`
	P99      int64   `json:"p99"`
	P999     int64   `json:"p999"`
	Max      int64   `json:"max"`
}

func (self *Timer) Snapshot() *TimerSnapshot {
	meter := self.meter.Snapshot()
	self.lock.Lock()
	mean := self.histogram.Mean()
	median := self.histogram.ValueAtQuantile(50)
	p95 := self.histogram.ValueAtQuantile(95)
	p99 := self.histogram.ValueAtQuantile(99)
	p999 := self.histogram.ValueAtQuantile(99.9)
	max := self.histogram.Max()
	self.lock.Unlock()
	return &TimerSnapshot{
		Count:    meter.Count,
		MeanRate: meter.MeanRate,
		Rate1:    meter.Rate1,
		Rate5:    meter.Rate5,
		Rate15:   meter.Rate15,
		Mean:     mean / 1000.0,
		Median:   NanosToMicros(median),
		P95:      NanosToMicros(p95),
		P99:      NanosToMicros(p99),
		P999:     NanosToMicros(p999),
		Max:      NanosToMicros(max),
	}
}

// Metrics is the per-run bundle: one timer per operation kind plus the
// error meter. Failed operations increment the error meter only; their
// samples never reach the kind timer.
type Metrics struct {
	Selects   *Timer
	Mutations *Timer
	Deletions *Timer
	Populate  *Timer
	Errors    *Meter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Selects:   NewTimer("select"),
		Mutations: NewTimer("mutation"),
		Deletions: NewTimer("delete"),
		Populate:  NewTimer("populate"),
		Errors:    NewMeter(),
	}
}

// TimerFor maps an operation kind onto its timer.
func (self *Metrics) TimerFor(kind OperationKind) *Timer {
	switch kind {
	case OperationSelect:
		return self.Selects
	case OperationMutation:
		return self.Mutations
	case OperationDeletion:
		return self.Deletions
	default:
		return self.Populate
	}
}

// TotalCount sums every timer count and the error count.
func (self *Metrics) TotalCount() int64 {
	return self.Selects.Count() + self.Mutations.Count() +
		self.Deletions.Count() + self.Populate.Count() + self.Errors.Count()
}

// Reset clears every timer and the error meter. Called between the
// populate phase and the measured phase.
func (self *Metrics) Reset() {
	self.Selects.Reset()
	self.Mutations.Reset()
	self.Deletions.Reset()
	self.Populate.Reset()
	self.Errors.Reset()
}

// MetricsSnapshot is the read-only query surface, safe to take while
// the run is in flight. Reader snapshots are eventually consistent.
type MetricsSnapshot struct {
	Selects   *TimerSnapshot `json:"selects"`
	Mutations *TimerSnapshot `json:"mutations"`
	Deletions *TimerSnapshot `json:"deletions"`
	Populate  *TimerSnapshot `json:"populate"`
	Errors    *MeterSnapshot `json:"errors"`
}

func (self *Metrics) Snapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		Selects:   self.Selects.Snapshot(),
		Mutations: self.Mutations.Snapshot(),
		Deletions: self.Deletions.Snapshot(),
		Populate:  self.Populate.Snapshot(),
		Errors:    self.Errors.Snapshot(),
	}
}
