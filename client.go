package yacs

import (
	"fmt"
	"sync"
	"time"

	g "github.com/hhkbp2/yacs/generator"
	"go.uber.org/atomic"
)

// Terminal reasons, in the order the coordinator reports them.
const (
	ReasonCount     = "count reached"
	ReasonDuration  = "duration elapsed"
	ReasonSLO       = "latency SLO breach"
	ReasonStop      = "stop requested"
	ReasonExhausted = "key stream exhausted"
)

type RunState int32

const (
	StateRunning RunState = iota
	StateDraining
	StateStopped
)

func (self RunState) String() string {
	switch self {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Terminator is the state machine coordinating shutdown: Running ->
// Draining on the first terminal condition, Draining -> Stopped once
// every dispatch routine has drained its in-flight window. Dispatch
// routines poll the cancellation flag and also call Drain themselves on
// key exhaustion, a latency ceiling breach or an abort; Drain is a
// compare-and-set, idempotent and safe from any routine.
type Terminator struct {
	state     *atomic.Int32
	reason    *atomic.String
	cancelled *atomic.Bool
	stopped   chan struct{}
	finish    sync.Once
}

func NewTerminator() *Terminator {
	return &Terminator{
		state:     atomic.NewInt32(int32(StateRunning)),
		reason:    atomic.NewString(""),
		cancelled: atomic.NewBool(false),
		stopped:   make(chan struct{}),
	}
}

// Drain requests shutdown. The first caller wins; later reasons are
// dropped. Reports whether this call performed the transition.
func (self *Terminator) Drain(reason string) bool {
	if self.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		self.reason.Store(reason)
		self.cancelled.Store(true)
		return true
	}
	return false
}

func (self *Terminator) Cancelled() bool {
	return self.cancelled.Load()
}

func (self *Terminator) State() RunState {
	return RunState(self.state.Load())
}

func (self *Terminator) Reason() string {
	return self.reason.Load()
}

// markStopped finalizes the state machine. Called by the controller
// once every routine has joined.
func (self *Terminator) markStopped(defaultReason string) {
	self.finish.Do(func() {
		if len(self.reason.Load()) == 0 {
			self.reason.Store(defaultReason)
		}
		self.state.Store(int32(StateStopped))
		close(self.stopped)
	})
}

// AwaitStopped blocks until the run is fully drained and reports the
// terminal reason.
func (self *Terminator) AwaitStopped() string {
	<-self.stopped
	return self.reason.Load()
}

// computeShares splits the iteration budget evenly over the routines;
// the remainder lands on the lowest-indexed ones. A zero budget means
// every share is unbounded.
func computeShares(iterations int64, threads int) []int64 {
	shares := make([]int64, threads)
	if iterations <= 0 {
		return shares
	}
	base := iterations / int64(threads)
	remainder := iterations % int64(threads)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares
}

// completion is the record the executor hands to the per-routine
// completion loop.
type completion struct {
	op         *Operation
	err        error
	startNanos int64
	endNanos   int64
}

// worker owns one dispatch loop: it pulls keys from the shared stream,
// picks an operation kind by the configured mix, respects the global
// rate cap and its own in-flight window, and hands submissions to
// executor routines. Completions are serialized through a dedicated
// routine so collectors see one ordered stream per worker.
type worker struct {
	id         int
	ctx        *StressContext
	runner     IStressRunner
	keys       g.PartitionKeyGenerator
	terminator *Terminator
	share      int64

	readRate   float64
	deleteRate float64

	populatePhase   bool
	populateDeletes bool

	sloReadNanos  int64
	sloWriteNanos int64

	gate        chan struct{}
	outstanding sync.WaitGroup
	completions chan *completion
	drained     chan struct{}
}

func newWorker(id int, ctx *StressContext, runner IStressRunner,
	keys g.PartitionKeyGenerator, terminator *Terminator, share int64) *worker {

	cfg := ctx.Config
	return &worker{
		id:            id,
		ctx:           ctx,
		runner:        runner,
		keys:          keys,
		terminator:    terminator,
		share:         share,
		readRate:      cfg.ReadRate,
		deleteRate:    cfg.DeleteRate,
		sloReadNanos:  MillisToNanos(cfg.MaxReadLatencyMillis),
		sloWriteNanos: MillisToNanos(cfg.MaxWriteLatencyMillis),
		gate:          make(chan struct{}, cfg.QueueDepth),
		completions:   make(chan *completion, cfg.QueueDepth+1),
		drained:       make(chan struct{}),
	}
}

// run drives the dispatch loop, then drains: it returns once the
// routine has observed cancellation (or exhausted its share) and its
// in-flight window is empty.
func (self *worker) run() {
	go self.completionLoop()
	self.dispatch()

	// let outstanding async work finish, then shut the completion loop
	self.outstanding.Wait()
	self.completions <- &completion{op: &Operation{Kind: OperationStop}}
	<-self.drained
}

func (self *worker) dispatch() {
	defer func() {
		if r := recover(); r != nil {
			Errorf("worker %d aborted: %v", self.id, r)
			self.terminator.Drain(fmt.Sprintf("worker aborted: %v", r))
		}
	}()

	produced := int64(0)
	for {
		if self.terminator.Cancelled() {
			break
		}
		if self.share > 0 && produced >= self.share {
			break
		}
		key, ok := self.keys.Next()
		if !ok {
			self.terminator.Drain(ReasonExhausted)
			break
		}
		op := self.nextOperation(key)

		self.ctx.Limiter.Acquire()
		if self.terminator.Cancelled() {
			break
		}
		self.gate <- struct{}{}
		self.outstanding.Add(1)
		op.StartNanos = NowNanos()
		go self.execute(op)
		produced++
	}
}

// nextOperation picks the operation kind from a uniform draw and asks
// the runner for the bound statement.
func (self *worker) nextOperation(key *g.PartitionKey) *Operation {
	u := g.NextFloat64()
	if self.populatePhase {
		if self.populateDeletes && u < self.deleteRate {
			return self.runner.NextDelete(key)
		}
		return self.runner.NextPopulate(key)
	}
	switch {
	case u < self.readRate:
		return self.runner.NextSelect(key)
	case u < self.readRate+self.deleteRate:
		return self.runner.NextDelete(key)
	default:
		return self.runner.NextMutation(key)
	}
}

// execute runs on the driver executor pool. It must leave exactly one
// record on the completion channel, panics included.
func (self *worker) execute(op *Operation) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submission aborted: %v", r)
		}
		self.completions <- &completion{
			op:         op,
			err:        err,
			startNanos: op.StartNanos,
			endNanos:   NowNanos(),
		}
	}()
	err = self.ctx.Session.Execute(op)
}

// completionLoop is the async completion path: stop the timer, classify
// the outcome, fan out to the collector chain, release the in-flight
// slot. It never calls back into the dispatch loop.
func (self *worker) completionLoop() {
	defer close(self.drained)
	metrics := self.ctx.Metrics
	for c := range self.completions {
		if c.op.Kind == OperationStop {
			return
		}
		latency := c.endNanos - c.startNanos
		result := &OperationResult{Success: c.err == nil}
		if c.err != nil {
			result.ErrorClass = ErrorClass(c.err)
			metrics.Errors.Mark(1)
		} else {
			self.timerFor(c.op).Update(latency)
			self.checkLatencyCeiling(c.op, latency)
		}
		self.ctx.Collector.Collect(self.ctx, c.op, result, c.startNanos, c.endNanos)
		<-self.gate
		self.outstanding.Done()
	}
}

func (self *worker) timerFor(op *Operation) *Timer {
	if self.populatePhase {
		return self.ctx.Metrics.Populate
	}
	return self.ctx.Metrics.TimerFor(op.Kind)
}

func (self *worker) checkLatencyCeiling(op *Operation, latency int64) {
	if self.populatePhase {
		return
	}
	switch op.Kind {
	case OperationSelect:
		if self.sloReadNanos > 0 && latency > self.sloReadNanos {
			self.terminator.Drain(ReasonSLO)
		}
	case OperationMutation, OperationDeletion:
		if self.sloWriteNanos > 0 && latency > self.sloWriteNanos {
			self.terminator.Drain(ReasonSLO)
		}
	}
}

// RunResult is what the controller hands back once the coordinator
// reports Stopped.
type RunResult struct {
	Reason  string
	Elapsed time.Duration
}

// Status maps the terminal reason onto the externally visible run
// status.
func (self *RunResult) Status() string {
	switch self.Reason {
	case ReasonStop:
		return "stopped"
	case ReasonSLO:
		return "failed: " + ReasonSLO
	case ReasonCount, ReasonDuration, ReasonExhausted, "":
		return "completed"
	default:
		return "failed: " + self.Reason
	}
}

// StressRunner drives one full run: the optional populate phase, the
// metrics reset, and the measured phase.
type StressRunner struct {
	ctx        *StressContext
	workload   IStressWorkload
	terminator *Terminator
}

func NewStressRunner(ctx *StressContext, workload IStressWorkload) *StressRunner {
	return &StressRunner{
		ctx:        ctx,
		workload:   workload,
		terminator: NewTerminator(),
	}
}

func (self *StressRunner) Terminator() *Terminator {
	return self.terminator
}

func (self *StressRunner) Context() *StressContext {
	return self.ctx
}

// PrepareRun resolves a configuration into a ready StressRunner: it
// builds the shared context, attaches the configured collectors and
// applies the profile's schema. Errors here are configuration or
// startup failures; nothing has been dispatched yet.
func PrepareRun(cfg *RunConfig, session Session) (*StressRunner, error) {
	ctx, workload, err := BuildStressContext(cfg, session)
	if err != nil {
		return nil, err
	}
	composite := ctx.Collector.(*CompositeCollector)
	if len(cfg.RawLogPath) > 0 {
		rawlog, err := NewRawLogCollector(cfg.RawLogPath)
		if err != nil {
			return nil, err
		}
		composite.Add(rawlog)
	}
	if cfg.PrometheusPort > 0 {
		composite.Add(NewPrometheusCollector(cfg.PrometheusPort))
	}
	if cfg.StatusIntervalSeconds > 0 {
		composite.Add(NewStatusReporter(ctx.Metrics,
			time.Duration(cfg.StatusIntervalSeconds)*time.Second))
	}
	if err = ApplySchema(session, cfg, workload); err != nil {
		composite.Close()
		return nil, err
	}
	return NewStressRunner(ctx, workload), nil
}

// Run executes the configured phases. The collector chain is flushed on
// every exit path; closing the session stays with the caller that
// opened it.
func (self *StressRunner) Run() *RunResult {
	cfg := self.ctx.Config
	start := time.Now()
	defer func() {
		if err := self.ctx.Collector.Close(); err != nil {
			Warnf("collector flush failed: %s", err)
		}
	}()

	if populate := self.resolvePopulate(); populate.Mode != PopulateNone {
		self.runPopulate(populate)
		if !self.terminator.Cancelled() {
			self.ctx.Metrics.Reset()
		}
	}

	if !self.terminator.Cancelled() {
		if cfg.Duration > 0 {
			timer := time.AfterFunc(time.Duration(cfg.Duration)*time.Second, func() {
				self.terminator.Drain(ReasonDuration)
			})
			defer timer.Stop()
		}
		self.runPhase(self.ctx.Keys, computeShares(cfg.Iterations, cfg.Threads), false, false)
	}

	self.terminator.markStopped(ReasonCount)
	return &RunResult{
		Reason:  self.terminator.Reason(),
		Elapsed: time.Since(start),
	}
}

// resolvePopulate merges the run option with the profile's declared
// policy.
func (self *StressRunner) resolvePopulate() PopulateOption {
	option := self.ctx.Config.Populate
	switch option.Mode {
	case PopulateStandard:
		declared := self.workload.DefaultPopulate()
		if declared.Mode == PopulateCustom && declared.Rows > 0 {
			return declared
		}
		return PopulateOption{
			Mode:    PopulateStandard,
			Rows:    self.ctx.Config.Partitions,
			Deletes: declared.Deletes,
		}
	default:
		return option
	}
}

func (self *StressRunner) runPopulate(option PopulateOption) {
	cfg := self.ctx.Config
	Infof("populating %d rows", option.Rows)
	keys := self.workload.PopulateKeyGenerator(option.Rows, cfg.Partitions-1)
	if keys == nil {
		keys = g.NewSequencePartitionKeyGenerator(
			DefaultKeyPrefix, option.Rows, cfg.Partitions-1)
	}
	self.runPhase(keys, computeShares(option.Rows, cfg.Threads), true, option.Deletes)
}

func (self *StressRunner) runPhase(keys g.PartitionKeyGenerator,
	shares []int64, populatePhase bool, populateDeletes bool) {

	var wg sync.WaitGroup
	for i := 0; i < self.ctx.Config.Threads; i++ {
		w := newWorker(i, self.ctx, self.workload.NewRunner(self.ctx),
			keys, self.terminator, shares[i])
		w.populatePhase = populatePhase
		w.populateDeletes = populateDeletes
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run()
		}()
	}
	wg.Wait()
}
