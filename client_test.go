package yacs

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func newEngineConfig(workload string) *RunConfig {
	cfg := NewRunConfig()
	cfg.Workload = workload
	cfg.Threads = 4
	cfg.QueueDepth = 16
	cfg.Partitions = 100
	cfg.StatusIntervalSeconds = 0
	return cfg
}

func TestEngineFixedCountRun(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 1000

	session := NewBasicSession()
	var lock sync.Mutex
	maxId := int64(-1)
	session.Hook = func(op *Operation) error {
		lock.Lock()
		if op.Key.Id > maxId {
			maxId = op.Key.Id
		}
		lock.Unlock()
		return nil
	}

	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	result := runner.Run()

	require.Equal(t, "completed", result.Status())
	require.Equal(t, int64(1000), session.TotalCount())

	// every submission lands in exactly one timer or the error meter
	metrics := runner.Context().Metrics
	require.Equal(t, int64(1000), metrics.TotalCount())
	require.Equal(t, int64(0), metrics.Errors.Count())
	require.Equal(t, int64(0), metrics.Populate.Count())
	require.True(t, metrics.Selects.Count() > 0)
	require.True(t, metrics.Mutations.Count() > 0)

	// all keys stay inside the partition space
	require.True(t, maxId < cfg.Partitions)
	require.Equal(t, StateStopped, runner.Terminator().State())
}

func TestEngineUnevenShares(t *testing.T) {
	shares := computeShares(10, 4)
	require.Equal(t, []int64{3, 3, 2, 2}, shares)
	shares = computeShares(8, 4)
	require.Equal(t, []int64{2, 2, 2, 2}, shares)
	shares = computeShares(0, 3)
	require.Equal(t, []int64{0, 0, 0}, shares)
}

func TestEngineCountsFailuresInErrorMeterOnly(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 500
	cfg.ReadRate = 0

	session := NewBasicSession()
	session.Hook = func(op *Operation) error {
		return errors.New("write timeout")
	}
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	result := runner.Run()

	// a failing operation never terminates the routine
	require.Equal(t, "completed", result.Status())
	metrics := runner.Context().Metrics
	require.Equal(t, int64(500), metrics.Errors.Count())
	require.Equal(t, int64(0), metrics.Mutations.Count())
	require.Equal(t, int64(0), metrics.Selects.Count())
}

func TestEngineHonorsQueueDepth(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 400
	cfg.Threads = 2
	cfg.QueueDepth = 4

	session := NewBasicSession()
	var lock sync.Mutex
	inflight, peak := 0, 0
	session.Hook = func(op *Operation) error {
		lock.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		lock.Unlock()
		time.Sleep(time.Millisecond)
		lock.Lock()
		inflight--
		lock.Unlock()
		return nil
	}
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	runner.Run()

	require.True(t, peak <= cfg.Threads*cfg.QueueDepth)
	require.Equal(t, 0, inflight)
}

func TestEngineStopMidRun(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 1 << 40

	session := NewBasicSession()
	session.Hook = func(op *Operation) error {
		time.Sleep(100 * time.Microsecond)
		return nil
	}
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)

	results := make(chan *RunResult, 1)
	go func() {
		results <- runner.Run()
	}()
	time.Sleep(100 * time.Millisecond)
	runner.Terminator().Drain(ReasonStop)

	var result *RunResult
	select {
	case result = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not drain after stop")
	}
	require.Equal(t, "stopped", result.Status())
	require.Equal(t, ReasonStop, runner.Terminator().AwaitStopped())

	// no completions land after the coordinator reports Stopped
	total := session.TotalCount()
	require.True(t, total > 0)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, total, session.TotalCount())
}

func TestEngineLatencyCeilingBreach(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 1 << 40
	cfg.Threads = 1
	cfg.ReadRate = 1.0
	cfg.MaxReadLatencyMillis = 1

	session := NewBasicSession()
	session.Hook = func(op *Operation) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	result := runner.Run()

	require.True(t, strings.HasPrefix(result.Status(), "failed:"))
	require.True(t, strings.Contains(result.Status(), "SLO"))
	require.True(t, runner.Context().Metrics.Selects.Count() >= 1)
}

func TestEngineDurationBound(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Duration = 1
	cfg.Rate = 200

	session := NewBasicSession()
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	start := time.Now()
	result := runner.Run()
	elapsed := time.Since(start)

	require.Equal(t, "completed", result.Status())
	require.Equal(t, ReasonDuration, result.Reason)
	require.True(t, elapsed >= time.Second)
	require.True(t, elapsed < 4*time.Second)
	require.True(t, session.TotalCount() > 0)
}

func TestEngineRateCapGatesDispatch(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 300
	cfg.Rate = 100

	session := NewBasicSession()
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	start := time.Now()
	runner.Run()
	elapsed := time.Since(start)

	// 300 ops at 100/s with a 100 token burst needs about 2 seconds
	require.True(t, elapsed >= 1500*time.Millisecond)
	require.Equal(t, int64(300), session.TotalCount())
}

func TestEnginePopulatePhase(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 200
	cfg.Partitions = 50
	cfg.Populate = PopulateOption{Mode: PopulateStandard}

	session := NewBasicSession()
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	result := runner.Run()

	require.Equal(t, "completed", result.Status())
	// one populate row per partition, then the measured phase
	require.Equal(t, int64(50), session.Count(OperationPopulate))
	require.Equal(t, int64(250), session.TotalCount())

	// populate numbers are gone after the reset
	metrics := runner.Context().Metrics
	require.Equal(t, int64(0), metrics.Populate.Count())
	require.Equal(t, int64(200), metrics.TotalCount())
}

func TestEnginePopulateCustomRows(t *testing.T) {
	cfg := newEngineConfig("KeyValue")
	cfg.Iterations = 100
	cfg.Populate = PopulateOption{Mode: PopulateCustom, Rows: 30}

	session := NewBasicSession()
	runner, err := PrepareRun(cfg, session)
	require.Nil(t, err)
	runner.Run()
	require.Equal(t, int64(30), session.Count(OperationPopulate))
}

func TestTerminatorTransitions(t *testing.T) {
	term := NewTerminator()
	require.Equal(t, StateRunning, term.State())
	require.False(t, term.Cancelled())

	require.True(t, term.Drain(ReasonDuration))
	require.Equal(t, StateDraining, term.State())
	require.True(t, term.Cancelled())

	// the first reason wins, later calls are no-ops
	require.False(t, term.Drain(ReasonStop))
	require.Equal(t, ReasonDuration, term.Reason())

	term.markStopped(ReasonCount)
	require.Equal(t, StateStopped, term.State())
	require.Equal(t, ReasonDuration, term.AwaitStopped())
}
