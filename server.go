package yacs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hhkbp2/go-strftime"
	g "github.com/hhkbp2/yacs/generator"
	"go.uber.org/atomic"
)

const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"

	heartbeatInterval = 10 * time.Second
	lastRunTimeFormat = "%Y-%m-%d %H:%M:%S"
)

// StressTestManager enforces single-run exclusivity for the control
// server: one compare-and-set guarded running flag, the current job id
// and configuration, and the terminal status of the last run.
type StressTestManager struct {
	running     *atomic.Bool
	jobCounter  *atomic.Int64
	status      *atomic.String
	lastRunTime *atomic.String

	lock       sync.Mutex
	currentJob string
	config     *RunConfig
	runner     *StressRunner

	// NewSession builds the session a run drives. Swapped out in
	// tests to avoid a live cluster.
	NewSession func(cfg *RunConfig) (Session, error)
}

func NewStressTestManager() *StressTestManager {
	return &StressTestManager{
		running:     atomic.NewBool(false),
		jobCounter:  atomic.NewInt64(0),
		status:      atomic.NewString(StatusIdle),
		lastRunTime: atomic.NewString(""),
		NewSession: func(cfg *RunConfig) (Session, error) {
			return NewCassandraSession(cfg)
		},
	}
}

// Run acquires the running lock, prepares the run and spawns its
// background execution. It reports the assigned job id.
func (self *StressTestManager) Run(cfg *RunConfig) (string, error) {
	if !self.running.CompareAndSwap(false, true) {
		return "", ErrAlreadyRunning
	}
	session, err := self.NewSession(cfg)
	if err != nil {
		self.running.Store(false)
		return "", err
	}
	runner, err := PrepareRun(cfg, session)
	if err != nil {
		session.Close()
		self.running.Store(false)
		return "", err
	}
	jobId := fmt.Sprintf("%03d", self.jobCounter.Inc())

	self.lock.Lock()
	self.currentJob = jobId
	self.config = cfg
	self.runner = runner
	self.lock.Unlock()
	self.status.Store(StatusRunning)

	go func() {
		result := runner.Run()
		session.Close()
		self.status.Store(result.Status())
		self.lastRunTime.Store(strftime.Format(lastRunTimeFormat, time.Now()))
		self.running.Store(false)
	}()
	return jobId, nil
}

// Stop signals termination of the in-flight run.
func (self *StressTestManager) Stop() error {
	if !self.running.Load() {
		return ErrNotRunning
	}
	self.lock.Lock()
	runner := self.runner
	self.lock.Unlock()
	if runner == nil {
		return ErrNotRunning
	}
	runner.Terminator().Drain(ReasonStop)
	return nil
}

// StatusResponse is the status command payload: a configuration echo
// plus a live metrics snapshot while running, the terminal state and
// last run time otherwise.
type StatusResponse struct {
	Status      string           `json:"status"`
	JobId       string           `json:"job_id,omitempty"`
	Config      *RunConfig       `json:"config,omitempty"`
	Metrics     *MetricsSnapshot `json:"metrics,omitempty"`
	LastRunTime string           `json:"last_run_time,omitempty"`
}

func (self *StressTestManager) Status() *StatusResponse {
	if self.running.Load() {
		self.lock.Lock()
		jobId := self.currentJob
		cfg := self.config
		runner := self.runner
		self.lock.Unlock()
		if runner != nil {
			return &StatusResponse{
				Status:  StatusRunning,
				JobId:   jobId,
				Config:  cfg,
				Metrics: runner.Context().Metrics.Snapshot(),
			}
		}
	}
	return &StatusResponse{
		Status:      self.status.Load(),
		LastRunTime: self.lastRunTime.Load(),
	}
}

// Running reports whether a run is in flight.
func (self *StressTestManager) Running() bool {
	return self.running.Load()
}

type controlRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

type controlError struct {
	IsError bool   `json:"isError"`
	Message string `json:"message"`
}

func newControlError(format string, args ...interface{}) *controlError {
	return &controlError{
		IsError: true,
		Message: fmt.Sprintf(format, args...),
	}
}

// ControlServer exposes the manager's commands over a line-oriented
// transport: one JSON object per request, one per response, plus an
// out-of-band heartbeat frame at a fixed cadence.
type ControlServer struct {
	manager  *StressTestManager
	listener net.Listener
	closed   *atomic.Bool
}

func NewControlServer(port int, manager *StressTestManager) (*ControlServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, err
	}
	return &ControlServer{
		manager:  manager,
		listener: listener,
		closed:   atomic.NewBool(false),
	}, nil
}

func (self *ControlServer) Addr() net.Addr {
	return self.listener.Addr()
}

// Serve accepts connections until Close. Each connection gets its own
// handler routine.
func (self *ControlServer) Serve() {
	for {
		conn, err := self.listener.Accept()
		if err != nil {
			if self.closed.Load() {
				return
			}
			Warnf("accept failed: %s", err)
			continue
		}
		go self.handleConn(conn)
	}
}

func (self *ControlServer) Close() {
	self.closed.Store(true)
	self.listener.Close()
}

func (self *ControlServer) handleConn(conn net.Conn) {
	defer conn.Close()
	var writeLock sync.Mutex
	write := func(v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			b, _ = json.Marshal(newControlError("encode failed: %s", err))
		}
		writeLock.Lock()
		defer writeLock.Unlock()
		_, err = conn.Write(append(b, '\n'))
		return err
	}

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopHeartbeat:
				return
			case <-ticker.C:
				write(map[string]string{
					"heartbeat": strftime.Format(lastRunTimeFormat, time.Now()),
				})
			}
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req controlRequest
		if err := json.Unmarshal(line, &req); err != nil {
			write(newControlError("invalid request: %s", err))
			continue
		}
		if err := write(self.dispatch(&req)); err != nil {
			return
		}
	}
}

func (self *ControlServer) dispatch(req *controlRequest) interface{} {
	switch req.Tool {
	case "list_workloads":
		return self.listWorkloads()
	case "info":
		return self.info(req.Args)
	case "fields":
		return self.fields()
	case "run":
		return self.run(req.Args)
	case "status":
		return self.manager.Status()
	case "stop":
		if err := self.manager.Stop(); err != nil {
			return newControlError("%s", err)
		}
		return map[string]bool{"stopped": true}
	default:
		return newControlError("unknown tool: %s", req.Tool)
	}
}

func (self *ControlServer) listWorkloads() interface{} {
	entries := ListWorkloads()
	workloads := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		workloads = append(workloads, map[string]string{"name": entry.Name})
	}
	return map[string]interface{}{
		"workloads": workloads,
		"total":     len(entries),
	}
}

type parameterInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	Variants    []string `json:"variants,omitempty"`
}

type workloadInfo struct {
	Name            string           `json:"name"`
	Class           string           `json:"class"`
	Description     string           `json:"description"`
	Schema          []string         `json:"schema"`
	DefaultReadRate float64          `json:"default_read_rate"`
	Parameters      []*parameterInfo `json:"parameters"`
	MinimumVersion  string           `json:"minimum_version,omitempty"`
	RequireAccord   bool             `json:"require_accord,omitempty"`
	RequireDSE      bool             `json:"require_dse,omitempty"`
}

func (self *ControlServer) info(args json.RawMessage) interface{} {
	var query struct {
		Workload string `json:"workload"`
	}
	if err := json.Unmarshal(args, &query); err != nil || len(query.Workload) == 0 {
		return newControlError("info requires a workload name")
	}
	entry, ok := Workloads[query.Workload]
	if !ok {
		return newControlError("unsupported workload: %s", query.Workload)
	}
	w := entry.Make()
	info := &workloadInfo{
		Name:            entry.Name,
		Class:           fmt.Sprintf("%T", w),
		Description:     entry.Description,
		Schema:          w.Schema(),
		DefaultReadRate: w.DefaultReadRate(),
		MinimumVersion:  entry.MinimumVersion,
		RequireAccord:   entry.RequireAccord,
		RequireDSE:      entry.RequireDSE,
	}
	for _, p := range w.Parameters() {
		info.Parameters = append(info.Parameters, &parameterInfo{
			Name:        p.Name,
			Description: p.Description,
			Kind:        p.Kind.String(),
			Variants:    p.Variants,
		})
	}
	return info
}

func (self *ControlServer) fields() interface{} {
	entries := g.ListFieldGenerators()
	fields := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		fields = append(fields, map[string]string{
			"name":        entry.Name,
			"description": entry.Description,
		})
	}
	return map[string]interface{}{
		"fields": fields,
		"total":  len(entries),
	}
}

func (self *ControlServer) run(args json.RawMessage) interface{} {
	cfg := NewRunConfig()
	if len(args) > 0 {
		if err := json.Unmarshal(args, cfg); err != nil {
			return newControlError("invalid run config: %s", err)
		}
	}
	jobId, err := self.manager.Run(cfg)
	if err != nil {
		return newControlError("%s", err)
	}
	return map[string]string{"job_id": jobId}
}
