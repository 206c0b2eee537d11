package yacs

import (
	"context"
	"fmt"
	"time"

	g "github.com/hhkbp2/yacs/generator"
	"golang.org/x/time/rate"
)

// RateLimiter is the process-global token bucket shared by every
// dispatch routine: capacity and refill both equal the configured
// ops/second. A zero rate disables limiting entirely.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(perSecond int64) *RateLimiter {
	if perSecond <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)),
	}
}

// Acquire blocks the caller until one token is available.
func (self *RateLimiter) Acquire() {
	if self.limiter != nil {
		self.limiter.Wait(context.Background())
	}
}

// TryAcquire waits up to timeout for one token.
func (self *RateLimiter) TryAcquire(timeout time.Duration) bool {
	if self.limiter == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return self.limiter.Wait(ctx) == nil
}

// Enabled reports whether a rate cap is in force.
func (self *RateLimiter) Enabled() bool {
	return self.limiter != nil
}

// StressContext owns everything a run shares across dispatch routines:
// the resolved configuration, the session, the metrics bundle, the
// collector chain, the rate limiter, the partition key stream and the
// field generator registry. Routines borrow it for their lifetime.
type StressContext struct {
	Config    *RunConfig
	Session   Session
	Metrics   *Metrics
	Collector Collector
	Limiter   *RateLimiter
	Keys      g.PartitionKeyGenerator
	Fields    *g.FieldRegistry
}

// BuildStressContext resolves a validated configuration into the shared
// run state: it instantiates the workload, binds its dynamic parameters,
// installs field generator defaults and user overrides, and constructs
// the key stream, metrics bundle and rate limiter. The collector chain
// starts empty; the controller appends collectors before starting.
func BuildStressContext(cfg *RunConfig, session Session) (*StressContext, IStressWorkload, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	workload, err := NewWorkload(cfg.Workload)
	if err != nil {
		return nil, nil, err
	}
	if err = BindWorkloadParameters(workload, cfg.WorkloadParameters); err != nil {
		return nil, nil, err
	}
	if cfg.ReadRate == UseWorkloadReadRate {
		cfg.ReadRate = workload.DefaultReadRate()
	}
	if cfg.ReadRate+cfg.DeleteRate > 1 {
		return nil, nil, NewConfigError(
			"read rate %v + delete rate %v exceeds 1", cfg.ReadRate, cfg.DeleteRate)
	}

	fields := g.NewFieldRegistry()
	workload.InstallFieldDefaults(fields)
	for name, spec := range cfg.Fields {
		if err = fields.Override(name, spec); err != nil {
			return nil, nil, err
		}
	}

	total := g.Unbounded
	if cfg.Iterations > 0 {
		total = cfg.Iterations
	}
	keys, err := g.NewPartitionKeyGenerator(
		cfg.PartitionKeyGenerator, DefaultKeyPrefix, total,
		keySpaceMaxId(cfg.PartitionKeyGenerator, cfg.Partitions))
	if err != nil {
		return nil, nil, err
	}

	ctx := &StressContext{
		Config:    cfg,
		Session:   session,
		Metrics:   NewMetrics(),
		Collector: NewCompositeCollector(),
		Limiter:   NewRateLimiter(cfg.Rate),
		Keys:      keys,
		Fields:    fields,
	}
	return ctx, workload, nil
}

// keySpaceMaxId adapts the partition space size to each distribution's
// bound: the uniform draw excludes its maximum, the sequential and
// normal streams include theirs.
func keySpaceMaxId(name string, partitions int64) int64 {
	if name == "random" {
		return partitions
	}
	return partitions - 1
}

// NewConfigError marks an error as a configuration problem surfaced
// before the engine starts.
func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{message: fmt.Sprintf(format, args...)}
}

type ConfigError struct {
	message string
}

func (self *ConfigError) Error() string {
	return self.message
}
