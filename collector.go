package yacs

// OperationResult classifies one completed operation.
type OperationResult struct {
	Success    bool
	ErrorClass string
}

// Collector is a sink invoked on the async completion path with every
// finished operation. Invocations are serialized per dispatch routine;
// implementations must not block on I/O here and defer expensive work
// to their own routines.
type Collector interface {
	Collect(ctx *StressContext, op *Operation, result *OperationResult,
		startNanos, endNanos int64)
	Close() error
}

// CompositeCollector forwards to an ordered list of collectors.
type CompositeCollector struct {
	collectors []Collector
}

func NewCompositeCollector(collectors ...Collector) *CompositeCollector {
	return &CompositeCollector{
		collectors: collectors,
	}
}

func (self *CompositeCollector) Add(c Collector) {
	self.collectors = append(self.collectors, c)
}

func (self *CompositeCollector) Collect(ctx *StressContext, op *Operation,
	result *OperationResult, startNanos, endNanos int64) {

	for _, c := range self.collectors {
		c.Collect(ctx, op, result, startNanos, endNanos)
	}
}

// Close flushes every collector in order and reports the first failure.
func (self *CompositeCollector) Close() error {
	var first error
	for _, c := range self.collectors {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
