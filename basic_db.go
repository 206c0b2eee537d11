package yacs

import (
	"sync"

	g "github.com/hhkbp2/yacs/generator"
)

// BasicSession is a session that does nothing but count the operations
// it receives, optionally sleeping to simulate a slow cluster. It backs
// engine tests and smoke runs without a target cluster.
type BasicSession struct {
	// DelayNanos makes every Execute call sleep, randomized over
	// [0, DelayNanos) when RandomizeDelay is set.
	DelayNanos     int64
	RandomizeDelay bool
	// Hook, when set, decides the outcome of each Execute call.
	Hook func(op *Operation) error

	lock    sync.Mutex
	counts  map[OperationKind]int64
	applied []string
	closed  bool
}

func NewBasicSession() *BasicSession {
	return &BasicSession{
		counts: make(map[OperationKind]int64),
	}
}

func (self *BasicSession) Execute(op *Operation) error {
	self.delay()
	self.lock.Lock()
	self.counts[op.Kind]++
	self.lock.Unlock()
	if self.Hook != nil {
		return self.Hook(op)
	}
	return nil
}

func (self *BasicSession) delay() {
	if self.DelayNanos <= 0 {
		return
	}
	nanos := self.DelayNanos
	if self.RandomizeDelay {
		nanos = g.NextInt64(self.DelayNanos)
		if nanos == 0 {
			return
		}
	}
	sleepNanos(nanos)
}

func (self *BasicSession) Apply(cql string) error {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.applied = append(self.applied, cql)
	return nil
}

func (self *BasicSession) Close() {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.closed = true
}

// Count reports how many operations of one kind have been executed.
func (self *BasicSession) Count(kind OperationKind) int64 {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.counts[kind]
}

// TotalCount reports how many operations have been executed in total.
func (self *BasicSession) TotalCount() int64 {
	self.lock.Lock()
	defer self.lock.Unlock()
	var total int64
	for _, n := range self.counts {
		total += n
	}
	return total
}

// AppliedSchema returns the DDL statements received so far.
func (self *BasicSession) AppliedSchema() []string {
	self.lock.Lock()
	defer self.lock.Unlock()
	return append([]string(nil), self.applied...)
}

func (self *BasicSession) Closed() bool {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.closed
}
