package generator

import (
	"math"
	"strconv"
	"sync/atomic"
)

// PartitionKey is the logical identifier of a row group in the target
// cluster: a text prefix plus a non-negative id. Two keys with the same
// text form address the same partition.
type PartitionKey struct {
	Prefix string
	Id     int64
}

func NewPartitionKey(prefix string, id int64) *PartitionKey {
	return &PartitionKey{
		Prefix: prefix,
		Id:     id,
	}
}

func (self *PartitionKey) String() string {
	return self.Prefix + strconv.FormatInt(self.Id, 10)
}

// Unbounded makes a PartitionKeyGenerator yield keys until the run is
// cancelled rather than after a fixed count.
const Unbounded int64 = -1

// PartitionKeyGenerator is a stateful producer of partition keys. A single
// instance is shared by all dispatch routines; each Next() call is atomic.
// The stream is lazy and, when constructed with a finite total, bounded:
// Next() reports false once the total has been produced.
type PartitionKeyGenerator interface {
	Next() (*PartitionKey, bool)
}

var (
	PartitionKeyGenerators = map[string]func(prefix string, total int64, maxId int64) PartitionKeyGenerator{
		"random": func(prefix string, total int64, maxId int64) PartitionKeyGenerator {
			return NewRandomPartitionKeyGenerator(prefix, total, maxId)
		},
		"sequence": func(prefix string, total int64, maxId int64) PartitionKeyGenerator {
			return NewSequencePartitionKeyGenerator(prefix, total, maxId)
		},
		"normal": func(prefix string, total int64, maxId int64) PartitionKeyGenerator {
			return NewNormalPartitionKeyGenerator(prefix, total, maxId)
		},
	}
)

func NewPartitionKeyGenerator(name, prefix string, total, maxId int64) (PartitionKeyGenerator, error) {
	f, ok := PartitionKeyGenerators[name]
	if !ok {
		return nil, NewErrorf("unsupported partition key generator: %s", name)
	}
	return f(prefix, total, maxId), nil
}

// PartitionKeyGeneratorBase carries the pieces every distribution shares:
// the key prefix and the countdown of keys left to produce.
type PartitionKeyGeneratorBase struct {
	prefix    string
	remaining int64
}

func NewPartitionKeyGeneratorBase(prefix string, total int64) *PartitionKeyGeneratorBase {
	return &PartitionKeyGeneratorBase{
		prefix:    prefix,
		remaining: total,
	}
}

// TakeOne claims one slot of the bounded stream. It reports false once
// the configured total has been claimed.
func (self *PartitionKeyGeneratorBase) TakeOne() bool {
	for {
		left := atomic.LoadInt64(&self.remaining)
		if left == Unbounded {
			return true
		}
		if left <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&self.remaining, left, left-1) {
			return true
		}
	}
}

// RandomPartitionKeyGenerator draws ids uniformly from [0, maxId).
type RandomPartitionKeyGenerator struct {
	*PartitionKeyGeneratorBase
	maxId int64
}

func NewRandomPartitionKeyGenerator(prefix string, total, maxId int64) *RandomPartitionKeyGenerator {
	return &RandomPartitionKeyGenerator{
		PartitionKeyGeneratorBase: NewPartitionKeyGeneratorBase(prefix, total),
		maxId:                     maxId,
	}
}

func (self *RandomPartitionKeyGenerator) Next() (*PartitionKey, bool) {
	if !self.TakeOne() {
		return nil, false
	}
	return NewPartitionKey(self.prefix, NextInt64(self.maxId)), true
}

// SequencePartitionKeyGenerator yields ids 0, 1, ... maxId, 0, 1, ...
// The wrap is silent. The counter is a single atomically incremented
// integer, so across routines each id is produced at most once per wrap.
type SequencePartitionKeyGenerator struct {
	*PartitionKeyGeneratorBase
	maxId int64
	count int64
}

func NewSequencePartitionKeyGenerator(prefix string, total, maxId int64) *SequencePartitionKeyGenerator {
	return &SequencePartitionKeyGenerator{
		PartitionKeyGeneratorBase: NewPartitionKeyGeneratorBase(prefix, total),
		maxId:                     maxId,
		count:                     -1,
	}
}

func (self *SequencePartitionKeyGenerator) Next() (*PartitionKey, bool) {
	if !self.TakeOne() {
		return nil, false
	}
	n := atomic.AddInt64(&self.count, 1)
	return NewPartitionKey(self.prefix, n%(self.maxId+1)), true
}

// NormalPartitionKeyGenerator draws ids from a truncated gaussian with
// mean maxId/2 and standard deviation maxId/4, resampling until the
// value lands inside [0, maxId].
type NormalPartitionKeyGenerator struct {
	*PartitionKeyGeneratorBase
	maxId  int64
	mean   float64
	stddev float64
}

func NewNormalPartitionKeyGenerator(prefix string, total, maxId int64) *NormalPartitionKeyGenerator {
	return &NormalPartitionKeyGenerator{
		PartitionKeyGeneratorBase: NewPartitionKeyGeneratorBase(prefix, total),
		maxId:                     maxId,
		mean:                      float64(maxId) / 2,
		stddev:                    float64(maxId) / 4,
	}
}

func (self *NormalPartitionKeyGenerator) Next() (*PartitionKey, bool) {
	if !self.TakeOne() {
		return nil, false
	}
	for {
		id := int64(math.Round(NextGaussian()*self.stddev + self.mean))
		if id >= 0 && id <= self.maxId {
			return NewPartitionKey(self.prefix, id), true
		}
	}
}
