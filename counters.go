package yacs

import (
	g "github.com/hhkbp2/yacs/generator"
)

// CounterWideWorkload increments counter columns spread over wide
// partitions.
type CounterWideWorkload struct {
	rows int64
}

func NewCounterWideWorkload() *CounterWideWorkload {
	return &CounterWideWorkload{
		rows: 100,
	}
}

func (self *CounterWideWorkload) Schema() []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS counter_wide (key text, c int, value counter, " +
			"PRIMARY KEY (key, c))",
	}
}

func (self *CounterWideWorkload) DefaultReadRate() float64 {
	return 0.2
}

func (self *CounterWideWorkload) DefaultPopulate() PopulateOption {
	return PopulateOption{Mode: PopulateStandard, Deletes: false}
}

func (self *CounterWideWorkload) Parameters() []*WorkloadParameter {
	return []*WorkloadParameter{
		NewInt64Parameter("rows",
			"counter rows per partition", &self.rows),
	}
}

func (self *CounterWideWorkload) InstallFieldDefaults(fields *g.FieldRegistry) {
	// counters carry no generated payload
}

func (self *CounterWideWorkload) PopulateKeyGenerator(total, maxId int64) g.PartitionKeyGenerator {
	return nil
}

func (self *CounterWideWorkload) NewRunner(ctx *StressContext) IStressRunner {
	return &counterWideRunner{
		rows:     self.rows,
		paginate: ctx.Config.Paginate,
	}
}

type counterWideRunner struct {
	rows     int64
	paginate bool
}

func (self *counterWideRunner) NextMutation(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationMutation,
		CQL:    "UPDATE counter_wide SET value = value + 1 WHERE key = ? AND c = ?",
		Values: []interface{}{key.String(), int(g.NextInt64(self.rows))},
		Key:    key,
	}
}

func (self *counterWideRunner) NextSelect(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:     OperationSelect,
		CQL:      "SELECT key, c, value FROM counter_wide WHERE key = ?",
		Values:   []interface{}{key.String()},
		Key:      key,
		Paginate: self.paginate,
	}
}

func (self *counterWideRunner) NextDelete(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationDeletion,
		CQL:    "DELETE FROM counter_wide WHERE key = ? AND c = ?",
		Values: []interface{}{key.String(), int(g.NextInt64(self.rows))},
		Key:    key,
	}
}

func (self *counterWideRunner) NextPopulate(key *g.PartitionKey) *Operation {
	return asPopulate(self.NextMutation(key))
}
