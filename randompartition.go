package yacs

import (
	g "github.com/hhkbp2/yacs/generator"
)

// RandomPartitionAccessWorkload spreads rows over wide partitions and
// accesses them either a row at a time or a whole partition at once.
type RandomPartitionAccessWorkload struct {
	rows     int64
	access   string
	paginate bool
}

func NewRandomPartitionAccessWorkload() *RandomPartitionAccessWorkload {
	return &RandomPartitionAccessWorkload{
		rows:   100,
		access: "row",
	}
}

func (self *RandomPartitionAccessWorkload) Schema() []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS random_access (key text, c int, value text, " +
			"PRIMARY KEY (key, c))",
	}
}

func (self *RandomPartitionAccessWorkload) DefaultReadRate() float64 {
	return 0.5
}

func (self *RandomPartitionAccessWorkload) DefaultPopulate() PopulateOption {
	return PopulateOption{Mode: PopulateStandard, Deletes: false}
}

func (self *RandomPartitionAccessWorkload) Parameters() []*WorkloadParameter {
	return []*WorkloadParameter{
		NewInt64Parameter("rows",
			"clustered rows per partition", &self.rows),
		NewEnumParameter("access",
			"select and delete granularity",
			[]string{"row", "partition"}, &self.access),
	}
}

func (self *RandomPartitionAccessWorkload) InstallFieldDefaults(fields *g.FieldRegistry) {
	fields.SetDefault(g.NewField("random_access", "value"),
		g.NewRandomStringGenerator(32, 64))
}

func (self *RandomPartitionAccessWorkload) PopulateKeyGenerator(total, maxId int64) g.PartitionKeyGenerator {
	return nil
}

func (self *RandomPartitionAccessWorkload) NewRunner(ctx *StressContext) IStressRunner {
	return &randomPartitionRunner{
		value:        ctx.Fields.Get(g.NewField("random_access", "value")),
		rows:         self.rows,
		wholeRanges:  self.access == "partition",
		paginate:     ctx.Config.Paginate,
	}
}

type randomPartitionRunner struct {
	value       g.FieldGenerator
	rows        int64
	wholeRanges bool
	paginate    bool
}

func (self *randomPartitionRunner) row() int {
	return int(g.NextInt64(self.rows))
}

func (self *randomPartitionRunner) NextMutation(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationMutation,
		CQL:    "INSERT INTO random_access (key, c, value) VALUES (?, ?, ?)",
		Values: []interface{}{key.String(), self.row(), self.value.Next()},
		Key:    key,
	}
}

func (self *randomPartitionRunner) NextSelect(key *g.PartitionKey) *Operation {
	if self.wholeRanges {
		return &Operation{
			Kind:     OperationSelect,
			CQL:      "SELECT key, c, value FROM random_access WHERE key = ?",
			Values:   []interface{}{key.String()},
			Key:      key,
			Paginate: self.paginate,
		}
	}
	return &Operation{
		Kind:   OperationSelect,
		CQL:    "SELECT key, c, value FROM random_access WHERE key = ? AND c = ?",
		Values: []interface{}{key.String(), self.row()},
		Key:    key,
	}
}

func (self *randomPartitionRunner) NextDelete(key *g.PartitionKey) *Operation {
	if self.wholeRanges {
		return &Operation{
			Kind:   OperationDeletion,
			CQL:    "DELETE FROM random_access WHERE key = ?",
			Values: []interface{}{key.String()},
			Key:    key,
		}
	}
	return &Operation{
		Kind:   OperationDeletion,
		CQL:    "DELETE FROM random_access WHERE key = ? AND c = ?",
		Values: []interface{}{key.String(), self.row()},
		Key:    key,
	}
}

func (self *randomPartitionRunner) NextPopulate(key *g.PartitionKey) *Operation {
	return asPopulate(self.NextMutation(key))
}
