package yacs

import (
	g "github.com/hhkbp2/yacs/generator"
)

// BasicTimeSeriesWorkload appends timeuuid clustered rows and reads the
// newest slice of a partition.
type BasicTimeSeriesWorkload struct {
	limit    int64
	paginate bool
}

func NewBasicTimeSeriesWorkload() *BasicTimeSeriesWorkload {
	return &BasicTimeSeriesWorkload{
		limit: 500,
	}
}

func (self *BasicTimeSeriesWorkload) Schema() []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS timeseries (key text, ts timeuuid, value text, " +
			"PRIMARY KEY (key, ts)) WITH CLUSTERING ORDER BY (ts DESC)",
	}
}

func (self *BasicTimeSeriesWorkload) DefaultReadRate() float64 {
	return 0.1
}

func (self *BasicTimeSeriesWorkload) DefaultPopulate() PopulateOption {
	// deleting during populate would leave empty partitions for the
	// newest-first reads to chew on
	return PopulateOption{Mode: PopulateStandard, Deletes: false}
}

func (self *BasicTimeSeriesWorkload) Parameters() []*WorkloadParameter {
	return []*WorkloadParameter{
		NewInt64Parameter("limit",
			"rows fetched per select, newest first", &self.limit),
		NewBoolParameter("paginate",
			"walk every result page of a select", &self.paginate),
	}
}

func (self *BasicTimeSeriesWorkload) InstallFieldDefaults(fields *g.FieldRegistry) {
	fields.SetDefault(g.NewField("timeseries", "value"),
		g.NewBookGenerator(4, 16))
}

func (self *BasicTimeSeriesWorkload) PopulateKeyGenerator(total, maxId int64) g.PartitionKeyGenerator {
	return nil
}

func (self *BasicTimeSeriesWorkload) NewRunner(ctx *StressContext) IStressRunner {
	return &timeSeriesRunner{
		value:    ctx.Fields.Get(g.NewField("timeseries", "value")),
		limit:    self.limit,
		paginate: self.paginate || ctx.Config.Paginate,
	}
}

type timeSeriesRunner struct {
	value    g.FieldGenerator
	limit    int64
	paginate bool
}

func (self *timeSeriesRunner) NextMutation(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationMutation,
		CQL:    "INSERT INTO timeseries (key, ts, value) VALUES (?, now(), ?)",
		Values: []interface{}{key.String(), self.value.Next()},
		Key:    key,
	}
}

func (self *timeSeriesRunner) NextSelect(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:     OperationSelect,
		CQL:      "SELECT key, ts, value FROM timeseries WHERE key = ? LIMIT ?",
		Values:   []interface{}{key.String(), self.limit},
		Key:      key,
		Paginate: self.paginate,
	}
}

func (self *timeSeriesRunner) NextDelete(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationDeletion,
		CQL:    "DELETE FROM timeseries WHERE key = ?",
		Values: []interface{}{key.String()},
		Key:    key,
	}
}

func (self *timeSeriesRunner) NextPopulate(key *g.PartitionKey) *Operation {
	return asPopulate(self.NextMutation(key))
}
