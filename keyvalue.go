package yacs

import (
	g "github.com/hhkbp2/yacs/generator"
)

// KeyValueWorkload is the simplest profile: one text row per partition.
type KeyValueWorkload struct {
	valueSize int64
}

func NewKeyValueWorkload() *KeyValueWorkload {
	return &KeyValueWorkload{
		valueSize: 64,
	}
}

func (self *KeyValueWorkload) Schema() []string {
	return []string{
		"CREATE TABLE IF NOT EXISTS keyvalue (key text PRIMARY KEY, value text)",
	}
}

func (self *KeyValueWorkload) DefaultReadRate() float64 {
	return 0.5
}

func (self *KeyValueWorkload) DefaultPopulate() PopulateOption {
	return PopulateOption{Mode: PopulateStandard, Deletes: true}
}

func (self *KeyValueWorkload) Parameters() []*WorkloadParameter {
	return []*WorkloadParameter{
		NewInt64Parameter("valueSize",
			"size of the value column in characters", &self.valueSize),
	}
}

func (self *KeyValueWorkload) InstallFieldDefaults(fields *g.FieldRegistry) {
	fields.SetDefault(g.NewField("keyvalue", "value"),
		g.NewRandomStringGenerator(self.valueSize, self.valueSize))
}

func (self *KeyValueWorkload) PopulateKeyGenerator(total, maxId int64) g.PartitionKeyGenerator {
	return nil
}

func (self *KeyValueWorkload) NewRunner(ctx *StressContext) IStressRunner {
	return &keyValueRunner{
		value: ctx.Fields.Get(g.NewField("keyvalue", "value")),
	}
}

type keyValueRunner struct {
	value g.FieldGenerator
}

func (self *keyValueRunner) NextMutation(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationMutation,
		CQL:    "INSERT INTO keyvalue (key, value) VALUES (?, ?)",
		Values: []interface{}{key.String(), self.value.Next()},
		Key:    key,
	}
}

func (self *keyValueRunner) NextSelect(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationSelect,
		CQL:    "SELECT key, value FROM keyvalue WHERE key = ?",
		Values: []interface{}{key.String()},
		Key:    key,
	}
}

func (self *keyValueRunner) NextDelete(key *g.PartitionKey) *Operation {
	return &Operation{
		Kind:   OperationDeletion,
		CQL:    "DELETE FROM keyvalue WHERE key = ?",
		Values: []interface{}{key.String()},
		Key:    key,
	}
}

func (self *keyValueRunner) NextPopulate(key *g.PartitionKey) *Operation {
	return asPopulate(self.NextMutation(key))
}
