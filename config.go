package yacs

import (
	"fmt"
	"strings"
)

const (
	// The contact point of the target cluster.
	OptionHost        = "host"
	OptionHostDefault = "127.0.0.1"
	// The native protocol port.
	OptionPort        = "cql-port"
	OptionPortDefault = 9042
	// Credentials passed to the driver. Empty disables authentication.
	OptionUsername = "username"
	OptionPassword = "password"
	// The target number of operations for the measured phase.
	OptionIterations        = "iterations"
	OptionIterationsDefault = int64(1000 * 1000)
	// The wall clock bound of the measured phase, in seconds.
	// Mutually exclusive with OptionIterations.
	OptionDuration = "duration"
	// Global ops/second token bucket capacity. 0 runs uncapped.
	OptionRate        = "rate"
	OptionRateDefault = int64(0)
	// The number of dispatch routines.
	OptionThreads        = "threads"
	OptionThreadsDefault = 4
	// The partition key space size; key ids fall in [0, partitions).
	OptionPartitions        = "partitions"
	OptionPartitionsDefault = int64(100000)
	// The distribution of the partition key stream.
	// One of "random", "sequence", "normal".
	OptionPartitionKeyGenerator        = "partitiongenerator"
	OptionPartitionKeyGeneratorDefault = "random"
	// Fractions of operations issued as reads and deletes.
	// The mutation fraction is whatever remains.
	OptionReadRate   = "read-rate"
	OptionDeleteRate = "delete-rate"
	// Per-routine cap on outstanding async submissions.
	OptionQueueDepth        = "queue-depth"
	OptionQueueDepthDefault = 100
	// Populate phase selection: "standard", "none" or a row count.
	OptionPopulate        = "populate"
	OptionPopulateDefault = "none"
	// Consistency levels applied to every bound statement.
	OptionConsistencyLevel              = "cl"
	OptionConsistencyLevelDefault       = "LOCAL_ONE"
	OptionSerialConsistencyLevel        = "serial-cl"
	OptionSerialConsistencyLevelDefault = "LOCAL_SERIAL"
	// Latency ceilings in milliseconds. A single sample beyond the ceiling
	// terminates the run. 0 disables.
	OptionMaxReadLatency  = "max-read-latency"
	OptionMaxWriteLatency = "max-write-latency"
	// Select paging behaviour.
	OptionPaging        = "paging"
	OptionPagingDefault = 5000
	OptionPaginate      = "paginate"
	// Pin every request to the contact point.
	OptionCoordinatorOnly = "coordinator-only"
	// DDL options, consumed by the schema builder.
	OptionTTL                = "ttl"
	OptionCompaction         = "compaction"
	OptionCompression        = "compression"
	OptionReplication        = "replication"
	OptionReplicationDefault = "{'class': 'SimpleStrategy', 'replication_factor': 1}"
	// Raw event log target: a file path, or a directory that resolves
	// to <dir>/rawlog.parquet.
	OptionRawLog = "rawlog"
	// Prometheus exporter port. 0 disables.
	OptionPrometheusPort = "prometheus-port"
	// Seconds between status lines. 0 disables.
	OptionStatusInterval        = "status-interval"
	OptionStatusIntervalDefault = 3
	// The keyspace holding the workload tables.
	OptionKeyspace        = "keyspace"
	OptionKeyspaceDefault = "yacs"

	DefaultKeyPrefix = "key"
	RawLogFileName   = "rawlog.parquet"
)

// PopulateMode selects the behaviour of the phase that loads baseline
// data before the measured phase.
type PopulateMode uint8

const (
	PopulateNone PopulateMode = iota
	PopulateStandard
	PopulateCustom
)

// PopulateOption resolves the OptionPopulate input. Standard mode loads
// partition-count rows with the profile's mutation path; custom mode loads
// a fixed row count and may suppress deletes during the phase.
type PopulateOption struct {
	Mode    PopulateMode `json:"mode"`
	Rows    int64        `json:"rows"`
	Deletes bool         `json:"deletes"`
}

func ParsePopulateOption(s string) (PopulateOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PopulateOption{Mode: PopulateNone}, nil
	case "standard":
		return PopulateOption{Mode: PopulateStandard, Deletes: true}, nil
	default:
		rows, err := ParseHumanCount(s)
		if err != nil {
			return PopulateOption{}, fmt.Errorf("invalid populate option: %q", s)
		}
		return PopulateOption{Mode: PopulateCustom, Rows: rows, Deletes: false}, nil
	}
}

// RunConfig is the fully resolved parameter set handed to the stress
// engine. Its JSON form is echoed verbatim by the control server status
// command.
type RunConfig struct {
	Workload                string            `json:"workload"`
	Host                    string            `json:"host"`
	Port                    int               `json:"cql_port"`
	Username                string            `json:"username,omitempty"`
	Password                string            `json:"-"`
	Keyspace                string            `json:"keyspace"`
	Iterations              int64             `json:"iterations,omitempty"`
	Duration                int64             `json:"duration,omitempty"`
	Rate                    int64             `json:"rate"`
	Threads                 int               `json:"threads"`
	Partitions              int64             `json:"partitions"`
	PartitionKeyGenerator   string            `json:"partition_key_generator"`
	ReadRate                float64           `json:"read_rate"`
	DeleteRate              float64           `json:"delete_rate"`
	QueueDepth              int               `json:"queue_depth"`
	Populate                PopulateOption    `json:"populate"`
	ConsistencyLevel        string            `json:"consistency_level"`
	SerialConsistencyLevel  string            `json:"serial_consistency_level"`
	MaxReadLatencyMillis    int64             `json:"max_read_latency,omitempty"`
	MaxWriteLatencyMillis   int64             `json:"max_write_latency,omitempty"`
	Paging                  int               `json:"paging"`
	Paginate                bool              `json:"paginate"`
	CoordinatorOnly         bool              `json:"coordinator_only"`
	TTL                     int64             `json:"ttl,omitempty"`
	Compaction              string            `json:"compaction,omitempty"`
	Compression             string            `json:"compression,omitempty"`
	Replication             string            `json:"replication"`
	RawLogPath              string            `json:"rawlog,omitempty"`
	PrometheusPort          int               `json:"prometheus_port,omitempty"`
	StatusIntervalSeconds   int               `json:"status_interval"`
	Fields                  map[string]string `json:"fields,omitempty"`
	WorkloadParameters      map[string]string `json:"workload_parameters,omitempty"`
}

// UseWorkloadReadRate marks the read fraction as unset; the profile's
// suggested read rate fills it in before the run starts.
const UseWorkloadReadRate = -1.0

// NewRunConfig returns a RunConfig populated with every default.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		ReadRate:               UseWorkloadReadRate,
		Host:                   OptionHostDefault,
		Port:                   OptionPortDefault,
		Keyspace:               OptionKeyspaceDefault,
		Rate:                   OptionRateDefault,
		Threads:                OptionThreadsDefault,
		Partitions:             OptionPartitionsDefault,
		PartitionKeyGenerator:  OptionPartitionKeyGeneratorDefault,
		QueueDepth:             OptionQueueDepthDefault,
		ConsistencyLevel:       OptionConsistencyLevelDefault,
		SerialConsistencyLevel: OptionSerialConsistencyLevelDefault,
		Paging:                 OptionPagingDefault,
		Replication:            OptionReplicationDefault,
		StatusIntervalSeconds:  OptionStatusIntervalDefault,
		Fields:                 make(map[string]string),
		WorkloadParameters:     make(map[string]string),
	}
}

// Validate rejects configurations the engine must never start with.
func (self *RunConfig) Validate() error {
	if len(self.Workload) == 0 {
		return fmt.Errorf("no workload selected")
	}
	if self.Iterations > 0 && self.Duration > 0 {
		return fmt.Errorf("iterations and duration are mutually exclusive")
	}
	if self.Iterations == 0 && self.Duration == 0 {
		self.Iterations = OptionIterationsDefault
	}
	if self.ReadRate != UseWorkloadReadRate {
		if self.ReadRate < 0 || self.ReadRate > 1 {
			return fmt.Errorf("read rate %v out of range [0, 1]", self.ReadRate)
		}
		if self.ReadRate+self.DeleteRate > 1 {
			return fmt.Errorf("read rate %v + delete rate %v exceeds 1",
				self.ReadRate, self.DeleteRate)
		}
	}
	if self.DeleteRate < 0 || self.DeleteRate > 1 {
		return fmt.Errorf("delete rate %v out of range [0, 1]", self.DeleteRate)
	}
	if self.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", self.Threads)
	}
	if self.QueueDepth <= 0 {
		return fmt.Errorf("queue depth must be positive, got %d", self.QueueDepth)
	}
	if self.Partitions <= 0 {
		return fmt.Errorf("partitions must be positive, got %d", self.Partitions)
	}
	if self.Rate < 0 {
		return fmt.Errorf("rate must be non-negative, got %d", self.Rate)
	}
	if _, ok := consistencyLevels[self.ConsistencyLevel]; !ok {
		return fmt.Errorf("unknown consistency level: %s", self.ConsistencyLevel)
	}
	if _, ok := serialConsistencyLevels[self.SerialConsistencyLevel]; !ok {
		return fmt.Errorf("unknown serial consistency level: %s", self.SerialConsistencyLevel)
	}
	return nil
}

// MutationRate is the fraction of operations issued as writes.
func (self *RunConfig) MutationRate() float64 {
	return 1.0 - self.ReadRate - self.DeleteRate
}
