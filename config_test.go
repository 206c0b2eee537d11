package yacs

import (
	"encoding/json"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestParseRunArgs(t *testing.T) {
	cfg, err := ParseRunArgs([]string{
		"KeyValue",
		"--host", "10.0.0.5",
		"--cql-port", "9043",
		"-i", "100k",
		"-t", "8",
		"-r", "10000",
		"-p", "5k",
		"--read-rate", "0.5",
		"--delete-rate", "0.1",
		"--queue-depth", "64",
		"--populate", "standard",
		"--partitiongenerator", "sequence",
		"--cl", "quorum",
		"--max-read-latency", "500",
		"--paginate",
		"--coordinator-only",
		"--workload.valueSize=128",
		"--field", "keyvalue.value=book(2, 8)",
		"--compaction", "stcs,4,32",
		"--ttl", "3600",
	})
	require.Nil(t, err)
	require.Equal(t, "KeyValue", cfg.Workload)
	require.Equal(t, "10.0.0.5", cfg.Host)
	require.Equal(t, 9043, cfg.Port)
	require.Equal(t, int64(100000), cfg.Iterations)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, int64(10000), cfg.Rate)
	require.Equal(t, int64(5000), cfg.Partitions)
	require.Equal(t, 0.5, cfg.ReadRate)
	require.Equal(t, 0.1, cfg.DeleteRate)
	require.Equal(t, 64, cfg.QueueDepth)
	require.Equal(t, PopulateStandard, cfg.Populate.Mode)
	require.Equal(t, "sequence", cfg.PartitionKeyGenerator)
	require.Equal(t, "QUORUM", cfg.ConsistencyLevel)
	require.Equal(t, int64(500), cfg.MaxReadLatencyMillis)
	require.True(t, cfg.Paginate)
	require.True(t, cfg.CoordinatorOnly)
	require.Equal(t, "128", cfg.WorkloadParameters["valueSize"])
	require.Equal(t, "book(2, 8)", cfg.Fields["keyvalue.value"])
	require.Equal(t, "stcs,4,32", cfg.Compaction)
	require.Equal(t, int64(3600), cfg.TTL)
	require.Equal(t, 0.4, cfg.MutationRate())
}

func TestParseRunArgsRejectsBadInput(t *testing.T) {
	// no workload
	_, err := ParseRunArgs([]string{})
	require.NotNil(t, err)
	_, err = ParseRunArgs([]string{"--host", "x"})
	require.NotNil(t, err)

	// both count and duration bounds
	_, err = ParseRunArgs([]string{"KeyValue", "-i", "100", "-d", "10s"})
	require.NotNil(t, err)

	// unparseable duration
	_, err = ParseRunArgs([]string{"KeyValue", "-d", "BLAh"})
	require.NotNil(t, err)

	// out of range fractions
	_, err = ParseRunArgs([]string{"KeyValue", "--read-rate", "1.5"})
	require.NotNil(t, err)
	_, err = ParseRunArgs([]string{"KeyValue", "--read-rate", "0.8", "--delete-rate", "0.3"})
	require.NotNil(t, err)

	// unknown option
	_, err = ParseRunArgs([]string{"KeyValue", "--no-such-flag", "1"})
	require.NotNil(t, err)

	// unknown consistency level
	_, err = ParseRunArgs([]string{"KeyValue", "--cl", "MOSTLY"})
	require.NotNil(t, err)
}

func TestRunConfigDefaultsWhenUnbounded(t *testing.T) {
	cfg, err := ParseRunArgs([]string{"KeyValue"})
	require.Nil(t, err)
	// neither -i nor -d picks the default iteration bound
	require.Equal(t, OptionIterationsDefault, cfg.Iterations)
	require.Equal(t, int64(0), cfg.Duration)
	require.Equal(t, UseWorkloadReadRate, cfg.ReadRate)
}

func TestRunConfigJSONRoundTrip(t *testing.T) {
	cfg, err := ParseRunArgs([]string{
		"BasicTimeSeries",
		"-d", "10m",
		"-r", "5000",
		"-t", "16",
		"--read-rate", "0.1",
		"--workload.limit=100",
		"--field", "timeseries.value=book(4, 16)",
	})
	require.Nil(t, err)

	b, err := json.Marshal(cfg)
	require.Nil(t, err)
	decoded := NewRunConfig()
	require.Nil(t, json.Unmarshal(b, decoded))
	require.Equal(t, cfg, decoded)

	// a second trip is stable
	b2, err := json.Marshal(decoded)
	require.Nil(t, err)
	require.Equal(t, string(b), string(b2))
}

func TestParsePopulateOption(t *testing.T) {
	option, err := ParsePopulateOption("none")
	require.Nil(t, err)
	require.Equal(t, PopulateNone, option.Mode)

	option, err = ParsePopulateOption("standard")
	require.Nil(t, err)
	require.Equal(t, PopulateStandard, option.Mode)
	require.True(t, option.Deletes)

	option, err = ParsePopulateOption("50k")
	require.Nil(t, err)
	require.Equal(t, PopulateCustom, option.Mode)
	require.Equal(t, int64(50000), option.Rows)
	require.False(t, option.Deletes)

	_, err = ParsePopulateOption("lots")
	require.NotNil(t, err)
}

func TestResolveRawLogPath(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, dir+"/"+RawLogFileName, ResolveRawLogPath(dir))
	require.Equal(t, dir+"/events.parquet", ResolveRawLogPath(dir+"/events.parquet"))
}
