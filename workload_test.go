package yacs

import (
	"strings"
	"testing"

	g "github.com/hhkbp2/yacs/generator"
	"github.com/hhkbp2/testify/require"
)

func TestWorkloadRegistry(t *testing.T) {
	entries := ListWorkloads()
	require.Equal(t, len(Workloads), len(entries))
	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].Name < entries[i].Name)
	}

	w, err := NewWorkload("KeyValue")
	require.Nil(t, err)
	require.NotNil(t, w)

	_, err = NewWorkload("NoSuchWorkload")
	require.NotNil(t, err)
}

func TestWorkloadRegistryAnnotations(t *testing.T) {
	entry := Workloads["CounterWide"]
	require.Equal(t, "2.1", entry.MinimumVersion)
	require.False(t, entry.RequireAccord)
	require.False(t, entry.RequireDSE)
}

func TestBindWorkloadParameters(t *testing.T) {
	w := NewKeyValueWorkload()
	require.Nil(t, BindWorkloadParameters(w, map[string]string{"valueSize": "256"}))
	require.Equal(t, int64(256), w.valueSize)

	// unknown names error out before any routine starts
	err := BindWorkloadParameters(w, map[string]string{"nosuch": "1"})
	require.NotNil(t, err)
	require.True(t, strings.Contains(err.Error(), "unknown workload parameter"))

	// ill-typed values error out too
	err = BindWorkloadParameters(w, map[string]string{"valueSize": "huge"})
	require.NotNil(t, err)
}

func TestBindWorkloadParametersEnum(t *testing.T) {
	w := NewRandomPartitionAccessWorkload()
	require.Nil(t, BindWorkloadParameters(w, map[string]string{"access": "partition"}))
	require.Equal(t, "partition", w.access)

	err := BindWorkloadParameters(w, map[string]string{"access": "column"})
	require.NotNil(t, err)
}

func TestBindWorkloadParametersBool(t *testing.T) {
	w := NewBasicTimeSeriesWorkload()
	require.Nil(t, BindWorkloadParameters(w, map[string]string{
		"paginate": "true",
		"limit":    "50",
	}))
	require.True(t, w.paginate)
	require.Equal(t, int64(50), w.limit)
}

func newTestContext(t *testing.T, workloadName string) (*StressContext, IStressWorkload) {
	cfg := NewRunConfig()
	cfg.Workload = workloadName
	cfg.Iterations = 100
	cfg.Threads = 1
	cfg.StatusIntervalSeconds = 0
	ctx, w, err := BuildStressContext(cfg, NewBasicSession())
	require.Nil(t, err)
	return ctx, w
}

func TestKeyValueRunnerOperations(t *testing.T) {
	ctx, w := newTestContext(t, "KeyValue")
	runner := w.NewRunner(ctx)
	key := g.NewPartitionKey("key", 7)

	op := runner.NextMutation(key)
	require.Equal(t, OperationMutation, op.Kind)
	require.True(t, strings.HasPrefix(op.CQL, "INSERT INTO keyvalue"))
	require.Equal(t, "key7", op.Values[0])
	require.Equal(t, 2, len(op.Values))

	op = runner.NextSelect(key)
	require.Equal(t, OperationSelect, op.Kind)
	require.True(t, strings.Contains(op.CQL, "FROM keyvalue"))

	op = runner.NextDelete(key)
	require.Equal(t, OperationDeletion, op.Kind)
	require.True(t, strings.HasPrefix(op.CQL, "DELETE FROM keyvalue"))

	op = runner.NextPopulate(key)
	require.Equal(t, OperationPopulate, op.Kind)
	require.True(t, strings.HasPrefix(op.CQL, "INSERT INTO keyvalue"))
}

func TestRandomPartitionRunnerGranularity(t *testing.T) {
	ctx, w := newTestContext(t, "RandomPartitionAccess")
	require.Nil(t, BindWorkloadParameters(w, map[string]string{"access": "partition"}))
	runner := w.NewRunner(ctx)
	key := g.NewPartitionKey("key", 1)

	op := runner.NextSelect(key)
	require.False(t, strings.Contains(op.CQL, "AND c ="))
	op = runner.NextDelete(key)
	require.False(t, strings.Contains(op.CQL, "AND c ="))

	require.Nil(t, BindWorkloadParameters(w, map[string]string{"access": "row"}))
	runner = w.NewRunner(ctx)
	op = runner.NextSelect(key)
	require.True(t, strings.Contains(op.CQL, "AND c ="))
}

func TestWorkloadFieldOverride(t *testing.T) {
	cfg := NewRunConfig()
	cfg.Workload = "KeyValue"
	cfg.Iterations = 10
	cfg.Fields["keyvalue.value"] = "number(1, 5)"
	ctx, w, err := BuildStressContext(cfg, NewBasicSession())
	require.Nil(t, err)
	runner := w.NewRunner(ctx)
	op := runner.NextMutation(g.NewPartitionKey("key", 0))
	n, ok := op.Values[1].(int64)
	require.True(t, ok)
	require.True(t, n >= 1)
	require.True(t, n < 5)
}

func TestBuildStressContextAppliesWorkloadReadRate(t *testing.T) {
	cfg := NewRunConfig()
	cfg.Workload = "BasicTimeSeries"
	cfg.Iterations = 10
	_, _, err := BuildStressContext(cfg, NewBasicSession())
	require.Nil(t, err)
	require.Equal(t, 0.1, cfg.ReadRate)

	cfg = NewRunConfig()
	cfg.Workload = "BasicTimeSeries"
	cfg.Iterations = 10
	cfg.ReadRate = 0.7
	_, _, err = BuildStressContext(cfg, NewBasicSession())
	require.Nil(t, err)
	require.Equal(t, 0.7, cfg.ReadRate)
}

func TestBuildStressContextRejectsBadParameters(t *testing.T) {
	cfg := NewRunConfig()
	cfg.Workload = "KeyValue"
	cfg.Iterations = 10
	cfg.WorkloadParameters["bogus"] = "1"
	_, _, err := BuildStressContext(cfg, NewBasicSession())
	require.NotNil(t, err)
}

func TestApplySchemaAddsTableOptions(t *testing.T) {
	cfg := NewRunConfig()
	cfg.Workload = "KeyValue"
	cfg.Iterations = 10
	cfg.Compaction = "stcs,4,32"
	cfg.TTL = 60
	session := NewBasicSession()
	ctx, w, err := BuildStressContext(cfg, session)
	require.Nil(t, err)
	require.NotNil(t, ctx)
	require.Nil(t, ApplySchema(session, cfg, w))
	applied := session.AppliedSchema()
	require.Equal(t, 1, len(applied))
	require.True(t, strings.Contains(applied[0], "compaction = {'class': 'SizeTieredCompactionStrategy'"))
	require.True(t, strings.Contains(applied[0], "default_time_to_live = 60"))
}
