package yacs

import (
	"os"
	"path/filepath"
	"testing"

	g "github.com/hhkbp2/yacs/generator"
	"github.com/hhkbp2/testify/require"
)

func TestRawLogCollectorWritesEvents(t *testing.T) {
	dir := t.TempDir()
	collector, err := NewRawLogCollector(dir)
	require.Nil(t, err)

	key := g.NewPartitionKey("key", 9)
	ok := &OperationResult{Success: true}
	failed := &OperationResult{Success: false, ErrorClass: "gocql.RequestErrWriteTimeout"}
	for i := 0; i < 100; i++ {
		op := &Operation{Kind: OperationMutation, Key: key}
		collector.Collect(nil, op, ok, int64(i), int64(i+10))
	}
	collector.Collect(nil, &Operation{Kind: OperationSelect, Key: key}, failed, 5, 25)
	require.Nil(t, collector.Close())

	info, err := os.Stat(filepath.Join(dir, RawLogFileName))
	require.Nil(t, err)
	require.True(t, info.Size() > 0)
}

func TestRawLogCollectorOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "events.parquet")
	require.Nil(t, os.WriteFile(target, []byte("stale contents"), 0644))

	collector, err := NewRawLogCollector(target)
	require.Nil(t, err)
	collector.Collect(nil, &Operation{Kind: OperationDeletion, Key: g.NewPartitionKey("key", 1)},
		&OperationResult{Success: true}, 1, 2)
	require.Nil(t, collector.Close())

	b, err := os.ReadFile(target)
	require.Nil(t, err)
	require.True(t, len(b) > 0)
	require.NotEqual(t, "stale contents", string(b[:14]))
}
