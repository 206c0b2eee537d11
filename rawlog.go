package yacs

import (
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// RawLogEvent is one row of the raw event log: a single completed
// operation.
type RawLogEvent struct {
	StartNanos   int64  `parquet:"name=start_ns, type=INT64"`
	EndNanos     int64  `parquet:"name=end_ns, type=INT64"`
	LatencyNanos int64  `parquet:"name=latency_ns, type=INT64"`
	Op           string `parquet:"name=op, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Success      bool   `parquet:"name=success, type=BOOLEAN"`
	ErrorClass   string `parquet:"name=error_class, type=BYTE_ARRAY, convertedtype=UTF8"`
	PartitionKey string `parquet:"name=partition_key, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// RawLogCollector writes one parquet row per completed operation. The
// completion path only enqueues; encoding and I/O run on a dedicated
// writer routine.
type RawLogCollector struct {
	events chan *RawLogEvent
	done   chan struct{}
	file   source.ParquetFile
	writer *writer.ParquetWriter
}

// ResolveRawLogPath turns the --rawlog argument into the target file:
// a directory resolves to <dir>/rawlog.parquet. An existing file at the
// target is overwritten.
func ResolveRawLogPath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, RawLogFileName)
	}
	return path
}

func NewRawLogCollector(path string) (*RawLogCollector, error) {
	target := ResolveRawLogPath(path)
	file, err := local.NewLocalFileWriter(target)
	if err != nil {
		return nil, err
	}
	w, err := writer.NewParquetWriter(file, new(RawLogEvent), 2)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.CompressionType = parquet.CompressionCodec_SNAPPY
	self := &RawLogCollector{
		events: make(chan *RawLogEvent, 16384),
		done:   make(chan struct{}),
		file:   file,
		writer: w,
	}
	go self.writeLoop()
	return self, nil
}

func (self *RawLogCollector) Collect(ctx *StressContext, op *Operation,
	result *OperationResult, startNanos, endNanos int64) {

	self.events <- &RawLogEvent{
		StartNanos:   startNanos,
		EndNanos:     endNanos,
		LatencyNanos: endNanos - startNanos,
		Op:           op.Kind.String(),
		Success:      result.Success,
		ErrorClass:   result.ErrorClass,
		PartitionKey: op.Key.String(),
	}
}

func (self *RawLogCollector) writeLoop() {
	defer close(self.done)
	for ev := range self.events {
		if err := self.writer.Write(ev); err != nil {
			Warnf("raw log write failed: %s", err)
		}
	}
}

func (self *RawLogCollector) Close() error {
	close(self.events)
	<-self.done
	if err := self.writer.WriteStop(); err != nil {
		self.file.Close()
		return err
	}
	return self.file.Close()
}
