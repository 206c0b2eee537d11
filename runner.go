package yacs

import (
	"github.com/hhkbp2/yacs/generator"
)

type OperationKind uint8

const (
	OperationMutation OperationKind = 1 + iota
	OperationSelect
	OperationDeletion
	OperationPopulate
	// OperationStop is a sentinel the dispatch loop hands to its
	// completion routine once the in-flight window has drained.
	OperationStop
)

func (self OperationKind) String() string {
	switch self {
	case OperationMutation:
		return "mutation"
	case OperationSelect:
		return "select"
	case OperationDeletion:
		return "delete"
	case OperationPopulate:
		return "populate"
	case OperationStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Operation is one bound statement ready for submission, tagged with its
// kind and the partition key it addresses. StartNanos is stamped by the
// dispatch loop immediately before submission.
type Operation struct {
	Kind       OperationKind
	CQL        string
	Values     []interface{}
	Key        *generator.PartitionKey
	Paginate   bool
	StartNanos int64
}

// IStressRunner turns a partition key into a bound operation of the
// requested kind. One instance exists per dispatch routine, so
// implementations may keep per-routine state without synchronization.
type IStressRunner interface {
	NextMutation(key *generator.PartitionKey) *Operation
	NextSelect(key *generator.PartitionKey) *Operation
	NextDelete(key *generator.PartitionKey) *Operation
	// NextPopulate builds the operation issued during the populate
	// phase. Profiles without a dedicated populate path reuse their
	// mutation path.
	NextPopulate(key *generator.PartitionKey) *Operation
}

// asPopulate retags an operation built by a mutation path for the
// populate phase.
func asPopulate(op *Operation) *Operation {
	op.Kind = OperationPopulate
	return op
}
