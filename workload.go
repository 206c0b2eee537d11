package yacs

import (
	"fmt"
	"sort"
	"strconv"

	g "github.com/hhkbp2/yacs/generator"
)

// IStressWorkload represents one named profile: the DDL it needs, the
// operation templates it binds, its tunable parameters, and its populate
// policy. One instance is created per run and shared by all dispatch
// routines; per-routine state lives in the IStressRunner it builds.
type IStressWorkload interface {
	// Schema returns the DDL statements applied before the run,
	// relative to the bound keyspace.
	Schema() []string

	// DefaultReadRate suggests the read fraction used when the
	// operator does not pass one.
	DefaultReadRate() float64

	// DefaultPopulate declares how the populate phase behaves when
	// the operator asks for "standard".
	DefaultPopulate() PopulateOption

	// Parameters describes the profile's tunables.
	Parameters() []*WorkloadParameter

	// InstallFieldDefaults registers the profile's default value
	// generators; user overrides take precedence in the registry.
	InstallFieldDefaults(fields *g.FieldRegistry)

	// NewRunner builds the per-routine adapter that turns partition
	// keys into bound operations.
	NewRunner(ctx *StressContext) IStressRunner

	// PopulateKeyGenerator returns the dedicated key stream for the
	// populate phase, or nil to use a sequential stream over the
	// partition space.
	PopulateKeyGenerator(total, maxId int64) g.PartitionKeyGenerator
}

type ParameterKind uint8

const (
	ParameterInt64 ParameterKind = 1 + iota
	ParameterFloat64
	ParameterBool
	ParameterString
	ParameterEnum
)

func (self ParameterKind) String() string {
	switch self {
	case ParameterInt64:
		return "integer"
	case ParameterFloat64:
		return "float"
	case ParameterBool:
		return "bool"
	case ParameterString:
		return "string"
	case ParameterEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// WorkloadParameter describes one tunable of a profile and knows how to
// assign a parsed value to the profile's field.
type WorkloadParameter struct {
	Name        string
	Description string
	Kind        ParameterKind
	Variants    []string
	assign      func(value interface{})
}

func NewInt64Parameter(name, description string, target *int64) *WorkloadParameter {
	return &WorkloadParameter{
		Name:        name,
		Description: description,
		Kind:        ParameterInt64,
		assign: func(value interface{}) {
			*target = value.(int64)
		},
	}
}

func NewFloat64Parameter(name, description string, target *float64) *WorkloadParameter {
	return &WorkloadParameter{
		Name:        name,
		Description: description,
		Kind:        ParameterFloat64,
		assign: func(value interface{}) {
			*target = value.(float64)
		},
	}
}

func NewBoolParameter(name, description string, target *bool) *WorkloadParameter {
	return &WorkloadParameter{
		Name:        name,
		Description: description,
		Kind:        ParameterBool,
		assign: func(value interface{}) {
			*target = value.(bool)
		},
	}
}

func NewStringParameter(name, description string, target *string) *WorkloadParameter {
	return &WorkloadParameter{
		Name:        name,
		Description: description,
		Kind:        ParameterString,
		assign: func(value interface{}) {
			*target = value.(string)
		},
	}
}

func NewEnumParameter(name, description string, variants []string, target *string) *WorkloadParameter {
	return &WorkloadParameter{
		Name:        name,
		Description: description,
		Kind:        ParameterEnum,
		Variants:    variants,
		assign: func(value interface{}) {
			*target = value.(string)
		},
	}
}

// BindWorkloadParameters walks the user supplied name to value map,
// parses each value per the declared parameter kind and assigns it.
// Unknown names and ill-typed values error out before any dispatch
// routine starts.
func BindWorkloadParameters(w IStressWorkload, params map[string]string) error {
	declared := make(map[string]*WorkloadParameter)
	for _, p := range w.Parameters() {
		declared[p.Name] = p
	}
	for name, raw := range params {
		p, ok := declared[name]
		if !ok {
			return fmt.Errorf("unknown workload parameter: %s", name)
		}
		switch p.Kind {
		case ParameterInt64:
			v, err := strconv.ParseInt(raw, 0, 64)
			if err != nil {
				return fmt.Errorf("parameter %s expects an integer, got %q", name, raw)
			}
			p.assign(v)
		case ParameterFloat64:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("parameter %s expects a float, got %q", name, raw)
			}
			p.assign(v)
		case ParameterBool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("parameter %s expects a bool, got %q", name, raw)
			}
			p.assign(v)
		case ParameterString:
			p.assign(raw)
		case ParameterEnum:
			matched := false
			for _, variant := range p.Variants {
				if variant == raw {
					matched = true
					break
				}
			}
			if !matched {
				return fmt.Errorf("parameter %s expects one of %v, got %q",
					name, p.Variants, raw)
			}
			p.assign(raw)
		}
	}
	return nil
}

type MakeWorkloadFunc func() IStressWorkload

// WorkloadEntry is one registered profile plus the version gate
// annotations test harnesses filter on. Filtering itself is the
// harness's concern; the registry only exposes the annotations.
type WorkloadEntry struct {
	Name           string
	Description    string
	Make           MakeWorkloadFunc
	MinimumVersion string
	RequireAccord  bool
	RequireDSE     bool
}

var (
	Workloads map[string]*WorkloadEntry
)

func init() {
	Workloads = map[string]*WorkloadEntry{
		"KeyValue": {
			Name:        "KeyValue",
			Description: "single row per partition, text key and value",
			Make: func() IStressWorkload {
				return NewKeyValueWorkload()
			},
		},
		"BasicTimeSeries": {
			Name:        "BasicTimeSeries",
			Description: "timeuuid clustered rows, newest first reads",
			Make: func() IStressWorkload {
				return NewBasicTimeSeriesWorkload()
			},
		},
		"RandomPartitionAccess": {
			Name:        "RandomPartitionAccess",
			Description: "wide partitions accessed row-at-a-time or whole",
			Make: func() IStressWorkload {
				return NewRandomPartitionAccessWorkload()
			},
		},
		"CounterWide": {
			Name:           "CounterWide",
			Description:    "wide partitions of counter columns",
			MinimumVersion: "2.1",
			Make: func() IStressWorkload {
				return NewCounterWideWorkload()
			},
		},
	}
}

// ListWorkloads returns the registered profiles sorted by name.
func ListWorkloads() []*WorkloadEntry {
	names := make([]string, 0, len(Workloads))
	for name := range Workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	ret := make([]*WorkloadEntry, 0, len(names))
	for _, name := range names {
		ret = append(ret, Workloads[name])
	}
	return ret
}

func NewWorkload(name string) (IStressWorkload, error) {
	entry, ok := Workloads[name]
	if !ok {
		return nil, fmt.Errorf("unsupported workload: %s", name)
	}
	return entry.Make(), nil
}
