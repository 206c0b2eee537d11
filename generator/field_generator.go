package generator

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Field names a (table, column) pair a value generator is attached to.
type Field struct {
	Table  string
	Column string
}

func NewField(table, column string) Field {
	return Field{
		Table:  table,
		Column: column,
	}
}

func (self Field) String() string {
	return self.Table + "." + self.Column
}

// FieldGenerator produces the value bound to one column of a prepared
// statement. Implementations return string or int64 values and may carry
// scalar parameters such as a minimum and maximum size.
type FieldGenerator interface {
	Next() interface{}
}

type MakeFieldGeneratorFunc func(args []int64) (FieldGenerator, error)

type FieldGeneratorEntry struct {
	Name        string
	Description string
	Make        MakeFieldGeneratorFunc
}

var (
	FieldGenerators = map[string]*FieldGeneratorEntry{
		"random": {
			Name:        "random",
			Description: "random alphanumeric string, sized between min and max",
			Make: func(args []int64) (FieldGenerator, error) {
				min, max, err := sizeArgs(args, 32, 64)
				if err != nil {
					return nil, err
				}
				return NewRandomStringGenerator(min, max), nil
			},
		},
		"book": {
			Name:        "book",
			Description: "prose-like text of common English words, sized in words between min and max",
			Make: func(args []int64) (FieldGenerator, error) {
				min, max, err := sizeArgs(args, 4, 16)
				if err != nil {
					return nil, err
				}
				return NewBookGenerator(min, max), nil
			},
		},
		"firstname": {
			Name:        "firstname",
			Description: "a random first name",
			Make: func(args []int64) (FieldGenerator, error) {
				return NewChoiceGenerator(firstNames), nil
			},
		},
		"lastname": {
			Name:        "lastname",
			Description: "a random last name",
			Make: func(args []int64) (FieldGenerator, error) {
				return NewChoiceGenerator(lastNames), nil
			},
		},
		"city": {
			Name:        "city",
			Description: "a random city name",
			Make: func(args []int64) (FieldGenerator, error) {
				return NewChoiceGenerator(cities), nil
			},
		},
		"number": {
			Name:        "number",
			Description: "uniform random integer in [min, max)",
			Make: func(args []int64) (FieldGenerator, error) {
				min, max, err := sizeArgs(args, 0, 100000)
				if err != nil {
					return nil, err
				}
				return NewNumberGenerator(min, max), nil
			},
		},
		"sequence": {
			Name:        "sequence",
			Description: "monotonically increasing integer, starting at min",
			Make: func(args []int64) (FieldGenerator, error) {
				start := int64(0)
				if len(args) > 0 {
					start = args[0]
				}
				return NewSequenceGenerator(start), nil
			},
		},
	}
)

func sizeArgs(args []int64, defaultMin, defaultMax int64) (int64, int64, error) {
	min, max := defaultMin, defaultMax
	switch len(args) {
	case 0:
	case 1:
		max = args[0]
	case 2:
		min, max = args[0], args[1]
	default:
		return 0, 0, NewErrorf("too many arguments: %d", len(args))
	}
	if min > max {
		return 0, 0, NewErrorf("min %d exceeds max %d", min, max)
	}
	return min, max, nil
}

// ListFieldGenerators returns the registered generator entries sorted by name.
func ListFieldGenerators() []*FieldGeneratorEntry {
	names := make([]string, 0, len(FieldGenerators))
	for name := range FieldGenerators {
		names = append(names, name)
	}
	sort.Strings(names)
	ret := make([]*FieldGeneratorEntry, 0, len(names))
	for _, name := range names {
		ret = append(ret, FieldGenerators[name])
	}
	return ret
}

var regexFieldFunc = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?$`)

// ParseFieldFunction turns a textual `fn` or `fn(arg, ...)` spec into a
// FieldGenerator instance. All arguments are integers.
func ParseFieldFunction(spec string) (FieldGenerator, error) {
	m := regexFieldFunc.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return nil, NewErrorf("invalid field function: %s", spec)
	}
	entry, ok := FieldGenerators[m[1]]
	if !ok {
		return nil, NewErrorf("unknown field function: %s", m[1])
	}
	var args []int64
	if len(m[2]) > 0 {
		for _, part := range strings.Split(m[2], ",") {
			n, err := strconv.ParseInt(strings.TrimSpace(part), 0, 64)
			if err != nil {
				return nil, NewErrorf("invalid argument %q in field function %s", part, spec)
			}
			args = append(args, n)
		}
	}
	return entry.Make(args)
}

// FieldRegistry resolves the generator for a field: a user override wins,
// then the profile default, then the fallback random generator.
type FieldRegistry struct {
	defaults  map[Field]FieldGenerator
	overrides map[Field]FieldGenerator
	fallback  FieldGenerator
}

func NewFieldRegistry() *FieldRegistry {
	return &FieldRegistry{
		defaults:  make(map[Field]FieldGenerator),
		overrides: make(map[Field]FieldGenerator),
		fallback:  NewRandomStringGenerator(32, 64),
	}
}

func (self *FieldRegistry) SetDefault(f Field, g FieldGenerator) {
	self.defaults[f] = g
}

// Override installs a user supplied `table.column=fn(args)` binding.
func (self *FieldRegistry) Override(name, spec string) error {
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return NewErrorf("field name must be table.column, got %q", name)
	}
	g, err := ParseFieldFunction(spec)
	if err != nil {
		return err
	}
	self.overrides[NewField(parts[0], parts[1])] = g
	return nil
}

func (self *FieldRegistry) Get(f Field) FieldGenerator {
	if g, ok := self.overrides[f]; ok {
		return g
	}
	if g, ok := self.defaults[f]; ok {
		return g
	}
	return self.fallback
}

// RandomStringGenerator produces alphanumeric strings with a length
// drawn uniformly from [min, max].
type RandomStringGenerator struct {
	min int64
	max int64
}

func NewRandomStringGenerator(min, max int64) *RandomStringGenerator {
	return &RandomStringGenerator{
		min: min,
		max: max,
	}
}

func (self *RandomStringGenerator) Next() interface{} {
	length := self.min
	if self.max > self.min {
		length += NextInt64(self.max - self.min + 1)
	}
	return RandomAlnum(length)
}

// BookGenerator produces prose-like text of [min, max] words drawn from
// an embedded word list.
type BookGenerator struct {
	min int64
	max int64
}

func NewBookGenerator(min, max int64) *BookGenerator {
	return &BookGenerator{
		min: min,
		max: max,
	}
}

func (self *BookGenerator) Next() interface{} {
	count := self.min
	if self.max > self.min {
		count += NextInt64(self.max - self.min + 1)
	}
	words := make([]string, count)
	for i := range words {
		words[i] = bookWords[NextInt64(int64(len(bookWords)))]
	}
	return strings.Join(words, " ")
}

// ChoiceGenerator picks uniformly from a fixed list of values.
type ChoiceGenerator struct {
	values []string
}

func NewChoiceGenerator(values []string) *ChoiceGenerator {
	return &ChoiceGenerator{
		values: values,
	}
}

func (self *ChoiceGenerator) Next() interface{} {
	return self.values[NextInt64(int64(len(self.values)))]
}

// NumberGenerator produces uniform random integers in [min, max).
type NumberGenerator struct {
	min int64
	max int64
}

func NewNumberGenerator(min, max int64) *NumberGenerator {
	return &NumberGenerator{
		min: min,
		max: max,
	}
}

func (self *NumberGenerator) Next() interface{} {
	return self.min + NextInt64(self.max-self.min)
}

// SequenceGenerator produces a monotonically increasing integer.
type SequenceGenerator struct {
	count int64
}

func NewSequenceGenerator(start int64) *SequenceGenerator {
	return &SequenceGenerator{
		count: start - 1,
	}
}

func (self *SequenceGenerator) Next() interface{} {
	return atomic.AddInt64(&self.count, 1)
}

func (self *SequenceGenerator) String() string {
	return fmt.Sprintf("sequence(%d)", atomic.LoadInt64(&self.count))
}

var bookWords = []string{
	"the", "of", "and", "a", "to", "in", "he", "was", "that", "it",
	"his", "her", "you", "as", "had", "with", "for", "she", "not", "at",
	"but", "be", "my", "on", "have", "him", "is", "said", "me", "which",
	"by", "so", "this", "all", "from", "they", "no", "were", "if", "would",
	"or", "when", "what", "there", "been", "one", "could", "very", "an", "who",
	"them", "mr", "we", "now", "more", "out", "do", "are", "up", "their",
	"your", "will", "little", "than", "then", "some", "into", "any", "well", "much",
	"about", "time", "know", "should", "man", "did", "like", "upon", "such", "never",
	"only", "good", "how", "before", "other", "see", "must", "am", "own", "come",
	"down", "say", "after", "think", "made", "might", "being", "mrs", "again", "great",
}

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
	"Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan",
	"Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen", "Christopher",
	"Lisa", "Daniel", "Nancy", "Matthew", "Betty", "Anthony", "Sandra",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
}

var cities = []string{
	"Tokyo", "Delhi", "Shanghai", "Dhaka", "Cairo", "Mumbai", "Beijing",
	"Osaka", "Karachi", "Chongqing", "Istanbul", "Lagos", "Manila",
	"Guangzhou", "Bangalore", "Moscow", "Lahore", "Shenzhen", "Jakarta",
	"Paris", "Bogota", "Lima", "Bangkok", "London", "Chennai", "Nagoya",
}
