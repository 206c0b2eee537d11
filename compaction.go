package yacs

import (
	"fmt"
	"regexp"
	"strings"
)

// CompactionStrategy is a parsed --compaction argument: a strategy class
// plus its options in declaration order, renderable as a CQL map literal.
type CompactionStrategy struct {
	Class   string
	options []compactionOption
}

type compactionOption struct {
	name  string
	value string
}

func (self *CompactionStrategy) add(name, value string) {
	self.options = append(self.options, compactionOption{name: name, value: value})
}

// Option returns the value of a named option, or "" when absent.
func (self *CompactionStrategy) Option(name string) string {
	for _, o := range self.options {
		if o.name == name {
			return o.value
		}
	}
	return ""
}

// ToCQL renders the strategy as a CQL map literal suitable for a
// WITH compaction = ... clause.
func (self *CompactionStrategy) ToCQL() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("{'class': '%s'", self.Class))
	for _, o := range self.options {
		b.WriteString(fmt.Sprintf(", '%s': '%s'", o.name, o.value))
	}
	b.WriteString("}")
	return b.String()
}

var (
	regexCompactionShortcut = regexp.MustCompile(`^(stcs|lcs|twcs|ucs)(,.+)*$`)
	twcsWindowUnits         = map[string]bool{
		"MINUTES": true,
		"HOURS":   true,
		"DAYS":    true,
	}
)

// ParseCompaction resolves the --compaction argument. The shortcut
// grammar is `(stcs|lcs|twcs|ucs)(,arg)*`; anything else passes through
// as a raw CQL map literal with double quotes rewritten to single quotes.
func ParseCompaction(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !regexCompactionShortcut.MatchString(s) {
		return strings.ReplaceAll(s, `"`, `'`), nil
	}
	strategy, err := ParseCompactionShortcut(s)
	if err != nil {
		return "", err
	}
	return strategy.ToCQL(), nil
}

// ParseCompactionShortcut expands one of the compaction shortcuts into
// its strategy class and options.
func ParseCompactionShortcut(s string) (*CompactionStrategy, error) {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	name, args := parts[0], parts[1:]
	strategy := &CompactionStrategy{}
	switch name {
	case "stcs":
		strategy.Class = "SizeTieredCompactionStrategy"
		switch len(args) {
		case 0:
		case 2:
			strategy.add("min_threshold", args[0])
			strategy.add("max_threshold", args[1])
		default:
			return nil, fmt.Errorf("stcs takes 0 or 2 arguments, got %d", len(args))
		}
	case "lcs":
		strategy.Class = "LeveledCompactionStrategy"
		switch len(args) {
		case 0:
		case 1:
			strategy.add("sstable_size_in_mb", args[0])
		case 2:
			strategy.add("sstable_size_in_mb", args[0])
			strategy.add("fanout_size", args[1])
		default:
			return nil, fmt.Errorf("lcs takes 0, 1 or 2 arguments, got %d", len(args))
		}
	case "twcs":
		strategy.Class = "TimeWindowCompactionStrategy"
		switch len(args) {
		case 0:
		case 2:
			unit := strings.ToUpper(args[1])
			if !twcsWindowUnits[unit] {
				return nil, fmt.Errorf("twcs window unit must be MINUTES, HOURS or DAYS, got %q", args[1])
			}
			strategy.add("compaction_window_size", args[0])
			strategy.add("compaction_window_unit", unit)
		default:
			return nil, fmt.Errorf("twcs takes 0 or 2 arguments, got %d", len(args))
		}
	case "ucs":
		strategy.Class = "UnifiedCompactionStrategy"
		if len(args) > 0 {
			strategy.add("scaling_parameters", strings.Join(args, ","))
		}
	default:
		return nil, fmt.Errorf("unknown compaction shortcut: %s", name)
	}
	return strategy, nil
}
