package yacs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	regexDurationToken = regexp.MustCompile(`(\d+)([dhms])`)
	regexDurationWhole = regexp.MustCompile(`^(\s*\d+[dhms]\s*)+$`)
	regexCount         = regexp.MustCompile(`^(\d+)([kKmMbB]?)$`)
)

var durationUnitSeconds = map[string]int64{
	"d": 24 * 60 * 60,
	"h": 60 * 60,
	"m": 60,
	"s": 1,
}

// ParseHumanDuration converts a human readable span such as "1h30m",
// "45s" or "1d 2h 3m" into seconds. Units may appear in any order and may
// repeat; repeated components are summed.
func ParseHumanDuration(s string) (int64, error) {
	if !regexDurationWhole.MatchString(s) {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	var total int64
	for _, m := range regexDurationToken.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration component %q: %s", m[0], err)
		}
		total += n * durationUnitSeconds[m[2]]
	}
	return total, nil
}

// ParseHumanCount converts an integer with an optional k/m/b suffix
// (thousand, million, billion) into its numeric value.
func ParseHumanCount(s string) (int64, error) {
	m := regexCount.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid count: %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count: %q", s)
	}
	switch strings.ToLower(m[2]) {
	case "k":
		n *= 1000
	case "m":
		n *= 1000 * 1000
	case "b":
		n *= 1000 * 1000 * 1000
	}
	return n, nil
}
