package yacs

import (
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestParseHumanDuration(t *testing.T) {
	seconds, err := ParseHumanDuration("45s")
	require.Nil(t, err)
	require.Equal(t, int64(45), seconds)

	seconds, err = ParseHumanDuration("1h30m")
	require.Nil(t, err)
	require.Equal(t, int64(5400), seconds)

	// units in any order, whitespace separated
	seconds, err = ParseHumanDuration("10m 1d 59s 2h")
	require.Nil(t, err)
	require.Equal(t, int64(94259), seconds)

	// repeated components are summed
	seconds, err = ParseHumanDuration("1m 1m")
	require.Nil(t, err)
	require.Equal(t, int64(120), seconds)
}

func TestParseHumanDurationIsOrderIndependent(t *testing.T) {
	a, err := ParseHumanDuration("1h 30m")
	require.Nil(t, err)
	b, err := ParseHumanDuration("30m 1h")
	require.Nil(t, err)
	require.Equal(t, a, b)

	h, err := ParseHumanDuration("1h")
	require.Nil(t, err)
	m, err := ParseHumanDuration("30m")
	require.Nil(t, err)
	require.Equal(t, a, h+m)
}

func TestParseHumanDurationRejectsGarbage(t *testing.T) {
	for _, input := range []string{"BLAh", "", "12", "3x", "1h tail", "h1"} {
		_, err := ParseHumanDuration(input)
		require.NotNil(t, err)
	}
}

func TestParseHumanCount(t *testing.T) {
	for input, expected := range map[string]int64{
		"100":  100,
		"5k":   5000,
		"5K":   5000,
		"2m":   2000000,
		"1b":   1000000000,
		" 10 ": 10,
	} {
		n, err := ParseHumanCount(input)
		require.Nil(t, err)
		require.Equal(t, expected, n)
	}

	for _, input := range []string{"", "k", "1.5k", "-1", "10q"} {
		_, err := ParseHumanCount(input)
		require.NotNil(t, err)
	}
}
