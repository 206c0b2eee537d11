package generator

import (
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestParseFieldFunction(t *testing.T) {
	g, err := ParseFieldFunction("random(4, 8)")
	require.Nil(t, err)
	for i := 0; i < 100; i++ {
		s := g.Next().(string)
		require.True(t, len(s) >= 4)
		require.True(t, len(s) <= 8)
	}

	g, err = ParseFieldFunction("firstname")
	require.Nil(t, err)
	_, ok := g.Next().(string)
	require.True(t, ok)

	_, err = ParseFieldFunction("nosuchfn(1)")
	require.NotNil(t, err)
	_, err = ParseFieldFunction("random(a)")
	require.NotNil(t, err)
	_, err = ParseFieldFunction("random(8, 4)")
	require.NotNil(t, err)
}

func TestNumberGenerator(t *testing.T) {
	g, err := ParseFieldFunction("number(10, 20)")
	require.Nil(t, err)
	for i := 0; i < 100; i++ {
		n := g.Next().(int64)
		require.True(t, n >= 10)
		require.True(t, n < 20)
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator(5)
	for i := int64(5); i < 10; i++ {
		require.Equal(t, i, g.Next().(int64))
	}
}

func TestFieldRegistryResolution(t *testing.T) {
	r := NewFieldRegistry()
	f := NewField("keyvalue", "value")
	r.SetDefault(f, NewNumberGenerator(0, 1))
	_, ok := r.Get(f).(*NumberGenerator)
	require.True(t, ok)

	require.Nil(t, r.Override("keyvalue.value", "book(2, 3)"))
	_, ok = r.Get(f).(*BookGenerator)
	require.True(t, ok)

	// unknown fields fall back to random
	_, ok = r.Get(NewField("x", "y")).(*RandomStringGenerator)
	require.True(t, ok)

	require.NotNil(t, r.Override("bad-name", "random"))
	require.NotNil(t, r.Override("a.b", "bogus(1)"))
}

func TestListFieldGenerators(t *testing.T) {
	entries := ListFieldGenerators()
	require.True(t, len(entries) >= 5)
	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].Name < entries[i].Name)
	}
}
