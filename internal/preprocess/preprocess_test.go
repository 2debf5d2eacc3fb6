package preprocess

import (
	"testing"

	"github.com/rbright/casl/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRemapperFirstMatchWins(t *testing.T) {
	t.Parallel()

	r, err := NewRemapper([]config.Mapping{
		{Search: "a", Replace: "X"},
		{Search: "b", Replace: "Y"},
	})
	require.NoError(t, err)
	require.Equal(t, "Xb", r.Process("ab"))
}

func TestRemapperReplacesAllMatchesOfRule(t *testing.T) {
	t.Parallel()

	r, err := NewRemapper([]config.Mapping{{Search: `(\w+) dot com`, Replace: "$1.com"}})
	require.NoError(t, err)
	require.Equal(t, "open example.com and test.com", r.Process("open example dot com and test dot com"))
}

func TestRemapperNoMatchLeavesTextUnchanged(t *testing.T) {
	t.Parallel()

	r, err := NewRemapper([]config.Mapping{{Search: "zzz", Replace: "!"}})
	require.NoError(t, err)
	require.Equal(t, "hello", r.Process("hello"))
}

func TestRemapperIsCaseSensitive(t *testing.T) {
	t.Parallel()

	r, err := NewRemapper([]config.Mapping{{Search: "Hello", Replace: "bye"}})
	require.NoError(t, err)
	require.Equal(t, "hello", r.Process("hello"))
}

func TestNewRemapperRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewRemapper([]config.Mapping{{Search: "(", Replace: ""}})
	require.Error(t, err)
}

func TestChainFeedsOutputForward(t *testing.T) {
	t.Parallel()

	chain, err := Build([]config.PreprocessorSpec{
		config.NormalizeSpec{},
		config.RemapSpec{Mappings: []config.Mapping{{Search: "^turn on the (.+)$", Replace: "on $1"}}},
		config.RemapSpec{Mappings: []config.Mapping{{Search: "lights", Replace: "lamp"}}},
	})
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, "on lamp", chain.Process("  turn on   the lights "))
}

func TestEmptyChainIsIdentity(t *testing.T) {
	t.Parallel()

	chain, err := Build(nil)
	require.NoError(t, err)
	require.Equal(t, " as is ", chain.Process(" as is "))
}
