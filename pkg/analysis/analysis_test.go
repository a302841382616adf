package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpimeasure/pkg/measure"
)

const rawLog = `a b c
1.000000    NA   3.000000
2.000000 4.000000    NA
`

const tripleLog = `a b
(1.000000 2.000000 3.000000)  (   NA       NA       NA   )
(   NA       NA       NA   )  (0.500000 1.500000 2.500000)

[n:1]  [n:1]
[1.000000 2.000000 3.000000]  [0.500000 1.500000 2.500000]
`

func TestParse(t *testing.T) {
	t.Run("raw", func(t *testing.T) {
		l, err := Parse(strings.NewReader(rawLog))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, l.Columns)
		assert.False(t, l.Triples)
		assert.Equal(t, 2, l.Rows)
		assert.Equal(t, []measure.StatTriple{{1, 1, 1}, {2, 2, 2}}, l.Samples["a"])
		assert.Equal(t, []measure.StatTriple{{4, 4, 4}}, l.Samples["b"])
		assert.Equal(t, []measure.StatTriple{{3, 3, 3}}, l.Samples["c"])
	})

	t.Run("triples with totals block", func(t *testing.T) {
		l, err := Parse(strings.NewReader(tripleLog))
		require.NoError(t, err)
		assert.True(t, l.Triples)
		assert.Equal(t, 2, l.Rows)
		assert.Equal(t, []measure.StatTriple{{1, 2, 3}}, l.Samples["a"])
		assert.Equal(t, []measure.StatTriple{{0.5, 1.5, 2.5}}, l.Samples["b"])
	})

	t.Run("unnamed", func(t *testing.T) {
		l, err := Parse(strings.NewReader("\nload:1.500000 0.250000 \nsync:(1.000000 2.000000 3.000000)  \n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"load", "value", "sync"}, l.Columns)
		assert.Equal(t, []measure.StatTriple{{1.5, 1.5, 1.5}}, l.Samples["load"])
		assert.Equal(t, []measure.StatTriple{{1, 2, 3}}, l.Samples["sync"])
	})

	t.Run("errors", func(t *testing.T) {
		for _, in := range []string{
			"",
			"a\n1.0 2.0\n",
			"a\n(1.0 2.0\n",
			"a\nabc\n",
		} {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-step-000.log")
	require.NoError(t, os.WriteFile(path, []byte(rawLog), 0o644))

	l, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestAnalyzer(t *testing.T) {
	first, err := Parse(strings.NewReader(rawLog))
	require.NoError(t, err)
	second, err := Parse(strings.NewReader("a\n3.000000 \n4.000000 \n"))
	require.NoError(t, err)

	a := NewAnalyzer()
	a.Add(first)
	a.Add(second)
	res := a.Analyze()

	require.Len(t, res.Columns, 3)
	col := res.Columns[0]
	assert.Equal(t, "a", col.Column)
	assert.Equal(t, 4, col.Avg.Count)
	assert.Equal(t, 2.5, col.Avg.Mean)
	assert.Equal(t, 1.0, col.Avg.Min)
	assert.Equal(t, 4.0, col.Avg.Max)
	assert.Equal(t, 2.0, col.Avg.P50)
	assert.Equal(t, 4.0, col.Avg.P95)
	assert.Equal(t, col.Avg, col.Min)
	assert.Len(t, res.Logs, 2)
}

func TestCalculateStats_Empty(t *testing.T) {
	assert.Equal(t, StatSummary{}, calculateStats(nil))
}
