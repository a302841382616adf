package regions

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutCount(t *testing.T) {
	procs := Dims{X: 2, Y: 3, Z: 2}
	assert.Equal(t, 1+2+1, CutCount(Tensor, procs))
	assert.Equal(t, 1+2*2+2*3*1, CutCount(Staggered, procs))
	assert.Len(t, UniformCuts(Tensor, procs), CutCount(Tensor, procs))
	assert.Len(t, UniformCuts(Staggered, procs), CutCount(Staggered, procs))
}

func TestNewSystem_Tensor(t *testing.T) {
	procs := Dims{X: 2, Y: 2, Z: 1}
	s, err := NewSystem(Tensor, procs, Dims{X: 10, Y: 20, Z: 5}, 0, []float64{0.25, 0.5})
	require.NoError(t, err)
	require.Len(t, s.Cells, 4)

	assert.Equal(t, Cell{Name: "reg00", XLo: 0, XHi: 5, YLo: 0, YHi: 5, ZLo: 0, ZHi: 5}, s.Cells[0])
	assert.Equal(t, Cell{Name: "reg03", XLo: 5, XHi: 10, YLo: 5, YHi: 20, ZLo: 0, ZHi: 5}, s.Cells[3])

	for idx := range s.Cells {
		assert.Equal(t, idx, s.Index(s.Coord(idx)))
	}
}

func TestNewSystem_StaggeredWithGap(t *testing.T) {
	procs := Dims{X: 2, Y: 1, Z: 2}
	// z cut, then one x cut per z slab.
	s, err := NewSystem(Staggered, procs, Dims{X: 10, Y: 10, Z: 10}, 1, []float64{0.5, 0.2, 0.8})
	require.NoError(t, err)
	require.Len(t, s.Cells, 4)

	assert.Equal(t, Cell{Name: "reg00", XLo: 0.5, XHi: 1.5, YLo: 0.5, YHi: 9.5, ZLo: 0.5, ZHi: 4.5}, s.Cells[0])
	assert.Equal(t, Cell{Name: "reg03", XLo: 8.5, XHi: 9.5, YLo: 0.5, YHi: 9.5, ZLo: 5.5, ZHi: 9.5}, s.Cells[3])
}

func TestNewSystem_Errors(t *testing.T) {
	procs := Dims{X: 2, Y: 1, Z: 1}
	lens := Dims{X: 1, Y: 1, Z: 1}
	tests := []struct {
		name  string
		procs Dims
		cuts  []float64
		want  error
	}{
		{"zero procs", Dims{X: 0, Y: 1, Z: 1}, nil, ErrInvalidGrid},
		{"wrong count", procs, []float64{0.1, 0.2}, ErrInvalidCuts},
		{"out of range", procs, []float64{1.5}, ErrInvalidCuts},
		{"not increasing", Dims{X: 3, Y: 1, Z: 1}, []float64{0.6, 0.4}, ErrInvalidCuts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSystem(Tensor, tt.procs, lens, 0, tt.cuts)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestWriteCommands(t *testing.T) {
	s, err := NewSystem(Tensor, Dims{X: 2, Y: 1, Z: 1}, Dims{X: 4, Y: 2, Z: 2}, 0, UniformCuts(Tensor, Dims{X: 2, Y: 1, Z: 1}))
	require.NoError(t, err)

	var regions bytes.Buffer
	require.NoError(t, s.WriteRegions(&regions))
	assert.Equal(t,
		"region  reg00  block  0 2  0 2  0 2\n"+
			"region  reg01  block  2 4  0 2  0 2\n",
		regions.String())

	var atoms bytes.Buffer
	require.NoError(t, s.WriteCreateAtoms(&atoms, 1000, 873984, true))
	assert.Equal(t,
		"create_atoms  1  random  1000 873984 reg00\n"+
			"create_atoms  1  random  1000 873985 reg01\n",
		atoms.String())

	atoms.Reset()
	require.NoError(t, s.WriteCreateAtoms(&atoms, 10, 7, false))
	assert.Equal(t, 2, strings.Count(atoms.String(), " 10 7 "))
}

func TestParseGridStyle(t *testing.T) {
	g, err := ParseGridStyle("Staggered")
	require.NoError(t, err)
	assert.Equal(t, Staggered, g)
	assert.Equal(t, "tensor", Tensor.String())

	_, err = ParseGridStyle("hex")
	assert.True(t, errors.Is(err, ErrInvalidGrid))
}

func TestCutter(t *testing.T) {
	c := NewCutter(42)
	for _, n := range []int{1, 2, 5, 12} {
		cuts, err := c.Cuts(n)
		require.NoError(t, err)
		require.Len(t, cuts, n-1)
		for i, cut := range cuts {
			assert.GreaterOrEqual(t, cut, MinDistance)
			assert.Less(t, cut, 1-MinDistance)
			if i > 0 {
				assert.GreaterOrEqual(t, cut-cuts[i-1], MinDistance)
			}
		}
	}

	_, err := c.Cuts(0)
	assert.True(t, errors.Is(err, ErrInvalidCuts))

	// Same seed, same cuts.
	a, err := NewCutter(7).Cuts(4)
	require.NoError(t, err)
	b, err := NewCutter(7).Cuts(4)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGridCuts(t *testing.T) {
	procs := Dims{X: 3, Y: 2, Z: 2}
	for _, grid := range []GridStyle{Tensor, Staggered} {
		cuts, err := NewCutter(3).GridCuts(grid, procs)
		require.NoError(t, err)
		require.Len(t, cuts, CutCount(grid, procs))

		_, err = NewSystem(grid, procs, Dims{X: 1, Y: 1, Z: 1}, 0, cuts)
		require.NoError(t, err)
	}

	_, err := NewCutter(3).GridCuts(Tensor, Dims{})
	assert.True(t, errors.Is(err, ErrInvalidGrid))
}

func TestWriteCuts(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewCutter(1).WriteCuts(&out, Dims{X: 3, Y: 1, Z: 2}))

	fields := strings.Fields(out.String())
	require.Len(t, fields, 3+2+0+1)
	assert.Equal(t, "x", fields[0])
	assert.Equal(t, "y", fields[3])
	assert.Equal(t, "z", fields[4])
}
