// Package regions computes the block regions of a domain decomposition and
// prints them as LAMMPS commands. Cut positions are given on a 0-1 scale and
// scaled by the system lengths.
package regions

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

var (
	ErrInvalidGrid = xerrors.New("invalid grid")
	ErrInvalidCuts = xerrors.New("invalid cut parameters")
)

// GridStyle selects how cuts are shared between neighbouring cells.
type GridStyle int

const (
	// Tensor uses one set of cuts per axis for the whole system.
	Tensor GridStyle = iota
	// Staggered cuts y independently in every z slab, and x independently in
	// every (z, y) column.
	Staggered
)

func (g GridStyle) String() string {
	switch g {
	case Tensor:
		return "tensor"
	case Staggered:
		return "staggered"
	default:
		return fmt.Sprintf("GridStyle(%d)", int(g))
	}
}

// ParseGridStyle parses "tensor" or "staggered".
func ParseGridStyle(s string) (GridStyle, error) {
	switch strings.ToLower(s) {
	case "tensor":
		return Tensor, nil
	case "staggered":
		return Staggered, nil
	default:
		return Tensor, xerrors.Errorf("unknown grid style '%s': %w", s, ErrInvalidGrid)
	}
}

// Dims holds one integer per axis.
type Dims struct {
	X, Y, Z int
}

// Prod returns X*Y*Z.
func (d Dims) Prod() int { return d.X * d.Y * d.Z }

func (d Dims) valid() bool { return d.X > 0 && d.Y > 0 && d.Z > 0 }

// Cell is one block region.
type Cell struct {
	Name     string
	XLo, XHi float64
	YLo, YHi float64
	ZLo, ZHi float64
}

// CutCount returns how many interior cut positions a grid needs, in the order
// z, y, x.
func CutCount(grid GridStyle, procs Dims) int {
	if grid == Staggered {
		return (procs.Z - 1) + procs.Z*(procs.Y-1) + procs.Z*procs.Y*(procs.X-1)
	}
	return (procs.Z - 1) + (procs.Y - 1) + (procs.X - 1)
}

// UniformCuts returns evenly spaced cut parameters for grid.
func UniformCuts(grid GridStyle, procs Dims) []float64 {
	var cuts []float64
	even := func(n, times int) {
		for t := 0; t < times; t++ {
			for i := 1; i < n; i++ {
				cuts = append(cuts, float64(i)/float64(n))
			}
		}
	}
	even(procs.Z, 1)
	if grid == Staggered {
		even(procs.Y, procs.Z)
		even(procs.X, procs.Z*procs.Y)
	} else {
		even(procs.Y, 1)
		even(procs.X, 1)
	}
	return cuts
}

// System is a decomposed simulation box.
type System struct {
	Grid  GridStyle
	Procs Dims
	Lens  Dims
	Cells []Cell // len Procs.Prod(), indexed x fastest
}

// NewSystem splits a box of size lens into procs cells. cuts lists the
// interior cut positions in ]0,1[ in the order z, y, x, see CutCount. gap
// shrinks every cell by gap/2 on each side.
func NewSystem(grid GridStyle, procs, lens Dims, gap float64, cuts []float64) (*System, error) {
	if !procs.valid() || !lens.valid() {
		return nil, xerrors.Errorf("processor grid %v and lengths %v must be positive: %w", procs, lens, ErrInvalidGrid)
	}
	if want := CutCount(grid, procs); len(cuts) != want {
		return nil, xerrors.Errorf("%s grid %v needs %d cuts, got %d: %w", grid, procs, want, len(cuts), ErrInvalidCuts)
	}

	next := 0
	segments := func(n, times int, length float64) ([][]float64, error) {
		out := make([][]float64, times)
		for t := range out {
			bounds, err := boundaries(cuts[next:next+n-1], length)
			if err != nil {
				return nil, err
			}
			out[t] = bounds
			next += n - 1
		}
		return out, nil
	}

	zb, err := segments(procs.Z, 1, float64(lens.Z))
	if err != nil {
		return nil, err
	}
	ySegs, xSegs := 1, 1
	if grid == Staggered {
		ySegs, xSegs = procs.Z, procs.Z*procs.Y
	}
	yb, err := segments(procs.Y, ySegs, float64(lens.Y))
	if err != nil {
		return nil, err
	}
	xb, err := segments(procs.X, xSegs, float64(lens.X))
	if err != nil {
		return nil, err
	}

	s := &System{Grid: grid, Procs: procs, Lens: lens}
	half := gap / 2
	for idx := 0; idx < procs.Prod(); idx++ {
		c := s.Coord(idx)
		ys, xs := yb[0], xb[0]
		if grid == Staggered {
			ys, xs = yb[c.Z], xb[c.Z*procs.Y+c.Y]
		}
		s.Cells = append(s.Cells, Cell{
			Name: fmt.Sprintf("reg%02d", idx),
			XLo:  xs[c.X] + half, XHi: xs[c.X+1] - half,
			YLo: ys[c.Y] + half, YHi: ys[c.Y+1] - half,
			ZLo: zb[0][c.Z] + half, ZHi: zb[0][c.Z+1] - half,
		})
	}
	return s, nil
}

// boundaries completes interior cuts with 0 and 1 and scales them by length.
func boundaries(cuts []float64, length float64) ([]float64, error) {
	bounds := make([]float64, 0, len(cuts)+2)
	bounds = append(bounds, 0)
	prev := 0.0
	for _, c := range cuts {
		if c <= prev || c >= 1 {
			return nil, xerrors.Errorf("cut %g must lie in ]%g,1[: %w", c, prev, ErrInvalidCuts)
		}
		bounds = append(bounds, c*length)
		prev = c
	}
	return append(bounds, length), nil
}

// Coord returns the grid coordinate of cell idx.
func (s *System) Coord(idx int) Dims {
	p := s.Procs
	return Dims{
		X: idx % p.X,
		Y: (idx / p.X) % p.Y,
		Z: idx / (p.X * p.Y),
	}
}

// Index returns the cell index of a grid coordinate.
func (s *System) Index(c Dims) int {
	return c.Z*s.Procs.Y*s.Procs.X + c.Y*s.Procs.X + c.X
}

// WriteRegions prints one "region NAME block xlo xhi ylo yhi zlo zhi" command
// per cell.
func (s *System) WriteRegions(w io.Writer) error {
	for _, c := range s.Cells {
		if _, err := fmt.Fprintf(w, "region  %s  block  %s %s  %s %s  %s %s\n",
			c.Name, num(c.XLo), num(c.XHi), num(c.YLo), num(c.YHi), num(c.ZLo), num(c.ZHi)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCreateAtoms prints one "create_atoms 1 random N SEED NAME" command per
// cell. With incSeed every cell gets the next seed.
func (s *System) WriteCreateAtoms(w io.Writer, perRegion, seed int, incSeed bool) error {
	for _, c := range s.Cells {
		if _, err := fmt.Fprintf(w, "create_atoms  1  random  %d %d %s\n", perRegion, seed, c.Name); err != nil {
			return err
		}
		if incSeed {
			seed++
		}
	}
	return nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
