package regions

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinDistance is the smallest allowed gap between two random cuts and between
// a cut and the box border.
const MinDistance = 0.025

// maxAttempts bounds the rejection sampling in RandomCuts.
const maxAttempts = 1_000_000

// Cutter draws random cut positions.
type Cutter struct {
	dist distuv.Uniform
}

// NewCutter returns a Cutter seeded with seed.
func NewCutter(seed uint64) *Cutter {
	return &Cutter{dist: distuv.Uniform{
		Min: MinDistance,
		Max: 1 - MinDistance,
		Src: rand.NewPCG(seed, seed),
	}}
}

// Cuts returns n-1 sorted cut positions splitting ]0,1[ into n parts, each
// pair at least MinDistance apart. A draw that violates the distance is
// discarded as a whole.
func (c *Cutter) Cuts(n int) ([]float64, error) {
	if n < 1 {
		return nil, xerrors.Errorf("cannot split into %d parts: %w", n, ErrInvalidCuts)
	}
	cuts := make([]float64, n-1)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range cuts {
			cuts[i] = c.dist.Rand()
		}
		sort.Float64s(cuts)
		if spaced(cuts) {
			return cuts, nil
		}
	}
	return nil, xerrors.Errorf("no %d cuts %g apart found after %d draws: %w", n-1, MinDistance, maxAttempts, ErrInvalidCuts)
}

func spaced(sorted []float64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] < MinDistance {
			return false
		}
	}
	return true
}

// GridCuts draws the cut parameters of a whole grid in the order expected by
// NewSystem.
func (c *Cutter) GridCuts(grid GridStyle, procs Dims) ([]float64, error) {
	if !procs.valid() {
		return nil, xerrors.Errorf("processor grid %v must be positive: %w", procs, ErrInvalidGrid)
	}
	ySegs, xSegs := 1, 1
	if grid == Staggered {
		ySegs, xSegs = procs.Z, procs.Z*procs.Y
	}
	var out []float64
	for _, seg := range []struct{ n, times int }{{procs.Z, 1}, {procs.Y, ySegs}, {procs.X, xSegs}} {
		for t := 0; t < seg.times; t++ {
			cuts, err := c.Cuts(seg.n)
			if err != nil {
				return nil, err
			}
			out = append(out, cuts...)
		}
	}
	return out, nil
}

// WriteCuts prints "x <cuts> y <cuts> z <cuts>" for a processor grid.
func (c *Cutter) WriteCuts(w io.Writer, procs Dims) error {
	var b strings.Builder
	for _, axis := range []struct {
		name string
		n    int
	}{{"x", procs.X}, {"y", procs.Y}, {"z", procs.Z}} {
		cuts, err := c.Cuts(axis.n)
		if err != nil {
			return xerrors.Errorf("axis %s: %w", axis.name, err)
		}
		b.WriteString(axis.name)
		b.WriteString(" ")
		for _, cut := range cuts {
			b.WriteString(num(cut))
			b.WriteString(" ")
		}
	}
	_, err := fmt.Fprintln(w, b.String())
	return err
}
