package measure

import (
	"golang.org/x/xerrors"

	"mpimeasure/pkg/comm"
)

// Reduce combines the local value v of every rank into a triple at
// info.Root. It issues three collectives, min then sum then max, so every
// rank must call it at the same point of its execution. Ranks other than
// root get a zero triple.
func Reduce(info comm.Info, v float64) (StatTriple, error) {
	var t StatTriple
	var err error
	if t.Min, err = info.Group.Reduce(v, comm.OpMin, info.Root); err != nil {
		return StatTriple{}, xerrors.Errorf("reduce min: %w", err)
	}
	var sum float64
	if sum, err = info.Group.Reduce(v, comm.OpSum, info.Root); err != nil {
		return StatTriple{}, xerrors.Errorf("reduce sum: %w", err)
	}
	if t.Max, err = info.Group.Reduce(v, comm.OpMax, info.Root); err != nil {
		return StatTriple{}, xerrors.Errorf("reduce max: %w", err)
	}
	if !info.IsRoot() {
		return StatTriple{}, nil
	}
	t.Avg = sum / float64(info.Size)
	return t, nil
}
