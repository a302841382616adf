package measure

import (
	"fmt"
	"math"
)

// StatTriple holds the minimum, average and maximum of a value over a group.
type StatTriple struct {
	Min float64
	Avg float64
	Max float64
}

func (t StatTriple) String() string {
	return fmt.Sprintf("(%f %f %f)", t.Min, t.Avg, t.Max)
}

// sentinelMin returns a triple that any observed value lowers.
func sentinelMin() StatTriple {
	inf := math.Inf(1)
	return StatTriple{inf, inf, inf}
}

// sentinelMax returns a triple that any observed value raises.
func sentinelMax() StatTriple {
	inf := math.Inf(-1)
	return StatTriple{inf, inf, inf}
}

func minTriple(a, b StatTriple) StatTriple {
	return StatTriple{math.Min(a.Min, b.Min), math.Min(a.Avg, b.Avg), math.Min(a.Max, b.Max)}
}

func maxTriple(a, b StatTriple) StatTriple {
	return StatTriple{math.Max(a.Min, b.Min), math.Max(a.Avg, b.Avg), math.Max(a.Max, b.Max)}
}

func addTriple(a, b StatTriple) StatTriple {
	return StatTriple{a.Min + b.Min, a.Avg + b.Avg, a.Max + b.Max}
}

func divTriple(a StatTriple, d float64) StatTriple {
	return StatTriple{a.Min / d, a.Avg / d, a.Max / d}
}
