package measure

import "golang.org/x/xerrors"

// Totals is the running summary of one column: the element-wise minimum,
// maximum and sum of every triple fed to it, and their average.
type Totals struct {
	Count int
	Min   StatTriple
	Avg   StatTriple
	Max   StatTriple
	Sum   StatTriple
}

// Accumulator keeps Totals per schema column across repeated measurements.
type Accumulator struct {
	columns []string
	index   map[string]int
	cells   []Totals
}

// NewAccumulator creates an Accumulator with one empty cell per column.
func NewAccumulator(columns []string) *Accumulator {
	a := &Accumulator{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		cells:   make([]Totals, len(columns)),
	}
	for i, c := range a.columns {
		a.index[c] = i
		a.cells[i] = Totals{Min: sentinelMin(), Max: sentinelMax()}
	}
	return a
}

// Columns returns the columns in schema order.
func (a *Accumulator) Columns() []string {
	return append([]string(nil), a.columns...)
}

// Update folds t into the totals of column.
func (a *Accumulator) Update(column string, t StatTriple) error {
	i, ok := a.index[column]
	if !ok {
		return xerrors.Errorf("accumulate '%s': %w", column, ErrUnknownColumn)
	}
	c := &a.cells[i]
	c.Min = minTriple(c.Min, t)
	c.Max = maxTriple(c.Max, t)
	c.Sum = addTriple(c.Sum, t)
	c.Count++
	return nil
}

// Finalize returns the totals of column with the average derived from the
// sum. It does not modify the Accumulator. A column without observations
// yields ErrNoObservations and a zero average.
func (a *Accumulator) Finalize(column string) (Totals, error) {
	i, ok := a.index[column]
	if !ok {
		return Totals{}, xerrors.Errorf("finalize '%s': %w", column, ErrUnknownColumn)
	}
	t := a.cells[i]
	if t.Count == 0 {
		return t, xerrors.Errorf("finalize '%s': %w", column, ErrNoObservations)
	}
	t.Avg = divTriple(t.Sum, float64(t.Count))
	return t, nil
}
