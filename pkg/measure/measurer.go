// Package measure times code regions that every rank of a process group runs
// in lockstep and reports the per-rank values, or their group-wide
// (min, avg, max) statistics, to one log file per writing rank.
//
// A Measurer brackets a region with Begin and End. End computes the local
// value according to the measurement policy and, when group statistics are
// requested, reduces it over the group. Write appends the value to the
// current line of the log; Newline ends the line. With TotalStats the root
// rank also keeps running totals per column and appends a summary block when
// the Measurer is closed.
//
// End and Begin may issue collective calls. Every rank must therefore
// measure the same columns in the same order.
package measure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"mpimeasure/pkg/comm"
	"mpimeasure/pkg/log"
)

const (
	naToken   = "   NA   "
	naTriple  = "(" + naToken + " " + naToken + " " + naToken + ")  "
	naTotals  = "[" + naToken + " " + naToken + " " + naToken + "]  "
	countCell = "[n:%d]  "
)

// Instrument is the caller-facing measurement capability. Measurer
// implements it; Nop implements it without measuring anything.
type Instrument interface {
	Begin() error
	End(column string) (float64, error)
	Write(column string) error
	Newline() error
	Close() error
}

// Observer receives every group triple computed at the root rank.
type Observer interface {
	Observe(column string, t StatTriple)
}

type settings struct {
	now      func() time.Time
	observer Observer
	writer   io.WriteCloser
}

// Option customizes a Measurer.
type Option func(*settings)

// WithClock replaces time.Now as the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithObserver registers an Observer for group triples.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithWriter makes the Measurer write to w instead of creating a file. w is
// closed by Close.
func WithWriter(w io.WriteCloser) Option {
	return func(s *settings) { s.writer = w }
}

// Measurer measures regions of one rank. It is not safe for concurrent use.
type Measurer struct {
	mode     Mode
	kind     Kind
	info     comm.Info
	schema   []string
	index    map[string]int
	now      func() time.Time
	observer Observer

	out    *bufio.Writer // nil when this rank writes no log
	closer io.Closer

	starts []time.Time
	local  float64
	group  StatTriple
	acc    *Accumulator
	cursor int
	closed bool
}

// New returns the Instrument selected by mode: Nop when mode selects no
// measurement kind, a Measurer otherwise.
func New(path string, mode Mode, schema []string, info comm.Info, opts ...Option) (Instrument, error) {
	norm, err := mode.normalize()
	if err != nil {
		return nil, err
	}
	if kindOf(norm) == KindNone {
		log.Debug("measurement disabled for %s (mode %s)", path, mode)
		return Nop{}, nil
	}
	return NewMeasurer(path, mode, schema, info, opts...)
}

// NewMeasurer creates a Measurer writing to path. The log is opened only when
// this rank reports: always without GroupStats, on the root rank otherwise.
func NewMeasurer(path string, mode Mode, schema []string, info comm.Info, opts ...Option) (*Measurer, error) {
	mode, err := mode.normalize()
	if err != nil {
		return nil, err
	}
	kind := kindOf(mode)
	if kind == KindNone {
		return nil, xerrors.Errorf("mode %s selects no measurement kind: %w", mode, ErrConfig)
	}
	if mode.Has(TotalStats) && len(schema) == 0 {
		return nil, xerrors.Errorf("total statistics need a schema: %w", ErrConfig)
	}
	if info.Group == nil && (mode.Has(GroupStats) || kind == KindSyncSkew) {
		return nil, xerrors.Errorf("mode %s needs a group: %w", mode, ErrConfig)
	}

	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	m := &Measurer{
		mode:     mode,
		kind:     kind,
		info:     info,
		schema:   append([]string(nil), schema...),
		index:    make(map[string]int, len(schema)),
		now:      s.now,
		observer: s.observer,
	}
	for i, c := range m.schema {
		if _, dup := m.index[c]; dup {
			return nil, xerrors.Errorf("column '%s' appears twice: %w", c, ErrConfig)
		}
		m.index[c] = i
	}
	if mode.Has(TotalStats) && info.IsRoot() {
		m.acc = NewAccumulator(m.schema)
	}

	if !mode.Has(GroupStats) || info.IsRoot() {
		w := s.writer
		if w == nil {
			f, err := os.Create(path)
			if err != nil {
				return nil, xerrors.Errorf("open measurement log %s: %v: %w", path, err, ErrResource)
			}
			w = f
		}
		m.out = bufio.NewWriter(w)
		m.closer = w
		if _, err := fmt.Fprintf(m.out, "%s\n", strings.Join(m.schema, " ")); err != nil {
			_ = w.Close()
			return nil, xerrors.Errorf("write header to %s: %v: %w", path, err, ErrResource)
		}
	}

	log.Debug("measuring %s as %s with mode %s and %d column(s), log: %t",
		path, info, mode, len(m.schema), m.out != nil)
	return m, nil
}

// Mode returns the normalized mode.
func (m *Measurer) Mode() Mode { return m.mode }

// Kind returns the measurement policy.
func (m *Measurer) Kind() Kind { return m.kind }

// Depth returns the number of open measurements.
func (m *Measurer) Depth() int { return len(m.starts) }

// Value returns the local value computed by the last End.
func (m *Measurer) Value() float64 { return m.local }

// GroupValue returns the triple computed by the last End. It is only
// meaningful on the root rank with GroupStats.
func (m *Measurer) GroupValue() StatTriple { return m.group }

// Totals returns the accumulated totals of column. Only the root rank of a
// TotalStats Measurer accumulates.
func (m *Measurer) Totals(column string) (Totals, error) {
	if m.acc == nil {
		return Totals{}, xerrors.Errorf("no totals on %s: %w", m.info, ErrConfig)
	}
	return m.acc.Finalize(column)
}

func (m *Measurer) push(t time.Time) {
	m.starts = append(m.starts, t)
}

func (m *Measurer) pop() (time.Time, error) {
	if len(m.starts) == 0 {
		return time.Time{}, xerrors.Errorf("end without begin: %w", ErrUnbalanced)
	}
	t := m.starts[len(m.starts)-1]
	m.starts = m.starts[:len(m.starts)-1]
	return t, nil
}

// Begin opens a measurement. With SyncSkew it blocks on a group barrier.
func (m *Measurer) Begin() error {
	return policies[m.kind].begin(m)
}

// End closes the most recently opened measurement and returns its local
// value in seconds. With GroupStats the value is reduced over the group; at
// root with TotalStats the resulting triple is accumulated under column.
func (m *Measurer) End(column string) (float64, error) {
	if m.mode.Has(TotalStats) {
		if _, ok := m.index[column]; !ok {
			// Every rank shares the schema, so all of them stop here before
			// the collectives below.
			if _, err := m.pop(); err != nil {
				return 0, err
			}
			return 0, xerrors.Errorf("end '%s': %w", column, ErrUnknownColumn)
		}
	}

	v, err := policies[m.kind].end(m)
	if err != nil {
		return 0, xerrors.Errorf("end '%s': %w", column, err)
	}
	m.local = v

	if m.mode.Has(GroupStats) {
		t, err := Reduce(m.info, v)
		if err != nil {
			return v, xerrors.Errorf("end '%s': %w", column, err)
		}
		m.group = t
		if m.info.IsRoot() {
			if m.acc != nil {
				if err := m.acc.Update(column, t); err != nil {
					return v, err
				}
			}
			if m.observer != nil {
				m.observer.Observe(column, t)
			}
		}
	}
	log.Trace("[%s] %s local %f", column, m.kind, v)
	return v, nil
}

// Write appends the current value to the log. With a schema, columns between
// the cursor and column are padded with NA tokens; an empty column writes the
// value without moving the cursor. Without a schema a non-empty column is
// written as a "column:" label before the value.
func (m *Measurer) Write(column string) error {
	if len(m.schema) == 0 {
		if column != "" {
			if err := m.print(column + ":"); err != nil {
				return err
			}
		}
	} else if column != "" {
		if err := m.advance(column); err != nil {
			return err
		}
	}
	if m.mode.Has(GroupStats) {
		return m.printTriple(m.group, '(', ')')
	}
	return m.print(fmt.Sprintf("%f ", m.local))
}

// advance pads up to column and moves the cursor past it.
func (m *Measurer) advance(column string) error {
	i, ok := m.index[column]
	if !ok || i < m.cursor {
		return xerrors.Errorf("write '%s' at column %d of %d: %w", column, m.cursor, len(m.schema), ErrColumnOverflow)
	}
	pad := naToken
	if m.mode.Has(GroupStats) {
		pad = naTriple
	}
	for ; m.cursor < i; m.cursor++ {
		if err := m.print(pad); err != nil {
			return err
		}
	}
	m.cursor++
	return nil
}

// Newline ends the current log line and resets the column cursor.
func (m *Measurer) Newline() error {
	m.cursor = 0
	return m.print("\n")
}

// Flush writes buffered output to the log.
func (m *Measurer) Flush() error {
	if m.out == nil {
		return nil
	}
	if err := m.out.Flush(); err != nil {
		return xerrors.Errorf("flush measurement log: %v: %w", err, ErrResource)
	}
	return nil
}

// Close writes the totals block on the root rank of a TotalStats Measurer
// and releases the log. Open measurements are reported as ErrUnbalanced.
// Calls after the first return nil.
func (m *Measurer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if n := len(m.starts); n != 0 {
		log.Error("closing measurer of %s with %d open measurement(s)", m.info, n)
		errs = append(errs, xerrors.Errorf("%d measurement(s) still open: %w", n, ErrUnbalanced))
	}
	if m.acc != nil && m.out != nil {
		errs = append(errs, m.writeTotals())
	}
	if m.out != nil {
		errs = append(errs, m.Flush())
		if err := m.closer.Close(); err != nil {
			errs = append(errs, xerrors.Errorf("close measurement log: %v: %w", err, ErrResource))
		}
		m.out = nil
	}
	return errors.Join(errs...)
}

// writeTotals appends the counts, the sums and the min, avg and max rows of
// every column.
func (m *Measurer) writeTotals() error {
	columns := m.acc.Columns()
	totals := make([]Totals, len(columns))
	observed := make([]bool, len(columns))
	for i, c := range columns {
		t, err := m.acc.Finalize(c)
		if err != nil && !errors.Is(err, ErrNoObservations) {
			return err
		}
		totals[i], observed[i] = t, err == nil
	}

	if err := m.Newline(); err != nil {
		return err
	}
	for _, t := range totals {
		if err := m.print(fmt.Sprintf(countCell, t.Count)); err != nil {
			return err
		}
	}
	if err := m.Newline(); err != nil {
		return err
	}
	for _, t := range totals {
		if err := m.printTriple(t.Sum, '[', ']'); err != nil {
			return err
		}
	}
	if err := m.Newline(); err != nil {
		return err
	}

	rows := []func(Totals) StatTriple{
		func(t Totals) StatTriple { return t.Min },
		func(t Totals) StatTriple { return t.Avg },
		func(t Totals) StatTriple { return t.Max },
	}
	for _, row := range rows {
		for i, t := range totals {
			var err error
			if observed[i] {
				err = m.printTriple(row(t), '[', ']')
			} else {
				err = m.print(naTotals)
			}
			if err != nil {
				return err
			}
		}
		if err := m.Newline(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Measurer) print(s string) error {
	if m.out == nil {
		return nil
	}
	if _, err := m.out.WriteString(s); err != nil {
		return xerrors.Errorf("write measurement log: %v: %w", err, ErrResource)
	}
	return nil
}

func (m *Measurer) printTriple(t StatTriple, lb, rb byte) error {
	return m.print(fmt.Sprintf("%c%f %f %f%c  ", lb, t.Min, t.Avg, t.Max, rb))
}
