package measure

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"

	"mpimeasure/pkg/comm"
)

// Nop is an Instrument that measures nothing. Measure still runs the
// measured function, so instrumented call sites look the same whether
// measurement is enabled or not.
type Nop struct{}

func (Nop) Begin() error                { return nil }
func (Nop) End(string) (float64, error) { return 0, nil }
func (Nop) Write(string) error          { return nil }
func (Nop) Newline() error              { return nil }
func (Nop) Close() error                { return nil }

// LogName returns the log file name of a rank: "<base>-<fn>-<rank>.log" with
// the rank zero-padded to three digits.
func LogName(base, fn string, rank int) string {
	return fmt.Sprintf("%s-%s-%03d.log", base, fn, rank)
}

// Setup creates the Instrument of the calling rank for the function fn,
// logging to LogName(base, fn, rank).
func Setup(mode Mode, info comm.Info, base, fn string, schema []string, opts ...Option) (Instrument, error) {
	return New(LogName(base, fn, info.Rank), mode, schema, info, opts...)
}

// Measure runs f between Begin and End of column and writes the result. The
// error of f is returned together with any measurement error.
func Measure(in Instrument, column string, f func() error) error {
	if err := in.Begin(); err != nil {
		return xerrors.Errorf("could not begin '%s': %w", column, err)
	}
	opErr := f()
	if _, err := in.End(column); err != nil {
		return errors.Join(opErr, xerrors.Errorf("could not end '%s': %w", column, err))
	}
	if err := in.Write(column); err != nil {
		return errors.Join(opErr, xerrors.Errorf("could not write '%s': %w", column, err))
	}
	return opErr
}

// EOL ends the current line of in.
func EOL(in Instrument) error {
	return in.Newline()
}
