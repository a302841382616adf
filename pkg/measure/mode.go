package measure

import (
	"strings"

	"golang.org/x/xerrors"
)

// Mode is a bitmask selecting what a Measurer measures and how it reports.
type Mode uint

const (
	Off Mode = 0
	// RunTime measures local wall-clock time between Begin and End.
	RunTime Mode = 1 << (iota - 1)
	// SyncSkew measures how long a rank waits at the exit barrier.
	SyncSkew
	// GroupStats reduces every value to a (min, avg, max) triple at root.
	GroupStats
	// TotalStats accumulates the triples per column. Implies GroupStats.
	TotalStats
)

var modeNames = []struct {
	mode Mode
	name string
}{
	{RunTime, "runtime"},
	{SyncSkew, "syncskew"},
	{GroupStats, "stats"},
	{TotalStats, "total"},
}

// Has reports whether every flag of f is set in m.
func (m Mode) Has(f Mode) bool { return m&f == f }

func (m Mode) String() string {
	if m == Off {
		return "off"
	}
	var parts []string
	for _, n := range modeNames {
		if m.Has(n.mode) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseMode parses a list of flag names separated by ',' or '|', e.g.
// "runtime,stats". The empty string and "off" yield Off. The result is
// validated like the mode passed to New.
func ParseMode(s string) (Mode, error) {
	var m Mode
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" || field == "off" {
			continue
		}
		found := false
		for _, n := range modeNames {
			if n.name == field {
				m |= n.mode
				found = true
				break
			}
		}
		if !found {
			return Off, xerrors.Errorf("unknown mode flag '%s': %w", field, ErrConfig)
		}
	}
	return m.normalize()
}

// normalize validates m and applies implied flags.
func (m Mode) normalize() (Mode, error) {
	if m.Has(RunTime | SyncSkew) {
		return m, xerrors.Errorf("mode %s selects both runtime and syncskew: %w", m, ErrConfig)
	}
	if m.Has(TotalStats) {
		m |= GroupStats
	}
	return m, nil
}
