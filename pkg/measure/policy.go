package measure

import (
	"golang.org/x/xerrors"
)

// Kind is the measurement policy of a Measurer.
type Kind uint8

const (
	KindNone Kind = iota
	// KindRunTime measures elapsed local wall-clock time.
	KindRunTime
	// KindSyncSkew measures the time spent waiting at the exit barrier.
	KindSyncSkew
)

func (k Kind) String() string {
	switch k {
	case KindRunTime:
		return "runtime"
	case KindSyncSkew:
		return "syncskew"
	default:
		return "none"
	}
}

// kindOf returns the policy selected by m. The caller validates that at most
// one of RunTime and SyncSkew is set.
func kindOf(m Mode) Kind {
	switch {
	case m.Has(RunTime):
		return KindRunTime
	case m.Has(SyncSkew):
		return KindSyncSkew
	default:
		return KindNone
	}
}

// policy is the begin/end pair of a Kind. end pops exactly one start marker.
type policy struct {
	begin func(m *Measurer) error
	end   func(m *Measurer) (float64, error)
}

var policies = map[Kind]policy{
	KindRunTime: {
		begin: func(m *Measurer) error {
			m.push(m.now())
			return nil
		},
		end: func(m *Measurer) (float64, error) {
			start, err := m.pop()
			if err != nil {
				return 0, err
			}
			return m.now().Sub(start).Seconds(), nil
		},
	},
	KindSyncSkew: {
		begin: func(m *Measurer) error {
			if err := m.info.Group.Barrier(); err != nil {
				return xerrors.Errorf("entry barrier: %w", err)
			}
			m.push(m.now())
			return nil
		},
		end: func(m *Measurer) (float64, error) {
			if _, err := m.pop(); err != nil {
				return 0, err
			}
			arrived := m.now()
			if err := m.info.Group.Barrier(); err != nil {
				return 0, xerrors.Errorf("exit barrier: %w", err)
			}
			return m.now().Sub(arrived).Seconds(), nil
		},
	},
}

// Kind returns the policy selected by m.
func (m Mode) Kind() Kind { return kindOf(m) }
