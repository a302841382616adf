// Package comm defines the process group used by the measurement core and
// ships two implementations of it: Local, where every rank is a goroutine of
// the same process, and Network, where ranks are separate processes joined
// over TCP.
//
// Both collectives are blocking rendezvous operations. A call returns only
// after every member of the group issued the matching call, so all ranks must
// issue their collectives in the same order. A rank that stalls blocks the
// whole group.
package comm

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrCollectiveMismatch is returned when the members of a collective round
	// did not all issue the same kind of collective.
	ErrCollectiveMismatch = xerrors.New("collective call order differs between ranks")
	// ErrGroupClosed is returned by collectives on a closed group.
	ErrGroupClosed = xerrors.New("group is closed")
	// ErrInvalidRank is returned for ranks outside [0, size).
	ErrInvalidRank = xerrors.New("invalid rank")
)

// Op selects the reduction applied by Group.Reduce.
type Op uint8

const (
	OpMin Op = iota + 1
	OpSum
	OpMax
)

func (op Op) String() string {
	switch op {
	case OpMin:
		return "min"
	case OpSum:
		return "sum"
	case OpMax:
		return "max"
	default:
		return "unknown"
	}
}

// kindBarrier tags a barrier round; reductions are tagged with their Op.
const kindBarrier uint8 = 0

// Group is a fixed set of cooperating ranks.
type Group interface {
	Rank() int
	Size() int
	// Reduce combines value over all ranks with op. Only root receives the
	// result; the value returned on other ranks is zero.
	Reduce(value float64, op Op, root int) (float64, error)
	// Barrier blocks until every rank of the group has called it.
	Barrier() error
}

// Info identifies a process inside its group.
type Info struct {
	Rank  int
	Root  int
	Size  int
	Group Group
}

// Current returns the Info of the calling rank with rank 0 as root.
func Current(g Group) Info {
	return Info{Rank: g.Rank(), Root: 0, Size: g.Size(), Group: g}
}

// WithRoot returns a copy of i using root as the designated root.
func (i Info) WithRoot(root int) (Info, error) {
	if root < 0 || root >= i.Size {
		return i, xerrors.Errorf("root %d of group of size %d: %w", root, i.Size, ErrInvalidRank)
	}
	i.Root = root
	return i, nil
}

// IsRoot reports whether the caller is the designated root.
func (i Info) IsRoot() bool { return i.Rank == i.Root }

func (i Info) String() string {
	return fmt.Sprintf("rank %d/%d (root %d)", i.Rank, i.Size, i.Root)
}
