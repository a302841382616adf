package comm

import (
	"sync"

	"gonum.org/v1/gonum/floats"
	"golang.org/x/xerrors"
)

// reduce applies op to the contributions of all ranks.
func reduce(op Op, values []float64) (float64, error) {
	switch op {
	case OpMin:
		return floats.Min(values), nil
	case OpSum:
		return floats.Sum(values), nil
	case OpMax:
		return floats.Max(values), nil
	default:
		return 0, xerrors.Errorf("unsupported reduction %d", op)
	}
}

// round is one collective call shared by every rank of a Local group.
type round struct {
	kinds   []uint8
	values  []float64
	arrived int
	done    chan struct{}
}

// hub is the rendezvous point of a Local group.
type hub struct {
	mu     sync.Mutex
	size   int
	rounds map[uint64]*round
}

// exchange contributes value to round seq and blocks until every rank did.
func (h *hub) exchange(seq uint64, rank int, kind uint8, value float64) *round {
	h.mu.Lock()
	r, ok := h.rounds[seq]
	if !ok {
		r = &round{
			kinds:  make([]uint8, h.size),
			values: make([]float64, h.size),
			done:   make(chan struct{}),
		}
		h.rounds[seq] = r
	}
	r.kinds[rank] = kind
	r.values[rank] = value
	r.arrived++
	if r.arrived == h.size {
		delete(h.rounds, seq)
		close(r.done)
	}
	h.mu.Unlock()

	<-r.done
	return r
}

// Local is the handle of one rank of an in-process group. Each rank must be
// driven by its own goroutine.
type Local struct {
	hub  *hub
	rank int
	seq  uint64
}

// NewLocal creates an in-process group of the given size and returns one
// handle per rank, indexed by rank.
func NewLocal(size int) ([]*Local, error) {
	if size < 1 {
		return nil, xerrors.Errorf("group size %d: %w", size, ErrInvalidRank)
	}
	h := &hub{size: size, rounds: make(map[uint64]*round)}
	ranks := make([]*Local, size)
	for i := range ranks {
		ranks[i] = &Local{hub: h, rank: i}
	}
	return ranks, nil
}

func (l *Local) Rank() int { return l.rank }
func (l *Local) Size() int { return l.hub.size }

// collective runs the next round and verifies that every rank issued the same kind.
func (l *Local) collective(kind uint8, value float64) (*round, error) {
	seq := l.seq
	l.seq++
	r := l.hub.exchange(seq, l.rank, kind, value)
	for rank, k := range r.kinds {
		if k != kind {
			return nil, xerrors.Errorf("round %d: rank %d issued kind %d, rank %d issued kind %d: %w",
				seq, l.rank, kind, rank, k, ErrCollectiveMismatch)
		}
	}
	return r, nil
}

func (l *Local) Reduce(value float64, op Op, root int) (float64, error) {
	if root < 0 || root >= l.hub.size {
		return 0, xerrors.Errorf("reduce to root %d: %w", root, ErrInvalidRank)
	}
	r, err := l.collective(uint8(op), value)
	if err != nil {
		return 0, err
	}
	if l.rank != root {
		return 0, nil
	}
	return reduce(op, r.values)
}

func (l *Local) Barrier() error {
	_, err := l.collective(kindBarrier, 0)
	return err
}
