package comm

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestInfo(t *testing.T) {
	ranks, err := NewLocal(3)
	require.NoError(t, err)

	info := Current(ranks[2])
	assert.Equal(t, Info{Rank: 2, Root: 0, Size: 3, Group: ranks[2]}, info)
	assert.False(t, info.IsRoot())
	assert.True(t, Current(ranks[0]).IsRoot())

	moved, err := info.WithRoot(2)
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	_, err = info.WithRoot(3)
	assert.True(t, errors.Is(err, ErrInvalidRank))
}

func TestNewLocal_InvalidSize(t *testing.T) {
	_, err := NewLocal(0)
	assert.True(t, errors.Is(err, ErrInvalidRank))
}

func TestLocal_Reduce(t *testing.T) {
	values := []float64{3.5, -1, 7, 2.5}
	ranks, err := NewLocal(len(values))
	require.NoError(t, err)

	tests := []struct {
		op   Op
		want float64
	}{
		{OpMin, -1},
		{OpSum, 12},
		{OpMax, 7},
	}

	results := make([][]float64, len(ranks))
	var g errgroup.Group
	for _, rank := range ranks {
		g.Go(func() error {
			for _, tt := range tests {
				v, err := rank.Reduce(values[rank.Rank()], tt.op, 1)
				if err != nil {
					return err
				}
				results[rank.Rank()] = append(results[rank.Rank()], v)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, results[1][i])
			assert.Equal(t, 0.0, results[0][i])
			assert.Equal(t, 0.0, results[3][i])
		})
	}
}

func TestLocal_BarrierBlocksUntilAllArrive(t *testing.T) {
	ranks, err := NewLocal(3)
	require.NoError(t, err)

	released := make(chan int, len(ranks))
	for _, rank := range ranks[1:] {
		go func() {
			_ = rank.Barrier()
			released <- rank.Rank()
		}()
	}

	select {
	case r := <-released:
		t.Fatalf("rank %d left the barrier before rank 0 arrived", r)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, ranks[0].Barrier())
	for range ranks[1:] {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatal("barrier did not release all ranks")
		}
	}
}

func TestLocal_CollectiveMismatch(t *testing.T) {
	ranks, err := NewLocal(2)
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() { errs <- ranks[0].Barrier() }()
	go func() {
		_, err := ranks[1].Reduce(1, OpSum, 0)
		errs <- err
	}()

	for i := 0; i < 2; i++ {
		assert.True(t, errors.Is(<-errs, ErrCollectiveMismatch))
	}
}

func TestNetwork_Collectives(t *testing.T) {
	const size = 3
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	type outcome struct {
		min, sum, max float64
	}
	results := make([]outcome, size)

	var g errgroup.Group
	run := func(n *Network) error {
		defer n.Close()
		v := float64(n.Rank() + 1)
		if err := n.Barrier(); err != nil {
			return err
		}
		var o outcome
		var err error
		if o.min, err = n.Reduce(v, OpMin, 0); err != nil {
			return err
		}
		if o.sum, err = n.Reduce(v, OpSum, 0); err != nil {
			return err
		}
		if o.max, err = n.Reduce(v, OpMax, 0); err != nil {
			return err
		}
		results[n.Rank()] = o
		return nil
	}

	g.Go(func() error {
		n, err := Serve(ln, size)
		if err != nil {
			return err
		}
		return run(n)
	})
	for rank := 1; rank < size; rank++ {
		g.Go(func() error {
			n, err := Join(ln.Addr().String(), rank, size, 5*time.Second)
			if err != nil {
				return err
			}
			return run(n)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, outcome{min: 1, sum: 6, max: 3}, results[0])
	assert.Equal(t, outcome{}, results[1])
	assert.Equal(t, outcome{}, results[2])
}

func TestNetwork_ClosedGroup(t *testing.T) {
	n := &Network{rank: 0, size: 1, peers: make([]net.Conn, 1)}
	require.NoError(t, n.Barrier())
	require.NoError(t, n.Close())
	assert.True(t, errors.Is(n.Barrier(), ErrGroupClosed))
}

func TestJoin_InvalidRank(t *testing.T) {
	_, err := Join("127.0.0.1:1", 0, 2, time.Millisecond)
	assert.True(t, errors.Is(err, ErrInvalidRank))
}
