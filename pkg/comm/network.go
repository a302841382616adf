package comm

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"mpimeasure/pkg/log"
)

// hubRank is the rank that accepts the connections of a Network group and
// evaluates every collective round.
const hubRank = 0

const (
	statusOK uint8 = iota
	statusMismatch
)

// request is sent by every non-hub rank to the hub for each collective.
type request struct {
	Seq   uint64
	Kind  uint8
	Value float64
}

// reply releases a rank from a collective.
type reply struct {
	Seq    uint64
	Status uint8
	Value  float64
}

// NetworkConfig describes how a process joins a Network group.
type NetworkConfig struct {
	Rank int
	Size int
	// Addr is the address the hub (rank 0) listens on and the other ranks dial.
	Addr string
	// DialTimeout bounds how long a rank keeps retrying to reach the hub.
	DialTimeout time.Duration
}

// Network is a group of processes connected to rank 0 in a star. Rank 0
// collects one request per peer for every collective and answers all of them
// once the round is complete.
type Network struct {
	rank  int
	size  int
	peers []net.Conn // on the hub, indexed by rank; elsewhere peers[hubRank] is the hub
	seq   uint64

	closeOnce sync.Once
	closed    bool
}

// Dial joins the group described by cfg. On rank 0 it listens on cfg.Addr
// and blocks until every other rank connected.
func Dial(cfg NetworkConfig) (*Network, error) {
	if cfg.Size < 1 || cfg.Rank < 0 || cfg.Rank >= cfg.Size {
		return nil, xerrors.Errorf("rank %d of group of size %d: %w", cfg.Rank, cfg.Size, ErrInvalidRank)
	}
	if cfg.Rank != hubRank {
		return Join(cfg.Addr, cfg.Rank, cfg.Size, cfg.DialTimeout)
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, xerrors.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	defer ln.Close()
	return Serve(ln, cfg.Size)
}

// Serve accepts size-1 peers on ln and returns the hub handle of the group.
// The listener is not closed.
func Serve(ln net.Listener, size int) (*Network, error) {
	n := &Network{rank: hubRank, size: size, peers: make([]net.Conn, size)}
	for joined := 1; joined < size; joined++ {
		conn, err := ln.Accept()
		if err != nil {
			n.Close()
			return nil, xerrors.Errorf("accept peer: %w", err)
		}
		var rank uint32
		if err := binary.Read(conn, binary.BigEndian, &rank); err != nil {
			conn.Close()
			n.Close()
			return nil, xerrors.Errorf("read peer handshake: %w", err)
		}
		if int(rank) <= hubRank || int(rank) >= size || n.peers[rank] != nil {
			conn.Close()
			n.Close()
			return nil, xerrors.Errorf("peer announced rank %d: %w", rank, ErrInvalidRank)
		}
		n.peers[rank] = conn
		log.Debug("rank %d joined from %s (%d/%d)", rank, conn.RemoteAddr(), joined+1, size)
	}
	return n, nil
}

// Join connects a non-hub rank to the hub at addr, retrying until timeout.
func Join(addr string, rank, size int, timeout time.Duration) (*Network, error) {
	if rank <= hubRank || rank >= size {
		return nil, xerrors.Errorf("join as rank %d of %d: %w", rank, size, ErrInvalidRank)
	}
	deadline := time.Now().Add(timeout)
	var conn net.Conn
	var err error
	for {
		conn, err = net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, xerrors.Errorf("dial hub %s: %w", addr, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err := binary.Write(conn, binary.BigEndian, uint32(rank)); err != nil {
		conn.Close()
		return nil, xerrors.Errorf("send handshake: %w", err)
	}
	peers := make([]net.Conn, size)
	peers[hubRank] = conn
	return &Network{rank: rank, size: size, peers: peers}, nil
}

func (n *Network) Rank() int { return n.rank }
func (n *Network) Size() int { return n.size }

func (n *Network) Reduce(value float64, op Op, root int) (float64, error) {
	if root < 0 || root >= n.size {
		return 0, xerrors.Errorf("reduce to root %d: %w", root, ErrInvalidRank)
	}
	result, err := n.collective(uint8(op), value)
	if err != nil || n.rank != root {
		return 0, err
	}
	return result, nil
}

func (n *Network) Barrier() error {
	_, err := n.collective(kindBarrier, 0)
	return err
}

func (n *Network) collective(kind uint8, value float64) (float64, error) {
	if n.closed {
		return 0, ErrGroupClosed
	}
	seq := n.seq
	n.seq++
	if n.rank == hubRank {
		return n.serveRound(seq, kind, value)
	}

	hub := n.peers[hubRank]
	if err := binary.Write(hub, binary.BigEndian, request{Seq: seq, Kind: kind, Value: value}); err != nil {
		return 0, xerrors.Errorf("round %d: send to hub: %w", seq, err)
	}
	var rep reply
	if err := binary.Read(hub, binary.BigEndian, &rep); err != nil {
		return 0, xerrors.Errorf("round %d: read from hub: %w", seq, err)
	}
	if rep.Seq != seq {
		return 0, xerrors.Errorf("round %d: hub answered round %d: %w", seq, rep.Seq, ErrCollectiveMismatch)
	}
	if rep.Status == statusMismatch {
		return 0, xerrors.Errorf("round %d: %w", seq, ErrCollectiveMismatch)
	}
	return rep.Value, nil
}

// serveRound gathers one request per peer, evaluates the round and releases
// every peer.
func (n *Network) serveRound(seq uint64, kind uint8, value float64) (float64, error) {
	values := make([]float64, n.size)
	values[hubRank] = value
	status := statusOK
	for rank := 1; rank < n.size; rank++ {
		var req request
		if err := binary.Read(n.peers[rank], binary.BigEndian, &req); err != nil {
			if xerrors.Is(err, io.EOF) {
				err = xerrors.Errorf("rank %d left the group: %w", rank, err)
			}
			return 0, xerrors.Errorf("round %d: %w", seq, err)
		}
		if req.Seq != seq || req.Kind != kind {
			status = statusMismatch
		}
		values[rank] = req.Value
	}

	var result float64
	if status == statusOK && kind != kindBarrier {
		var err error
		if result, err = reduce(Op(kind), values); err != nil {
			return 0, err
		}
	}
	for rank := 1; rank < n.size; rank++ {
		if err := binary.Write(n.peers[rank], binary.BigEndian, reply{Seq: seq, Status: status, Value: result}); err != nil {
			return 0, xerrors.Errorf("round %d: release rank %d: %w", seq, rank, err)
		}
	}
	if status == statusMismatch {
		return 0, xerrors.Errorf("round %d: %w", seq, ErrCollectiveMismatch)
	}
	return result, nil
}

// Close releases every connection of the group.
func (n *Network) Close() error {
	var firstErr error
	n.closeOnce.Do(func() {
		n.closed = true
		for _, conn := range n.peers {
			if conn == nil {
				continue
			}
			if err := conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
