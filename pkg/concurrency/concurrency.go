// Package concurrency runs every rank of an in-process group side by side.
package concurrency

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"mpimeasure/pkg/comm"
)

// ForEachRank runs workerFunc once per rank, each on its own goroutine, and
// waits for all of them. Ranks meet in collectives, so no worker limit is
// applied: every rank must be able to run at the same time. A rank that fails
// while others wait in a collective leaves them blocked.
func ForEachRank[G comm.Group](ranks []G, workerFunc func(info comm.Info) error) error {
	if len(ranks) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, rank := range ranks {
		g.Go(func() error {
			if err := workerFunc(comm.Current(rank)); err != nil {
				return fmt.Errorf("rank %d: %w", rank.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Map runs workerFunc once per rank like ForEachRank and returns the results
// indexed by rank.
func Map[G comm.Group, U any](ranks []G, workerFunc func(info comm.Info) (U, error)) ([]U, error) {
	if len(ranks) == 0 {
		return nil, fmt.Errorf("no ranks to map")
	}

	results := make([]U, len(ranks))
	err := ForEachRank(ranks, func(info comm.Info) error {
		res, err := workerFunc(info)
		if err != nil {
			return err
		}
		results[info.Rank] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
