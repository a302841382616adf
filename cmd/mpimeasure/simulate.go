package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"mpimeasure/pkg/comm"
	"mpimeasure/pkg/concurrency"
	"mpimeasure/pkg/config"
	"mpimeasure/pkg/context"
	"mpimeasure/pkg/log"
	"mpimeasure/pkg/measure"
)

func newSimulateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the measured workload on in-process ranks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Prepare(); err != nil {
				return err
			}
			ranks, err := comm.NewLocal(cfg.Ranks)
			if err != nil {
				return err
			}
			return runWorkload(cfg, func(w *workload) error {
				return concurrency.ForEachRank(ranks, w.run)
			})
		},
	}
	cmd.Flags().IntVar(&cfg.Ranks, "ranks", cfg.Ranks, "Number of in-process ranks.")
	cfg.BindFlags(cmd.Flags())
	return cmd
}

func newRankCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Run the measured workload as one rank of a TCP group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Prepare(); err != nil {
				return err
			}
			group, err := comm.Dial(comm.NetworkConfig{
				Rank:        cfg.Network.Rank,
				Size:        cfg.Network.Size,
				Addr:        cfg.Network.Addr,
				DialTimeout: cfg.Network.DialTimeout,
			})
			if err != nil {
				return err
			}
			log.SetRank(group.Rank())

			err = runWorkload(cfg, func(w *workload) error {
				return w.run(comm.Current(group))
			})
			return errors.Join(err, group.Close())
		},
	}
	cfg.BindFlags(cmd.Flags())
	cfg.BindNetworkFlags(cmd.Flags())
	return cmd
}

// runWorkload sets up the optional metrics endpoint around one run of the
// workload on some group.
func runWorkload(cfg *config.Config, run func(*workload) error) (err error) {
	mode, err := cfg.MeasureMode()
	if err != nil {
		return err
	}

	w := &workload{cfg: cfg, mode: mode}
	if cfg.MetricsAddr != "" {
		srv, serr := startMetrics(cfg.MetricsAddr, mode.Kind())
		if serr != nil {
			return serr
		}
		defer func() { err = errors.Join(err, srv.stop()) }()
		w.observer = srv.observer
	}

	log.Info("Starting workload: mode %s, %d iterations over %v", mode, cfg.Iterations, cfg.Schema)
	start := time.Now()
	if err := run(w); err != nil {
		return err
	}
	log.Info("Workload finished in %s, logs under %s", durafmt.Parse(time.Since(start)).LimitFirstN(2), cfg.OutputDir)
	return nil
}

// workload is the synthetic computation measured by simulate and rank. Every
// iteration does the rank's share of work once per schema column.
type workload struct {
	cfg      *config.Config
	mode     measure.Mode
	observer measure.Observer
}

func (w *workload) run(info comm.Info) (err error) {
	info, err = info.WithRoot(w.cfg.Root)
	if err != nil {
		return err
	}

	var opts []measure.Option
	if w.observer != nil && info.IsRoot() {
		opts = append(opts, measure.WithObserver(w.observer))
	}
	in, err := measure.Setup(w.mode, info, w.cfg.LogBase(), w.cfg.Func, w.cfg.Schema, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, in.Close()) }()

	opCtx := context.NewContext(w.cfg, info, in)
	for it := 0; it < w.cfg.Iterations; it++ {
		for _, column := range w.cfg.Schema {
			if err := measure.Measure(opCtx.Instrument, column, func() error {
				time.Sleep(opCtx.Work())
				return nil
			}); err != nil {
				return fmt.Errorf("iteration %d, column %s: %w", it, column, err)
			}
		}
		if err := measure.EOL(opCtx.Instrument); err != nil {
			return err
		}
	}
	log.Debug("Rank %s finished %d iterations", info, w.cfg.Iterations)
	return nil
}
