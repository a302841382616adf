package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mpimeasure/pkg/regions"
)

func newRegionsCmd() *cobra.Command {
	var (
		gap       float64
		atoms     int
		atomSeed  int
		incSeed   bool
		random    bool
		cutSeed   uint64
		noCreates bool
	)

	cmd := &cobra.Command{
		Use:   "regions GRID PX PY PZ LX LY LZ [CUTS...]",
		Short: "Print LAMMPS region and create_atoms commands for a decomposed box",
		Long: "GRID is tensor or staggered. CUTS are interior cut positions in ]0,1[ in the\n" +
			"order z, y, x, as separate or comma separated arguments. Without CUTS the\n" +
			"box is split evenly, or randomly with --random.",
		Args: cobra.MinimumNArgs(7),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := regions.ParseGridStyle(args[0])
			if err != nil {
				return err
			}
			ints, err := parseInts(args[1:7])
			if err != nil {
				return err
			}
			procs := regions.Dims{X: ints[0], Y: ints[1], Z: ints[2]}
			lens := regions.Dims{X: ints[3], Y: ints[4], Z: ints[5]}

			var cuts []float64
			switch {
			case len(args) > 7:
				cuts, err = parseFloats(args[7:])
			case random:
				cuts, err = regions.NewCutter(seedOrNow(cmd, "cut-seed", cutSeed)).GridCuts(grid, procs)
			default:
				cuts = regions.UniformCuts(grid, procs)
			}
			if err != nil {
				return err
			}

			sys, err := regions.NewSystem(grid, procs, lens, gap, cuts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := sys.WriteRegions(out); err != nil {
				return err
			}
			if noCreates {
				return nil
			}
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
			return sys.WriteCreateAtoms(out, atoms, atomSeed, incSeed)
		},
	}
	cmd.Flags().Float64Var(&gap, "gap", 0, "Gap left between neighbouring regions.")
	cmd.Flags().IntVar(&atoms, "atoms", 1000, "Atoms created per region.")
	cmd.Flags().IntVar(&atomSeed, "atom-seed", 873984, "Seed of the first create_atoms command.")
	cmd.Flags().BoolVar(&incSeed, "inc-seed", true, "Use the next seed for every region.")
	cmd.Flags().BoolVar(&random, "random", false, "Draw random cuts when none are given.")
	cmd.Flags().Uint64Var(&cutSeed, "cut-seed", 0, "Seed for --random; defaults to the current time.")
	cmd.Flags().BoolVar(&noCreates, "no-create", false, "Print only the region commands.")
	return cmd
}

func newCutsCmd() *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "cuts PX PY PZ",
		Short: "Print random cut positions for a processor grid",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ints, err := parseInts(args)
			if err != nil {
				return err
			}
			cutter := regions.NewCutter(seedOrNow(cmd, "seed", seed))
			return cutter.WriteCuts(cmd.OutOrStdout(), regions.Dims{X: ints[0], Y: ints[1], Z: ints[2]})
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed; defaults to the current time.")
	return cmd
}

// seedOrNow returns the value of the named flag if it was set, otherwise a
// time based seed.
func seedOrNow(cmd *cobra.Command, flag string, seed uint64) uint64 {
	if cmd.Flags().Changed(flag) {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid integer '%s': %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(args []string) ([]float64, error) {
	var out []float64
	for _, f := range strings.FieldsFunc(strings.Join(args, ","), func(r rune) bool { return r == ',' }) {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cut '%s': %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
