package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"mpimeasure/pkg/analysis"
	"mpimeasure/pkg/log"
	"mpimeasure/pkg/result"
)

func newReportCmd() *cobra.Command {
	var dir, resultsPath, tag string

	cmd := &cobra.Command{
		Use:   "report [LOG...]",
		Short: "Summarize measurement logs per column",
		RunE: func(cmd *cobra.Command, paths []string) error {
			if dir != "" {
				matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
				if err != nil {
					return err
				}
				paths = append(paths, matches...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no measurement logs given")
			}

			analyzer := analysis.NewAnalyzer()
			for _, p := range paths {
				l, err := analysis.ParseFile(p)
				if err != nil {
					return err
				}
				log.Debug("Parsed %s: %d rows, columns %v", p, l.Rows, l.Columns)
				analyzer.Add(l)
			}
			res := analyzer.Analyze()

			if err := printSummary(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if resultsPath == "" {
				return nil
			}
			_, _, err := result.NewWriter(resultsPath, tag).WriteAllResults(res)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Read every *.log file in this directory.")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Write RAW and STATS csv files to this directory.")
	cmd.Flags().StringVar(&tag, "tag", "report", "Tag used in result file names.")
	return cmd
}

// printSummary renders one table row per column and statistic component.
func printSummary(w io.Writer, res analysis.Result) error {
	t := tablewriter.NewTable(w)
	t.Header([]string{"Column", "Component", "Count", "Mean", "P50", "P95", "Min", "Max"})

	for _, col := range res.Columns {
		for _, c := range []struct {
			name string
			s    analysis.StatSummary
		}{{"min", col.Min}, {"avg", col.Avg}, {"max", col.Max}} {
			if c.s.Count == 0 {
				continue
			}
			row := []string{
				col.Column, c.name, strconv.Itoa(c.s.Count),
				seconds(c.s.Mean), seconds(c.s.P50), seconds(c.s.P95),
				seconds(c.s.Min), seconds(c.s.Max),
			}
			if err := t.Append(row); err != nil {
				return err
			}
		}
	}
	return t.Render()
}

func seconds(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
