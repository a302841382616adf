// Package analysis reads measurement logs back and summarizes every column
// over all rows of all logs.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"mpimeasure/pkg/measure"
)

// StatSummary holds summary statistics for one series of values, in seconds.
type StatSummary struct {
	Count int
	Mean  float64
	P50   float64 // Median
	P95   float64
	Min   float64
	Max   float64
}

// ColumnResult summarizes the min, avg and max component of a column. For
// logs of raw values the three components are identical.
type ColumnResult struct {
	Column string
	Min    StatSummary
	Avg    StatSummary
	Max    StatSummary
}

// Result is the final output of the analyzer.
type Result struct {
	Columns []ColumnResult
	Logs    []*Log // For reference only in writing the raw output to file.
}

// Analyzer merges parsed logs and produces a final analysis.
type Analyzer struct {
	logs []*Log
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Add collects a parsed log, typically one per rank.
func (a *Analyzer) Add(l *Log) {
	a.logs = append(a.logs, l)
}

// Analyze summarizes every column seen in any log, in order of first appearance.
func (a *Analyzer) Analyze() Result {
	var order []string
	samples := make(map[string][]measure.StatTriple)
	for _, l := range a.logs {
		for _, c := range l.Columns {
			if _, ok := samples[c]; !ok {
				order = append(order, c)
				samples[c] = nil
			}
			samples[c] = append(samples[c], l.Samples[c]...)
		}
	}

	res := Result{Logs: a.logs}
	for _, c := range order {
		triples := samples[c]
		mins := make([]float64, len(triples))
		avgs := make([]float64, len(triples))
		maxs := make([]float64, len(triples))
		for i, t := range triples {
			mins[i], avgs[i], maxs[i] = t.Min, t.Avg, t.Max
		}
		res.Columns = append(res.Columns, ColumnResult{
			Column: c,
			Min:    calculateStats(mins),
			Avg:    calculateStats(avgs),
			Max:    calculateStats(maxs),
		})
	}
	return res
}

// calculateStats computes summary stats from a series of values.
func calculateStats(values []float64) StatSummary {
	if len(values) == 0 {
		return StatSummary{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return StatSummary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}
}
