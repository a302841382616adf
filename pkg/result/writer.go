package result

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mpimeasure/pkg/analysis"
	"mpimeasure/pkg/log"
)

// Writer is responsible for creating and writing result files.
type Writer struct {
	resultsPath string
	tag         string
	now         func() time.Time
}

// NewWriter creates a new writer for result files. The tag names the run,
// typically the measurement mode of the analyzed logs.
func NewWriter(resultsPath, tag string) *Writer {
	return &Writer{
		resultsPath: resultsPath,
		tag:         tag,
		now:         time.Now,
	}
}

// WriteAllResults is the main entry point that generates and writes all result
// files. It returns the paths of the RAW and STATS files.
func (w *Writer) WriteAllResults(res analysis.Result) (string, string, error) {
	// Create the results directory if it doesn't exist.
	if err := os.MkdirAll(w.resultsPath, 0755); err != nil {
		return "", "", fmt.Errorf("could not create results directory %s: %w", w.resultsPath, err)
	}

	stamp := w.now()
	rawPath := w.generateFilename("RAW", stamp)
	if err := writeRawResults(rawPath, res); err != nil {
		return "", "", fmt.Errorf("failed to write raw results: %w", err)
	}
	statsPath := w.generateFilename("STATS", stamp)
	if err := writeStatResults(statsPath, res); err != nil {
		return "", "", fmt.Errorf("failed to write statistical results: %w", err)
	}
	return rawPath, statsPath, nil
}

// generateFilename creates a standardized filename for a result file.
// Example: STATS_Mruntime-stats_L4_T2025-01-02-15-04-05.csv
func (w *Writer) generateFilename(fileType string, stamp time.Time) string {
	base := fmt.Sprintf("%s_M%s_T%s.csv",
		fileType,
		w.tag,
		stamp.Format("2006-01-02-15-04-05"),
	)
	return filepath.Join(w.resultsPath, base)
}

// writeRawResults saves every sample of every column, one row per component.
func writeRawResults(filePath string, res analysis.Result) error {
	return writeCSV(filePath, []string{"Log", "Column", "Component", "Value_s"}, func(csvWriter *csv.Writer) error {
		for _, l := range res.Logs {
			for _, column := range l.Columns {
				for _, t := range l.Samples[column] {
					rows := [][]string{
						{l.Path, column, "Min", formatFloat(t.Min)},
						{l.Path, column, "Avg", formatFloat(t.Avg)},
						{l.Path, column, "Max", formatFloat(t.Max)},
					}
					if !l.Triples {
						rows = rows[1:2]
					}
					if err := csvWriter.WriteAll(rows); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// writeStatResults saves the summary statistics of each column.
func writeStatResults(filePath string, res analysis.Result) error {
	header := []string{"Column", "Component", "Count", "Mean_s", "Median_s", "Min_s", "Max_s", "P95_s"}
	return writeCSV(filePath, header, func(csvWriter *csv.Writer) error {
		for _, col := range res.Columns {
			if err := writeStatsRow(csvWriter, col.Column, "Min", col.Min); err != nil {
				return err
			}
			if err := writeStatsRow(csvWriter, col.Column, "Avg", col.Avg); err != nil {
				return err
			}
			if err := writeStatsRow(csvWriter, col.Column, "Max", col.Max); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeStatsRow writes one summary as a CSV row. Empty summaries are skipped.
func writeStatsRow(writer *csv.Writer, column, component string, s analysis.StatSummary) error {
	if s.Count == 0 {
		return nil
	}

	row := []string{
		column,
		component,
		strconv.Itoa(s.Count),
		formatFloat(s.Mean),
		formatFloat(s.P50),
		formatFloat(s.Min),
		formatFloat(s.Max),
		formatFloat(s.P95),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write stats row for %s (%s): %w", column, component, err)
	}
	return nil
}

func writeCSV(filePath string, header []string, body func(*csv.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("could not create results file %s: %w", filePath, err)
	}
	defer file.Close()

	csvWriter := csv.NewWriter(file)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header to %s: %w", filePath, err)
	}
	if err := body(csvWriter); err != nil {
		return fmt.Errorf("failed to write row to %s: %w", filePath, err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filePath, err)
	}
	log.Info("Results written to %s", filePath)
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
