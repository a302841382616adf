package analysis

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mpimeasure/pkg/measure"
)

// unnamedColumn collects values written without a column name.
const unnamedColumn = "value"

// Log holds the samples read back from one measurement log.
type Log struct {
	Path    string
	Columns []string // schema of the log, or columns in order of appearance
	Triples bool     // whether values were written as group triples
	Rows    int
	Samples map[string][]measure.StatTriple
}

func newLog(path string) *Log {
	return &Log{Path: path, Samples: make(map[string][]measure.StatTriple)}
}

func (l *Log) add(column string, t measure.StatTriple) {
	if !l.hasColumn(column) {
		l.Columns = append(l.Columns, column)
	}
	l.Samples[column] = append(l.Samples[column], t)
}

func (l *Log) hasColumn(column string) bool {
	for _, c := range l.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ParseFile reads the measurement log at path.
func ParseFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open measurement log %s: %w", path, err)
	}
	defer f.Close()

	l, err := parse(path, f)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return l, nil
}

// Parse reads a measurement log from r. The totals block written on close is
// skipped; its content is derived from the rows.
func Parse(r io.Reader) (*Log, error) {
	return parse("", r)
}

func parse(path string, r io.Reader) (*Log, error) {
	l := newLog(path)
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing header line")
	}
	l.Columns = strings.Fields(scanner.Text())
	schema := append([]string(nil), l.Columns...)

	for lineNo := 2; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			break
		}
		if err := l.parseRow(schema, tokenize(line)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		l.Rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// tokenize splits a row so that parentheses and "name:" labels are
// separate tokens.
func tokenize(line string) []string {
	line = strings.NewReplacer("(", " ( ", ")", " ) ", ":", ": ").Replace(line)
	return strings.Fields(line)
}

// value is one entry of a row: a scalar, a triple, or a placeholder.
type value struct {
	triple  measure.StatTriple
	missing bool
}

func (l *Log) parseRow(schema []string, tokens []string) error {
	cursor := 0
	label := ""
	for i := 0; i < len(tokens); {
		if strings.HasSuffix(tokens[i], ":") {
			label = strings.TrimSuffix(tokens[i], ":")
			i++
			continue
		}

		v, next, err := l.parseValue(tokens, i)
		if err != nil {
			return err
		}
		i = next

		column := label
		label = ""
		if len(schema) > 0 {
			if cursor >= len(schema) {
				return fmt.Errorf("more values than the %d schema columns", len(schema))
			}
			column = schema[cursor]
			cursor++
		} else if column == "" {
			column = unnamedColumn
		}
		if !v.missing {
			l.add(column, v.triple)
		}
	}
	return nil
}

func (l *Log) parseValue(tokens []string, i int) (value, int, error) {
	if tokens[i] != "(" {
		f, missing, err := parseFloat(tokens[i])
		return value{triple: measure.StatTriple{Min: f, Avg: f, Max: f}, missing: missing}, i + 1, err
	}

	l.Triples = true
	if i+4 >= len(tokens) || tokens[i+4] != ")" {
		return value{}, 0, fmt.Errorf("unterminated triple at token %d", i)
	}
	var fields [3]float64
	missing := false
	for k := range fields {
		f, na, err := parseFloat(tokens[i+1+k])
		if err != nil {
			return value{}, 0, err
		}
		fields[k] = f
		missing = missing || na
	}
	return value{triple: measure.StatTriple{Min: fields[0], Avg: fields[1], Max: fields[2]}, missing: missing}, i + 5, nil
}

func parseFloat(tok string) (float64, bool, error) {
	if tok == "NA" {
		return 0, true, nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid value '%s': %w", tok, err)
	}
	return f, false, nil
}
