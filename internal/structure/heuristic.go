package structure

import (
	"context"
	"encoding/csv"
	"regexp"
	"strconv"
	"strings"
)

// heuristicRows is how many data rows below the header are inspected.
const heuristicRows = 20

var genericHeader = regexp.MustCompile(`(?i)^(unnamed.*|column[ _]?\d+|col\d+)$`)

// HeuristicDetector is the deterministic local detector. For skip in 0..2 it
// treats the first remaining line as a header and the following rows as data;
// the first two columns whose data cells all parse as numbers become time and
// values. When no skip works it returns Default().
type HeuristicDetector struct{}

// Detect implements Detector. It only fails when ctx is already done.
func (HeuristicDetector) Detect(ctx context.Context, sample []string) (CSVStructure, error) {
	if err := ctx.Err(); err != nil {
		return CSVStructure{}, &DetectionError{Detector: "heuristic", Err: err}
	}
	for skip := 0; skip <= 2; skip++ {
		if s, ok := detectWithSkip(sample, skip); ok {
			return s, nil
		}
	}
	return Default(), nil
}

func detectWithSkip(sample []string, skip int) (CSVStructure, bool) {
	if len(sample) <= skip {
		return CSVStructure{}, false
	}
	records, err := parseLines(sample[skip:])
	if err != nil || len(records) < 2 {
		return CSVStructure{}, false
	}
	header := records[0]
	rows := records[1:]
	if len(rows) > heuristicRows {
		rows = rows[:heuristicRows]
	}
	if len(header) < 2 {
		return CSVStructure{}, false
	}

	var numeric []int
	for col := range header {
		if columnIsNumeric(rows, col) {
			numeric = append(numeric, col)
			if len(numeric) == 2 {
				break
			}
		}
	}
	if len(numeric) < 2 {
		return CSVStructure{}, false
	}
	return CSVStructure{
		SkipRows:     skip,
		TimeColumn:   numeric[0],
		ValuesColumn: numeric[1],
		ValuesLabel:  headerLabel(header[numeric[1]]),
	}, true
}

func parseLines(lines []string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// columnIsNumeric reports whether every present cell of col parses as a
// float. Missing and empty cells count as NaN, as a dataframe would read
// them, but at least one real number is required.
func columnIsNumeric(rows [][]string, col int) bool {
	seen := false
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func headerLabel(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" || genericHeader.MatchString(cell) {
		return DefaultValuesLabel
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return DefaultValuesLabel
	}
	return cell
}
