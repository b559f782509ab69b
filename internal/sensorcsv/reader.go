// Package sensorcsv reads (time, value) series out of sensor CSV files
// according to a structure.CSVStructure.
package sensorcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/sensorset/internal/signal"
	"github.com/banshee-data/sensorset/internal/structure"
)

// ErrMalformed marks a CSV that cannot be turned into a numeric series.
var ErrMalformed = errors.New("malformed sensor csv")

// ParseError locates the first offending record.
type ParseError struct {
	Line   int // 1-based line in the source, counting skipped rows
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d column %d: %s", e.Line, e.Column, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Read parses r with s and returns the selected columns as a RawSeries.
//
// The first s.SkipRows lines are discarded. If the first remaining row does
// not parse as numbers in the time or values column it is treated as a header
// and dropped. Blank lines are ignored. Any later row that does not parse is
// an error.
func Read(r io.Reader, s structure.CSVStructure) (signal.RawSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var series signal.RawSeries
	need := max(s.TimeColumn, s.ValuesColumn) + 1
	skipped := 0
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return signal.RawSeries{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		line, _ := cr.FieldPos(0)
		if skipped < s.SkipRows {
			skipped++
			continue
		}
		if blank(rec) {
			continue
		}

		if len(rec) < need {
			if first {
				first = false
				continue
			}
			return signal.RawSeries{}, &ParseError{Line: line, Column: need - 1, Reason: fmt.Sprintf("row has %d fields", len(rec))}
		}
		t, terr := parseCell(rec[s.TimeColumn])
		v, verr := parseCell(rec[s.ValuesColumn])
		if terr != nil || verr != nil {
			if first {
				first = false
				continue
			}
			col := s.TimeColumn
			if terr == nil {
				col = s.ValuesColumn
			}
			return signal.RawSeries{}, &ParseError{Line: line, Column: col, Reason: "not a number"}
		}
		first = false
		series.Time = append(series.Time, t)
		series.Value = append(series.Value, v)
	}
	return series, nil
}

// ReadBytes is Read over an in-memory file.
func ReadBytes(b []byte, s structure.CSVStructure) (signal.RawSeries, error) {
	return Read(strings.NewReader(string(b)), s)
}

func parseCell(cell string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
