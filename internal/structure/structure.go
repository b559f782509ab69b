// Package structure works out how to read a sensor CSV: how many leading rows
// to skip, which columns hold time and values, and what the values are called.
//
// Detection is advisory. A remote detector may be slow, unavailable or wrong,
// so every result passes through Sanitize and the Resolver always falls back
// to a local heuristic.
package structure

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxPreviewRows is the number of data rows a detector is meant to see.
	MaxPreviewRows = 10
	// SampleLines is how many raw lines ReadSample collects for detection.
	SampleLines = MaxPreviewRows + 10

	// MaxIndex caps skip_rows and both column indices.
	MaxIndex = 100
	// MaxLabelLength caps values_label, counted in runes.
	MaxLabelLength = 100

	DefaultValuesLabel = "Value"
)

// CSVStructure describes the layout of one family of sensor CSV files.
type CSVStructure struct {
	SkipRows     int    `json:"skip_rows"`
	TimeColumn   int    `json:"time_column"`
	ValuesColumn int    `json:"values_column"`
	ValuesLabel  string `json:"values_label"`
}

// Default is the structure used when nothing better is known.
func Default() CSVStructure {
	return CSVStructure{SkipRows: 0, TimeColumn: 0, ValuesColumn: 1, ValuesLabel: DefaultValuesLabel}
}

// Clamp returns s with every field forced into its valid range: indices in
// [0, MaxIndex], distinct time and values columns, and a non-blank label of
// at most MaxLabelLength runes. A values column that collides with the time
// column moves one to the right, or one to the left at MaxIndex.
func (s CSVStructure) Clamp() CSVStructure {
	out := CSVStructure{
		SkipRows:     clampIndex(s.SkipRows),
		TimeColumn:   clampIndex(s.TimeColumn),
		ValuesColumn: clampIndex(s.ValuesColumn),
		ValuesLabel:  cleanLabel(s.ValuesLabel),
	}
	out.ValuesColumn = distinctColumn(out.TimeColumn, out.ValuesColumn)
	return out
}

// Sanitize converts a loosely typed structure, typically decoded from a model
// response, into a valid CSVStructure. Missing or unparsable fields take their
// defaults; it never fails.
func Sanitize(raw map[string]any) CSVStructure {
	var out CSVStructure

	if v, ok := toInt(raw["skip_rows"], 0); ok {
		out.SkipRows = clampIndex(v)
	}
	if v, ok := toInt(raw["time_column"], 0); ok {
		out.TimeColumn = clampIndex(v)
	}
	if v, ok := toInt(raw["values_column"], 1); ok {
		out.ValuesColumn = distinctColumn(out.TimeColumn, clampIndex(v))
	} else if out.TimeColumn != 1 {
		out.ValuesColumn = 1
	}

	label, _ := raw["values_label"].(string)
	out.ValuesLabel = cleanLabel(label)
	return out
}

func clampIndex(v int) int {
	return max(0, min(v, MaxIndex))
}

// distinctColumn moves values off the time column, staying in [0, MaxIndex].
func distinctColumn(time, values int) int {
	if values != time {
		return values
	}
	if time < MaxIndex {
		return time + 1
	}
	return time - 1
}

func cleanLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return DefaultValuesLabel
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return string([]rune(label)[:MaxLabelLength])
	}
	return label
}

// toInt accepts the shapes a JSON decoder or a sloppy model produces. A nil
// value yields def.
func toInt(v any, def int) (int, bool) {
	switch x := v.(type) {
	case nil:
		return def, true
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(math.Max(math.Min(x, math.MaxInt32), math.MinInt32)), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f, def)
	default:
		return 0, false
	}
}
