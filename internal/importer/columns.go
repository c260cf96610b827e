package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"biodivscope-backend-go/internal/schema"
)

// renames reconciles source-column synonyms after normalization.
var renames = map[string]string{
	"endangered": "threat_status",
	"species":    "species_name",
	"lat":        "latitude",
	"lon":        "longitude",
	"lng":        "longitude",
	"location":   "locality",
}

// Frame is a loaded dataset before projection onto a table.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Batch is a frame projected onto a table's columns with typed values.
type Batch struct {
	Table   string
	Columns []string
	Rows    [][]any
}

type ConversionError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("row %d column %s: cannot convert %v: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	name = strings.ReplaceAll(name, " ", "_")
	if renamed, ok := renames[name]; ok {
		return renamed
	}
	return name
}

func NormalizeColumns(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeColumn(h)
	}
	return out
}

// Project keeps the table's importable columns that also appear in the
// frame, in table order. When two source columns normalize to the same
// name the first one wins.
func Project(frame Frame, table schema.Table) (Batch, error) {
	normalized := NormalizeColumns(frame.Columns)
	position := map[string]int{}
	for i, name := range normalized {
		if _, seen := position[name]; !seen {
			position[name] = i
		}
	}

	type picked struct {
		col schema.Column
		src int
	}
	cols := []picked{}
	for _, col := range table.ImportColumns() {
		if idx, ok := position[col.Name]; ok {
			cols = append(cols, picked{col: col, src: idx})
		}
	}

	batch := Batch{Table: table.Name, Columns: make([]string, len(cols))}
	for i, p := range cols {
		batch.Columns[i] = p.col.Name
	}
	if len(cols) == 0 {
		return batch, nil
	}

	batch.Rows = make([][]any, 0, len(frame.Rows))
	for r, row := range frame.Rows {
		out := make([]any, len(cols))
		for i, p := range cols {
			var raw any
			if p.src < len(row) {
				raw = row[p.src]
			}
			value, err := convert(raw, p.col.Kind)
			if err != nil {
				return Batch{}, &ConversionError{Row: r + 1, Column: p.col.Name, Value: raw, Err: err}
			}
			out[i] = value
		}
		batch.Rows = append(batch.Rows, out)
	}
	return batch, nil
}

func convert(raw any, kind schema.Kind) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return convertString(v, kind)
	case float64:
		return convertFloat(v, kind)
	case float32:
		return convertFloat(float64(v), kind)
	case int:
		return convertFloat(float64(v), kind)
	case int64:
		if kind == schema.KindInteger {
			return v, nil
		}
		return convertFloat(float64(v), kind)
	default:
		return convertString(fmt.Sprint(v), kind)
	}
}

func convertString(v string, kind schema.Kind) (any, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	switch kind {
	case schema.KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case schema.KindInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return convertFloat(f, kind)
	default:
		return v, nil
	}
}

func convertFloat(f float64, kind schema.Kind) (any, error) {
	switch kind {
	case schema.KindFloat:
		return f, nil
	case schema.KindInteger:
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not a whole number", f)
		}
		return int64(f), nil
	default:
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
}
