// Package photometry converts caller supplied photometry tables into the
// canonical, JD-sorted observation sequence consumed by the fitter.
package photometry

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
)

// Table is a raw record set: column names plus string cells in column order.
// Missing cells are empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ParseCSV reads a header row followed by data rows. Blank lines are skipped.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, structural(ErrEmptyTable)
	}
	if err != nil {
		return nil, &NormalizationError{Reason: fmt.Errorf("%w: %v", ErrMalformedTable, err)}
	}

	t := &Table{Columns: make([]string, len(header))}
	for i, name := range header {
		t.Columns[i] = strings.TrimSpace(name)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &NormalizationError{Reason: fmt.Errorf("%w: %v", ErrMalformedTable, err)}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// TableFromRecords builds a table from row objects. Columns are the union of
// keys in first-seen order with remaining keys sorted per row.
func TableFromRecords(records []map[string]any) (*Table, error) {
	t := &Table{}
	index := map[string]int{}
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				index[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}

	for i, rec := range records {
		row := make([]string, len(t.Columns))
		for k, v := range rec {
			cell, err := formatCell(v)
			if err != nil {
				return nil, cellError(ErrInvalidValue, i+1, k, fmt.Sprint(v))
			}
			row[index[k]] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// FromObservations renders canonical observations back into a table.
// Normalizing the result yields the same observations.
func FromObservations(obs []model.Observation) *Table {
	t := &Table{Columns: []string{ColJD, ColMag, ColMagUnc, ColFilter, ColLimMag, ColProgramID}}
	var extras []string
	seen := map[string]bool{}
	for _, o := range obs {
		for k := range o.Extra {
			if !seen[k] {
				seen[k] = true
				extras = append(extras, k)
			}
		}
	}
	slices.Sort(extras)
	t.Columns = append(t.Columns, extras...)

	for _, o := range obs {
		row := []string{
			model.FormatFloat(o.JD),
			model.FormatFloat(o.Mag),
			model.FormatFloat(o.MagUnc),
			o.Filter,
			model.FormatFloat(o.LimMag),
			o.ProgramID,
		}
		for _, k := range extras {
			row = append(row, o.Extra[k])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// ParseInput builds a table from either accepted photometry shape.
func ParseInput(in model.PhotometryInput) (*Table, error) {
	if in.IsCSV() {
		return ParseCSV(strings.NewReader(in.CSV))
	}
	return TableFromRecords(in.Records)
}

func formatCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("unsupported cell type %T", v)
	}
}
