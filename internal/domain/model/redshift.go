package model

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoRedshift is returned when a redshift is required but none was supplied.
var ErrNoRedshift = errors.New("no redshift provided but fix_z requested")

// RedshiftInput holds the caller's redshift as received. It is resolved only
// when a fit pins the luminosity distance, so a malformed value only fails that job.
type RedshiftInput struct {
	raw json.RawMessage
}

// NewRedshiftInput wraps a raw JSON value.
func NewRedshiftInput(raw json.RawMessage) RedshiftInput {
	return RedshiftInput{raw: cloneRaw(raw)}
}

// Present reports whether any redshift value was supplied.
func (r RedshiftInput) Present() bool {
	return len(r.raw) > 0
}

// Resolve returns the redshift. Accepted forms are a JSON number, a numeric
// string, or CSV text with a "redshift" column (first row is used).
func (r RedshiftInput) Resolve() (float64, error) {
	if !r.Present() {
		return 0, ErrNoRedshift
	}
	if firstByte(r.raw) != '"' {
		var z float64
		if err := json.Unmarshal(r.raw, &z); err != nil {
			return 0, fmt.Errorf("redshift must be a number or CSV text: %w", err)
		}
		return checkRedshift(z)
	}

	var text string
	if err := json.Unmarshal(r.raw, &text); err != nil {
		return 0, fmt.Errorf("decode redshift: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrNoRedshift
	}
	if z, err := strconv.ParseFloat(text, 64); err == nil {
		return checkRedshift(z)
	}
	return redshiftFromCSV(text)
}

func redshiftFromCSV(text string) (float64, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read redshift header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "redshift" {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, errors.New("redshift CSV has no redshift column")
	}

	row, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, ErrNoRedshift
	}
	if err != nil {
		return 0, fmt.Errorf("read redshift row: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("redshift %q is not a number", row[col])
	}
	return checkRedshift(z)
}

func checkRedshift(z float64) (float64, error) {
	if z < 0 || z != z {
		return 0, fmt.Errorf("redshift %v is out of range", z)
	}
	return z, nil
}
