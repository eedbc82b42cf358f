package photometry

import (
	"errors"
	"fmt"
	"strings"
)

// Reasons a table cannot be normalized. Match them with errors.Is.
var (
	ErrEmptyTable          = errors.New("photometry table has no rows")
	ErrMissingTimeColumn   = errors.New("time column (mjd or jd) not found in the input data")
	ErrAmbiguousTimeColumn = errors.New("photometry has both mjd and jd columns")
	ErrMissingMagColumn    = errors.New("magnitude column (mag) not found in the input data")
	ErrDuplicateColumn     = errors.New("duplicate column")
	ErrInvalidValue        = errors.New("unparseable numeric value")
	ErrMissingTime         = errors.New("missing time value")
	ErrNonFiniteTime       = errors.New("time value is not finite")
	ErrMalformedTable      = errors.New("malformed photometry table")
	// ErrNoDetections means every row is a non-detection.
	ErrNoDetections = errors.New("need at least one detection to do fitting")
)

// NormalizationError carries a human-readable diagnostic for a table that
// could not be converted. Row is 1-based over data rows; zero when the problem
// is structural.
type NormalizationError struct {
	Reason error
	Row    int
	Column string
	Value  string
}

func (e *NormalizationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason.Error())
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q", e.Column)
		if e.Row > 0 {
			fmt.Fprintf(&b, ", row %d", e.Row)
		}
		if e.Value != "" {
			fmt.Fprintf(&b, ", value %q", e.Value)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap exposes the reason for errors.Is.
func (e *NormalizationError) Unwrap() error {
	return e.Reason
}

func structural(reason error) error {
	return &NormalizationError{Reason: reason}
}

func cellError(reason error, row int, column, value string) error {
	return &NormalizationError{Reason: reason, Row: row, Column: column, Value: value}
}
