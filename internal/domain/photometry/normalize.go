package photometry

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
)

// Canonical column names.
const (
	ColMJD       = "mjd"
	ColJD        = "jd"
	ColMag       = "mag"
	ColMagUnc    = "mag_unc"
	ColFilter    = "filter"
	ColLimMag    = "limmag"
	ColProgramID = "programid"
)

// NonDetectionMag is the magnitude callers use to flag a non-detection.
const NonDetectionMag = 99.0

var columnSynonyms = map[string]string{
	"magerr":          ColMagUnc,
	"limiting_mag":    ColLimMag,
	"instrument_name": ColProgramID,
}

// MJDPolicy selects how a column named mjd is interpreted.
type MJDPolicy string

const (
	// MJDAlways converts an mjd column to JD unconditionally.
	MJDAlways MJDPolicy = "always"
	// MJDThreshold leaves an mjd column alone when any value already exceeds
	// MJDOffset, the same test applied to jd columns.
	MJDThreshold MJDPolicy = "threshold"
)

// Valid reports whether p is a known policy.
func (p MJDPolicy) Valid() bool {
	return p == MJDAlways || p == MJDThreshold
}

// Options tunes normalization.
type Options struct {
	MJDPolicy MJDPolicy
}

// DefaultOptions returns the stock normalization settings.
func DefaultOptions() Options {
	return Options{MJDPolicy: MJDAlways}
}

type columnLayout struct {
	time      int
	timeName  string
	mag       int
	magUnc    int
	filter    int
	limMag    int
	programID int
	extra     map[int]string
}

// Normalize converts a raw table into canonical observations sorted by JD.
// The error, when non-nil, is always a *NormalizationError; a table whose rows
// are all non-detections fails with ErrNoDetections.
func Normalize(t *Table, opts Options) ([]model.Observation, error) {
	if t.Len() == 0 {
		return nil, structural(ErrEmptyTable)
	}
	if !opts.MJDPolicy.Valid() {
		opts.MJDPolicy = MJDAlways
	}

	layout, err := resolveColumns(t.Columns)
	if err != nil {
		return nil, err
	}

	times, err := parseTimes(t, layout, opts)
	if err != nil {
		return nil, err
	}

	out := make([]model.Observation, 0, len(t.Rows))
	for i, row := range t.Rows {
		obs, err := buildObservation(row, i+1, layout)
		if err != nil {
			return nil, err
		}
		obs.JD = times[i]
		out = append(out, obs)
	}

	slices.SortStableFunc(out, func(a, b model.Observation) int {
		switch {
		case a.JD < b.JD:
			return -1
		case a.JD > b.JD:
			return 1
		default:
			return 0
		}
	})

	if !model.HasDetection(out) {
		return nil, structural(ErrNoDetections)
	}
	return out, nil
}

// DropNonDetections returns only the detections, preserving order.
func DropNonDetections(obs []model.Observation) []model.Observation {
	out := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if o.IsDetection() {
			out = append(out, o)
		}
	}
	return out
}

// Filters returns the distinct filters in first-seen order.
func Filters(obs []model.Observation) []string {
	var out []string
	for _, o := range obs {
		if !slices.Contains(out, o.Filter) {
			out = append(out, o.Filter)
		}
	}
	return out
}

func resolveColumns(columns []string) (columnLayout, error) {
	layout := columnLayout{
		time: -1, mag: -1, magUnc: -1, filter: -1, limMag: -1, programID: -1,
		extra: map[int]string{},
	}
	seen := map[string]bool{}
	mjdIdx, jdIdx := -1, -1

	for i, raw := range columns {
		name := strings.TrimSpace(raw)
		if canonical, ok := columnSynonyms[name]; ok {
			name = canonical
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return layout, &NormalizationError{Reason: ErrDuplicateColumn, Column: name}
		}
		seen[name] = true

		switch name {
		case ColMJD:
			mjdIdx = i
		case ColJD:
			jdIdx = i
		case ColMag:
			layout.mag = i
		case ColMagUnc:
			layout.magUnc = i
		case ColFilter:
			layout.filter = i
		case ColLimMag:
			layout.limMag = i
		case ColProgramID:
			layout.programID = i
		default:
			layout.extra[i] = name
		}
	}

	switch {
	case mjdIdx >= 0 && jdIdx >= 0:
		return layout, structural(ErrAmbiguousTimeColumn)
	case mjdIdx >= 0:
		layout.time, layout.timeName = mjdIdx, ColMJD
	case jdIdx >= 0:
		layout.time, layout.timeName = jdIdx, ColJD
	default:
		return layout, structural(ErrMissingTimeColumn)
	}
	if layout.mag < 0 {
		return layout, structural(ErrMissingMagColumn)
	}
	return layout, nil
}

func parseTimes(t *Table, layout columnLayout, opts Options) ([]float64, error) {
	values := make([]float64, len(t.Rows))
	alreadyJD := false
	for i, row := range t.Rows {
		raw := strings.TrimSpace(cell(row, layout.time))
		if raw == "" {
			return nil, cellError(ErrMissingTime, i+1, layout.timeName, "")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, cellError(ErrInvalidValue, i+1, layout.timeName, raw)
		}
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, cellError(ErrNonFiniteTime, i+1, layout.timeName, raw)
		}
		if v > MJDOffset {
			alreadyJD = true
		}
		values[i] = v
	}

	convert := !alreadyJD
	if layout.timeName == ColMJD && opts.MJDPolicy == MJDAlways {
		convert = true
	}
	if convert {
		for i := range values {
			values[i] = MJDToJD(values[i])
		}
	}
	return values, nil
}

func buildObservation(row []string, rowNum int, layout columnLayout) (model.Observation, error) {
	var obs model.Observation
	var err error

	if obs.Mag, err = floatCell(row, rowNum, layout.mag, ColMag); err != nil {
		return obs, err
	}
	if obs.MagUnc, err = floatCell(row, rowNum, layout.magUnc, ColMagUnc); err != nil {
		return obs, err
	}
	if obs.LimMag, err = floatCell(row, rowNum, layout.limMag, ColLimMag); err != nil {
		return obs, err
	}
	obs.Filter = CanonicalFilter(cell(row, layout.filter))
	obs.ProgramID = strings.TrimSpace(cell(row, layout.programID))

	if obs.Mag == NonDetectionMag {
		obs.Mag = obs.LimMag
		obs.MagUnc = math.Inf(1)
	}

	if len(layout.extra) > 0 {
		obs.Extra = make(map[string]string, len(layout.extra))
		for idx, name := range layout.extra {
			obs.Extra[name] = cell(row, idx)
		}
	}
	return obs, nil
}

// floatCell parses a numeric cell; absent columns and empty cells read as 0.
func floatCell(row []string, rowNum, idx int, name string) (float64, error) {
	raw := strings.TrimSpace(cell(row, idx))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, cellError(ErrInvalidValue, rowNum, name, raw)
	}
	return v, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
