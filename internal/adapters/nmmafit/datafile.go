package nmmafit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/domain/photometry"
)

// ErrInvalidFilter is returned for filter names the data file cannot carry.
var ErrInvalidFilter = errors.New("invalid filter name")

// WriteDataFile writes observations in the fitting tool's line format:
// "<isot> <filter> <mag> <mag_unc>", one observation per line. Filter names
// must be non-empty and free of whitespace.
func WriteDataFile(path string, obs []model.Observation) error {
	if err := checkFilterNames(obs); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, o := range obs {
		fmt.Fprintf(w, "%s %s %s %s\n",
			photometry.FormatISOT(o.JD), o.Filter, model.FormatFloat(o.Mag), model.FormatFloat(o.MagUnc))
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write data file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	return nil
}

func checkFilterNames(obs []model.Observation) error {
	for _, o := range obs {
		switch {
		case o.Filter == "":
			return fmt.Errorf("%w: observation at %s has no filter", ErrInvalidFilter, photometry.FormatISOT(o.JD))
		case strings.ContainsFunc(o.Filter, unicode.IsSpace):
			return fmt.Errorf("%w: %q contains whitespace", ErrInvalidFilter, o.Filter)
		}
	}
	return nil
}

// TriggerTime returns the MJD reference time of the fit: the first detection
// when fitting the trigger time, one day before it under the heuristic, and
// zero otherwise or when there is no detection.
func TriggerTime(obs []model.Observation, params model.AnalysisParameters) float64 {
	first, ok := model.FirstDetection(obs)
	switch {
	case !ok:
		return 0
	case params.FitTriggerTime:
		return photometry.JDToMJD(first.JD)
	case params.TriggerTimeHeuristic:
		return photometry.JDToMJD(first.JD) - 1
	default:
		return 0
	}
}
