// Package nmmafit runs NMMA light-curve fits through the external
// lightcurve-analysis tool and turns its output files into a FitOutcome.
package nmmafit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/observability/metrics"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
)

// DefaultFitCommand is the NMMA entry point for light-curve inference.
const DefaultFitCommand = "lightcurve-analysis"

// Output name suffixes written by the fitting tool under --outdir.
const (
	posteriorSuffix = "_posterior_samples.dat"
	summarySuffix   = "_result.json"
)

// Config wires the adapter. Command lines are split with shell quoting.
// WorkDir holds the per-fit scratch directories; empty means os.TempDir.
type Config struct {
	FitCommand        string
	EvaluateCommand   string
	PlotCommand       string
	PriorDirectory    string
	SVDModelDirectory string
	WorkDir           string
	SummaryExpression string
	Catalog           *model.Catalog
	Logger            *slog.Logger
	Metrics           statsd.Sink
}

// Fitter implements core.Fitter over the external tool.
type Fitter struct {
	fit       Command
	evaluate  Command
	plot      Command
	priorDir  string
	svdDir    string
	workDir   string
	summary   *SummaryExtractor
	catalog   *model.Catalog
	logger    *slog.Logger
	metrics   statsd.Sink
	clockFunc func() time.Time
}

// NewFitter validates cfg and builds a Fitter.
func NewFitter(cfg Config) (*Fitter, error) {
	fitLine := cfg.FitCommand
	if fitLine == "" {
		fitLine = DefaultFitCommand
	}
	fitCmd, err := ParseCommand(fitLine)
	if err != nil {
		return nil, fmt.Errorf("fit command: %w", err)
	}
	evalCmd, err := ParseCommand(cfg.EvaluateCommand)
	if err != nil {
		return nil, fmt.Errorf("evaluate command: %w", err)
	}
	plotCmd, err := ParseCommand(cfg.PlotCommand)
	if err != nil {
		return nil, fmt.Errorf("plot command: %w", err)
	}
	summary, err := NewSummaryExtractor(cfg.SummaryExpression)
	if err != nil {
		return nil, err
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fitter{
		fit:       fitCmd,
		evaluate:  evalCmd,
		plot:      plotCmd,
		priorDir:  cfg.PriorDirectory,
		svdDir:    cfg.SVDModelDirectory,
		workDir:   cfg.WorkDir,
		summary:   summary,
		catalog:   catalog,
		logger:    logger.With("component", "nmmafit"),
		metrics:   cfg.Metrics,
		clockFunc: time.Now,
	}, nil
}

// Fit runs one fit inside a scratch directory that is removed before Fit
// returns. Every failure is reported through the outcome.
func (f *Fitter) Fit(ctx context.Context, req model.FitRequest) model.FitOutcome {
	start := f.clockFunc()
	logger := f.logger.With("object_id", req.ObjectID, "model", req.Model)

	dir, err := os.MkdirTemp(f.workDir, "nmma-"+runLabel(req)+"-")
	if err != nil {
		logger.ErrorContext(ctx, "create fit directory", "error", err)
		return model.FitFailed(fmt.Sprintf("could not create work directory: %v", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.WarnContext(ctx, "remove fit directory", "dir", dir, "error", rmErr)
		}
	}()

	outcome, err := f.fitIn(ctx, logger, dir, req)
	if err != nil {
		logger.WarnContext(ctx, "fit failed", "error", err)
		outcome = model.FitFailed(err.Error())
	}
	metrics.EmitFit(f.metrics, req.Model, outcome.Success, f.clockFunc().Sub(start))
	return outcome
}

func (f *Fitter) fitIn(ctx context.Context, logger *slog.Logger, dir string, req model.FitRequest) (model.FitOutcome, error) {
	params := req.Parameters
	grid := f.catalog.EffectiveGrid(req.Model, params)
	trigger := TriggerTime(req.Observations, params)
	label := runLabel(req)

	var distance *float64
	if req.Redshift != nil {
		d := LuminosityDistance(*req.Redshift)
		distance = &d
	}
	priorPath, err := PreparePrior(f.priorDir, req.Model, dir, distance)
	if err != nil {
		return model.FitOutcome{}, err
	}

	dataPath := filepath.Join(dir, req.Model+"_data.dat")
	if err := WriteDataFile(dataPath, req.Observations); err != nil {
		return model.FitOutcome{}, err
	}

	args := []string{
		"--model", req.Model,
		"--svd-path", f.svdDir,
		"--outdir", dir,
		"--label", label,
		"--trigger-time", formatArg(trigger),
		"--data", dataPath,
		"--prior", priorPath,
		"--tmin", formatArg(grid.Tmin),
		"--tmax", formatArg(grid.Tmax),
		"--dt", formatArg(grid.Dt),
		"--error-budget", params.ErrorBudget,
		"--nlive", strconv.Itoa(params.Nlive),
		"--Ebv-max", formatArg(params.EbvMax),
		"--interpolation-type", params.InterpolationType,
		"--sampler", params.Sampler,
	}
	if params.LocalOnly {
		args = append(args, "--local-only")
	}

	logger.InfoContext(ctx, "starting fit", "trigger_time", trigger, "tmin", grid.Tmin, "tmax", grid.Tmax, "dt", grid.Dt)
	res, runErr := f.fit.run(ctx, logger, runOptions{Dir: dir}, args...)

	posterior, err := os.ReadFile(filepath.Join(dir, label+posteriorSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		if runErr != nil {
			return model.FitOutcome{}, runErr
		}
		return model.FitOutcome{}, &ExitError{Program: f.fit[0], Err: errors.New("no posterior samples produced"), Tail: res.Tail}
	}
	if err != nil {
		return model.FitOutcome{}, fmt.Errorf("read posterior: %w", err)
	}
	if runErr != nil {
		return model.FitOutcome{}, runErr
	}

	summaryBytes, err := os.ReadFile(filepath.Join(dir, label+summarySuffix))
	if err != nil {
		return model.FitOutcome{}, fmt.Errorf("read result summary: %w", err)
	}
	summary, statistic, err := f.summary.Extract(summaryBytes)
	if err != nil {
		return model.FitOutcome{}, err
	}

	table, err := ParsePosterior(posterior)
	if err != nil {
		return model.FitOutcome{}, err
	}
	bestParams, err := table.BestSample()
	if err != nil {
		return model.FitOutcome{}, err
	}

	set, err := prepareFilters(req.Observations, params)
	if err != nil {
		return model.FitOutcome{}, err
	}
	best := &model.BestFit{Parameters: bestParams}
	if f.evaluate.Configured() {
		best.SampleTimes = f.catalog.SampleTimes(req.Model, grid)
		best.Magnitudes, err = evaluateBestFit(ctx, logger, f.evaluate, evaluateRequest{
			Model:             req.Model,
			SVDPath:           f.svdDir,
			InterpolationType: params.InterpolationType,
			LocalOnly:         params.LocalOnly,
			SampleTimes:       best.SampleTimes,
			Filters:           set.Filters,
			Parameters:        bestParams,
		})
		if err != nil {
			return model.FitOutcome{}, err
		}
	}

	var plot []byte
	if f.plot.Configured() {
		plot, err = renderPlot(ctx, logger, f.plot, dir, plotInput{
			Label:        label,
			TriggerTime:  trigger,
			Observations: set.Observations,
			Filters:      set.Filters,
			ErrorBudgets: set.ErrorBudgets,
			BestFit:      best,
		})
		if err != nil {
			return model.FitOutcome{}, err
		}
	}

	logger.InfoContext(ctx, "fit finished", "statistic", statistic, "filters", set.Filters)
	return model.FitOutcome{
		Success:   true,
		Message:   fmt.Sprintf("%s model has been used successfully to fit %s.", req.Model, req.ObjectID),
		Posterior: posterior,
		Plot:      plot,
		Summary:   summary,
		Statistic: statistic,
		BestFit:   best,
	}, nil
}

func formatArg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeName strips characters that do not belong in a file name.
func safeName(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "_")
}

// runLabel names the tool's outputs. It never contains a path separator, so
// every output stays inside the fit directory.
func runLabel(req model.FitRequest) string {
	return safeName(req.ObjectID) + "_" + safeName(req.Model)
}
