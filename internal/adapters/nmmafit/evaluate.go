package nmmafit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
)

// ErrNoDetections mirrors the fitting tool's refusal to reconstruct a light
// curve without a single detection.
var ErrNoDetections = errors.New("Need at least one detection to do fitting.") //nolint:staticcheck // message is delivered verbatim

// evaluateRequest is written to the evaluator's stdin.
type evaluateRequest struct {
	Model             string             `json:"model"`
	SVDPath           string             `json:"svd_path"`
	InterpolationType string             `json:"interpolation_type"`
	LocalOnly         bool               `json:"local_only"`
	SampleTimes       []float64          `json:"sample_times"`
	Filters           []string           `json:"filters"`
	Parameters        map[string]float64 `json:"parameters"`
}

// evaluateResponse is read from the evaluator's stdout. Magnitudes are
// absolute, per filter, aligned with the sample times.
type evaluateResponse struct {
	Magnitudes map[string][]float64 `json:"magnitudes"`
}

// filterSet groups observations for the best-fit reconstruction.
type filterSet struct {
	Filters      []string
	ErrorBudgets map[string]float64
	Observations []model.Observation
}

// prepareFilters applies remove_nondetections, drops filters left without
// points and assigns error budgets to filters in order, cycling the list.
func prepareFilters(obs []model.Observation, params model.AnalysisParameters) (filterSet, error) {
	kept := obs
	if params.RemoveNondetections {
		kept = make([]model.Observation, 0, len(obs))
		for _, o := range obs {
			if o.IsDetection() {
				kept = append(kept, o)
			}
		}
	}
	if !model.HasDetection(kept) {
		return filterSet{}, ErrNoDetections
	}

	var filters []string
	seen := map[string]bool{}
	for _, o := range kept {
		if !seen[o.Filter] {
			seen[o.Filter] = true
			filters = append(filters, o.Filter)
		}
	}

	budgets, err := params.ErrorBudgets()
	if err != nil {
		return filterSet{}, err
	}
	assigned := make(map[string]float64, len(filters))
	for i, f := range filters {
		assigned[f] = budgets[i%len(budgets)]
	}
	return filterSet{Filters: filters, ErrorBudgets: assigned, Observations: kept}, nil
}

// evaluateBestFit runs the evaluator at the best posterior sample and shifts
// the result to apparent magnitudes when the sample carries a distance.
func evaluateBestFit(
	ctx context.Context,
	logger *slog.Logger,
	cmd Command,
	req evaluateRequest,
) (map[string][]float64, error) {
	stdin, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode evaluator request: %w", err)
	}
	res, err := cmd.run(ctx, logger, runOptions{Stdin: stdin, CaptureStdout: true})
	if err != nil {
		return nil, fmt.Errorf("evaluate best fit: %w", err)
	}

	var out evaluateResponse
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return nil, fmt.Errorf("decode evaluator output: %w", err)
	}

	modulus := DistanceModulus(req.Parameters[distanceKey])
	for filter, mags := range out.Magnitudes {
		shifted := make([]float64, len(mags))
		for i, m := range mags {
			shifted[i] = m + modulus
		}
		out.Magnitudes[filter] = shifted
	}
	return out.Magnitudes, nil
}

// plotInput is the document handed to the plot renderer.
type plotInput struct {
	Label        string              `json:"label"`
	TriggerTime  float64             `json:"trigger_time"`
	Observations []model.Observation `json:"observations"`
	Filters      []string            `json:"filters"`
	ErrorBudgets map[string]float64  `json:"error_budget"`
	BestFit      *model.BestFit      `json:"bestfit"`
}

// renderPlot runs the plot renderer and returns the PNG it wrote.
func renderPlot(ctx context.Context, logger *slog.Logger, cmd Command, dir string, in plotInput) ([]byte, error) {
	inputPath := filepath.Join(dir, in.Label+"_plot_input.json")
	outputPath := filepath.Join(dir, in.Label+"_lightcurves.png")

	doc, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode plot input: %w", err)
	}
	if err := os.WriteFile(inputPath, doc, 0o600); err != nil {
		return nil, fmt.Errorf("write plot input: %w", err)
	}
	if _, err := cmd.run(ctx, logger, runOptions{Dir: dir}, "--input", inputPath, "--output", outputPath); err != nil {
		return nil, fmt.Errorf("render plot: %w", err)
	}
	png, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read plot: %w", err)
	}
	return png, nil
}
