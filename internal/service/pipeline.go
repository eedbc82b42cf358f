package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/domain/photometry"
)

// Result messages delivered to callers.
const (
	msgProblemRunning = "Problem running the model: "
	msgFitFailed      = "Model fitting failed."
	msgNoRedshift     = "No redshift provided but `fix_z` requested."
	msgFitted         = "Model %s successfully fitted to %s with $\\log(bayes-factor)$ = %v"
)

// AnalysisPipelineOptions groups dependencies for AnalysisPipeline.
type AnalysisPipelineOptions struct {
	Fitter    core.Fitter        // Required: fit boundary
	Normalize photometry.Options // Optional: normalization settings, zero value uses defaults
	Logger    *slog.Logger       // Optional: structured logger
}

// AnalysisPipeline turns one accepted request into its final AnalysisResult:
// normalize the photometry, fit the model, package the artifacts.
type AnalysisPipeline struct {
	fitter    core.Fitter
	normalize photometry.Options
	logger    *slog.Logger
}

// NewAnalysisPipeline constructs an AnalysisPipeline.
func NewAnalysisPipeline(opts AnalysisPipelineOptions) (*AnalysisPipeline, error) {
	if opts.Fitter == nil {
		return nil, errors.New("Fitter is required")
	}
	normalize := opts.Normalize
	if !normalize.MJDPolicy.Valid() {
		normalize = photometry.DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisPipeline{
		fitter:    opts.Fitter,
		normalize: normalize,
		logger:    logger.With("component", "analysis_pipeline"),
	}, nil
}

// Run executes the pipeline. It always returns a terminal result: success or
// failure, never pending.
func (p *AnalysisPipeline) Run(ctx context.Context, req *model.AnalysisRequest) model.AnalysisResult {
	logger := p.logger.With("object_id", req.ObjectID, "model", req.Model())

	fitReq, err := p.prepare(req)
	if errors.Is(err, model.ErrNoRedshift) {
		logger.WarnContext(ctx, "fix_z requested without a redshift")
		return model.NewFailureResult(msgFitFailed + " " + msgNoRedshift)
	}
	if err != nil {
		logger.WarnContext(ctx, "analysis input rejected", "error", err)
		return model.NewFailureResult(msgProblemRunning + err.Error())
	}

	outcome := p.fitter.Fit(ctx, fitReq)
	if !outcome.Success {
		logger.WarnContext(ctx, "fit failed", "detail", outcome.Message)
		msg := msgFitFailed
		if outcome.Message != "" {
			msg += " " + outcome.Message
		}
		return model.NewFailureResult(msg)
	}

	result, err := packageResult(req, outcome)
	if err != nil {
		logger.ErrorContext(ctx, "package fit result", "error", err)
		return model.NewFailureResult(msgProblemRunning + err.Error())
	}
	return result
}

func (p *AnalysisPipeline) prepare(req *model.AnalysisRequest) (model.FitRequest, error) {
	table, err := photometry.ParseInput(req.Photometry)
	if err != nil {
		return model.FitRequest{}, err
	}
	obs, err := photometry.Normalize(table, p.normalize)
	if err != nil {
		return model.FitRequest{}, err
	}

	fitReq := model.FitRequest{
		Observations: obs,
		Model:        req.Model(),
		ObjectID:     req.ObjectID,
		Parameters:   req.Parameters,
	}
	if req.Parameters.FixZ {
		z, err := req.Redshift.Resolve()
		if err != nil {
			return model.FitRequest{}, err
		}
		fitReq.Redshift = &z
	}
	return fitReq, nil
}

func packageResult(req *model.AnalysisRequest, outcome model.FitOutcome) (model.AnalysisResult, error) {
	doc := model.FitResultDocument{
		Success:    true,
		Message:    outcome.Message,
		Source:     req.Model(),
		ObjectID:   req.ObjectID,
		JSONResult: outcome.Summary,
	}
	if outcome.BestFit != nil {
		doc.Parameters = outcome.BestFit.Parameters
		doc.SampleTimes = outcome.BestFit.SampleTimes
		doc.Magnitudes = outcome.BestFit.Magnitudes
	}
	results, err := json.Marshal(doc)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("encode fit result: %w", err)
	}

	inference := model.NewArtifact(model.FormatASCII, outcome.Posterior)
	artifact := model.NewArtifact(model.FormatJSON, results)
	analysis := model.AnalysisArtifacts{InferenceData: &inference, Results: &artifact}
	if len(outcome.Plot) > 0 {
		analysis.Plots = []model.Artifact{model.NewArtifact(model.FormatPNG, outcome.Plot)}
	}

	return model.AnalysisResult{
		Status:   model.ResultSuccess,
		Message:  fmt.Sprintf(msgFitted, req.Model(), req.ObjectID, statistic(outcome.Statistic)),
		Analysis: analysis,
	}, nil
}

func statistic(v any) any {
	if v == nil {
		return "unavailable"
	}
	return v
}
