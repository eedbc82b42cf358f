package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/domain/photometry"
	"github.com/skyportal/nmma-analysis/internal/mocks"
	"github.com/skyportal/nmma-analysis/internal/testutil"
)

func successfulOutcome() model.FitOutcome {
	return model.FitOutcome{
		Success:   true,
		Message:   "Me2017 model has been used successfully to fit ZTF21abcdefg.",
		Posterior: []byte("KNphi log_likelihood\n30 -1\n"),
		Plot:      []byte("PNG"),
		Summary:   map[string]any{"log_bayes_factor": 12.5},
		Statistic: 12.5,
		BestFit: &model.BestFit{
			Parameters:  map[string]float64{"KNphi": 30, "log_likelihood": -1},
			SampleTimes: []float64{0.01, 0.11},
			Magnitudes:  map[string][]float64{"ztfg": {21, 21.5}},
		},
	}
}

func newTestPipeline(t *testing.T, fitter *mocks.MockFitter) *AnalysisPipeline {
	t.Helper()
	p, err := NewAnalysisPipeline(AnalysisPipelineOptions{Fitter: fitter})
	require.NoError(t, err)
	return p
}

func TestAnalysisPipeline_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	fitter := mocks.NewMockFitter(ctrl)

	var got model.FitRequest
	fitter.EXPECT().Fit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.FitRequest) model.FitOutcome {
			got = req
			return successfulOutcome()
		})

	req := testutil.NewSubmission().Request(t)
	result := newTestPipeline(t, fitter).Run(context.Background(), req)

	require.Equal(t, model.ResultSuccess, result.Status, result.Message)
	assert.Equal(t, `Model Me2017 successfully fitted to ZTF21abcdefg with $\log(bayes-factor)$ = 12.5`, result.Message)

	assert.Equal(t, "Me2017", got.Model)
	assert.Equal(t, "ZTF21abcdefg", got.ObjectID)
	assert.Nil(t, got.Redshift)
	require.Len(t, got.Observations, 3)
	assert.InDelta(t, 2459000.5, got.Observations[0].JD, 1e-9)
	assert.False(t, got.Observations[0].IsDetection())
	assert.Equal(t, "r", got.Observations[2].Filter)

	require.NotNil(t, result.Analysis.InferenceData)
	assert.Equal(t, model.FormatASCII, result.Analysis.InferenceData.Format)
	posterior, err := result.Analysis.InferenceData.Decode()
	require.NoError(t, err)
	assert.Equal(t, successfulOutcome().Posterior, posterior)

	require.Len(t, result.Analysis.Plots, 1)
	assert.Equal(t, model.FormatPNG, result.Analysis.Plots[0].Format)

	require.NotNil(t, result.Analysis.Results)
	raw, err := result.Analysis.Results.Decode()
	require.NoError(t, err)
	var doc model.FitResultDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.True(t, doc.Success)
	assert.Equal(t, "Me2017", doc.Source)
	assert.Equal(t, "ZTF21abcdefg", doc.ObjectID)
	assert.InDelta(t, 30.0, doc.Parameters["KNphi"], 0)
	assert.Equal(t, []float64{21, 21.5}, doc.Magnitudes["ztfg"])
	assert.InDelta(t, 12.5, doc.JSONResult["log_bayes_factor"], 0)
}

func TestAnalysisPipeline_NoPlotRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	fitter := mocks.NewMockFitter(ctrl)
	outcome := successfulOutcome()
	outcome.Plot = nil
	outcome.Statistic = nil
	fitter.EXPECT().Fit(gomock.Any(), gomock.Any()).Return(outcome)

	result := newTestPipeline(t, fitter).Run(context.Background(), testutil.NewSubmission().Request(t))
	require.Equal(t, model.ResultSuccess, result.Status)
	assert.Empty(t, result.Analysis.Plots)
	assert.Contains(t, result.Message, "= unavailable")
}

func TestAnalysisPipeline_FitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	fitter := mocks.NewMockFitter(ctrl)
	fitter.EXPECT().Fit(gomock.Any(), gomock.Any()).Return(model.FitFailed("lightcurve-analysis: exit status 3"))

	result := newTestPipeline(t, fitter).Run(context.Background(), testutil.NewSubmission().Request(t))
	assert.Equal(t, model.ResultFailure, result.Status)
	assert.Equal(t, "Model fitting failed. lightcurve-analysis: exit status 3", result.Message)
	assert.Equal(t, model.AnalysisArtifacts{}, result.Analysis)
}

func TestAnalysisPipeline_NormalizationErrorSkipsFit(t *testing.T) {
	tests := []struct {
		name       string
		photometry any
		want       string
	}{
		{
			name:       "missing magnitude column",
			photometry: "mjd,filter\n59000,ztfg\n",
			want:       "Problem running the model: " + photometry.ErrMissingMagColumn.Error(),
		},
		{
			name:       "only non-detections",
			photometry: "mjd,mag,limiting_mag,filter\n59000,99,20,ztfg\n",
			want:       "Problem running the model: " + photometry.ErrNoDetections.Error(),
		},
		{
			name:       "bad number in records",
			photometry: []map[string]any{{"mjd": 59000, "mag": "bright", "filter": "ztfg"}},
			want:       "Problem running the model: unparseable numeric value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fitter := mocks.NewMockFitter(ctrl)

			req := testutil.NewSubmission().WithInput("photometry", tt.photometry).Request(t)
			result := newTestPipeline(t, fitter).Run(context.Background(), req)

			assert.Equal(t, model.ResultFailure, result.Status)
			assert.Contains(t, result.Message, tt.want)
		})
	}
}

func TestAnalysisPipeline_FixedRedshift(t *testing.T) {
	ctrl := gomock.NewController(t)
	fitter := mocks.NewMockFitter(ctrl)

	var got model.FitRequest
	fitter.EXPECT().Fit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.FitRequest) model.FitOutcome {
			got = req
			return successfulOutcome()
		})

	req := testutil.NewSubmission().
		WithParam("fix_z", "True").
		WithInput("redshift", "redshift\n0.042\n").
		Request(t)
	result := newTestPipeline(t, fitter).Run(context.Background(), req)

	require.Equal(t, model.ResultSuccess, result.Status)
	require.NotNil(t, got.Redshift)
	assert.InDelta(t, 0.042, *got.Redshift, 1e-12)
	assert.True(t, got.Parameters.FixZ)
}

func TestAnalysisPipeline_FixedRedshiftMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	fitter := mocks.NewMockFitter(ctrl)

	req := testutil.NewSubmission().WithParam("fix_z", true).Request(t)
	result := newTestPipeline(t, fitter).Run(context.Background(), req)

	assert.Equal(t, model.ResultFailure, result.Status)
	assert.Equal(t, "Model fitting failed. No redshift provided but `fix_z` requested.", result.Message)
}

func TestNewAnalysisPipeline_RequiresFitter(t *testing.T) {
	_, err := NewAnalysisPipeline(AnalysisPipelineOptions{})
	require.Error(t, err)
}
