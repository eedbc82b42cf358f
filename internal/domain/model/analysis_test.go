package model

import (
	"testing"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"inputs": {
		"photometry": "mjd,mag,magerr,filter,limiting_mag\n59000.1,18.5,0.1,ztfg,20.5\n",
		"object_id": "ZTF21abc",
		"analysis_parameters": {"source": "Me2017", "nlive": "64", "fix_z": "t", "error_budget": 0.5}
	},
	"callback_url": "http://cb.example/analysis/42",
	"callback_method": "POST"
}`

func TestParseAnalysisRequest_Valid(t *testing.T) {
	defaults := DefaultAnalysisParameters()

	req, err := ParseAnalysisRequest([]byte(validBody), DefaultCatalog(), defaults)
	require.NoError(t, err)

	assert.Equal(t, "ZTF21abc", req.ObjectID)
	assert.Equal(t, "Me2017", req.Model())
	assert.True(t, req.Photometry.IsCSV())
	assert.Contains(t, req.Photometry.CSV, "59000.1")
	assert.Equal(t, 64, req.Parameters.Nlive)
	assert.True(t, req.Parameters.FixZ)
	assert.Equal(t, "0.5", req.Parameters.ErrorBudget)
	assert.Equal(t, CallbackTarget{URL: "http://cb.example/analysis/42", Method: "POST"}, req.Callback)
	assert.False(t, req.Redshift.Present())

	// Defaults are untouched by per-job overrides.
	assert.Equal(t, DefaultAnalysisParameters(), defaults)
}

func TestParseAnalysisRequest_ParametersDefaultToInputs(t *testing.T) {
	body := `{"inputs": {"photometry": "jd,mag\n2459000.5,18\n", "object_id": "X", "source": "Bu2019lm", "tmax": 10},
		"callback_url": "http://cb", "callback_method": "POST"}`

	req, err := ParseAnalysisRequest([]byte(body), nil, DefaultAnalysisParameters())
	require.NoError(t, err)
	assert.Equal(t, "Bu2019lm", req.Model())
	assert.InDelta(t, 10.0, req.Parameters.Tmax, 1e-12)
}

func TestParseAnalysisRequest_Records(t *testing.T) {
	body := `{"inputs": {"photometry": [{"mjd": 59000.1, "mag": 18.5, "filter": 1}], "object_id": "X",
		"analysis_parameters": {"source": "Me2017"}}, "callback_url": "http://cb", "callback_method": "POST"}`

	req, err := ParseAnalysisRequest([]byte(body), nil, DefaultAnalysisParameters())
	require.NoError(t, err)
	require.False(t, req.Photometry.IsCSV())
	require.Len(t, req.Photometry.Records, 1)
	assert.Equal(t, "59000.1", req.Photometry.Records[0]["mjd"].(interface{ String() string }).String())
}

func TestParseAnalysisRequest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		field   string
	}{
		{
			name:    "malformed json",
			body:    `{"inputs": `,
			message: "Invalid JSON",
		},
		{
			name:    "not an object",
			body:    `[1, 2]`,
			message: "Invalid JSON",
		},
		{
			name:    "missing callback_url",
			body:    `{"inputs": {"photometry": "jd,mag\n", "object_id": "X", "source": "Me2017"}, "callback_method": "POST"}`,
			message: "missing required key callback_url",
			field:   "callback_url",
		},
		{
			name:    "missing inputs",
			body:    `{"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "missing required key inputs",
			field:   "inputs",
		},
		{
			name: "missing source",
			body: `{"inputs": {"photometry": "jd,mag\n", "object_id": "X", "analysis_parameters": {}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "model not specified in inputs.analysis_parameters",
			field:   "source",
		},
		{
			name: "unknown model",
			body: `{"inputs": {"photometry": "jd,mag\n", "object_id": "X", "analysis_parameters": {"source": "Kasen"}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "model Kasen is not allowed, must be one of: [Bu2019lm, Me2017, Piro2021, nugent-hyper, TrPi2018, Bu2022Ye]",
			field:   "source",
		},
		{
			name: "missing photometry",
			body: `{"inputs": {"object_id": "X", "analysis_parameters": {"source": "Me2017"}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "missing required key photometry",
			field:   "photometry",
		},
		{
			name: "missing object id",
			body: `{"inputs": {"photometry": "jd,mag\n", "analysis_parameters": {"source": "Me2017"}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "missing required key object_id",
			field:   "object_id",
		},
		{
			name: "bad parameter type",
			body: `{"inputs": {"photometry": "jd,mag\n", "object_id": "X", "analysis_parameters": {"source": "Me2017", "tmin": "soon"}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			field: "tmin",
		},
		{
			name: "inverted window",
			body: `{"inputs": {"photometry": "jd,mag\n", "object_id": "X", "analysis_parameters": {"source": "Me2017", "tmin": 5, "tmax": 1}},
				"callback_url": "http://cb", "callback_method": "POST"}`,
			message: "tmax must be greater than tmin",
			field:   "tmax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseAnalysisRequest([]byte(tt.body), DefaultCatalog(), DefaultAnalysisParameters())
			require.Error(t, err)
			assert.Nil(t, req)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
			if tt.field != "" {
				assert.Equal(t, tt.field, apperrors.GetField(err))
			}
		})
	}
}

func TestFlexBool(t *testing.T) {
	tests := map[string]bool{
		`true`:    true,
		`false`:   false,
		`"True"`:  true,
		`"true"`:  true,
		`"t"`:     true,
		`"false"`: false,
		`"yes"`:   false,
		`1`:       true,
		`0`:       false,
	}
	for raw, want := range tests {
		got, err := FlexBool([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := FlexBool([]byte(`{}`))
	assert.Error(t, err)
}

func TestErrorBudgets(t *testing.T) {
	p := DefaultAnalysisParameters()
	p.ErrorBudget = "1.0, 0.5"

	got, err := p.ErrorBudgets()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 0.5}, got)

	p.ErrorBudget = "1.0,x"
	_, err = p.ErrorBudgets()
	assert.Error(t, err)
}

func TestRedshiftInput_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "number", raw: `0.05`, want: 0.05},
		{name: "numeric string", raw: `"0.1"`, want: 0.1},
		{name: "csv", raw: `"id,redshift\nZTF,0.027\n"`, want: 0.027},
		{name: "csv without column", raw: `"id,z\nZTF,0.027\n"`, wantErr: true},
		{name: "negative", raw: `-1`, wantErr: true},
		{name: "object", raw: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := NewRedshiftInput([]byte(tt.raw)).Resolve()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, z, 1e-12)
		})
	}

	_, err := RedshiftInput{}.Resolve()
	assert.ErrorIs(t, err, ErrNoRedshift)
}
