package model

// FitRequest bundles the inputs of a single fit.
type FitRequest struct {
	Observations []Observation
	Model        string
	ObjectID     string
	Parameters   AnalysisParameters
	// Redshift is set only when the luminosity distance should be pinned.
	Redshift *float64
}

// BestFit is the light curve reconstructed at the maximum likelihood sample.
type BestFit struct {
	Parameters  map[string]float64   `json:"bestfit_params"`
	SampleTimes []float64            `json:"sample_times,omitempty"`
	Magnitudes  map[string][]float64 `json:"bestfit_lightcurve_mag,omitempty"`
}

// FitOutcome is what the fit boundary reports back. It never carries an error
// value; failures are Success=false with a Message.
type FitOutcome struct {
	Success bool
	Message string
	// Posterior is the raw posterior sample table.
	Posterior []byte
	// Plot is an optional PNG of the best fit against the data.
	Plot []byte
	// Summary is the decoded JSON result summary.
	Summary map[string]any
	// Statistic is the headline value extracted from Summary.
	Statistic any
	BestFit   *BestFit
}

// FitFailed builds an unsuccessful outcome.
func FitFailed(message string) FitOutcome {
	return FitOutcome{Success: false, Message: message}
}

// FitResultDocument is the JSON "results" artifact delivered on success.
type FitResultDocument struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Source      string               `json:"source"`
	ObjectID    string               `json:"object_id"`
	Parameters  map[string]float64   `json:"bestfit_params,omitempty"`
	SampleTimes []float64            `json:"sample_times,omitempty"`
	Magnitudes  map[string][]float64 `json:"bestfit_lightcurve_mag,omitempty"`
	JSONResult  map[string]any       `json:"json_result,omitempty"`
}
