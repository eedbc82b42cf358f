package config

import (
	"strings"
	"time"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	"github.com/skyportal/nmma-analysis/internal/domain/photometry"
)

// WorkerConfig contains job orchestration configuration.
type WorkerConfig struct {
	// MaxConcurrency caps simultaneously running fits; 0 is unbounded.
	// Acceptance is never blocked by the cap.
	MaxConcurrency int `env:"WORKER_MAX_CONCURRENCY" envDefault:"0"`

	// DrainTimeout is how long shutdown waits for in-flight jobs.
	DrainTimeout time.Duration `env:"WORKER_DRAIN_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.MaxConcurrency < 0 {
		w.MaxConcurrency = 0
	}
	if w.DrainTimeout < 0 {
		w.DrainTimeout = 0
	}
}

// NormalizeConfig contains photometry normalization configuration.
type NormalizeConfig struct {
	// MJDPolicy is "always" or "threshold".
	MJDPolicy photometry.MJDPolicy `env:"NORMALIZE_MJD_POLICY" envDefault:"always"`
}

// Sanitize falls back to the default policy for unknown values.
func (n *NormalizeConfig) Sanitize() {
	n.MJDPolicy = photometry.MJDPolicy(strings.ToLower(strings.TrimSpace(string(n.MJDPolicy))))
	if !n.MJDPolicy.Valid() {
		n.MJDPolicy = photometry.MJDAlways
	}
}

// Options returns the normalizer options.
func (n NormalizeConfig) Options() photometry.Options {
	return photometry.Options{MJDPolicy: n.MJDPolicy}
}

// NMMAConfig configures the external fitting tool.
type NMMAConfig struct {
	FitCommand        string `env:"NMMA_FIT_COMMAND"        envDefault:"lightcurve-analysis"`
	EvaluateCommand   string `env:"NMMA_EVALUATE_COMMAND"`
	PlotCommand       string `env:"NMMA_PLOT_COMMAND"`
	PriorDirectory    string `env:"NMMA_PRIOR_DIRECTORY"    envDefault:"./priors"`
	SVDModelDirectory string `env:"NMMA_SVDMODEL_DIRECTORY" envDefault:"./svdmodels"`
	WorkDir           string `env:"NMMA_WORK_DIR"`
	ModelCatalog      string `env:"NMMA_MODEL_CATALOG"`
	SummaryExpression string `env:"NMMA_SUMMARY_EXPRESSION" envDefault:"log_bayes_factor"`
}

// Sanitize trims paths and restores defaults for blank required values.
func (n *NMMAConfig) Sanitize() {
	n.FitCommand = strings.TrimSpace(n.FitCommand)
	if n.FitCommand == "" {
		n.FitCommand = "lightcurve-analysis"
	}
	n.EvaluateCommand = strings.TrimSpace(n.EvaluateCommand)
	n.PlotCommand = strings.TrimSpace(n.PlotCommand)
	n.PriorDirectory = strings.TrimSpace(n.PriorDirectory)
	if n.PriorDirectory == "" {
		n.PriorDirectory = "./priors"
	}
	n.SVDModelDirectory = strings.TrimSpace(n.SVDModelDirectory)
	if n.SVDModelDirectory == "" {
		n.SVDModelDirectory = "./svdmodels"
	}
	n.WorkDir = strings.TrimSpace(n.WorkDir)
	n.ModelCatalog = strings.TrimSpace(n.ModelCatalog)
	n.SummaryExpression = strings.TrimSpace(n.SummaryExpression)
	if n.SummaryExpression == "" {
		n.SummaryExpression = "log_bayes_factor"
	}
}

// AnalysisDefaultsConfig holds the analysis parameters every submission
// starts from. Fields are read with the NMMA_DEFAULT_ prefix.
type AnalysisDefaultsConfig struct {
	FixZ                 bool    `env:"FIX_Z"                  envDefault:"false"`
	Tmin                 float64 `env:"TMIN"                   envDefault:"0.01"`
	Tmax                 float64 `env:"TMAX"                   envDefault:"7"`
	Dt                   float64 `env:"DT"                     envDefault:"0.1"`
	Nlive                int     `env:"NLIVE"                  envDefault:"36"`
	ErrorBudget          string  `env:"ERROR_BUDGET"           envDefault:"1.0"`
	EbvMax               float64 `env:"EBV_MAX"                envDefault:"0.5724"`
	InterpolationType    string  `env:"INTERPOLATION_TYPE"     envDefault:"sklearn_gp"`
	Sampler              string  `env:"SAMPLER"                envDefault:"pymultinest"`
	FitTriggerTime       bool    `env:"FIT_TRIGGER_TIME"       envDefault:"true"`
	TriggerTimeHeuristic bool    `env:"TRIGGER_TIME_HEURISTIC" envDefault:"false"`
	RemoveNondetections  bool    `env:"REMOVE_NONDETECTIONS"   envDefault:"false"`
	LocalOnly            bool    `env:"LOCAL_ONLY"             envDefault:"false"`
}

// Sanitize replaces an unusable set of defaults with the stock parameters.
func (d *AnalysisDefaultsConfig) Sanitize() {
	d.ErrorBudget = strings.TrimSpace(d.ErrorBudget)
	d.InterpolationType = strings.TrimSpace(d.InterpolationType)
	d.Sampler = strings.TrimSpace(d.Sampler)

	stock := model.DefaultAnalysisParameters()
	if d.InterpolationType == "" {
		d.InterpolationType = stock.InterpolationType
	}
	if d.Sampler == "" {
		d.Sampler = stock.Sampler
	}
	if err := d.Parameters().Validate(); err != nil {
		d.Tmin, d.Tmax, d.Dt = stock.Tmin, stock.Tmax, stock.Dt
		d.Nlive = stock.Nlive
		d.ErrorBudget = stock.ErrorBudget
	}
}

// Parameters returns the defaults as analysis parameters.
func (d AnalysisDefaultsConfig) Parameters() model.AnalysisParameters {
	return model.AnalysisParameters{
		FixZ:                 d.FixZ,
		Tmin:                 d.Tmin,
		Tmax:                 d.Tmax,
		Dt:                   d.Dt,
		Nlive:                d.Nlive,
		ErrorBudget:          d.ErrorBudget,
		EbvMax:               d.EbvMax,
		InterpolationType:    d.InterpolationType,
		Sampler:              d.Sampler,
		FitTriggerTime:       d.FitTriggerTime,
		TriggerTimeHeuristic: d.TriggerTimeHeuristic,
		RemoveNondetections:  d.RemoveNondetections,
		LocalOnly:            d.LocalOnly,
	}
}
