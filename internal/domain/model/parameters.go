package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

// AnalysisParameters controls a single fit. Values are built once at startup as
// defaults and copied per job with caller overrides applied.
type AnalysisParameters struct {
	Source               string  `json:"source"`
	FixZ                 bool    `json:"fix_z"`
	Tmin                 float64 `json:"tmin"`
	Tmax                 float64 `json:"tmax"`
	Dt                   float64 `json:"dt"`
	Nlive                int     `json:"nlive"`
	ErrorBudget          string  `json:"error_budget"`
	EbvMax               float64 `json:"Ebv_max"`
	InterpolationType    string  `json:"interpolation_type"`
	Sampler              string  `json:"sampler"`
	FitTriggerTime       bool    `json:"fit_trigger_time"`
	TriggerTimeHeuristic bool    `json:"trigger_time_heuristic"`
	RemoveNondetections  bool    `json:"remove_nondetections"`
	LocalOnly            bool    `json:"local_only"`
}

// DefaultAnalysisParameters returns the stock fit settings.
func DefaultAnalysisParameters() AnalysisParameters {
	return AnalysisParameters{
		FixZ:                 false,
		Tmin:                 0.01,
		Tmax:                 7,
		Dt:                   0.1,
		Nlive:                36,
		ErrorBudget:          "1.0",
		EbvMax:               0.5724,
		InterpolationType:    "sklearn_gp",
		Sampler:              "pymultinest",
		FitTriggerTime:       true,
		TriggerTimeHeuristic: false,
		RemoveNondetections:  false,
		LocalOnly:            false,
	}
}

// Merge returns a copy of p with any recognised keys in overrides applied.
// Unknown keys are ignored, since parameters may share a map with other inputs.
func (p AnalysisParameters) Merge(overrides map[string]json.RawMessage) (AnalysisParameters, error) {
	out := p
	for key, raw := range overrides {
		if len(raw) == 0 || isNull(raw) {
			continue
		}
		if err := out.apply(key, raw); err != nil {
			return p, apperrors.ValidationField(key, fmt.Sprintf("invalid analysis parameter %s: %v", key, err))
		}
	}
	return out, nil
}

// Validate checks that the sampling window and sampler settings are usable.
func (p AnalysisParameters) Validate() error {
	switch {
	case p.Dt <= 0:
		return apperrors.ValidationField("dt", "dt must be positive")
	case p.Tmax <= p.Tmin:
		return apperrors.ValidationField("tmax", "tmax must be greater than tmin")
	case p.Nlive <= 0:
		return apperrors.ValidationField("nlive", "nlive must be positive")
	case strings.TrimSpace(p.ErrorBudget) == "":
		return apperrors.ValidationField("error_budget", "error_budget must not be empty")
	}
	if _, err := p.ErrorBudgets(); err != nil {
		return apperrors.ValidationField("error_budget", err.Error())
	}
	return nil
}

// ErrorBudgets parses the comma separated error budget list.
func (p AnalysisParameters) ErrorBudgets() ([]float64, error) {
	parts := strings.Split(p.ErrorBudget, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("error_budget entry %q is not a number", part)
		}
		out = append(out, v)
	}
	return out, nil
}

//nolint:cyclop // flat key switch mirrors the parameter set
func (p *AnalysisParameters) apply(key string, raw json.RawMessage) error {
	var err error
	switch key {
	case "source":
		p.Source, err = flexString(raw)
	case "fix_z":
		p.FixZ, err = FlexBool(raw)
	case "tmin":
		p.Tmin, err = flexFloat(raw)
	case "tmax":
		p.Tmax, err = flexFloat(raw)
	case "dt":
		p.Dt, err = flexFloat(raw)
	case "nlive":
		p.Nlive, err = flexInt(raw)
	case "error_budget":
		p.ErrorBudget, err = flexString(raw)
	case "Ebv_max":
		p.EbvMax, err = flexFloat(raw)
	case "interpolation_type":
		p.InterpolationType, err = flexString(raw)
	case "sampler":
		p.Sampler, err = flexString(raw)
	case "fit_trigger_time":
		p.FitTriggerTime, err = FlexBool(raw)
	case "trigger_time_heuristic":
		p.TriggerTimeHeuristic, err = FlexBool(raw)
	case "remove_nondetections":
		p.RemoveNondetections, err = FlexBool(raw)
	case "local_only":
		p.LocalOnly, err = FlexBool(raw)
	}
	return err
}

// FlexBool reads a boolean that callers may send as a JSON bool, a number, or
// one of the strings "True", "true", "t" (true) or anything else (false).
func FlexBool(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	switch firstByte(raw) {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return false, err
		}
		return b, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false, err
		}
		switch s {
		case "True", "true", "t":
			return true, nil
		default:
			return false, nil
		}
	default:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return false, fmt.Errorf("expected a boolean")
		}
		return n != 0, nil
	}
}

func flexFloat(raw json.RawMessage) (float64, error) {
	if firstByte(raw) == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", s)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("expected a number")
	}
	return v, nil
}

func flexInt(raw json.RawMessage) (int, error) {
	v, err := flexFloat(raw)
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("expected an integer, got %v", v)
	}
	return int(v), nil
}

// flexString accepts strings verbatim and keeps the literal text of numbers,
// so error_budget may be given as 1 or "1.0,0.5".
func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if firstByte(raw) == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected a string or number")
	}
	return n.String(), nil
}
