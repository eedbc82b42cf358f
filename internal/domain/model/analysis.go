// Package model defines the data types exchanged between the analysis service components.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

// Top-level keys of an inbound analysis submission.
const (
	KeyInputs             = "inputs"
	KeyCallbackURL        = "callback_url"
	KeyCallbackMethod     = "callback_method"
	KeyPhotometry         = "photometry"
	KeyObjectID           = "object_id"
	KeyAnalysisParameters = "analysis_parameters"
	KeyRedshift           = "redshift"
	KeySource             = "source"
)

// PhotometryInput carries caller photometry in one of two accepted shapes:
// a CSV document, or a list of row objects keyed by column name.
type PhotometryInput struct {
	CSV     string
	Records []map[string]any
}

// IsCSV reports whether the photometry was supplied as CSV text.
func (p PhotometryInput) IsCSV() bool {
	return p.Records == nil
}

// CallbackTarget identifies where and how a result is delivered.
type CallbackTarget struct {
	URL    string
	Method string
}

// AnalysisRequest is an accepted submission. It is immutable once built and
// owned by the job that processes it.
type AnalysisRequest struct {
	ObjectID   string
	Photometry PhotometryInput
	Redshift   RedshiftInput
	Parameters AnalysisParameters
	Callback   CallbackTarget
}

// Model returns the requested model name.
func (r *AnalysisRequest) Model() string {
	return r.Parameters.Source
}

// ParseAnalysisRequest decodes and validates an inbound submission body.
// Parameters are merged over defaults into a fresh copy; defaults are never mutated.
// Every failure is an AppError with code validation.
func ParseAnalysisRequest(body []byte, catalog *Catalog, defaults AnalysisParameters) (*AnalysisRequest, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil || top == nil {
		return nil, apperrors.Validation("Invalid JSON")
	}

	for _, key := range []string{KeyInputs, KeyCallbackURL, KeyCallbackMethod} {
		if _, ok := top[key]; !ok {
			return nil, apperrors.ValidationField(key, "missing required key "+key)
		}
	}

	var inputs map[string]json.RawMessage
	if err := json.Unmarshal(top[KeyInputs], &inputs); err != nil || inputs == nil {
		return nil, apperrors.ValidationField(KeyInputs, "inputs must be a JSON object")
	}

	callback, err := parseCallback(top)
	if err != nil {
		return nil, err
	}

	rawParams := inputs
	if raw, ok := inputs[KeyAnalysisParameters]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rawParams); err != nil || rawParams == nil {
			return nil, apperrors.ValidationField(KeyAnalysisParameters, "analysis_parameters must be a JSON object")
		}
	}

	source, err := decodeString(rawParams[KeySource])
	if err != nil || strings.TrimSpace(source) == "" {
		return nil, apperrors.ValidationField(KeySource, "model not specified in inputs.analysis_parameters")
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if !catalog.Allowed(source) {
		return nil, apperrors.ValidationField(KeySource, fmt.Sprintf(
			"model %s is not allowed, must be one of: [%s]", source, strings.Join(catalog.Names(), ", ")))
	}

	params, err := defaults.Merge(rawParams)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	photometry, err := parsePhotometry(inputs[KeyPhotometry])
	if err != nil {
		return nil, err
	}

	objectID, err := parseObjectID(inputs, rawParams)
	if err != nil {
		return nil, err
	}

	return &AnalysisRequest{
		ObjectID:   objectID,
		Photometry: photometry,
		Redshift:   RedshiftInput{raw: cloneRaw(inputs[KeyRedshift])},
		Parameters: params,
		Callback:   callback,
	}, nil
}

func parseCallback(top map[string]json.RawMessage) (CallbackTarget, error) {
	rawURL, err := decodeString(top[KeyCallbackURL])
	if err != nil || strings.TrimSpace(rawURL) == "" {
		return CallbackTarget{}, apperrors.ValidationField(KeyCallbackURL, "callback_url must be a non-empty string")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return CallbackTarget{}, apperrors.ValidationField(KeyCallbackURL, "callback_url is not a valid URL")
	}
	method, err := decodeString(top[KeyCallbackMethod])
	if err != nil {
		return CallbackTarget{}, apperrors.ValidationField(KeyCallbackMethod, "callback_method must be a string")
	}
	return CallbackTarget{URL: strings.TrimSpace(rawURL), Method: method}, nil
}

func parsePhotometry(raw json.RawMessage) (PhotometryInput, error) {
	if len(raw) == 0 || isNull(raw) {
		return PhotometryInput{}, apperrors.ValidationField(KeyPhotometry, "missing required key "+KeyPhotometry)
	}
	switch firstByte(raw) {
	case '"':
		var csv string
		if err := json.Unmarshal(raw, &csv); err != nil {
			return PhotometryInput{}, apperrors.ValidationField(KeyPhotometry, "photometry must be a CSV string")
		}
		return PhotometryInput{CSV: csv}, nil
	case '[':
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var records []map[string]any
		if err := dec.Decode(&records); err != nil {
			return PhotometryInput{}, apperrors.ValidationField(KeyPhotometry, "photometry records must be JSON objects")
		}
		if records == nil {
			records = []map[string]any{}
		}
		return PhotometryInput{Records: records}, nil
	default:
		return PhotometryInput{}, apperrors.ValidationField(KeyPhotometry,
			"photometry must be a CSV string or a list of records")
	}
}

func parseObjectID(inputs, params map[string]json.RawMessage) (string, error) {
	raw, ok := inputs[KeyObjectID]
	if !ok || isNull(raw) {
		raw, ok = params[KeyObjectID]
	}
	if !ok || isNull(raw) {
		return "", apperrors.ValidationField(KeyObjectID, "missing required key "+KeyObjectID)
	}
	id, err := decodeString(raw)
	if err != nil || strings.TrimSpace(id) == "" {
		return "", apperrors.ValidationField(KeyObjectID, "object_id must be a non-empty string")
	}
	return strings.TrimSpace(id), nil
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if len(raw) == 0 {
		return "", fmt.Errorf("value is absent")
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
