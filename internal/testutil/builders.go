package testutil

import (
	"encoding/json"
	"testing"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
)

// SamplePhotometryCSV has two detections in different filters and one upper limit.
const SamplePhotometryCSV = "mjd,mag,magerr,limiting_mag,filter\n" +
	"59000.0,99,,20.5,ztfg\n" +
	"59001.0,18.25,0.1,21.0,ztfg\n" +
	"59002.0,18.75,0.2,21.0,ztfr\n"

// SubmissionBuilder builds inbound analysis submission bodies for tests.
type SubmissionBuilder struct {
	inputs map[string]any
	params map[string]any
	body   map[string]any
}

// NewSubmission returns a builder for a valid Me2017 submission.
func NewSubmission() *SubmissionBuilder {
	return &SubmissionBuilder{
		inputs: map[string]any{
			"photometry": SamplePhotometryCSV,
			"object_id":  "ZTF21abcdefg",
		},
		params: map[string]any{"source": "Me2017"},
		body: map[string]any{
			"callback_url":    "http://callback.invalid/analysis/1",
			"callback_method": "POST",
		},
	}
}

// WithModel sets analysis_parameters.source.
func (b *SubmissionBuilder) WithModel(name string) *SubmissionBuilder {
	b.params["source"] = name
	return b
}

// WithParam sets one analysis parameter.
func (b *SubmissionBuilder) WithParam(key string, value any) *SubmissionBuilder {
	b.params[key] = value
	return b
}

// WithInput sets one key of inputs.
func (b *SubmissionBuilder) WithInput(key string, value any) *SubmissionBuilder {
	b.inputs[key] = value
	return b
}

// WithCallback sets the callback target.
func (b *SubmissionBuilder) WithCallback(url, method string) *SubmissionBuilder {
	b.body["callback_url"] = url
	b.body["callback_method"] = method
	return b
}

// Without removes a top-level key.
func (b *SubmissionBuilder) Without(key string) *SubmissionBuilder {
	delete(b.body, key)
	if key == "inputs" {
		b.inputs = nil
	}
	return b
}

// JSON renders the submission body.
func (b *SubmissionBuilder) JSON(t testing.TB) []byte {
	t.Helper()
	body := make(map[string]any, len(b.body)+1)
	for k, v := range b.body {
		body[k] = v
	}
	if b.inputs != nil {
		inputs := make(map[string]any, len(b.inputs)+1)
		for k, v := range b.inputs {
			inputs[k] = v
		}
		inputs["analysis_parameters"] = b.params
		body["inputs"] = inputs
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal submission: %v", err)
	}
	return data
}

// Request parses the submission against the default catalog and parameters.
func (b *SubmissionBuilder) Request(t testing.TB) *model.AnalysisRequest {
	t.Helper()
	req, err := model.ParseAnalysisRequest(b.JSON(t), model.DefaultCatalog(), model.DefaultAnalysisParameters())
	if err != nil {
		t.Fatalf("parse submission: %v", err)
	}
	return req
}
