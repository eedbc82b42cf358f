package model

import (
	"encoding/base64"
	"unicode/utf8"
)

// ResultStatus is the status carried by an AnalysisResult.
type ResultStatus string

const (
	// ResultPending acknowledges an accepted submission.
	ResultPending ResultStatus = "pending"
	// ResultSuccess reports a completed fit.
	ResultSuccess ResultStatus = "success"
	// ResultFailure reports a job that ended without a fit.
	ResultFailure ResultStatus = "failure"
)

// MaxFailureMessageLen bounds messages synthesized from unexpected job errors.
const MaxFailureMessageLen = 1024

// PendingMessage is the acknowledgment message returned for accepted submissions.
const PendingMessage = "nmma_analysis_service: analysis started"

// Artifact formats used in delivered results.
const (
	FormatASCII = "ascii"
	FormatPNG   = "png"
	FormatJSON  = "json"
)

// Artifact is a base64 encoded, format-tagged file.
type Artifact struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}

// NewArtifact base64 encodes data under the given format tag.
func NewArtifact(format string, data []byte) Artifact {
	return Artifact{Format: format, Data: base64.StdEncoding.EncodeToString(data)}
}

// Decode returns the raw artifact bytes.
func (a Artifact) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// AnalysisArtifacts groups the files produced by a successful fit.
// Failures deliver an empty object.
type AnalysisArtifacts struct {
	InferenceData *Artifact  `json:"inference_data,omitempty"`
	Plots         []Artifact `json:"plots,omitempty"`
	Results       *Artifact  `json:"results,omitempty"`
}

// AnalysisResult is the payload sent to the callback URL.
type AnalysisResult struct {
	Status   ResultStatus      `json:"status"`
	Message  string            `json:"message"`
	Analysis AnalysisArtifacts `json:"analysis"`
}

// AnalysisAck is the synchronous response to an accepted submission.
type AnalysisAck struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
	JobID   string       `json:"job_id,omitempty"`
}

// NewPendingAck builds the acknowledgment for an accepted job.
func NewPendingAck(jobID string) AnalysisAck {
	return AnalysisAck{Status: ResultPending, Message: PendingMessage, JobID: jobID}
}

// NewFailureResult builds a failure result with an empty analysis.
func NewFailureResult(message string) AnalysisResult {
	return AnalysisResult{Status: ResultFailure, Message: message}
}

// NewBoundedFailureResult builds a failure result whose message is truncated
// to MaxFailureMessageLen bytes without splitting a UTF-8 sequence.
func NewBoundedFailureResult(message string) AnalysisResult {
	return NewFailureResult(TruncateMessage(message, MaxFailureMessageLen))
}

// TruncateMessage shortens s to at most limit bytes on a rune boundary.
func TruncateMessage(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
