package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureResultEncodesEmptyAnalysis(t *testing.T) {
	raw, err := json.Marshal(NewFailureResult("Model fitting failed."))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"failure","message":"Model fitting failed.","analysis":{}}`, string(raw))
}

func TestSuccessResultEncodesArtifacts(t *testing.T) {
	inference := NewArtifact(FormatASCII, []byte("a b\n1 2\n"))
	results := NewArtifact(FormatJSON, []byte(`{}`))
	res := AnalysisResult{
		Status:  ResultSuccess,
		Message: "ok",
		Analysis: AnalysisArtifacts{
			InferenceData: &inference,
			Plots:         []Artifact{NewArtifact(FormatPNG, []byte{0x89, 'P', 'N', 'G'})},
			Results:       &results,
		},
	}

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	got, err := decoded.Analysis.InferenceData.Decode()
	require.NoError(t, err)
	assert.Equal(t, "a b\n1 2\n", string(got))
	assert.Equal(t, FormatPNG, decoded.Analysis.Plots[0].Format)
}

func TestNewBoundedFailureResultTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxFailureMessageLen)

	res := NewBoundedFailureResult(long)

	assert.Equal(t, ResultFailure, res.Status)
	assert.LessOrEqual(t, len(res.Message), MaxFailureMessageLen)
	assert.True(t, strings.HasPrefix(long, res.Message))
	assert.Equal(t, "short", NewBoundedFailureResult("short").Message)
}

func TestPendingAck(t *testing.T) {
	ack := NewPendingAck("job-1")
	assert.Equal(t, ResultPending, ack.Status)
	assert.Equal(t, PendingMessage, ack.Message)
	assert.Equal(t, "job-1", ack.JobID)
}

func TestObservationMarshalNonFinite(t *testing.T) {
	obs := Observation{JD: 2459000.5, Mag: 20.5, MagUnc: math.Inf(1), Filter: "g", LimMag: 20.5}

	raw, err := json.Marshal(obs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jd":2459000.5,"mag":20.5,"mag_unc":"inf","filter":"g","limmag":20.5,"programid":""}`, string(raw))
	assert.False(t, obs.IsDetection())
}

func TestFirstDetection(t *testing.T) {
	obs := []Observation{
		{JD: 1, MagUnc: math.Inf(1)},
		{JD: 2, MagUnc: 0.1},
		{JD: 3, MagUnc: 0.2},
	}
	first, ok := FirstDetection(obs)
	require.True(t, ok)
	assert.InDelta(t, 2.0, first.JD, 0)

	_, ok = FirstDetection(obs[:1])
	assert.False(t, ok)
	assert.False(t, HasDetection(nil))
}

func TestJobStateTransitions(t *testing.T) {
	now := time.Now()
	rec := NewJobRecord("id", &AnalysisRequest{ObjectID: "X", Parameters: AnalysisParameters{Source: "Me2017"}}, now)
	assert.Equal(t, JobAccepted, rec.State)
	assert.Equal(t, "Me2017", rec.Model)

	running, err := rec.Advance(JobRunning, now)
	require.NoError(t, err)
	delivered, err := running.Advance(JobDelivered, now)
	require.NoError(t, err)
	assert.True(t, delivered.State.Terminal())

	_, err = delivered.Advance(JobRunning, now)
	assert.Error(t, err)
	_, err = rec.Advance(JobDelivered, now)
	assert.Error(t, err)

	var s JobState
	require.NoError(t, s.UnmarshalText([]byte(" Failed ")))
	assert.Equal(t, JobFailed, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.True(t, c.Allowed("TrPi2018"))
	assert.False(t, c.Allowed("trpi2018"))

	params := DefaultAnalysisParameters()
	grid := c.EffectiveGrid("TrPi2018", params)
	assert.Equal(t, SamplingGrid{Tmin: 0.01, Tmax: 7.01, Dt: 0.35}, grid)
	assert.Equal(t, SamplingGrid{Tmin: 0.01, Tmax: 7, Dt: 0.1}, c.EffectiveGrid("Me2017", params))

	times := c.SampleTimes("nugent-hyper", grid)
	require.NotEmpty(t, times)
	assert.InDelta(t, 0.01, times[0], 1e-12)
	assert.Less(t, times[len(times)-1], 10.21)

	meTimes := c.SampleTimes("Me2017", c.EffectiveGrid("Me2017", params))
	assert.InDelta(t, 0.01, meTimes[0], 1e-12)
	assert.GreaterOrEqual(t, meTimes[len(meTimes)-1], 7.0-1e-9)

	_, err := NewCatalog([]ModelSpec{{Name: "A"}, {Name: "A"}})
	assert.Error(t, err)
	_, err = NewCatalog(nil)
	assert.Error(t, err)
	_, err = NewCatalog([]ModelSpec{{Name: "A", Grid: &SamplingGrid{Tmin: 1, Tmax: 0, Dt: 1}}})
	assert.Error(t, err)
}
