package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	kind string
	name string
	tags map[string]string
}

type fakeSink struct {
	calls []recorded
}

func (f *fakeSink) Count(name string, _ int64, tags map[string]string) {
	f.calls = append(f.calls, recorded{"count", name, tags})
}

func (f *fakeSink) Gauge(name string, _ float64, tags map[string]string) {
	f.calls = append(f.calls, recorded{"gauge", name, tags})
}

func (f *fakeSink) Timing(name string, _ time.Duration, tags map[string]string) {
	f.calls = append(f.calls, recorded{"timing", name, tags})
}

func TestEmitJobCompleted(t *testing.T) {
	sink := &fakeSink{}
	EmitJobCompleted(sink, JobMetric{Model: "Me2017", State: "delivered", Status: "success", Duration: time.Second})

	require.Len(t, sink.calls, 2)
	assert.Equal(t, JobsCompleted, sink.calls[0].name)
	assert.Equal(t, "delivered", sink.calls[0].tags["state"])
	assert.Equal(t, JobDuration, sink.calls[1].name)

	EmitJobCompleted(nil, JobMetric{})
}

func TestEmitDeliveryTags(t *testing.T) {
	sink := &fakeSink{}
	EmitDelivery(sink, DeliveryMetric{Result: ResultError, StatusCode: 503, Err: errors.New("boom")})

	require.Len(t, sink.calls, 1)
	tags := sink.calls[0].tags
	assert.Equal(t, "5xx", tags["status_class"])
	assert.Equal(t, "errors_errorstring", tags["error_class"])

	sink.calls = nil
	EmitDelivery(sink, DeliveryMetric{Result: ResultSuccess, StatusCode: 200, Duration: time.Millisecond})
	require.Len(t, sink.calls, 2)
	assert.NotContains(t, sink.calls[0].tags, "error_class")
}

func TestEmitFit(t *testing.T) {
	sink := &fakeSink{}
	EmitFit(sink, "TrPi2018", false, time.Minute)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, ResultError, sink.calls[0].tags["result"])
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1"}
	cp := CloneTags(src)
	cp["a"] = "2"
	assert.Equal(t, "1", src["a"])
}

func TestEmitAcceptedAndRejected(t *testing.T) {
	sink := &fakeSink{}
	EmitJobAccepted(sink, "Bu2022Ye")
	EmitJobRejected(sink, "validation")
	EmitJobAccepted(nil, "ignored")

	require.Len(t, sink.calls, 2)
	assert.Equal(t, recorded{"count", JobsAccepted, map[string]string{"model": "Bu2022Ye"}}, sink.calls[0])
	assert.Equal(t, recorded{"count", JobsRejected, map[string]string{"reason": "validation"}}, sink.calls[1])
}
