package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Observation is one canonical photometric point. JD is a Julian Date above
// 2,400,000.5. A MagUnc of +Inf marks a non-detection whose Mag holds the
// limiting magnitude.
type Observation struct {
	JD        float64           `json:"jd"`
	Mag       float64           `json:"mag"`
	MagUnc    float64           `json:"mag_unc"`
	Filter    string            `json:"filter"`
	LimMag    float64           `json:"limmag"`
	ProgramID string            `json:"programid"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// IsDetection reports whether the observation has a finite uncertainty.
func (o Observation) IsDetection() bool {
	return !math.IsInf(o.MagUnc, 0) && !math.IsNaN(o.MagUnc)
}

// MarshalJSON writes non-finite floats as strings ("inf", "-inf", "nan"),
// which encoding/json cannot represent as numbers.
func (o Observation) MarshalJSON() ([]byte, error) {
	type wire struct {
		JD        float64           `json:"jd"`
		Mag       json.RawMessage   `json:"mag"`
		MagUnc    json.RawMessage   `json:"mag_unc"`
		Filter    string            `json:"filter"`
		LimMag    json.RawMessage   `json:"limmag"`
		ProgramID string            `json:"programid"`
		Extra     map[string]string `json:"extra,omitempty"`
	}
	return json.Marshal(wire{
		JD:        o.JD,
		Mag:       floatJSON(o.Mag),
		MagUnc:    floatJSON(o.MagUnc),
		Filter:    o.Filter,
		LimMag:    floatJSON(o.LimMag),
		ProgramID: o.ProgramID,
		Extra:     o.Extra,
	})
}

// FormatFloat renders v the way the external tooling reads it, using "inf"
// for infinities.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func floatJSON(v float64) json.RawMessage {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return json.RawMessage(strconv.Quote(FormatFloat(v)))
	}
	return json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
}

// HasDetection reports whether any observation is a detection.
func HasDetection(obs []Observation) bool {
	for _, o := range obs {
		if o.IsDetection() {
			return true
		}
	}
	return false
}

// FirstDetection returns the earliest detection of a JD-sorted sequence.
func FirstDetection(obs []Observation) (Observation, bool) {
	for _, o := range obs {
		if o.IsDetection() {
			return o, true
		}
	}
	return Observation{}, false
}
