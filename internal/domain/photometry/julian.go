package photometry

import (
	"math"
	"time"
)

// MJDOffset converts MJD to JD, and is also the threshold above which a time
// value is taken to already be a Julian Date.
const MJDOffset = 2400000.5

const (
	unixEpochJD   = 2440587.5 // 1970-01-01T00:00:00Z
	secondsPerDay = 86400.0
	isotLayout    = "2006-01-02T15:04:05.000"
)

// MJDToJD converts a Modified Julian Date.
func MJDToJD(mjd float64) float64 {
	return mjd + MJDOffset
}

// JDToMJD converts a Julian Date.
func JDToMJD(jd float64) float64 {
	return jd - MJDOffset
}

// JDToTime converts a Julian Date to UTC, rounded to the millisecond.
func JDToTime(jd float64) time.Time {
	ms := math.Round((jd - unixEpochJD) * secondsPerDay * 1000)
	return time.UnixMilli(int64(ms)).UTC()
}

// TimeToJD converts a UTC time to a Julian Date.
func TimeToJD(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixMilli())/(secondsPerDay*1000)
}

// FormatISOT renders a Julian Date as an ISO-8601 timestamp with millisecond
// precision and no zone suffix.
func FormatISOT(jd float64) string {
	return JDToTime(jd).Format(isotLayout)
}
