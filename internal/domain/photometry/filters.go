package photometry

import (
	"strconv"
	"strings"
)

var numericFilterCodes = map[int]string{
	1: "ztfg",
	2: "ztfr",
	3: "ztfi",
}

var namedFilterCodes = map[string]string{
	"ztfg": "g",
	"ztfr": "r",
	"ztfi": "i",
}

// CanonicalFilter maps ZTF filter encodings to single-letter bandpasses.
// Integer codes 1/2/3 (also written "1.0") and names ztfg/ztfr/ztfi both
// become g/r/i. Anything else is returned trimmed but otherwise unchanged.
func CanonicalFilter(raw string) string {
	v := strings.TrimSpace(raw)
	if named, ok := numericCode(v); ok {
		v = named
	}
	if band, ok := namedFilterCodes[v]; ok {
		return band
	}
	return v
}

func numericCode(v string) (string, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return "", false
	}
	named, ok := numericFilterCodes[int(f)]
	return named, ok
}
