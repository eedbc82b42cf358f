package nmmafit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const distanceKey = "luminosity_distance"

// ErrPriorNotFound means the prior directory has no file for the model.
var ErrPriorNotFound = errors.New("prior file not found")

// PreparePrior copies <priorDir>/<model>.prior into dstDir. When distanceMpc
// is non-nil the luminosity_distance entry is pinned to that value, replacing
// any existing line for it or appending one.
func PreparePrior(priorDir, modelName, dstDir string, distanceMpc *float64) (string, error) {
	src := filepath.Join(priorDir, modelName+".prior")
	content, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: model %s has no prior at %s", ErrPriorNotFound, modelName, src)
	}
	if err != nil {
		return "", fmt.Errorf("read prior: %w", err)
	}

	if distanceMpc != nil {
		content = pinPrior(content, distanceKey, strconv.FormatFloat(*distanceMpc, 'g', -1, 64))
	}

	dst := filepath.Join(dstDir, modelName+".prior")
	if err := os.WriteFile(dst, content, 0o600); err != nil {
		return "", fmt.Errorf("write prior: %w", err)
	}
	return dst, nil
}

// pinPrior replaces the "key = ..." line of a bilby prior file with a fixed
// value, or appends one.
func pinPrior(content []byte, key, value string) []byte {
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	pinned := key + " = " + value
	replaced := false
	for i, line := range lines {
		name, _, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(name) == key {
			lines[i] = pinned
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, pinned)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
