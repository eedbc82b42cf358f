package nmmafit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const likelihoodColumn = "log_likelihood"

// Posterior is a parsed posterior sample table.
type Posterior struct {
	Columns []string
	Rows    [][]float64
}

// ParsePosterior reads a whitespace-delimited table with a header row.
func ParsePosterior(data []byte) (*Posterior, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	p := &Posterior{}
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if p.Columns == nil {
			p.Columns = fields
			continue
		}
		if len(fields) != len(p.Columns) {
			return nil, fmt.Errorf("posterior line %d: %d fields, header has %d", line, len(fields), len(p.Columns))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("posterior line %d column %s: %w", line, p.Columns[i], err)
			}
			row[i] = v
		}
		p.Rows = append(p.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read posterior: %w", err)
	}
	if len(p.Rows) == 0 {
		return nil, errors.New("posterior has no samples")
	}
	return p, nil
}

// BestSample returns the row with the highest log_likelihood as a map.
// NaN likelihoods never win.
func (p *Posterior) BestSample() (map[string]float64, error) {
	idx := slices.Index(p.Columns, likelihoodColumn)
	if idx < 0 {
		return nil, fmt.Errorf("posterior has no %s column", likelihoodColumn)
	}
	best := -1
	bestValue := math.Inf(-1)
	for i, row := range p.Rows {
		v := row[idx]
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > bestValue {
			best, bestValue = i, v
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("posterior has no finite %s", likelihoodColumn)
	}

	out := make(map[string]float64, len(p.Columns))
	for i, name := range p.Columns {
		out[name] = p.Rows[best][i]
	}
	return out, nil
}
