package nmmafit

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// DefaultSummaryExpression selects the headline statistic of a fit summary.
const DefaultSummaryExpression = "log_bayes_factor"

// SummaryExtractor pulls the headline statistic out of a result summary.
type SummaryExtractor struct {
	expr string
}

// NewSummaryExtractor validates expr, falling back to the default when blank.
func NewSummaryExtractor(expr string) (*SummaryExtractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultSummaryExpression
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid summary expression %q: %w", expr, err)
	}
	return &SummaryExtractor{expr: expr}, nil
}

// Expression returns the configured JMESPath expression.
func (s *SummaryExtractor) Expression() string {
	return s.expr
}

// Extract decodes a JSON summary and evaluates the expression against it.
// A missing statistic yields nil without error.
func (s *SummaryExtractor) Extract(data []byte) (map[string]any, any, error) {
	var summary map[string]any
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, nil, fmt.Errorf("decode result summary: %w", err)
	}
	value, err := jmespath.Search(s.expr, summary)
	if err != nil {
		return summary, nil, fmt.Errorf("evaluate %q: %w", s.expr, err)
	}
	return summary, value, nil
}
