package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/url"
	"testing"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: apperrors.Validation("bad"), want: "validation"},
		{name: "wrapped app error", err: fmt.Errorf("outer: %w", apperrors.New(apperrors.ErrCodeFit, "x")), want: "fit"},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "url error unwrapped", err: &url.Error{Op: "Post", URL: "x", Err: goerrors.New("refused")}, want: "errors_errorstring"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
