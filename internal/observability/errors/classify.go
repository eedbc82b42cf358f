// Package errors derives low-cardinality error classes for metric tags and
// operator notifications.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
)

// Classify names the class of err. Application errors report their code,
// deadline expiry reports "timeout", and anything else is named after the
// innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return string(apperrors.ErrCodeTimeout)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
