//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are run via `go run` or installed with `go install` and are not
// tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - gomock generator for internal/mocks
//   Run: go generate ./internal/mocks
//   Version: v0.6.0 (matches go.uber.org/mock in go.mod)
//   Docs: https://github.com/uber-go/mock
//
// golangci-lint - lint runner
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
