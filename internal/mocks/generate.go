// Package mocks provides gomock implementations of the analysis service ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	fitter := mocks.NewMockFitter(ctrl)
//	fitter.EXPECT().Fit(gomock.Any(), gomock.Any()).Return(model.FitOutcome{Success: true})
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=fitter_mock.go github.com/skyportal/nmma-analysis/internal/core Fitter
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=deliverer_mock.go github.com/skyportal/nmma-analysis/internal/core Deliverer
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_tracker_mock.go github.com/skyportal/nmma-analysis/internal/core JobTracker
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=failure_notifier_mock.go github.com/skyportal/nmma-analysis/internal/core FailureNotifier
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=pipeline_mock.go github.com/skyportal/nmma-analysis/internal/core Pipeline
