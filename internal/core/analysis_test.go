package core_test

import (
	"github.com/skyportal/nmma-analysis/internal/adapters/nmmafit"
	redisadapter "github.com/skyportal/nmma-analysis/internal/adapters/redis"
	"github.com/skyportal/nmma-analysis/internal/adapters/webhook"
	"github.com/skyportal/nmma-analysis/internal/core"
	"github.com/skyportal/nmma-analysis/internal/service"
	"github.com/skyportal/nmma-analysis/internal/service/failurenotifier"
)

// Compile-time conformance of the adapters to the ports.
var (
	_ core.Fitter          = (*nmmafit.Fitter)(nil)
	_ core.Deliverer       = (*webhook.Deliverer)(nil)
	_ core.JobTracker      = (*redisadapter.JobTracker)(nil)
	_ core.FailureNotifier = (*failurenotifier.Service)(nil)
	_ core.Pipeline        = (*service.AnalysisPipeline)(nil)
)
