package main

import (
	"context"
	"time"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/corridor"
	"github.com/sells-group/crash-cli/internal/fetcher"
	"github.com/sells-group/crash-cli/internal/resilience"
	"github.com/sells-group/crash-cli/internal/store"
	"github.com/sells-group/crash-cli/pkg/overpass"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func newBoundaryResolver() *boundary.Resolver {
	return boundary.NewResolver(fetcher.NewLocalizer(cfg.Boundaries.TempDir, fetcher.HTTPOptions{
		UserAgent: cfg.Overpass.UserAgent,
	}))
}

func newOverpassClient() overpass.Client {
	oc := cfg.Overpass
	return overpass.NewClient(
		overpass.WithBaseURL(oc.URL),
		overpass.WithUserAgent(oc.UserAgent),
		overpass.WithRateLimit(oc.RatePerSec),
		overpass.WithServerTimeout(time.Duration(oc.TimeoutSecs)*time.Second),
		overpass.WithRetry(resilience.FromRetryConfig(oc.MaxAttempts, oc.InitialBackoffMs, oc.MaxBackoffMs)),
		overpass.WithCircuitBreaker(resilience.NewCircuitBreaker(
			resilience.FromCircuitConfig(oc.BreakerThreshold, oc.BreakerResetSecs),
		)),
	)
}

func newCorridorResolver() corridor.Resolver {
	return corridor.NewOverpassResolver(newOverpassClient())
}
