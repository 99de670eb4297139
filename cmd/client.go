package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/monitoring"
	"github.com/sells-group/water-quality/internal/resilience"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// remoteEnv is the Earth Engine client shared by every command, built once
// from the configured credentials.
type remoteEnv struct {
	Client  earthengine.Client
	Breaker *resilience.Breaker
	Account string
	Project string
}

// initRemote validates config for mode, resolves the service-account key
// and builds the client with rate limiting, retries and a circuit breaker.
func initRemote(ctx context.Context, mode string) (*remoteEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	ee := cfg.EarthEngine
	creds, err := earthengine.Credentials{
		ServiceAccount: ee.ServiceAccount,
		Key:            ee.Key,
		Project:        ee.Project,
	}.Resolve()
	if err != nil {
		return nil, eris.Wrap(err, "resolve earth engine credentials")
	}

	hc, err := creds.HTTPClient(ctx, time.Duration(ee.TimeoutSecs)*time.Second)
	if err != nil {
		return nil, err
	}

	retry := resilience.FromRetryConfig(ee.MaxAttempts, ee.RetryBackoffMs)
	retry.OnRetry = resilience.RetryLogger("earthengine")
	breaker := resilience.NewBreaker("earthengine", resilience.FromCircuitConfig(ee.CircuitFailureThreshold, ee.CircuitResetSecs))

	client := earthengine.NewClient(creds.Project,
		earthengine.WithBaseURL(ee.BaseURL),
		earthengine.WithHTTPClient(hc),
		earthengine.WithRateLimit(ee.RateLimitRPS),
		earthengine.WithRetry(retry),
		earthengine.WithBreaker(breaker),
		earthengine.WithObserver(monitoring.ObserveRemote),
	)

	zap.L().Info("earth engine client ready",
		zap.String("service_account", creds.ServiceAccount),
		zap.String("project", creds.Project),
		zap.Int("max_attempts", retry.MaxAttempts),
	)

	return &remoteEnv{
		Client:  client,
		Breaker: breaker,
		Account: creds.ServiceAccount,
		Project: creds.Project,
	}, nil
}
