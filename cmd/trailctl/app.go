package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/cache/badgerstore"
	"github.com/jonwraymond/breadcrumb/cache/sqlitestore"
	"github.com/jonwraymond/breadcrumb/health"
	"github.com/jonwraymond/breadcrumb/internal/config"
	"github.com/jonwraymond/breadcrumb/internal/wikihost"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/resilience"
	"github.com/jonwraymond/breadcrumb/trail"
)

// app is the wired breadcrumb runtime behind every subcommand.
type app struct {
	cfg       *config.Config
	obs       observe.Observer
	logger    observe.Logger
	store     cache.Cache
	ancestors *ancestry.Cache
	wiki      *wikihost.Wiki
	builder   *trail.Builder
	health    *health.Aggregator

	closeStore func() error
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	obsCfg := cfg.ObserverConfig(version)
	obsCfg.Logging.Writer = logOut
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, obs: obs, logger: obs.Logger()}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	if err := a.openStore(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	if cfg.Wiki.Fixture != "" {
		a.wiki, err = wikihost.LoadFile(cfg.Wiki.Fixture)
	} else {
		a.wiki, err = wikihost.New()
	}
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "ancestry",
		MaxFailures:  cfg.Cache.BreakerFailures,
		ResetTimeout: cfg.Cache.BreakerReset,
		OnStateChange: func(name string, from, to resilience.State) {
			a.logger.Warn(context.Background(), "breadcrumb cache circuit changed state",
				observe.Field{Key: "breaker", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})

	a.ancestors, err = ancestry.NewCache(a.store,
		cache.NewPageKeyer(cfg.Cache.Namespace, cfg.KeyScheme()),
		ancestry.WithIdentifier(a.wiki),
		ancestry.WithPolicy(cfg.Policy()),
		ancestry.WithExecutor(resilience.NewExecutor(
			resilience.WithCircuitBreaker(breaker),
			resilience.WithTimeout(cfg.Cache.Timeout),
		)),
		ancestry.WithLogger(a.logger),
		ancestry.WithMetrics(mw.Metrics()),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.builder, err = trail.NewBuilder(cfg.Trail, a.wiki.Resolver(), a.wiki, a.ancestors, nil, trail.WithMiddleware(mw))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.builder.Register(a.wiki)

	a.health = health.NewAggregator()
	a.health.Register(health.NewStoreChecker("ancestors", a.store, breaker))

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	c := a.cfg.Cache
	switch c.Backend {
	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(c.Path)
		bcfg.Logger = a.logger
		s, err := badgerstore.Open(bcfg)
		if err != nil {
			return err
		}
		a.store, a.closeStore = s, s.Close
	case config.BackendSQLite:
		s, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: c.Path, Logger: a.logger})
		if err != nil {
			return err
		}
		a.store, a.closeStore = s, s.Close
	case config.BackendMemory:
		a.store = cache.NewMemoryCache()
	default:
		return fmt.Errorf("%w: unknown cache backend %q", errUsage, c.Backend)
	}
	a.logger.Debug(ctx, "ancestor store opened",
		observe.Field{Key: "backend", Value: c.Backend},
		observe.Field{Key: "path", Value: c.Path},
	)
	return nil
}

// metricsHandler serves the Prometheus registry when metrics are exported
// that way, and nil otherwise.
func (a *app) metricsHandler() http.Handler {
	if a.cfg.Observe.Metrics != "prometheus" {
		return nil
	}
	return promhttp.Handler()
}

// Close releases the store and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.closeStore != nil {
		errs = append(errs, a.closeStore())
		a.closeStore = nil
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
		a.obs = nil
	}
	return errors.Join(errs...)
}
