package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/health/memory"
	healthredis "github.com/marcelsud/webhook-relay/health/redis"
	"github.com/marcelsud/webhook-relay/internal/http/chi"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/httpclient"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const TIMEOUT = 30 * time.Second

/* main.go is where every package gets wired together.
 * Imports only go downwards: the binary imports the business packages,
 * which import the storage and transport packages.
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	logger := httplog.NewLogger("webhook-relay", httplog.Options{
		JSON: true,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	validator := endpoint.NewValidator(cfg.AllowedDomains())
	registry, err := endpoint.NewRegistryFromConfig(cfg, validator)
	if err != nil {
		logger.Error().Err(err).Msg("loading endpoints")
		return
	}
	if !registry.Exists(endpoint.DefaultID) {
		logger.Warn().Msg("N8N_WEBHOOK_URL is not set, /api/webhook needs ?endpoint=")
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("creating health store")
		return
	}

	sender := httpclient.New()
	prober := health.NewService(cfg, sender, logger)
	relayService := relay.NewService(cfg, sender, validator, logger)

	// the collector reads the store directly and never runs a check
	exporter, err := metrics.NewOTelExporter(metrics.NewHealthCollector(registry, metrics.StoreReader{Store: store}))
	if err != nil {
		logger.Error().Err(err).Msg("creating metrics exporter")
		return
	}
	cache := health.NewCache(prober, store, logger, health.WithRecorder(exporter))
	relayService.Recorder = exporter

	monitor := health.NewMonitor(cfg, cache, registry, logger)
	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("health monitor stopped")
		}
	}()

	r := chi.Handlers(ctx, chi.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Relay:     relayService,
		Prober:    prober,
		Health:    cache,
		Endpoints: registry,
		Validator: validator,
		Metrics:   exporter.ServeHTTP(),
	})
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout: 30 * time.Second,
		// relays can take the whole relay deadline before the response starts
		WriteTimeout: cfg.RelayTimeout() + TIMEOUT,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, logger, errShutdown, closeStore, exporter.Shutdown)
	logger.Info().Str("port", cfg.Port).Int("endpoints", len(registry.List())).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("serving")
		return
	}
	err = <-errShutdown
	if err != nil {
		logger.Error().Err(err).Msg("shutting down")
		return
	}
}

func newStore(cfg *config.Config) (health.Store, func(context.Context) error, error) {
	if cfg.HealthCacheBackend == "redis" {
		s, err := healthredis.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return memory.NewStore(memory.DefaultMaxBytes), func(context.Context) error { return nil }, nil
}

func shutdown(server *http.Server, ctxShutdown context.Context, logger zerolog.Logger, errShutdown chan error, closers ...func(context.Context) error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	var err error
	if serr := server.Shutdown(ctxTimeout); serr != nil {
		err = multierr.Append(err, fmt.Errorf("forcing closing the server: %w", serr))
	} else {
		logger.Info().Msg("shutting down server")
	}
	for _, closer := range closers {
		err = multierr.Append(err, closer(ctxTimeout))
	}
	errShutdown <- err
}
