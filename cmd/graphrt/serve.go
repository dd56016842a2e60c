package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphrt/internal/bootstrap"
	"github.com/hanpama/graphrt/internal/config"
	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/executor"
	"github.com/hanpama/graphrt/internal/introspection"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/logging"
	"github.com/hanpama/graphrt/internal/metrics"
	"github.com/hanpama/graphrt/internal/otel"
	"github.com/hanpama/graphrt/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, v)
		},
	}
}

func serve(ctx context.Context, v *viper.Viper) error {
	p, err := loadProject(v)
	if err != nil {
		return err
	}
	defer p.Close()
	cfg := p.cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	defer logging.Subscribe(logger)()

	shutdownTracing, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		collectors, err := metrics.New(reg)
		if err != nil {
			return err
		}
		defer collectors.Subscribe()()
	}

	handler, err := newHandler(ctx, p, reg)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("graphql server listening", zap.String("addr", cfg.Server.Addr), zap.String("path", cfg.Server.Path))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newHandler bootstraps p and mounts the GraphQL endpoint and, when enabled,
// the metrics endpoint backed by gatherer.
func newHandler(ctx context.Context, p *project, gatherer prometheus.Gatherer) (http.Handler, error) {
	cfg := p.cfg
	docs, err := language.NewDocumentCache(cfg.Cache.Documents)
	if err != nil {
		return nil, err
	}
	svc, err := p.bootstrap(ctx, docs)
	if err != nil {
		return nil, err
	}
	exec := newExecutor(cfg, svc)

	opts := []server.Option{
		server.WithDocumentCache(docs),
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, server.New(exec, opts...))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler(gatherer))
	}
	return mux, nil
}

func newExecutor(cfg *config.Config, svc *bootstrap.Service) *executor.Executor {
	var runtime executor.Runtime = executor.NewDefaultRuntime(svc.Schema)
	sch := svc.Schema
	if cfg.Introspection {
		w := introspection.Wrap(runtime, sch)
		runtime, sch = w.Runtime, w.Schema
	}
	return executor.NewExecutor(runtime, sch,
		executor.WithService(svc),
		executor.WithConcurrency(cfg.Executor.Concurrency))
}
