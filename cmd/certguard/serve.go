package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	credentialHandler "certguard/internal/credential/handler"
	"certguard/internal/events"
	ledgerHandler "certguard/internal/ledger/handler"
	"certguard/internal/platform/config"
	"certguard/internal/platform/httpserver"
	"certguard/internal/platform/metrics"
	"certguard/internal/platform/tracing"
	"certguard/internal/session"
	sessionHandler "certguard/internal/session/handler"
	sessionMetrics "certguard/internal/session/metrics"
	"certguard/pkg/platform/httputil"
	"certguard/pkg/platform/middleware/metadata"
	"certguard/pkg/platform/middleware/requesttime"
	versionmw "certguard/pkg/platform/middleware/version"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the verification HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := commonRun()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveRun(ctx, globalConfig, log)
		},
	}
}

// publisher is an events.Publisher that may need flushing on shutdown.
type publisher interface {
	events.Publisher
	Close(ctx context.Context) error
}

type logPublisherCloser struct{ *events.LogPublisher }

func (logPublisherCloser) Close(context.Context) error { return nil }

func newPublisher(ctx context.Context, cfg config.Kafka, log *slog.Logger) (publisher, error) {
	if len(cfg.Brokers) == 0 {
		log.Info("no kafka brokers configured, logging verification events")
		return logPublisherCloser{events.NewLogPublisher(log)}, nil
	}
	return events.NewKafkaPublisher(ctx, events.KafkaConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	}, log)
}

func serveRun(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		ServiceName:    programName,
		ServiceVersion: version,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Insecure:       true,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	pub, err := newPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	sessionMetrics.RegisterRecordsGauge(reg, p.records.Len)
	tracker := session.NewTracker(cfg.Sessions.TrackerRetention)
	sessions := session.NewRegistry(cfg.SessionConfig(), p.provider, p.ledger, p.records,
		session.WithLogger(log),
		session.WithMetrics(sessionMetrics.New(reg)),
		session.WithSink(tracker),
		session.WithSink(events.NewSink(pub, log)),
	)
	sessions.SetMaxScopes(cfg.Sessions.MaxScopes)

	router := newRouter(routerDeps{
		sessions: sessionHandler.New(sessions, tracker, cfg.Sessions.MaxFileBytes, log),
		records:  credentialHandler.New(p.records, p.ledger, version, log),
		ledger:   ledgerHandler.New(p.ledger),
		registry: reg,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		// Sessions first so their final events reach the publisher before it flushes.
		sessErr := sessions.Close(shutdownCtx)
		pubErr := pub.Close(shutdownCtx)
		traceErr := shutdownTracing(shutdownCtx)
		log.Info("background components stopped")
		return errors.Join(sessErr, pubErr, traceErr)
	})
	return g.Wait()
}

type routerDeps struct {
	sessions *sessionHandler.Handler
	records  *credentialHandler.Handler
	ledger   *ledgerHandler.Handler
	registry *prometheus.Registry
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(versionmw.Header(version))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	r.Handle("/metrics", metrics.Handler(d.registry))

	d.sessions.Register(r)
	d.records.Register(r)
	d.ledger.Register(r)
	return r
}
