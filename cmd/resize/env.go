package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/resize/internal/config"
	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/pkg/channel"
	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/telemetry"
	"github.com/vango-dev/resize/pkg/transcript"
)

// loadConfig reads resize.json and applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if opts.server != "" {
		cfg.Server = opts.server
	}
	if opts.instance != "" {
		cfg.Instance = opts.instance
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Address = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Instance == "" {
		return nil, errors.New("E121").
			WithDetail("No instance to operate on.").
			WithSuggestion(`Pass --instance or set "instance" in resize.json.`)
	}
	return cfg, nil
}

// env is what the commands run against.
type env struct {
	cfg     *config.Config
	page    *page.Client
	manager *channel.Manager
	logger  *slog.Logger

	metrics     *http.Server
	metricsAddr net.Addr
}

func newEnv(cfg *config.Config) (*env, error) {
	logger := slog.Default().With("component", "cli")

	chCfg, err := cfg.ChannelConfig()
	if err != nil {
		return nil, err
	}
	pc, err := page.NewClient(cfg.Server, cfg.Instance)
	if err != nil {
		return nil, errors.New("E124").Wrap(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(
		telemetry.WithRegistry(registry),
		telemetry.WithNamespace(cfg.Metrics.Namespace),
	)

	mopts := []channel.Option{
		channel.WithMetrics(metrics),
		channel.WithTracer(telemetry.NewTracer()),
	}
	store, err := transcriptStore(cfg.Transcripts)
	if err != nil {
		return nil, err
	}
	if store != nil {
		mopts = append(mopts, channel.WithTranscripts(store))
	}

	mgr, err := channel.NewManager(pc.PageURL(), chCfg, mopts...)
	if err != nil {
		return nil, errors.New("E124").Wrap(err)
	}

	e := &env{cfg: cfg, page: pc, manager: mgr, logger: logger}
	if cfg.Metrics.Address != "" {
		srv, addr, err := serveMetrics(cfg.Metrics.Address, registry, logger)
		if err != nil {
			mgr.Close()
			return nil, errors.New("E141").Wrap(err)
		}
		e.metrics, e.metricsAddr = srv, addr
	}
	return e, nil
}

// action is the absolute resize form action.
func (e *env) action() string {
	return e.page.URL(e.cfg.ResizePath)
}

// Close stops the manager, waiting for transcript uploads, then the
// metrics server.
func (e *env) Close() error {
	err := e.manager.Close()
	if e.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = stderrors.Join(err, e.metrics.Shutdown(ctx))
	}
	return err
}

// transcriptStore builds the configured stores. It returns nil when
// transcripts are off.
func transcriptStore(cfg config.TranscriptsConfig) (transcript.Store, error) {
	var stores transcript.MultiStore
	if cfg.Dir != "" {
		disk, err := transcript.NewDiskStore(cfg.Dir)
		if err != nil {
			return nil, errors.New("E125").Wrap(err)
		}
		stores = append(stores, disk)
	}
	if cfg.S3.Bucket != "" {
		client := transcript.NewS3Client(transcript.S3Config{
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
		stores = append(stores, transcript.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix))
	}
	switch len(stores) {
	case 0:
		return nil, nil
	case 1:
		return stores[0], nil
	}
	return stores, nil
}

// serveMetrics starts the /metrics endpoint. The listener is bound before
// returning so address errors surface immediately.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (*http.Server, net.Addr, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, ln.Addr(), nil
}
