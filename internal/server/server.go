// Package server wires the showcase components together and reports their
// readiness over the gRPC health protocol.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/api"
	"github.com/devghori1264/aerophoenix/showcase/internal/config"
	"github.com/devghori1264/aerophoenix/showcase/internal/isr"
	"github.com/devghori1264/aerophoenix/showcase/internal/pages"
	"github.com/devghori1264/aerophoenix/showcase/internal/serverinfo"
	"github.com/devghori1264/aerophoenix/showcase/internal/storage"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported next to the overall ("") status.
const HealthService = "showcase"

// Server owns the request-path components. Storage and the event publisher
// are opened by the caller and passed in.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *zap.Logger

	info   *serverinfo.Provider
	cache  *isr.Cache
	health *health.Server
	mux    *http.ServeMux
	pages  *pages.Handler
}

type Option func(*options)

type options struct {
	publisher isr.EventPublisher
	clock     func() time.Time
	provider  *serverinfo.Provider
}

// WithPublisher announces every regeneration through p.
func WithPublisher(p isr.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithClock replaces time.Now for the cache and the pages.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithProvider uses an existing status provider instead of creating one.
func WithProvider(p *serverinfo.Provider) Option {
	return func(o *options) { o.provider = p }
}

// New creates a new server instance. Nothing is rendered until Start.
func New(cfg *config.Config, store storage.Store, logger *zap.Logger, opts ...Option) (*Server, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	info := o.provider
	if info == nil {
		var err error
		info, err = serverinfo.NewProvider(cfg.Runtime.Mode)
		if err != nil {
			return nil, fmt.Errorf("server info: %w", err)
		}
	}

	cacheOpts := []isr.Option{
		isr.WithClock(o.clock),
		isr.WithRegenTimeout(cfg.ISR.RegenTimeout),
		isr.WithServerID(info.ServerID()),
	}
	if o.publisher != nil {
		cacheOpts = append(cacheOpts, isr.WithPublisher(o.publisher))
	}
	cache := isr.New(store, logger.Named("isr"), cacheOpts...)

	pageHandler, err := pages.NewHandler(pages.Options{
		Settings:        settingsFrom(cfg),
		Info:            info,
		Cache:           cache,
		Store:           store,
		Logger:          logger.Named("pages"),
		IndexRevalidate: cfg.ISR.IndexRevalidate,
		PostRevalidate:  cfg.ISR.PostRevalidate,
		Now:             o.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("pages: %w", err)
	}
	apiHandler := api.NewHandler(info, logger.Named("api"),
		api.WithRevalidator(cache, cfg.ISR.RevalidateToken),
		api.WithClock(o.clock),
	)

	mux := http.NewServeMux()
	apiHandler.Register(mux)
	pageHandler.Register(mux)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		info:   info,
		cache:  cache,
		health: hs,
		mux:    mux,
		pages:  pageHandler,
	}, nil
}

func settingsFrom(cfg *config.Config) pages.Settings {
	return pages.Settings{
		AppName:     cfg.Public.AppName,
		Version:     cfg.Public.Version,
		APIURL:      cfg.Public.APIURL,
		Mode:        cfg.Runtime.Mode,
		ServerLabel: cfg.Runtime.ServerLabel,
		Environment: cfg.Runtime.Environment,
		DatabaseURL: cfg.Runtime.DatabaseURL,
		APIKey:      cfg.Runtime.APIKey,
		Region:      cfg.Runtime.Region,
		Ray:         cfg.Runtime.Ray,
		AppVersion:  cfg.Runtime.AppVersion,
		BuildID:     cfg.Runtime.BuildID,
	}
}

// RegisterGRPC registers the gRPC handlers.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.health)
}

// Handler returns the HTTP handler with logging, metrics, tracing and
// panic recovery applied.
func (s *Server) Handler() http.Handler {
	return api.Wrap(s.mux, s.logger.Named("http"), s.pages.ErrorPage())
}

// Start prerenders the cached pages (when configured) and flips the health
// status to SERVING. A failed prerender is logged; pages then render on
// their first request.
func (s *Server) Start(ctx context.Context) {
	if s.cfg.ISR.Prerender {
		start := time.Now()
		if err := s.cache.Prerender(ctx); err != nil {
			s.logger.Warn("prerender incomplete", zap.Error(err))
		} else {
			s.logger.Info("prerender complete",
				zap.Int("pages", len(s.cache.Keys())),
				zap.Duration("took", time.Since(start)))
		}
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("serving", zap.String("serverId", s.info.ServerID()))
}

// Drain reports NOT_SERVING so health-checking balancers stop routing
// here. Requests keep being served.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Shutdown reports NOT_SERVING, stops scheduling regenerations and waits
// for the running ones. The store is left open for the caller to close.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.cache.Close()
}

func (s *Server) Info() *serverinfo.Provider { return s.info }

func (s *Server) Cache() *isr.Cache { return s.cache }
