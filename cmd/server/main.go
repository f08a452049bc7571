package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/devghori1264/aerophoenix/showcase/internal/api"
	"github.com/devghori1264/aerophoenix/showcase/internal/config"
	"github.com/devghori1264/aerophoenix/showcase/internal/logging"
	natsclient "github.com/devghori1264/aerophoenix/showcase/internal/nats"
	"github.com/devghori1264/aerophoenix/showcase/internal/server"
	"github.com/devghori1264/aerophoenix/showcase/internal/storage"
	"github.com/devghori1264/aerophoenix/showcase/internal/telemetry"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("grpc-addr", "", "gRPC health listen address (overrides config)")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address (overrides config)")
	driver := flag.String("storage-driver", "", "badger, sqlite or memory (overrides config)")
	dbPath := flag.String("db", "", "storage path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	override(&cfg.Server.GRPCAddr, *addr)
	override(&cfg.Server.HTTPAddr, *httpAddr)
	override(&cfg.Server.MetricsAddr, *metricsAddr)
	override(&cfg.Storage.Driver, *driver)
	override(&cfg.Storage.Path, *dbPath)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	config.Normalize(cfg)

	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry.Enabled, os.Stdout, cfg.Public.Version)
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open store",
			zap.String("driver", cfg.Storage.Driver),
			zap.String("path", cfg.Storage.Path),
			zap.Error(err))
	}

	var opts []server.Option
	var pub *natsclient.Publisher
	if cfg.NATS.URL != "" {
		pub, err = natsclient.NewPublisher(cfg.NATS.URL, logger.Named("nats"))
		if err != nil {
			// pages still render without event fan-out
			logger.Warn("nats unavailable, revalidation events disabled",
				zap.String("url", cfg.NATS.URL), zap.Error(err))
		} else {
			opts = append(opts, server.WithPublisher(pub))
		}
	}

	srv, err := server.New(cfg, store, logger, opts...)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}

	// Start gRPC health server
	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen failed", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
		}
		grpcServer = grpc.NewServer()
		srv.RegisterGRPC(grpcServer)
		go func() {
			logger.Info("gRPC health listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil {
				logger.Fatal("grpc serve error", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Handler(),
	}
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http listen", zap.Error(err))
		}
	}()

	// Metrics endpoint
	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		api.RegisterMetrics(mux)
		metricsServer = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("Prometheus metrics available", zap.String("addr", cfg.Server.MetricsAddr+"/metrics"))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("metrics server", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv.Start(ctx)

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown initiated")

	srv.Drain()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	// no request can schedule a regeneration past this point
	srv.Shutdown()
	if pub != nil {
		pub.Close()
	}
	if err := store.Close(); err != nil {
		logger.Warn("store close", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
