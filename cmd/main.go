package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/chat-relay/config"
	"github.com/cwrk-planet/chat-relay/internal/metrics"
	"github.com/cwrk-planet/chat-relay/internal/registry"
	"github.com/cwrk-planet/chat-relay/internal/service"
	grpcx "github.com/cwrk-planet/chat-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-relay/internal/transport/http"
	"github.com/cwrk-planet/chat-relay/internal/transport/tcp"
	"github.com/cwrk-planet/chat-relay/internal/transport/ws"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	tp := logger.InitTracing()

	slog.Info("starting chat-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- metrics ---
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	// --- core ---
	writeTimeout := cfg.WriteTimeoutDuration()
	rooms := registry.New(logger.Component("registry"), m)
	bc := service.NewBroadcaster(rooms, writeTimeout, logger.Component("broadcaster"), m)
	connHandler := service.NewConnHandler(rooms, bc, m)

	// --- transports ---
	tcpSrv := tcp.NewServer(connHandler, tcp.Options{
		MaxLineBytes: cfg.TCP.MaxLineBytes,
		WriteTimeout: writeTimeout,
	}, logger.Component("tcp"))

	wsSrv := ws.NewServer(connHandler, ws.Options{
		MaxLineBytes: cfg.TCP.MaxLineBytes,
		WriteTimeout: writeTimeout,
	}, logger.Component("ws"))

	router := httpx.NewRouter(httpx.RouterDeps{
		Handler:     httpx.NewHandler(rooms),
		Metrics:     metrics.Handler(promReg),
		WS:          wsSrv.HandleWS,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Log:         logger.Component("http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger.Component("grpc"))

	// --- run ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tcpSrv.ListenAndServe(gctx, cfg.TCP.Addr)
	})

	if cfg.HTTP.Addr != "" {
		g.Go(func() error {
			slog.Info("http listen", "addr", cfg.HTTP.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if cfg.GRPC.Addr != "" {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			grpcSrv.SetServing(true)
			return grpcSrv.Serve(lis)
		})
	}

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		grpcSrv.GracefulStop()
		if err := tcpSrv.Shutdown(ctxShutdown); err != nil {
			slog.Warn("tcp shutdown", "err", err)
		}
		if err := httpSrv.Shutdown(ctxShutdown); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
		return nil
	})

	err = g.Wait()
	_ = tp.Shutdown(context.Background())
	if err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}
