// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// hioload-echo runs a sharded epoll echo server: a TCP acceptor feeding a
// reactor, plus a Prometheus/debug HTTP endpoint.
//
// Usage:
//
//	hioload-echo [-config hioload.yaml]
//
// Every setting can be overridden with HIOLOAD_* environment variables,
// e.g. HIOLOAD_LISTEN_ADDR=:9001 HIOLOAD_REACTOR_THREADS=4.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/transport/tcp"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "hioload-echo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	loader := control.NewLoader(configPath)
	settings, err := loader.Load()
	if err != nil {
		return err
	}
	logger, level, err := control.NewLogger(settings.LogLevel, settings.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	loader.OnReload(func(s *control.Settings) {
		if lvl, err := control.ParseLevel(s.LogLevel); err == nil && lvl != level.Level() {
			level.SetLevel(lvl)
			logger.Info("log level changed", zap.Stringer("level", lvl))
		}
	})
	loader.Watch(func(err error) {
		logger.Warn("config reload rejected", zap.Error(err))
	})

	r, err := reactor.New(settings.ReactorConfig(logger))
	if err != nil {
		return fmt.Errorf("create reactor: %w", err)
	}
	if err := r.Run(); err != nil {
		r.Destroy()
		return fmt.Errorf("start reactor: %w", err)
	}

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("reactor.stats", func() any { return r.Stats() })

	acceptor, err := tcp.Listen(settings.ListenerConfig(logger), r)
	if err != nil {
		_ = r.Shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return acceptor.Serve(ctx)
	})
	if settings.MetricsAddr != "" {
		srv, err := metricsServer(settings.MetricsAddr, r, probes)
		if err != nil {
			_ = acceptor.Close()
			_ = r.Shutdown()
			return err
		}
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", settings.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("hioload-echo started",
		zap.String("listen", acceptor.Addr().String()),
		zap.Int("threads", r.Threads()))

	err = g.Wait()
	shutdown(logger, r, probes)
	return err
}

func metricsServer(addr string, r *reactor.Reactor, probes *control.DebugProbes) (*http.Server, error) {
	reg, err := control.NewMetricsRegistry(r.Collector())
	if err != nil {
		return nil, fmt.Errorf("metrics registry: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", control.MetricsHandler(reg))
	mux.Handle("/debug/state", probes)
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}, nil
}

// shutdown releases the reactor and logs the final probe state.
func shutdown(logger *zap.Logger, r *reactor.Reactor, probes *control.DebugProbes) {
	if err := r.Shutdown(); err != nil {
		logger.Error("reactor shutdown", zap.Error(err))
	}
	state := probes.DumpState()
	fields := make([]zapcore.Field, 0, len(state))
	for _, name := range probes.Names() {
		fields = append(fields, zap.Any(name, state[name]))
	}
	logger.Info("hioload-echo stopped", fields...)
}
