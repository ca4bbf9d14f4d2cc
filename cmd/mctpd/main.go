// go-mctp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mctp.
//
// go-mctp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mctp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mctp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command mctpd runs an MCTP serial endpoint that answers control requests
// and exports its counters to Prometheus.
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

	mctp "github.com/ZaparooProject/go-mctp"
	"github.com/ZaparooProject/go-mctp/internal/config"
	"github.com/ZaparooProject/go-mctp/internal/logging"
	"github.com/ZaparooProject/go-mctp/internal/metrics"
	"github.com/ZaparooProject/go-mctp/polling"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type flags struct {
	configPath *string
	kind       *string
	port       *string
	logLevel   *string
	listPorts  *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "Path to the configuration file"),
		kind:       flag.String("transport", "", "Transport kind (uart or i2c), overrides the config file"),
		port:       flag.String("port", "", "Serial port or I2C bus, overrides the config file"),
		logLevel:   flag.String("log-level", "", "Log level (debug, info, warn, error)"),
		listPorts:  flag.Bool("list-ports", false, "List serial ports and I2C buses, then exit"),
	}
	flag.Parse()
	return f
}

func (f *flags) apply(cfg *config.Config) {
	if *f.kind != "" {
		cfg.Transport.Kind = *f.kind
	}
	if *f.port != "" {
		if cfg.Transport.Kind == config.TransportI2C {
			cfg.Transport.I2CBus = *f.port
		} else {
			cfg.Transport.Port = *f.port
		}
	}
	if *f.logLevel != "" {
		cfg.Logging.Level = *f.logLevel
	}
}

func main() {
	f := parseFlags()

	if *f.listPorts {
		if err := listPorts(os.Stdout); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to list ports: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*f.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("mctpd stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	transport, err := newTransport(cfg.Transport)
	if err != nil {
		return err
	}

	ep, err := mctp.New(transport, endpointOptions(cfg, logger)...)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("failed to create endpoint: %w", err)
	}
	defer func() { _ = ep.Close() }()

	if err := ep.Init(); err != nil {
		return fmt.Errorf("failed to initialize endpoint: %w", err)
	}

	actor, err := polling.NewEndpointActor(ep, &polling.Config{
		UpdateInterval: cfg.Loop.Interval,
		BurstLimit:     cfg.Loop.BurstLimit,
		EventQueue:     cfg.Loop.EventQueue,
	}, actorHandlers(cfg, logger), logger)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}

	var server *http.Server
	if cfg.Metrics.Enable {
		server = startMetrics(cfg.Metrics, ep, actor, logger)
	}

	if err := actor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor: %w", err)
	}
	logger.Info("endpoint running",
		zap.String("transport", cfg.Transport.Kind),
		zap.Int("unit", cfg.Endpoint.TransmissionUnit),
		zap.Bool("events", cfg.Endpoint.Events),
	)

	select {
	case <-ctx.Done():
	case <-actor.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := actor.Stop(shutdownCtx); err != nil {
		logger.Warn("actor stop", zap.Error(err))
	}
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	stats := ep.Stats()
	logger.Info("final counters",
		zap.Uint64("accepted", stats.Accepted),
		zap.Uint64("responses", stats.Responses),
		zap.Uint64("events", stats.Events),
		zap.Uint64("bytesReceived", stats.BytesReceived),
		zap.Uint64("bytesSent", stats.BytesSent),
	)
	if err := actor.Err(); err != nil {
		return fmt.Errorf("endpoint stopped: %w", err)
	}
	return nil
}

func endpointOptions(cfg *config.Config, logger *zap.Logger) []mctp.Option {
	opts := []mctp.Option{
		mctp.WithTransmissionUnit(cfg.Endpoint.TransmissionUnit),
		mctp.WithLogger(logger),
	}
	if cfg.Endpoint.Events {
		opts = append(opts, mctp.WithEventSlot(cfg.Endpoint.EventCapacity))
	}
	if v := cfg.Endpoint.PLDM; v != nil {
		opts = append(opts, mctp.WithVersionProvider(mctp.VersionTable{
			mctp.MessageTypePLDM: {Major: v.Major, Minor: v.Minor, Update: v.Update, Alpha: v.Alpha},
		}))
	}
	return opts
}

// actorHandlers returns the packet handlers of the daemon. It has no PLDM
// responder, so an advertised PLDM version is flagged once at startup.
func actorHandlers(cfg *config.Config, logger *zap.Logger) polling.Handlers {
	if v := cfg.Endpoint.PLDM; v != nil {
		logger.Warn("PLDM version advertised without a PLDM handler, PLDM requests will be ignored",
			zap.String("version", fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Update, v.Alpha)))
	}
	return polling.Handlers{}
}

func startMetrics(
	cfg config.MetricsConfig, ep *mctp.Endpoint, actor *polling.EndpointActor, logger *zap.Logger,
) *http.Server {
	reg := metrics.NewRegistry()
	reg.MustRegister(metrics.NewCollector(ep, actor))

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return server
}
