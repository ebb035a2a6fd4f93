// Command minipgd runs the minipg server as a standalone process: it
// loads YAML configuration, wires the configured storage engine and
// credential verifier, starts the optional metrics endpoint, and serves
// the PostgreSQL wire protocol until terminated.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/minipg/minipg"
	"github.com/minipg/minipg/authsvc"
	"github.com/minipg/minipg/catalog"
	"github.com/minipg/minipg/config"
	"github.com/minipg/minipg/kvstore"
	"github.com/minipg/minipg/metrics"
)

func main() {
	configPath := flag.String("config", "minipgd.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger := slog.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading configuration", slog.Any("err", err))
		os.Exit(1)
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		logger.Error("opening storage backend", slog.Any("err", err))
		os.Exit(1)
	}

	ctx := context.Background()
	cat, err := catalog.New(ctx, backend)
	if err != nil {
		logger.Error("provisioning catalog", slog.Any("err", err))
		os.Exit(1)
	}

	options := []minipg.OptionFn{
		minipg.WithLogger(logger),
		minipg.WithCatalog(cat),
		minipg.WithAuth(minipg.ClearTextPassword(verifierFor(cfg.Auth))),
	}

	var collector *metrics.Collector
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		metricsServer = metrics.NewServer(cfg.Metrics.Bind, collector, logger)
		metricsServer.Start()
		options = append(options, minipg.WithMetrics(collector))
	}

	if cfg.Listen.TLSEnabled() {
		cert, err := tls.LoadX509KeyPair(cfg.Listen.TLSCert, cfg.Listen.TLSKey)
		if err != nil {
			logger.Error("loading TLS keypair", slog.Any("err", err))
			os.Exit(1)
		}
		options = append(options, minipg.WithTLSConfig(&tls.Config{Certificates: []tls.Certificate{cert}}))
	}

	server, err := minipg.NewServer(options...)
	if err != nil {
		logger.Error("constructing server", slog.Any("err", err))
		os.Exit(1)
	}

	watcher, err := config.NewWatcher(*configPath, logger, func(reloaded *config.Config) {
		// The listener and backend are already bound; a hot reload only
		// takes effect for settings read fresh per connection/request,
		// such as the bcrypt credential map.
		server.Auth = minipg.ClearTextPassword(verifierFor(reloaded.Auth))
	})
	if err != nil {
		logger.Warn("configuration hot-reload disabled", slog.Any("err", err))
	} else {
		defer watcher.Stop()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("starting minipg server", slog.String("addr", cfg.Listen.Address))
		if err := server.ListenAndServe(cfg.Listen.Address); err != nil {
			logger.Error("server stopped", slog.Any("err", err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if metricsServer != nil {
		_ = metricsServer.Stop(context.Background())
	}
	_ = server.Close()
	<-done
}

func openBackend(cfg config.StorageConfig) (kvstore.Backend, error) {
	if cfg.Engine == "sqlite" {
		return kvstore.OpenSQLite(cfg.Path)
	}
	return kvstore.NewMemory(), nil
}

func verifierFor(cfg config.AuthConfig) authsvc.Verifier {
	if cfg.Mode == "bcrypt" {
		return authsvc.NewBcrypt(cfg.BcryptHashByUser)
	}
	return authsvc.AcceptAny{}
}
