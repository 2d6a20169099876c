package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/feltlabs/pitboss/internal/escrow"
	"github.com/feltlabs/pitboss/internal/server"
	"github.com/feltlabs/pitboss/internal/store"
)

// version is set by ldflags during build
var version = "dev"

var cli struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Config   string           `short:"c" default:"pitboss.hcl" help:"Path to HCL configuration file"`
	Addr     string           `short:"a" help:"Listen address (overrides config)"`
	LogLevel string           `short:"l" help:"Log level: debug, info, warn, error (overrides config)"`
	DB       string           `help:"Path to the sqlite ledger (overrides config)"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("pitbossd"),
		kong.Description("Multi-table no-limit hold'em room for bots and humans"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	cfg, err := server.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.LogLevel != "" {
		cfg.Server.LogLevel = cli.LogLevel
	}
	if cli.DB != "" {
		cfg.Store.Path = cli.DB
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	st, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	queue := store.NewQueue(st, cfg.Store.QueueSize, logger)
	hub := server.NewHub(logger)

	var esc escrow.Client
	if cfg.Escrow != nil {
		esc = escrow.NewHTTPClient(cfg.Escrow.BaseURL, cfg.Escrow.Timeout())
		logger.Info("escrow service configured", "base_url", cfg.Escrow.BaseURL)
	} else {
		esc = escrow.NewMock()
		logger.Warn("no escrow block in config, chips settle against the in-memory mock")
	}

	manager, err := server.NewManager(cfg, st, queue, hub, quartz.NewReal(), logger)
	if err != nil {
		return err
	}

	auth := server.Chain{server.NewStaticKeys(cfg.AgentKeys), server.NewStoreKeys(st)}
	srv := server.NewServer(manager, esc, auth, hub, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting pitboss",
		"version", version,
		"addr", cfg.Server.Addr,
		"tables", len(cfg.Tables),
		"bots", len(cfg.Bots),
		"db", cfg.Store.Path)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
