// Command server runs checkdag as a long-lived HTTP/WebSocket gateway
// (pkg/gateway) in front of a single Host: POST /api/v1/runs triggers a
// run against a workflow config loaded once at startup, GET /api/v1/events
// streams the event bus live, GET /healthz is the liveness probe.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/checkdag/checkdag/internal/config"
	"github.com/checkdag/checkdag/internal/logger"
	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/gateway"
	"github.com/checkdag/checkdag/pkg/host"
	"github.com/checkdag/checkdag/pkg/host/audit"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/provider/builtin"
)

func main() {
	configPath := flag.String("workflow", "", "path to a workflow config JSON file")
	port := flag.Int("port", 0, "listen port (overrides CHECKDAG_PORT)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if *configPath == "" {
		log.Fatal().Msg("server: -workflow is required")
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("server: failed to read workflow config")
	}
	var wf model.WorkflowConfig
	if err := json.Unmarshal(data, &wf); err != nil {
		log.Fatal().Err(err).Msg("server: failed to parse workflow config")
	}

	bus := eventbus.New()

	registry := provider.NewRegistry()
	builtin.MustRegisterBuiltins(registry, builtin.Options{
		AI: builtin.AIOptions{
			APIKey:       cfg.AI.APIKey,
			BaseURL:      cfg.AI.BaseURL,
			DefaultModel: cfg.AI.Model,
		},
		Sandbox: model.SandboxProfile{ReadOnly: true},
		Bus:     bus,
	})

	hostOpts := []host.Option{
		host.WithLogger(log),
		host.WithBus(bus),
		host.WithLoopBudget(cfg.Scheduler.LoopBudget),
	}
	if cfg.Audit.Enabled {
		sink := audit.NewSink(cfg.Audit.DSN)
		defer sink.Close()
		if err := sink.InitSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("server: failed to initialize audit schema")
		}
		hostOpts = append(hostOpts, host.WithAudit(sink))
	}

	h, err := host.New(wf, registry, hostOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("server: invalid workflow config")
	}
	defer h.Shutdown()

	gw := gateway.NewServer(h, log)
	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      gw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server: failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server: forced shutdown")
		os.Exit(1)
	}
	log.Info().Msg("server: exited gracefully")
}
