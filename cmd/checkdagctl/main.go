// Command checkdagctl is the thin CLI binding for the workflow host: load a
// check-graph config and a PR payload from disk, run one pass, print the
// grouped results as JSON. It is deliberately not a real CLI/MCP surface —
// see pkg/host for the library entry point frontends actually build on.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/checkdag/checkdag/internal/config"
	"github.com/checkdag/checkdag/internal/logger"
	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/host"
	"github.com/checkdag/checkdag/pkg/host/audit"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/provider/builtin"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a workflow config JSON file")
		prPath     = flag.String("pr", "", "path to a PRInfo JSON file (defaults to an empty PR)")
		event      = flag.String("event", "manual", "event name seeded into RunOptions")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if *configPath == "" {
		log.Fatal().Msg("checkdagctl: -config is required")
	}

	wf, err := loadWorkflowConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("checkdagctl: failed to load workflow config")
	}

	pr := &model.PRInfo{}
	if *prPath != "" {
		if pr, err = loadPRInfo(*prPath); err != nil {
			log.Fatal().Err(err).Msg("checkdagctl: failed to load PR payload")
		}
	}

	registry := provider.NewRegistry()
	bus := eventbus.New()

	builtin.MustRegisterBuiltins(registry, builtin.Options{
		AI: builtin.AIOptions{
			APIKey:       cfg.AI.APIKey,
			BaseURL:      cfg.AI.BaseURL,
			DefaultModel: cfg.AI.Model,
		},
		Sandbox: model.SandboxProfile{ReadOnly: true},
		Bus:     bus,
	})

	opts := []host.Option{
		host.WithLogger(log),
		host.WithBus(bus),
		host.WithLoopBudget(cfg.Scheduler.LoopBudget),
	}
	if cfg.Audit.Enabled {
		sink := audit.NewSink(cfg.Audit.DSN)
		defer sink.Close()
		ctx := context.Background()
		if err := sink.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("checkdagctl: failed to initialize audit schema")
		}
		opts = append(opts, host.WithAudit(sink))
	}

	h, err := host.New(*wf, registry, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("checkdagctl: invalid workflow config")
	}
	defer h.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOpts := model.DefaultRunOptions()
	runOpts.LoopBudget = cfg.Scheduler.LoopBudget
	runOpts.MaxParallelism = cfg.Scheduler.MaxParallelism
	runOpts.FailFast = cfg.Scheduler.FailFast
	runOpts.Event = *event

	res, err := h.ExecuteChecks(ctx, pr, runOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("checkdagctl: run failed")
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("checkdagctl: failed to marshal results")
	}
	fmt.Println(string(out))
}

func loadWorkflowConfig(path string) (*model.WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wf model.WorkflowConfig
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

func loadPRInfo(path string) (*model.PRInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pr model.PRInfo
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}
