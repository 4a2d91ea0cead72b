// Package host is the Workflow Host (C10, spec.md §4.10): the single
// entry point that resolves a loaded config into a check graph, drives the
// scheduler, aggregates results, and acts as the event bus gateway
// frontends subscribe against. Grounded on the teacher's DAGExecutor
// construction in cmd/server (config -> executor -> bus wiring) and its
// ConsoleLogger/MetricsCollector composition in factory.go — this package
// is where those same pieces are wired together for checkdag's own
// scheduler/aggregator/eventbus trio instead of mbflow's node executor.
package host

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/checkdag/checkdag/pkg/aggregator"
	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/scheduler"
	"github.com/checkdag/checkdag/pkg/session"
)

// AuditSink persists a run's execution records. pkg/host/audit provides a
// bun-backed implementation; hosts that don't need persistence simply
// never set one (see WithAudit).
type AuditSink interface {
	Append(ctx context.Context, records []*model.ExecutionRecord) error
}

// Result is what ExecuteChecks returns: grouped, deduped results plus the
// run's statistics (spec.md §6 "Outputs format").
type Result struct {
	Results    aggregator.Grouped
	Statistics *model.ExecutionStatistics
}

// Host owns config resolution and one run's lifecycle.
type Host struct {
	config     model.WorkflowConfig
	checks     map[string]*model.CheckDefinition
	providers  provider.Manager
	sessions   *session.Registry
	bus        *eventbus.Bus
	logger     zerolog.Logger
	validate   *validator.Validate
	loopBudget int
	audit      AuditSink
}

// Option configures New.
type Option func(*Host)

func WithLogger(l zerolog.Logger) Option { return func(h *Host) { h.logger = l } }
func WithBus(b *eventbus.Bus) Option     { return func(h *Host) { h.bus = b } }
func WithSessions(s *session.Registry) Option {
	return func(h *Host) { h.sessions = s }
}
func WithLoopBudget(n int) Option { return func(h *Host) { h.loopBudget = n } }
func WithAudit(sink AuditSink) Option { return func(h *Host) { h.audit = sink } }

// New resolves cfg into a check graph and validates it structurally with
// go-playground/validator (spec.md §6: config is a format-agnostic
// structural contract; this is the in-process invariant check, not the
// out-of-scope schema validation).
func New(cfg model.WorkflowConfig, providers provider.Manager, opts ...Option) (*Host, error) {
	h := &Host{
		config:     cfg,
		providers:  providers,
		sessions:   session.New(),
		bus:        eventbus.New(),
		logger:     zerolog.Nop(),
		validate:   validator.New(),
		loopBudget: model.DefaultRunOptions().LoopBudget,
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.validate.Struct(cfg); err != nil {
		return nil, mderrors.Wrap(mderrors.ConfigInvalid, "host: invalid workflow config", err)
	}

	checks := make(map[string]*model.CheckDefinition, len(cfg.Checks))
	for id, def := range cfg.Checks {
		if def.ID == "" {
			def.ID = id
		}
		if def.ID != id {
			return nil, mderrors.New(mderrors.ConfigInvalid,
				fmt.Sprintf("host: check keyed %q declares mismatched id %q", id, def.ID))
		}
		d := def
		checks[id] = &d
	}
	for id, def := range checks {
		for _, dep := range def.DependsOn {
			if _, ok := checks[dep]; !ok {
				return nil, mderrors.New(mderrors.ConfigInvalid,
					fmt.Sprintf("host: check %q depends on unknown check %q", id, dep))
			}
		}
	}
	h.checks = checks

	return h, nil
}

// Bus exposes the event bus so frontends can Subscribe before the run
// starts (spec.md §4.10: "acts as a gateway to the event bus").
func (h *Host) Bus() *eventbus.Bus { return h.bus }

// ExecuteChecks drives one run to completion: builds a scheduler engine
// over the resolved check graph, runs it, and aggregates the results. When
// the run fails (or panics) it publishes Shutdown with the error and
// returns that error with a nil Result; results accumulated before the
// failure are not aggregated, audited or returned.
func (h *Host) ExecuteChecks(ctx context.Context, pr *model.PRInfo, opts *model.RunOptions) (res *Result, err error) {
	if opts == nil {
		opts = model.DefaultRunOptions()
		opts.LoopBudget = h.loopBudget
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = mderrors.New(mderrors.ProviderFatal, fmt.Sprintf("host: run panicked: %v", rec))
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("host: run failed")
			h.bus.Publish(eventbus.Shutdown, eventbus.ShutdownPayload{Error: err})
		}
	}()

	eng := scheduler.New(h.checks, h.providers, h.sessions, h.bus, h.config.FailureConditions, opts.LoopBudget)

	schedRes, runErr := eng.Run(ctx, pr, opts)
	if runErr != nil {
		return nil, runErr
	}

	if h.audit != nil {
		if auditErr := h.audit.Append(ctx, schedRes.Records); auditErr != nil {
			h.logger.Warn().Err(auditErr).Msg("host: audit flush failed, continuing with in-memory results")
		}
	}

	return &Result{
		Results:    aggregator.Aggregate(h.checks, schedRes.Summaries),
		Statistics: schedRes.Statistics,
	}, nil
}

// Shutdown closes the event bus; callers that own a long-lived Host
// (rather than a one-shot ExecuteChecks call) should defer this.
func (h *Host) Shutdown() { h.bus.Close() }
