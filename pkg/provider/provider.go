// Package provider defines the per-check execution contract (spec.md §4.3)
// and the process-wide registry providers register into. This mirrors the
// teacher's pkg/executor/executor.go + registry.go split: a small interface
// every implementation satisfies, plus a Manager-shaped Registry that
// dispatches on a type discriminator string.
package provider

import (
	"context"

	"github.com/checkdag/checkdag/pkg/model"
)

// SessionInfo is model.SessionInfo, re-exported under this package so
// provider implementations don't need a second import for it.
type SessionInfo = model.SessionInfo

// Provider is the contract every check type (ai, command, webhook, workflow,
// noop, log, human-input) implements (spec.md §4.3).
type Provider interface {
	// Name is the `type` discriminator this provider registers under.
	Name() string

	// Description is human-facing documentation text.
	Description() string

	// ValidateConfig reports whether config is structurally usable by this
	// provider: type match plus any required fields.
	ValidateConfig(config map[string]any) bool

	// SupportedConfigKeys documents the config keys this provider reads.
	SupportedConfigKeys() []string

	// IsAvailable reports structural readiness (e.g. an API key is
	// present). Providers that are never environment-dependent (noop, log)
	// always return true.
	IsAvailable() bool

	// Requirements lists human-readable prerequisites (e.g. "API key for an
	// OpenAI-compatible endpoint").
	Requirements() []string

	// Execute runs the check. Must be non-throwing for expected error
	// classes: translate them into a ReviewSummary issue with a ruleId
	// ending in "/error" rather than returning a Go error, so the scheduler
	// can record a normal (degraded) ReviewSummary instead of treating the
	// check as having panicked. Execute may still return a Go error for
	// genuinely unexpected failures, which the scheduler records as
	// "errored" (spec.md §4.6 "Failure isolation").
	Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, dependencyResults map[string]any, sessionInfo SessionInfo) (*model.ReviewSummary, error)
}
