package builtin

import (
	"context"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

// NoopProvider always succeeds with an empty ReviewSummary. Used for
// synchronization points, routing hubs, and fail_if-only quality gates.
type NoopProvider struct{}

func (NoopProvider) Name() string                              { return "noop" }
func (NoopProvider) Description() string                       { return "succeeds with no output; a synchronization or routing point" }
func (NoopProvider) SupportedConfigKeys() []string              { return nil }
func (NoopProvider) IsAvailable() bool                          { return true }
func (NoopProvider) Requirements() []string                     { return nil }
func (NoopProvider) ValidateConfig(config map[string]any) bool  { return true }

func (NoopProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	return &model.ReviewSummary{}, nil
}
