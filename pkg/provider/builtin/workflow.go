package builtin

import (
	"context"
	"encoding/json"

	"github.com/checkdag/checkdag/pkg/host"
	"github.com/checkdag/checkdag/pkg/model"
	mderrors "github.com/checkdag/checkdag/pkg/model/errors"
	"github.com/checkdag/checkdag/pkg/provider"
)

// WorkflowProvider is the `workflow` check type: loads a nested
// model.WorkflowConfig and runs it to completion through the same
// pkg/host entry point a top-level run uses, flattening the nested run's
// aggregated output into one ReviewSummary (spec.md §4.4.4).
type WorkflowProvider struct {
	providers provider.Manager
}

func NewWorkflowProvider(providers provider.Manager) *WorkflowProvider {
	return &WorkflowProvider{providers: providers}
}

func (p *WorkflowProvider) Name() string        { return "workflow" }
func (p *WorkflowProvider) Description() string { return "runs a nested workflow to completion and flattens its results" }
func (p *WorkflowProvider) SupportedConfigKeys() []string {
	return []string{"workflow", "overrides", "inputs"}
}
func (p *WorkflowProvider) IsAvailable() bool      { return p.providers != nil }
func (p *WorkflowProvider) Requirements() []string { return nil }

func (p *WorkflowProvider) ValidateConfig(config map[string]any) bool {
	_, ok := config["workflow"]
	return ok
}

func (p *WorkflowProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	cfg, err := p.decodeWorkflow(config["workflow"])
	if err != nil {
		return nil, err
	}
	if overrides, ok := config["overrides"].(map[string]any); ok {
		applyOverrides(&cfg, overrides)
	}

	h, err := host.New(cfg, p.providers)
	if err != nil {
		return nil, mderrors.Wrap(mderrors.ConfigInvalid, "workflow: nested config invalid", err)
	}

	opts := model.DefaultRunOptions()
	if inputs, ok := config["inputs"].(map[string]any); ok {
		opts.Inputs = inputs
	}

	res, err := h.ExecuteChecks(ctx, pr, opts)
	if err != nil {
		return &model.ReviewSummary{
			Issues: []model.ReviewIssue{{RuleID: "workflow/error", Message: err.Error(), Severity: model.SeverityError}},
		}, nil
	}

	return flattenGrouped(res.Results), nil
}

// decodeWorkflow accepts either a typed model.WorkflowConfig (the common
// case for an embedder constructing it directly via pkg/workflow) or a
// generic map[string]any (already-parsed JSON, e.g. forwarded from a
// frontend). A typed config is returned as is; any other value is
// normalized through a JSON round trip.
func (p *WorkflowProvider) decodeWorkflow(v any) (model.WorkflowConfig, error) {
	switch cfg := v.(type) {
	case model.WorkflowConfig:
		return cfg, nil
	case *model.WorkflowConfig:
		if cfg == nil {
			return model.WorkflowConfig{}, mderrors.New(mderrors.ConfigInvalid, "workflow: nil nested config")
		}
		return *cfg, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return model.WorkflowConfig{}, mderrors.Wrap(mderrors.ConfigInvalid, "workflow: encoding nested config", err)
		}
		var cfg model.WorkflowConfig
		if err := json.Unmarshal(encoded, &cfg); err != nil {
			return model.WorkflowConfig{}, mderrors.Wrap(mderrors.ConfigInvalid, "workflow: decoding nested config", err)
		}
		return cfg, nil
	}
}

// applyOverrides rewrites a nested check's Config entries before
// instantiation. Keyed by checkId; only Config sub-keys are rewritten —
// structural fields (dependsOn, routing hooks) are not override targets,
// since rewriting the nested graph's shape belongs to the nested
// workflow's own authoring, not to the caller embedding it.
func applyOverrides(cfg *model.WorkflowConfig, overrides map[string]any) {
	for checkID, raw := range overrides {
		patch, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		def, ok := cfg.Checks[checkID]
		if !ok {
			continue
		}
		if def.Config == nil {
			def.Config = map[string]any{}
		}
		for k, v := range patch {
			def.Config[k] = v
		}
		cfg.Checks[checkID] = def
	}
}

func flattenGrouped(grouped map[string]map[string][]*model.ReviewSummary) *model.ReviewSummary {
	out := &model.ReviewSummary{Output: grouped}
	for _, byCheck := range grouped {
		for _, summaries := range byCheck {
			for _, s := range summaries {
				if s == nil {
					continue
				}
				out.Issues = append(out.Issues, s.Issues...)
			}
		}
	}
	return out
}
