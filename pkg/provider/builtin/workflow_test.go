package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

func TestWorkflowProvider_RunsNestedConfigAndFlattensResults(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(NoopProvider{}))

	nested := model.WorkflowConfig{
		Version: "1",
		Checks: map[string]model.CheckDefinition{
			"inner": {ID: "inner", Type: "noop"},
		},
	}

	p := NewWorkflowProvider(reg)
	summary, err := p.Execute(context.Background(), &model.PRInfo{}, map[string]any{"workflow": nested}, nil, provider.SessionInfo{})

	require.NoError(t, err)
	assert.NotNil(t, summary)
}

func TestWorkflowProvider_OverridesPatchNestedCheckConfig(t *testing.T) {
	cfg := model.WorkflowConfig{
		Version: "1",
		Checks: map[string]model.CheckDefinition{
			"c": {ID: "c", Type: "log", Config: map[string]any{"message": "original"}},
		},
	}
	applyOverrides(&cfg, map[string]any{"c": map[string]any{"message": "patched"}})
	assert.Equal(t, "patched", cfg.Checks["c"].Config["message"])
}

func TestWorkflowProvider_InvalidNestedConfigErrors(t *testing.T) {
	reg := provider.NewRegistry()
	p := NewWorkflowProvider(reg)
	_, err := p.Execute(context.Background(), &model.PRInfo{}, map[string]any{"workflow": map[string]any{}}, nil, provider.SessionInfo{})
	assert.Error(t, err)
}
