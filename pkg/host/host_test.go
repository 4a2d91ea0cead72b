package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

type fakeProvider struct{ name string }

func (f *fakeProvider) Name() string                             { return f.name }
func (f *fakeProvider) Description() string                      { return "fake" }
func (f *fakeProvider) ValidateConfig(config map[string]any) bool { return true }
func (f *fakeProvider) SupportedConfigKeys() []string             { return nil }
func (f *fakeProvider) IsAvailable() bool                         { return true }
func (f *fakeProvider) Requirements() []string                    { return nil }
func (f *fakeProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	return &model.ReviewSummary{}, nil
}

func testConfig() model.WorkflowConfig {
	return model.WorkflowConfig{
		Version: "1",
		Checks: map[string]model.CheckDefinition{
			"lint": {ID: "lint", Type: "fake", On: []string{"manual"}},
		},
	}
}

func TestNew_ValidatesConfigAndResolvesChecks(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(&fakeProvider{name: "fake"}))

	h, err := New(testConfig(), reg)
	require.NoError(t, err)
	assert.Contains(t, h.checks, "lint")
}

func TestNew_RejectsMissingVersion(t *testing.T) {
	reg := provider.NewRegistry()
	cfg := testConfig()
	cfg.Version = ""

	_, err := New(cfg, reg)
	assert.Error(t, err)
}

func TestNew_RejectsUnknownDependency(t *testing.T) {
	reg := provider.NewRegistry()
	cfg := testConfig()
	check := cfg.Checks["lint"]
	check.DependsOn = []string{"ghost"}
	cfg.Checks["lint"] = check

	_, err := New(cfg, reg)
	assert.Error(t, err)
}

func TestExecuteChecks_RunsGraphAndReturnsGroupedResults(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(&fakeProvider{name: "fake"}))

	h, err := New(testConfig(), reg)
	require.NoError(t, err)

	res, err := h.ExecuteChecks(context.Background(), &model.PRInfo{}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Statistics)
	assert.Contains(t, res.Results, "lint")
}

type failingAuditSink struct{ called bool }

func (f *failingAuditSink) Append(ctx context.Context, records []*model.ExecutionRecord) error {
	f.called = true
	return assert.AnError
}

func TestExecuteChecks_SurvivesAuditFlushFailure(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(&fakeProvider{name: "fake"}))

	sink := &failingAuditSink{}
	h, err := New(testConfig(), reg, WithAudit(sink))
	require.NoError(t, err)

	res, err := h.ExecuteChecks(context.Background(), &model.PRInfo{}, nil)
	require.NoError(t, err)
	assert.True(t, sink.called)
	assert.NotNil(t, res)
}
