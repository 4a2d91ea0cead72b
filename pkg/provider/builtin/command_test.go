package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

func TestCommandProvider_ParsesLineIssues(t *testing.T) {
	p := NewCommandProvider(model.SandboxProfile{})
	summary, err := p.Execute(context.Background(), &model.PRInfo{}, map[string]any{
		"exec": `printf 'main.go:10:2: warning: unused variable\n'`,
	}, nil, provider.SessionInfo{})

	require.NoError(t, err)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, "main.go", summary.Issues[0].File)
	assert.Equal(t, 10, summary.Issues[0].Line)
	assert.Equal(t, model.SeverityWarning, summary.Issues[0].Severity)
}

func TestCommandProvider_JSONFilterPath(t *testing.T) {
	p := NewCommandProvider(model.SandboxProfile{})
	summary, err := p.Execute(context.Background(), &model.PRInfo{}, map[string]any{
		"exec":         `printf '{"findings":[{"file":"a.go","line":1,"ruleId":"r","message":"m","severity":"error"}]}'`,
		"outputFormat": "json",
		"jqFilter":     ".findings",
	}, nil, provider.SessionInfo{})

	require.NoError(t, err)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, "a.go", summary.Issues[0].File)
}

func TestCommandProvider_TemplateResolvesCommandLine(t *testing.T) {
	p := NewCommandProvider(model.SandboxProfile{})
	summary, err := p.Execute(context.Background(), &model.PRInfo{Title: "hello"}, map[string]any{
		"exec": `printf '{{ pr.title }}'`,
	}, nil, provider.SessionInfo{})

	require.NoError(t, err)
	assert.Equal(t, "hello", summary.Content)
}

func TestCommandProvider_ValidateConfigRequiresExec(t *testing.T) {
	p := NewCommandProvider(model.SandboxProfile{})
	assert.False(t, p.ValidateConfig(map[string]any{}))
	assert.True(t, p.ValidateConfig(map[string]any{"exec": "true"}))
}
