package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SubstitutesDottedPath(t *testing.T) {
	vars := map[string]any{"pr": map[string]any{"title": "Fix bug"}}
	out, err := Resolve("Review: {{ pr.title }}", vars, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Review: Fix bug", out)
}

func TestResolve_LenientLeavesPlaceholder(t *testing.T) {
	out, err := Resolve("{{ missing.path }}", map[string]any{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "{{ missing.path }}", out)
}

func TestResolve_StrictModeErrorsOnMissing(t *testing.T) {
	_, err := Resolve("{{ missing.path }}", map[string]any{}, Options{StrictMode: true})
	assert.Error(t, err)
}

func TestResolve_NoPlaceholdersIsNoop(t *testing.T) {
	out, err := Resolve("plain text", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}
