package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
)

type stubProvider struct {
	name      string
	available bool
}

func (s *stubProvider) Name() string                        { return s.name }
func (s *stubProvider) Description() string                 { return "stub" }
func (s *stubProvider) ValidateConfig(map[string]any) bool  { return true }
func (s *stubProvider) SupportedConfigKeys() []string        { return nil }
func (s *stubProvider) IsAvailable() bool                   { return s.available }
func (s *stubProvider) Requirements() []string              { return nil }
func (s *stubProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si SessionInfo) (*model.ReviewSummary, error) {
	return &model.ReviewSummary{}, nil
}

func TestRegister_DuplicateFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{name: "noop", available: true}))
	err := r.Register(&stubProvider{name: "noop", available: true})
	require.Error(t, err)
}

func TestGetOrThrow_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetOrThrow("missing")
	require.Error(t, err)
}

func TestListActive_FiltersByAvailability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{name: "a", available: true}))
	require.NoError(t, r.Register(&stubProvider{name: "b", available: false}))
	active := r.ListActive()
	assert.ElementsMatch(t, []string{"a"}, active)
	assert.ElementsMatch(t, []string{"a", "b"}, r.List())
}

func TestReset_ClearsRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{name: "a", available: true}))
	r.Reset()
	assert.Empty(t, r.List())
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubProvider{name: "a", available: true}))
	require.NoError(t, r.Unregister("a"))
	require.Error(t, r.Unregister("a"))
}
