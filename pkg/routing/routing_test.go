package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/sandbox"
)

func TestResolve_RunAndGotoComposition(t *testing.T) {
	e := NewEngine(10)
	hook := &model.RoutingHook{
		Run:  []string{"a", "b"},
		Goto: "c",
	}
	res, err := e.Resolve(hook, sandbox.Inputs{})
	require.NoError(t, err)
	require.Len(t, res.Targets, 3)
	assert.Equal(t, "a", res.Targets[0].CheckID)
	assert.Equal(t, "b", res.Targets[1].CheckID)
	assert.Equal(t, "c", res.Targets[2].CheckID)
}

func TestResolve_GotoTakesPrecedenceOverTransitions(t *testing.T) {
	e := NewEngine(10)
	hook := &model.RoutingHook{
		Goto:        "x",
		Transitions: []model.RoutingTransition{{When: "true", To: "y"}},
	}
	res, err := e.Resolve(hook, sandbox.Inputs{})
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "x", res.Targets[0].CheckID)
}

func TestResolve_TransitionsFirstMatchWins(t *testing.T) {
	e := NewEngine(10)
	hook := &model.RoutingHook{
		Transitions: []model.RoutingTransition{
			{When: "false", To: "no"},
			{When: "true", To: "yes"},
			{When: "true", To: "never-reached"},
		},
	}
	res, err := e.Resolve(hook, sandbox.Inputs{})
	require.NoError(t, err)
	require.Len(t, res.Targets, 1)
	assert.Equal(t, "yes", res.Targets[0].CheckID)
}

// TestLoopBudget is spec.md §8 testable property 6 / S5: a self-targeting
// goto with budget=2 yields exactly 3 allowed entries (initial + 2
// re-entries) before the 3rd re-entry is dropped as exhausted.
func TestLoopBudget_DropsAfterExhaustion(t *testing.T) {
	e := NewEngine(2)
	hook := &model.RoutingHook{Goto: "gate"}

	for i := 0; i < 2; i++ {
		res, err := e.Resolve(hook, sandbox.Inputs{})
		require.NoError(t, err)
		require.Len(t, res.Targets, 1)
		require.Empty(t, res.Exhausted)
	}

	res, err := e.Resolve(hook, sandbox.Inputs{})
	require.NoError(t, err)
	assert.Empty(t, res.Targets)
	require.Len(t, res.Exhausted, 1)
	assert.Equal(t, "gate", res.Exhausted[0])
}

func TestResolve_RunJSAndGotoJS(t *testing.T) {
	e := NewEngine(10)
	hook := &model.RoutingHook{
		RunJS:  `["a","b"]`,
		GotoJS: `"c"`,
	}
	res, err := e.Resolve(hook, sandbox.Inputs{})
	require.NoError(t, err)
	require.Len(t, res.Targets, 3)
}

func TestResolve_EmptyHookIsNoop(t *testing.T) {
	e := NewEngine(10)
	res, err := e.Resolve(&model.RoutingHook{}, sandbox.Inputs{})
	require.NoError(t, err)
	assert.Empty(t, res.Targets)
	assert.Empty(t, res.Exhausted)
}
