package failcond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/sandbox"
)

func TestEvaluate_FailIfAndConditions(t *testing.T) {
	results := Evaluate("1 == 2", map[string]model.FailureCondition{
		"no_critical": {Expression: "countIssues(outputs.issues, \"severity\", \"critical\") > 0", HaltExecution: true},
	}, sandbox.Inputs{Outputs: map[string]any{"issues": []any{}}})

	require.Len(t, results, 2)
	failIf := results[0]
	assert.Equal(t, "fail_if", failIf.Name)
	assert.False(t, failIf.Failed)

	noCritical := results[1]
	assert.False(t, noCritical.Failed)
}

func TestShouldHaltExecution(t *testing.T) {
	results := []Result{
		{Name: "a", Failed: true, HaltExecution: false},
		{Name: "b", Failed: false, HaltExecution: true},
	}
	assert.False(t, ShouldHaltExecution(results))

	results = append(results, Result{Name: "c", Failed: true, HaltExecution: true})
	assert.True(t, ShouldHaltExecution(results))
}

func TestGetFailedConditions(t *testing.T) {
	results := []Result{
		{Name: "a", Failed: true},
		{Name: "b", Failed: false},
		{Name: "c", Failed: true},
	}
	failed := GetFailedConditions(results)
	require.Len(t, failed, 2)
	assert.Equal(t, "a", failed[0].Name)
	assert.Equal(t, "c", failed[1].Name)
}

func TestGroupBySeverity_PartitionsAreDisjointAndExhaustive(t *testing.T) {
	results := []Result{
		{Name: "a", Severity: model.SeverityError},
		{Name: "b", Severity: model.SeverityWarning},
		{Name: "c", Severity: model.SeverityInfo},
		{Name: "d", Severity: model.SeverityCritical},
	}
	buckets := GroupBySeverity(results)

	total := 0
	for _, b := range buckets {
		total += len(b)
	}
	assert.Equal(t, len(results), total)
	assert.Len(t, buckets[model.SeverityError], 2) // error + folded critical
	assert.Len(t, buckets[model.SeverityWarning], 1)
	assert.Len(t, buckets[model.SeverityInfo], 1)
}

func TestFormatSummary_SuccessSentinel(t *testing.T) {
	msg := FormatSummary([]Result{{Name: "a", Failed: false}})
	assert.Equal(t, SuccessSentinelMessage, msg)
}

func TestFormatSummary_FailedMessages(t *testing.T) {
	msg := FormatSummary([]Result{{Name: "a", Failed: true, Error: "boom"}})
	assert.Contains(t, msg, "a: boom")
}

func TestMerge_PerCheckOverridesGlobalByName(t *testing.T) {
	global := map[string]model.FailureCondition{"x": {Expression: "false"}}
	perCheck := map[string]model.FailureCondition{"x": {Expression: "true"}}
	merged := Merge(global, perCheck)
	assert.Equal(t, "true", merged["x"].Expression)
}

// TestSandboxErrorNeverPropagates is spec.md §4.5's closing invariant: a
// syntax/sandbox-violation error yields failed=false with a non-empty error
// string, never a panic or propagated Go error.
func TestSandboxErrorNeverPropagates(t *testing.T) {
	results := Evaluate("process.exit(1)", nil, sandbox.Inputs{})
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed)
	assert.NotEmpty(t, results[0].Error)
}
