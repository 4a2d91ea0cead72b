package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/checkdag/checkdag/pkg/model"
)

func TestBuilder_AssemblesWorkflowConfig(t *testing.T) {
	cfg := NewBuilder().
		Version("1").
		AIProvider("openai").
		AIModel("gpt-4o-mini").
		EnvKV("REGION", "us-east-1").
		AddCheck(NewCheckBuilder("lint", "command").
			On("pull_request").
			ConfigKV("command", "golangci-lint run").
			Build()).
		AddCheck(NewCheckBuilder("review", "ai").
			DependsOn("lint").
			If(`outputs["lint"] != null`).
			OnSuccess(NewHookBuilder().Goto("publish").Build()).
			Build()).
		Build()

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "us-east-1", cfg.Env["REGION"])
	assert.Contains(t, cfg.Checks, "lint")
	assert.Contains(t, cfg.Checks, "review")
	assert.Equal(t, []string{"lint"}, cfg.Checks["review"].DependsOn)
	assert.Equal(t, "publish", cfg.Checks["review"].OnSuccess.Goto)
}

func TestCheckBuilder_ForEachSetsTransform(t *testing.T) {
	c := NewCheckBuilder("tickets", "command").ForEach(`JSON.parse(output).tickets`).Build()
	assert.True(t, c.ForEach)
	assert.Equal(t, `JSON.parse(output).tickets`, c.TransformJS)
}

func TestHookBuilder_CollectsTransitions(t *testing.T) {
	h := NewHookBuilder().
		Transition(`outputs["gate"] == "pass"`, "merge").
		Transition(`outputs["gate"] == "fail"`, "notify").
		Retry(&model.RetryPolicy{Max: 2}).
		Build()

	assert.Len(t, h.Transitions, 2)
	assert.Equal(t, "merge", h.Transitions[0].To)
	assert.Equal(t, 2, h.Retry.Max)
}
