package builtin

import (
	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

// AIOptions configures NewAIProvider for RegisterBuiltins.
type AIOptions struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	ProjectRoot  string
}

// Options bundles every built-in provider's construction-time
// dependencies for a single RegisterBuiltins call.
type Options struct {
	AI      AIOptions
	Sandbox model.SandboxProfile
	Bus     *eventbus.Bus
}

// RegisterBuiltins registers all seven stock providers (spec.md §4.4) with
// manager. Applications that want a subset register individually instead —
// this is a convenience entry point for the common "wire everything" case,
// matching the teacher's own RegisterBuiltins/MustRegisterBuiltins split.
func RegisterBuiltins(manager provider.Manager, opts Options) error {
	providers := []provider.Provider{
		NewAIProvider(opts.AI.APIKey, opts.AI.BaseURL, opts.AI.DefaultModel, opts.AI.ProjectRoot),
		NewCommandProvider(opts.Sandbox),
		NewWebhookProvider(),
		NewWorkflowProvider(manager),
		NoopProvider{},
		LogProvider{},
		NewHumanInputProvider(opts.Bus),
	}
	for _, p := range providers {
		if err := manager.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// MustRegisterBuiltins registers all built-in providers and panics on error.
func MustRegisterBuiltins(manager provider.Manager, opts Options) {
	if err := RegisterBuiltins(manager, opts); err != nil {
		panic("checkdag: failed to register built-in providers: " + err.Error())
	}
}
