package builtin

import (
	"context"

	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

// HumanInputRuleID distinguishes the "awaiting human input" issue this
// provider's Execute always produces.
const HumanInputRuleID = "human-input/awaiting"

// HumanInputProvider emits a HumanInputRequested event and returns
// immediately with a sentinel issue (spec.md §4.4.7). The scheduler records
// the check as completed like any other and goes on to its dependents;
// nothing in this module waits for, or consumes, a resume signal. This
// package only owns the request side.
type HumanInputProvider struct {
	bus *eventbus.Bus
}

func NewHumanInputProvider(bus *eventbus.Bus) *HumanInputProvider {
	return &HumanInputProvider{bus: bus}
}

func (p *HumanInputProvider) Name() string        { return "human-input" }
func (p *HumanInputProvider) Description() string { return "requests input from a human operator via a HumanInputRequested event" }
func (p *HumanInputProvider) SupportedConfigKeys() []string {
	return []string{"prompt", "channel", "threadTs"}
}
func (p *HumanInputProvider) IsAvailable() bool      { return p.bus != nil }
func (p *HumanInputProvider) Requirements() []string { return nil }

func (p *HumanInputProvider) ValidateConfig(config map[string]any) bool {
	_, ok := config["prompt"].(string)
	return ok
}

func (p *HumanInputProvider) Execute(ctx context.Context, pr *model.PRInfo, config map[string]any, deps map[string]any, si provider.SessionInfo) (*model.ReviewSummary, error) {
	checkID, _ := config["checkId"].(string)
	prompt, _ := config["prompt"].(string)
	channel, _ := config["channel"].(string)
	threadTS, _ := config["threadTs"].(string)

	p.bus.Publish(eventbus.HumanInputRequested, eventbus.HumanInputRequestedPayload{
		CheckID:  checkID,
		Prompt:   prompt,
		Channel:  channel,
		ThreadTS: threadTS,
	})

	return &model.ReviewSummary{
		Issues: []model.ReviewIssue{{
			RuleID:   HumanInputRuleID,
			Message:  "awaiting human input: " + prompt,
			Severity: model.SeverityInfo,
		}},
	}, nil
}
