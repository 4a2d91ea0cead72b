package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
)

func TestHumanInputProvider_PublishesRequestAndSuspends(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	received := make(chan eventbus.HumanInputRequestedPayload, 1)
	bus.Subscribe(eventbus.HumanInputRequested, func(env eventbus.Envelope) {
		received <- env.Payload.(eventbus.HumanInputRequestedPayload)
	})

	p := NewHumanInputProvider(bus)
	summary, err := p.Execute(context.Background(), &model.PRInfo{}, map[string]any{
		"checkId": "approve",
		"prompt":  "Approve this change?",
	}, nil, provider.SessionInfo{})

	require.NoError(t, err)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, HumanInputRuleID, summary.Issues[0].RuleID)

	select {
	case payload := <-received:
		assert.Equal(t, "approve", payload.CheckID)
		assert.Equal(t, "Approve this change?", payload.Prompt)
	case <-time.After(time.Second):
		t.Fatal("expected HumanInputRequested event")
	}
}
