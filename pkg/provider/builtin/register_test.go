package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/provider"
)

func TestRegisterBuiltins_RegistersAllSevenTypes(t *testing.T) {
	reg := provider.NewRegistry()
	bus := eventbus.New()
	defer bus.Close()

	require.NoError(t, RegisterBuiltins(reg, Options{Bus: bus}))

	for _, name := range []string{"ai", "command", "webhook", "workflow", "noop", "log", "human-input"} {
		assert.True(t, reg.Has(name), name)
	}
}
