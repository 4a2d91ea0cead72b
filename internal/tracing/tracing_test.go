package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartCheckSpan_ReturnsUsableContextAndSpan(t *testing.T) {
	ctx, span := StartCheckSpan(context.Background(), "lint", "command")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	EndCheckSpan(span, nil)
}

func TestEndCheckSpan_RecordsErrorWithoutPanicking(t *testing.T) {
	_, span := StartCheckSpan(context.Background(), "lint", "command")
	assert.NotPanics(t, func() { EndCheckSpan(span, errors.New("boom")) })
}
