package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCost(t *testing.T) {
	usage := &TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000, TotalTokens: 1_500_000}

	in, out, total := ComputeCost(usage, ResolvePricing("gpt-4o"))
	assert.InDelta(t, 2.50, in, 1e-9)
	assert.InDelta(t, 5.00, out, 1e-9)
	assert.InDelta(t, 7.50, total, 1e-9)
}

func TestComputeCostNilUsage(t *testing.T) {
	in, out, total := ComputeCost(nil, ResolvePricing("gpt-4o"))
	assert.Zero(t, in)
	assert.Zero(t, out)
	assert.Zero(t, total)
}

func TestResolvePricingUnknownModel(t *testing.T) {
	p := ResolvePricing("some-future-model")
	assert.Zero(t, p.InputPerM)
	assert.Zero(t, p.OutputPerM)

	in, out, total := ComputeCost(&TokenUsage{PromptTokens: 100, CompletionTokens: 100}, p)
	assert.Zero(t, in)
	assert.Zero(t, out)
	assert.Zero(t, total)
}
