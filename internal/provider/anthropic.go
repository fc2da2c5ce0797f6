package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient returns a client for the reasoning service. An empty
// apiKey falls back to the SDK's environment lookup (ANTHROPIC_API_KEY).
func NewAnthropicClient(apiKey string) *anthropic.Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c := anthropic.NewClient(opts...)
	return &c
}

// DefaultModel answers queries when the config names no model.
const DefaultModel = "claude-sonnet-4-20250514"
