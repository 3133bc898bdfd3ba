// Package chatmem provides the core types shared by the chat front-end:
// conversation messages and the streaming Provider interface that every
// completion backend (openai, anthropic, gemini) implements.
package chatmem

import (
	"context"
	"fmt"
	"strings"
)

// Provider defines the interface for streaming completion backends.
//
// Example usage:
//
//	provider := openai.NewProvider(cfg, apiKey)
//	text, err := provider.StreamChat(ctx, "You are a helpful assistant.", messages, func(fragment string) error {
//		fmt.Print(fragment)
//		return nil
//	})
type Provider interface {
	// StreamChat sends the system prompt followed by the conversation and
	// calls onFragment for every piece of text as it arrives.
	// It returns the concatenation of all fragments.
	// An error returned by onFragment aborts the stream.
	StreamChat(ctx context.Context, systemPrompt string, messages []Message, onFragment func(string) error) (string, error)
}

// ParseModelString parses a model string in "provider:model" format.
// Returns (provider, model, error).
//
// Example:
//
//	provider, model, err := ParseModelString("openai:gpt-4o-mini")
//	// provider = "openai", model = "gpt-4o-mini"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: provider:model, e.g., openai:gpt-4o-mini)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if provider == "" || model == "" {
		return "", "", fmt.Errorf("provider and model cannot be empty")
	}

	return provider, model, nil
}
