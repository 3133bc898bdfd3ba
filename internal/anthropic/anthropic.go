package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/longkey1/chatmem/internal/chatmem"
)

const (
	ProviderName     = "anthropic"
	DefaultModel     = "claude-3-7-sonnet-latest"
	DefaultMaxTokens = 1024
)

// Config defines the configuration interface for Anthropic provider
type Config interface {
	GetModel() string
	GetBaseURL(provider string) (string, error)
}

// Provider implements the chatmem.Provider interface for Anthropic
type Provider struct {
	config    Config
	client    anthropic.Client
	maxTokens int64
}

// NewProvider creates a new Anthropic provider instance
func NewProvider(config Config, token string, maxTokens int) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(token)}
	if baseURL, err := config.GetBaseURL(ProviderName); err == nil && baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Provider{
		config:    config,
		client:    anthropic.NewClient(opts...),
		maxTokens: int64(maxTokens),
	}
}

// BuildParams converts the system prompt and conversation into Messages API
// parameters. System-role messages are folded into the system block since
// the Messages API only accepts user and assistant turns.
func BuildParams(modelName string, maxTokens int64, systemPrompt string, messages []chatmem.Message) anthropic.MessageNewParams {
	systemParts := []string{}
	if systemPrompt != "" {
		systemParts = append(systemParts, systemPrompt)
	}

	inputMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chatmem.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case chatmem.RoleAssistant:
			inputMessages = append(inputMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			inputMessages = append(inputMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: maxTokens,
		Messages:  inputMessages,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(systemParts, "\n")}}
	}
	return params
}

// StreamChat streams a reply from the Messages API, passing every text delta
// to onFragment.
func (p *Provider) StreamChat(ctx context.Context, systemPrompt string, messages []chatmem.Message, onFragment func(string) error) (string, error) {
	_, modelName, err := chatmem.ParseModelString(p.config.GetModel())
	if err != nil {
		return "", fmt.Errorf("invalid model format: %w", err)
	}

	params := BuildParams(modelName, p.maxTokens, systemPrompt, messages)
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
		if !ok || delta.Text == "" {
			continue
		}
		full.WriteString(delta.Text)
		if err := onFragment(delta.Text); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream failed: %w", err)
	}

	return full.String(), nil
}
