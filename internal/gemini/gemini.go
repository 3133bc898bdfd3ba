package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/longkey1/chatmem/internal/chatmem"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.0-flash"
)

// Config defines the configuration interface for Gemini provider
type Config interface {
	GetModel() string
	GetBaseURL(provider string) (string, error)
}

// Provider implements the chatmem.Provider interface for Gemini
type Provider struct {
	config Config
	token  string
}

// NewProvider creates a new Gemini provider instance
func NewProvider(config Config, token string) *Provider {
	return &Provider{
		config: config,
		token:  token,
	}
}

// BuildContents converts the conversation into Gemini contents and the
// system instruction. Assistant turns use the "model" role; system-role
// messages are folded into the system instruction.
func BuildContents(systemPrompt string, messages []chatmem.Message) ([]*genai.Content, *genai.Content) {
	systemParts := []string{}
	if systemPrompt != "" {
		systemParts = append(systemParts, systemPrompt)
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chatmem.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case chatmem.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n"), genai.RoleUser)
	}
	return contents, system
}

// StreamChat streams a reply from GenerateContentStream, passing the text of
// every response chunk to onFragment.
func (p *Provider) StreamChat(ctx context.Context, systemPrompt string, messages []chatmem.Message, onFragment func(string) error) (string, error) {
	_, modelName, err := chatmem.ParseModelString(p.config.GetModel())
	if err != nil {
		return "", fmt.Errorf("invalid model format: %w", err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  p.token,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL, err := p.config.GetBaseURL(ProviderName); err == nil && baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	contents, system := BuildContents(systemPrompt, messages)
	genConfig := &genai.GenerateContentConfig{SystemInstruction: system}

	var full strings.Builder
	for resp, err := range client.Models.GenerateContentStream(ctx, modelName, contents, genConfig) {
		if err != nil {
			return "", fmt.Errorf("gemini stream failed: %w", err)
		}
		fragment := resp.Text()
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return "", err
		}
	}

	return full.String(), nil
}
