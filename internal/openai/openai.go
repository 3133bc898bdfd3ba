package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/longkey1/chatmem/internal/chatmem"
)

const (
	ProviderName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// ChatRequest represents the request body for the Chat Completions API
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatMessage represents a message in the Chat Completions format
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChunkResponse represents one streamed chunk of a chat completion
type ChunkResponse struct {
	Choices []ChunkChoice `json:"choices"`
	Error   *APIError     `json:"error,omitempty"`
}

// ChunkChoice represents a choice within a streamed chunk
type ChunkChoice struct {
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta carries the incremental content
type ChunkDelta struct {
	Content string `json:"content"`
}

// APIError represents an error object returned by the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Config defines the configuration interface for OpenAI provider
type Config interface {
	GetModel() string
	GetBaseURL(provider string) (string, error)
}

// Provider implements the chatmem.Provider interface for OpenAI
type Provider struct {
	config     Config
	token      string
	httpClient *http.Client
}

// NewProvider creates a new OpenAI provider instance using token as the
// bearer credential.
func NewProvider(config Config, token string) *Provider {
	return &Provider{
		config: config,
		token:  token,
		// No client timeout: the stream lasts as long as the request context.
		httpClient: &http.Client{},
	}
}

// BuildMessages converts a system prompt and conversation into the Chat
// Completions message list. The system prompt always comes first.
func BuildMessages(systemPrompt string, messages []chatmem.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages)+1)
	out = append(out, ChatMessage{Role: string(chatmem.RoleSystem), Content: systemPrompt})
	for _, msg := range messages {
		out = append(out, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// StreamChat sends the conversation to the Chat Completions API with
// stream=true and relays each content delta to onFragment.
func (p *Provider) StreamChat(ctx context.Context, systemPrompt string, messages []chatmem.Message, onFragment func(string) error) (string, error) {
	_, modelName, err := chatmem.ParseModelString(p.config.GetModel())
	if err != nil {
		return "", fmt.Errorf("invalid model format: %w", err)
	}

	baseURL, err := p.config.GetBaseURL(ProviderName)
	if err != nil {
		return "", fmt.Errorf("failed to get base URL: %w", err)
	}

	// Prepare the request body
	reqBody := ChatRequest{
		Model:    modelName,
		Messages: BuildMessages(systemPrompt, messages),
		Stream:   true,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	// Create HTTP request
	url := strings.TrimRight(baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+p.token)

	// Send request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", fmt.Errorf("API request failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return readStream(resp.Body, onFragment)
}

// readStream parses a server-sent event stream of chat completion chunks.
// Each event is a single "data:" line; "[DONE]" ends the stream.
func readStream(body io.Reader, onFragment func(string) error) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			// Blank separators, comments and other fields carry no content.
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return full.String(), nil
		}

		var chunk ChunkResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		fragment := chunk.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading stream: %w", err)
	}

	// Stream ended without [DONE]; keep what arrived.
	return full.String(), nil
}
