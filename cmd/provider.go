package cmd

import (
	"fmt"

	"github.com/longkey1/chatmem/internal/anthropic"
	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/config"
	"github.com/longkey1/chatmem/internal/chatmem/session"
	"github.com/longkey1/chatmem/internal/gemini"
	"github.com/longkey1/chatmem/internal/openai"
)

// newProviderFactory returns a factory that builds the configured provider.
// A key entered in the session wins over the configured token.
func newProviderFactory(cfg *config.Config) (session.ProviderFactory, error) {
	providerName, err := cfg.GetProvider()
	if err != nil {
		return nil, err
	}
	switch providerName {
	case openai.ProviderName, anthropic.ProviderName, gemini.ProviderName:
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}

	return func(apiKey string) (chatmem.Provider, error) {
		token := apiKey
		if token == "" {
			var err error
			token, err = cfg.GetToken(providerName)
			if err != nil {
				return nil, err
			}
		}
		if token == "" {
			return nil, session.ErrNoAPIKey
		}

		switch providerName {
		case openai.ProviderName:
			return openai.NewProvider(cfg, token), nil
		case anthropic.ProviderName:
			return anthropic.NewProvider(cfg, token, cfg.AnthropicMaxTokens), nil
		default:
			return gemini.NewProvider(cfg, token), nil
		}
	}, nil
}

// hasConfiguredToken reports whether the configuration carries a token for
// the selected provider, so the UI need not ask for one.
func hasConfiguredToken(cfg *config.Config) bool {
	providerName, err := cfg.GetProvider()
	if err != nil {
		return false
	}
	token, err := cfg.GetToken(providerName)
	return err == nil && token != ""
}
