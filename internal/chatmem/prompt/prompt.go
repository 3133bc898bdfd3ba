package prompt

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/chatmem/internal/chatmem"
)

// Prompt represents a persona template stored as a TOML file
type Prompt struct {
	System string  `toml:"system"`
	Model  *string `toml:"model,omitempty"`
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}

	if prompt.Model != nil {
		if _, _, err := chatmem.ParseModelString(*prompt.Model); err != nil {
			return nil, fmt.Errorf("invalid model format in prompt template: %w", err)
		}
	}
	return &prompt, nil
}
