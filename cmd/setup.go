package cmd

import (
	"fmt"

	"github.com/longkey1/chatmem/internal/chatmem"
	"github.com/longkey1/chatmem/internal/chatmem/config"
	promptpkg "github.com/longkey1/chatmem/internal/chatmem/prompt"
	"github.com/longkey1/chatmem/internal/chatmem/session"
	"github.com/longkey1/chatmem/internal/chatmem/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// chatSetup is what serve and chat need to run turns.
type chatSetup struct {
	cfg     *config.Config
	store   *store.Store
	manager *session.Manager
}

// newChatSetup loads the configuration and applies the persona template and
// model override with priority: flag > prompt template > env > config file.
func newChatSetup(cmd *cobra.Command, modelFlag, promptName string) (*chatSetup, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	defaultContext := cfg.DefaultContext
	if promptName != "" {
		p, path, err := promptpkg.Find(promptName, cfg.PromptDirs)
		if err != nil {
			return nil, fmt.Errorf("loading prompt: %w", err)
		}
		logger.Debug("using prompt template", zap.String("path", path))
		if p.System != "" {
			defaultContext = p.System
		}
		if p.Model != nil {
			cfg.Model = *p.Model
		}
	}

	if cmd.Flags().Changed("model") {
		if _, _, err := chatmem.ParseModelString(modelFlag); err != nil {
			return nil, fmt.Errorf("invalid model from flag: %w", err)
		}
		cfg.Model = modelFlag
	}

	factory, err := newProviderFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	st, err := store.OpenWithDefault(cfg, defaultContext, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	logger.Info("chat configured",
		zap.String("model", cfg.Model),
		zap.String("store", cfg.Store))

	return &chatSetup{
		cfg:     cfg,
		store:   st,
		manager: session.NewManager(st, factory, hasConfiguredToken(cfg), logger),
	}, nil
}

func (s *chatSetup) Close() error {
	return s.store.Close()
}
