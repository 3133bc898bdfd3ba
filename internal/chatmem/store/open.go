package store

import (
	"fmt"

	"github.com/longkey1/chatmem/internal/chatmem/config"
	"go.uber.org/zap"
)

// Open builds the Store selected by cfg.Store.
func Open(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	return OpenWithDefault(cfg, cfg.DefaultContext, logger)
}

// OpenWithDefault is like Open but overrides the default context, e.g. with
// the system text of a persona template.
func OpenWithDefault(cfg *config.Config, defaultContext string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store {
	case config.StoreJSON, "":
		backend := NewFileBackend(cfg.HistoryFile, cfg.ContextFile)
		logger.Debug("using json store",
			zap.String("history_file", backend.Path(HistoryKey)),
			zap.String("context_file", backend.Path(ContextKey)))
		return New(backend, defaultContext, logger), nil
	case config.StoreSQLite:
		logger.Debug("using sqlite store", zap.String("sqlite_file", cfg.SQLiteFile))
		backend, err := OpenSQLite(cfg.SQLiteFile)
		if err != nil {
			return nil, err
		}
		return New(backend, defaultContext, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store: %s", cfg.Store)
	}
}
