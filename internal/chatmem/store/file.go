package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps each document in its own file.
type FileBackend struct {
	paths map[string]string
}

// NewFileBackend returns a backend writing the history and context documents
// to the given paths.
func NewFileBackend(historyPath, contextPath string) *FileBackend {
	return &FileBackend{
		paths: map[string]string{
			HistoryKey: historyPath,
			ContextKey: contextPath,
		},
	}
}

// Path returns the file path used for key.
func (b *FileBackend) Path(key string) string {
	return b.paths[key]
}

// Read returns the contents of the file for key, or ErrNotFound.
func (b *FileBackend) Read(key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write overwrites the file for key, creating its directory if needed.
func (b *FileBackend) Write(key string, data []byte) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Close is a no-op for files.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(key string) (string, error) {
	path, ok := b.paths[key]
	if !ok || path == "" {
		return "", fmt.Errorf("no file configured for document %q", key)
	}
	return path, nil
}
