package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry describes a template found on disk.
type Entry struct {
	Name string // relative path without the .toml extension, e.g. "team/tutor"
	Dir  string // prompt directory the template was found in
}

// Find locates the template named name in dirs. Later directories take
// precedence over earlier ones.
func Find(name string, dirs []string) (*Prompt, string, error) {
	promptFile := name
	if !strings.HasSuffix(promptFile, ".toml") {
		promptFile = promptFile + ".toml"
	}

	var promptPath string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, promptFile)
		if _, err := os.Stat(candidate); err == nil {
			promptPath = candidate
		}
	}
	if promptPath == "" {
		return nil, "", fmt.Errorf("prompt file '%s' not found in any of the prompt directories: %v", promptFile, dirs)
	}

	p, err := LoadPrompt(promptPath)
	if err != nil {
		return nil, "", err
	}
	return p, promptPath, nil
}

// List returns every template in dirs, sorted by name. When the same name
// exists in several directories the later directory wins.
func List(dirs []string) ([]Entry, error) {
	found := make(map[string]string)
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".toml") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			found[strings.TrimSuffix(filepath.ToSlash(rel), ".toml")] = dir
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error scanning prompt directory %s: %w", dir, err)
		}
	}

	entries := make([]Entry, 0, len(found))
	for name, dir := range found {
		entries = append(entries, Entry{Name: name, Dir: dir})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
