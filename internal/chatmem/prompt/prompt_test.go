package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFind_LaterDirectoryWins(t *testing.T) {
	system := t.TempDir()
	user := t.TempDir()
	writeFile(t, filepath.Join(system, "pirate.toml"), `system = "You are a pirate."`)
	writeFile(t, filepath.Join(user, "pirate.toml"), "system = \"You are a polite pirate.\"\nmodel = \"anthropic:claude-3-7-sonnet-latest\"\n")

	p, path, err := Find("pirate", []string{system, user})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(user, "pirate.toml"), path)
	assert.Equal(t, "You are a polite pirate.", p.System)
	require.NotNil(t, p.Model)
	assert.Equal(t, "anthropic:claude-3-7-sonnet-latest", *p.Model)
}

func TestFind_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Find("missing", []string{dir})
	assert.Error(t, err)

	writeFile(t, filepath.Join(dir, "bad.toml"), `model = "no-provider"`)
	_, _, err = Find("bad.toml", []string{dir})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "tutor.toml"), `system = "a"`)
	writeFile(t, filepath.Join(a, "team", "coach.toml"), `system = "a"`)
	writeFile(t, filepath.Join(a, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(b, "tutor.toml"), `system = "b"`)

	entries, err := List([]string{a, b, filepath.Join(a, "does-not-exist")})
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "team/coach", Dir: a},
		{Name: "tutor", Dir: b},
	}, entries)
}
