package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "presets.yaml", `
issues:
  - id: cron
    label: Cron Not Running
    description: Scheduled posts are missed.
    icon: "⏰"
links:
  - label: Codex
    url: https://codex.wordpress.org/
`)

	store, err := LoadFile(path)
	require.NoError(t, err)

	issue, ok := store.FindByID("cron")
	require.True(t, ok)
	assert.Equal(t, "Cron Not Running", issue.Label)
	assert.Equal(t, []Link{{Label: "Codex", URL: "https://codex.wordpress.org/"}}, store.Links())
}

func TestLoadFileTOMLDefaultsLinks(t *testing.T) {
	path := writeFile(t, "presets.toml", `
[[issues]]
id = "permalinks"
label = "Broken Permalinks"
description = "Every page except home returns 404."
icon = "🔗"
`)

	store, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, store.List(), 1)
	assert.Equal(t, SeedLinks(), store.Links())
}

func TestLoadFileRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "presets.yml", `
issues:
  - id: a
    label: A
  - id: a
    label: B
`)

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "duplicate preset id")
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "presets.json", `{}`)

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unsupported preset file extension")
}

func TestLoadWithoutPathUsesSeed(t *testing.T) {
	store, err := Load("")
	require.NoError(t, err)

	assert.Len(t, store.List(), 5)
	issue, ok := store.FindByID("plugin-conflict")
	require.True(t, ok)
	assert.Equal(t, "I'm experiencing: Plugin Conflict", issue.Prompt())
}
