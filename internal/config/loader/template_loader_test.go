package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTemplates = `
templates:
  default:
    system: "You are a poker analyst."
    expect_json: true
  frame_extraction:
    user: "Extract the frame state as JSON."
    expect_json: true
`

func writeTemplates(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTemplateLoaderSnapshot(t *testing.T) {
	l, err := NewTemplateLoader(writeTemplates(t, sampleTemplates))
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.Positive(t, snap.Version)
	require.Len(t, snap.Templates, 2)

	def, ok := snap.Lookup("frame_extraction")
	require.True(t, ok)
	assert.Equal(t, "frame_extraction", def.Name)
	assert.Equal(t, "Extract the frame state as JSON.", def.User)
	assert.True(t, def.ExpectJSON)
}

func TestTemplateLookupFallsBackToDefault(t *testing.T) {
	l, err := NewTemplateLoader(writeTemplates(t, sampleTemplates))
	require.NoError(t, err)

	def, ok := l.Snapshot().Lookup("no_such_template")
	require.True(t, ok)
	assert.Equal(t, "default", def.Name)
	assert.Equal(t, "You are a poker analyst.", def.System)
}

func TestTemplateLoaderRejectsMissingFile(t *testing.T) {
	_, err := NewTemplateLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = NewTemplateLoader("  ")
	assert.Error(t, err)
}

func TestTemplateSubscribeDeliversSnapshot(t *testing.T) {
	l, err := NewTemplateLoader(writeTemplates(t, sampleTemplates))
	require.NoError(t, err)

	got := make(chan TemplateSnapshot, 1)
	l.Subscribe(func(snap TemplateSnapshot) { got <- snap })

	snap := <-got
	_, ok := snap.Lookup("default")
	assert.True(t, ok)
}
