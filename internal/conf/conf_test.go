package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte("type: circle\nradius: 2.0\n"))
	require.NoError(t, err)
	assert.Equal(t, "circle", doc["type"])
	assert.Equal(t, 2.0, doc["radius"])
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse([]byte(`{"type": "square", "side": 3}`))
	require.NoError(t, err)
	assert.Equal(t, "square", doc["type"])
}

func TestParseNested(t *testing.T) {
	doc, err := Parse([]byte("model:\n  type: gpt\n  layers: 3\n"))
	require.NoError(t, err)

	model, ok := doc["model"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gpt", model["type"])
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("{not valid: [yaml"))
	require.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte(""))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: circle\n"), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "circle", doc["type"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
