package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEncoding(t *testing.T) {
	assert.Equal(t, "console", NormalizeEncoding("Console"))
	assert.Equal(t, "json", NormalizeEncoding("json"))
	assert.Equal(t, "json", NormalizeEncoding("xml"))
	assert.Equal(t, "json", NormalizeEncoding(""))
}

func TestNew_WritesJSONWithServiceField(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "bogus", Encoding: "json", OutputPath: out, Service: "carousel"})
	require.NoError(t, err)

	log.Info("hello")
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"service":"carousel"`)
	assert.Contains(t, text, `"timestamp"`)
	assert.Contains(t, text, `"level":"INFO"`)
	assert.False(t, strings.Contains(text, "hidden"), "debug must be filtered at info level")
}
