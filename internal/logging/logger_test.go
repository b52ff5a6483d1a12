package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	logger := Component("engine")
	logger.Debug().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"engine"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestInit_BadLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "chatty"}))
}

func TestInit_DeferredAndFile(t *testing.T) {
	deferred := &DeferredWriter{}
	path := filepath.Join(t.TempDir(), "logs", "inbox.log")

	require.NoError(t, Init(Config{Level: "info", File: path, Deferred: deferred}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	log.Info().Msg("first")
	log.Info().Msg("second")
	assert.Positive(t, deferred.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second")

	var out bytes.Buffer
	require.NoError(t, deferred.Flush(&out))
	assert.Contains(t, out.String(), "first")
	assert.Contains(t, out.String(), "second")
	assert.Zero(t, deferred.Len())
}
