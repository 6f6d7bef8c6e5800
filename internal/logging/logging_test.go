package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	// Must not panic and must not write anywhere.
	logger.Info("hello", "key", "value")
	logger.Error("boom")
}

func TestDefault(t *testing.T) {
	assert.NotNil(t, Default(nil))

	var buf bytes.Buffer
	custom, err := Setup(&buf, "info", "text")
	require.NoError(t, err)
	assert.Same(t, custom, Default(custom))
}

func TestSetup_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "info", "json")
	require.NoError(t, err)

	logger.Info("message", "plugin", "Test.esp")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"plugin":"Test.esp"`)
}

func TestSetup_Invalid(t *testing.T) {
	var buf bytes.Buffer

	_, err := Setup(&buf, "loud", "text")
	assert.Error(t, err)

	_, err = Setup(&buf, "info", "xml")
	assert.Error(t, err)
}
