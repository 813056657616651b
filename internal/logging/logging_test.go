package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json").With("component", "workflow")

	logger.Debug("hidden")
	logger.Info("document processed", "document_id", "d1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "document processed", record["msg"])
	assert.Equal(t, "d1", record["document_id"])
	assert.Equal(t, "workflow", record["component"])
}

func TestNew_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("skipped")
	logger.Warn("regenerating", "version", "V1")

	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "msg=regenerating")
	assert.Contains(t, buf.String(), "version=V1")
}
