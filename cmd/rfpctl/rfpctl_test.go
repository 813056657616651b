package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func memoryEnv(t *testing.T) {
	t.Setenv("RFDB_DB_DRIVER", "memory")
	t.Setenv("RFDB_STORAGE_LOCAL_DIR", t.TempDir())
	t.Setenv("RFDB_RENDER_FORMAT", "html")
	t.Setenv("RFDB_EXTRACTION_MOCK_DELAY", "0s")
}

func TestRegister(t *testing.T) {
	memoryEnv(t)
	file := filepath.Join(t.TempDir(), "bridge-rfp.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.7"), 0o600))

	out, err := run(t, "register", file, "--customer", "County Roads", "--tag", "infra", "--tag", "bridge", "--as", "ops")
	require.NoError(t, err)

	var doc models.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "bridge-rfp.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, []string{"infra", "bridge"}, doc.Tags)
	assert.Equal(t, "ops", doc.UploadedBy)
	assert.Equal(t, models.StatusUploaded, doc.WorkflowStatus)
}

func TestRegister_RequiresCustomer(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "register", "whatever.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer")
}

func TestAction_Validation(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "action", "publish", "d1")
	assert.EqualError(t, err, `unknown action "publish"`)

	_, err = run(t, "action", "process_v1", "6f1c1f8e-0d59-4c1e-9d0e-3c8b2a7c9f10")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = run(t, "action", "save_v1", "d1", "--content", "a.json", "--path", "A/B")
	assert.Error(t, err)
}

func TestStats_EmptyStore(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "stats")
	require.NoError(t, err)

	var stats models.WorkflowStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Len(t, stats.StatusBreakdown, len(models.WorkflowStatuses))
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "migrate")
	assert.EqualError(t, err, "migrate needs the postgres driver, configured driver is memory")
}
