package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.DB.Driver = "memory"
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Render.Format = "html"
	cfg.Extraction.MockDelay = 0
	return cfg
}

func TestNew_MemoryStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Contains(t, a.Checks, "database")
	assert.NotContains(t, a.Checks, "redis")

	doc, err := a.Workflow.RegisterDocument(ctx, services.RegisterInput{
		FileName:     "depot.docx",
		Content:      []byte("rfp"),
		CustomerName: "Transit Co",
	}, "tester")
	require.NoError(t, err)

	res, err := a.Workflow.Execute(ctx, services.Command{Action: workflow.ActionProcessV1, DocumentID: doc.ID}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusV1Ready, res.Document.WorkflowStatus)
}

func TestNew_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Lock.Driver = "redis"
	cfg.Lock.RedisURL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	require.Contains(t, a.Checks, "redis")
	assert.NoError(t, a.Checks["redis"].Ping(context.Background()))
}

func TestNew_UnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lock.Driver = "redis"
	cfg.Lock.RedisURL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}
