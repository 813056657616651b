package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, "generated/documents/d1_v2_1700000000000.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "generated/documents/d1_v2_1700000000000.pdf", key)
	_, err = os.Stat(filepath.Join(root, "generated", "documents", "d1_v2_1700000000000.pdf"))
	require.NoError(t, err)

	data, contentType, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
	assert.Equal(t, "application/pdf", contentType)

	_, _, err = store.Get(ctx, "generated/documents/missing.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, key), "deleting a missing object")
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidKey)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "a/b.pdf", want: "a/b.pdf"},
		{in: "/a//b.pdf", want: "a/b.pdf"},
		{in: "../../etc/passwd", want: "etc/passwd"},
		{in: `a\..\..\b.pdf`, want: "b.pdf"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidKey, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
