package attachments

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, "Recibo.JPG", strings.NewReader("fake image"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	other, err := store.Save(ctx, "Recibo.JPG", strings.NewReader("second"))
	require.NoError(t, err)
	assert.NotEqual(t, ref, other, "same original name never collides")

	rc, err := store.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "fake image", string(data))

	require.NoError(t, store.Remove(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, ref))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(ctx, ref), "removing a missing file is not an error")
	_, err = store.Open(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsUnsupportedAndTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "script.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrUnsupportedExt)

	for _, ref := range []string{"", "../etc/passwd", "a/b.png", `..\x.png`, ".hidden"} {
		assert.ErrorIs(t, store.Remove(ctx, ref), ErrInvalidRef, ref)
		_, err := store.Open(ctx, ref)
		assert.ErrorIs(t, err, ErrInvalidRef, ref)
	}
}

func TestMIMEType(t *testing.T) {
	mt, ok := MIMEType("nota.PDF")
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", mt)
	_, ok = MIMEType("nota.txt")
	assert.False(t, ok)
}
