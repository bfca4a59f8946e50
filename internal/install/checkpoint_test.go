package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "fortress.state"))

	require.NoError(t, store.Save(NotMounted, "filesystems exist", "/dev/vda", "run-1"))

	cp, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "NOT_MOUNTED", cp.Phase)
	assert.Equal(t, "filesystems exist", cp.Detail)
	assert.Equal(t, "/dev/vda", cp.Disk)
	assert.Equal(t, "run-1", cp.RunID)
	assert.False(t, cp.UpdatedAt.IsZero())
}

func TestStoreOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "fortress.state"))

	require.NoError(t, store.Save(NoPartitions, "", "/dev/vda", "run-1"))
	require.NoError(t, store.Save(Ready, "installation complete", "/dev/vda", "run-2"))

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "READY", cp.Phase)
	assert.Equal(t, "run-2", cp.RunID)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nonexistent.state"))

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fortress.state")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "fortress.state")
	store := NewStore(path)

	require.NoError(t, store.Save(NoDisk, "", "/dev/vda", "run-1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "fortress.state"))
	require.NoError(t, store.Save(Ready, "", "/dev/vda", "run-1"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fortress.state", entries[0].Name())
}
