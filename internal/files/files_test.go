package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	in := map[string]int{"clubs": 104}
	require.NoError(t, WriteJSONAtomic(path, in))

	var out map[string]int
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestWriteJSONAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, WriteJSONAtomic(path, map[string]int{"v": 1}))
	require.NoError(t, WriteJSONAtomic(path, map[string]int{"v": 2}))

	var out map[string]int
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, 2, out["v"])
}

func TestWriteJSONAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteJSONAtomic(filepath.Join(dir, "out.json"), struct{}{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.json", entries[0].Name())
}

func TestReadJSONMissingFile(t *testing.T) {
	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &struct{}{})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	assert.False(t, Exists(path))
	require.NoError(t, WriteJSONAtomic(path, struct{}{}))
	assert.True(t, Exists(path))
}
