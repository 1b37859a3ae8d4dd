package shaders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCacheData(t *testing.T) {
	cd, err := ParseCacheData([]byte("1,deadbeef,shaders/util.glsl\n"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cd.Version)
	assert.Equal(t, uint64(0xdeadbeef), cd.Hash)
	assert.Equal(t, []string{"shaders/util.glsl"}, cd.Dependencies)
}

func TestParseCacheDataNoDeps(t *testing.T) {
	cd, err := ParseCacheData([]byte("1,ff"))
	require.NoError(t, err)
	assert.Empty(t, cd.Dependencies)
}

func TestParseCacheDataMalformed(t *testing.T) {
	for _, bad := range []string{"", "1", "x,ff", "1,zz"} {
		_, err := ParseCacheData([]byte(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestCacheDataSerializeRoundTrip(t *testing.T) {
	cd := CacheData{Version: cacheVersion, Hash: 0x1234abcd, Dependencies: []string{"a.glsl", "b.glsl"}}
	parsed, err := ParseCacheData([]byte(cd.Serialize()))
	require.NoError(t, err)
	assert.Equal(t, cd, parsed)
}

func TestSpvFileName(t *testing.T) {
	assert.Equal(t, "00000000.spv", spvFileName(0))
	assert.Equal(t, "deadbeef.spv", spvFileName(0xdeadbeefcafe0123))
}

// writeSource creates a shader source whose mtime is safely in the past so
// that a cache record written now is newer.
func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestCacheStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := newCacheStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	words := []uint32{0x07230203, 42, 7}

	require.NoError(t, store.save("tri.vert", hashWords(words), words, nil))

	got, ok := store.load(source, "tri.vert")
	require.True(t, ok)
	assert.Equal(t, words, got)
}

func TestCacheStoreMissWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := newCacheStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	_, ok := store.load(source, "tri.vert")
	assert.False(t, ok)
}

func TestCacheStoreMissOnNewerSource(t *testing.T) {
	dir := t.TempDir()
	store, err := newCacheStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	words := []uint32{0x07230203, 1}
	require.NoError(t, store.save("tri.vert", hashWords(words), words, nil))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(source, future, future))

	_, ok := store.load(source, "tri.vert")
	assert.False(t, ok)
}

func TestCacheStoreMissOnNewerDependency(t *testing.T) {
	dir := t.TempDir()
	store, err := newCacheStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	include := writeSource(t, dir, "util.glsl")

	words := []uint32{0x07230203, 1}
	require.NoError(t, store.save("tri.vert", hashWords(words), words, []string{include}))

	got, ok := store.load(source, "tri.vert")
	require.True(t, ok)
	assert.Equal(t, words, got)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(include, future, future))

	_, ok = store.load(source, "tri.vert")
	assert.False(t, ok)
}

func TestCacheStoreMissOnMissingBinary(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	store, err := newCacheStore(cacheDir)
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	words := []uint32{0x07230203, 1}
	hash := hashWords(words)
	require.NoError(t, store.save("tri.vert", hash, words, nil))
	require.NoError(t, os.Remove(filepath.Join(cacheDir, spvFileName(hash))))

	_, ok := store.load(source, "tri.vert")
	assert.False(t, ok)
}

func TestCacheStoreMissOnVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	store, err := newCacheStore(cacheDir)
	require.NoError(t, err)

	source := writeSource(t, dir, "tri.vert")
	words := []uint32{0x07230203, 1}
	require.NoError(t, store.save("tri.vert", hashWords(words), words, nil))

	// rewrite the record with a future format version
	cd := CacheData{Version: cacheVersion + 1, Hash: hashWords(words)}
	require.NoError(t, os.WriteFile(store.recordPath("tri.vert"), []byte(cd.Serialize()), 0o644))

	_, ok := store.load(source, "tri.vert")
	assert.False(t, ok)
}

func TestCacheStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	store, err := newCacheStore(cacheDir)
	require.NoError(t, err)

	words := []uint32{0x07230203, 1}
	require.NoError(t, store.save("tri.vert", hashWords(words), words, nil))

	leftovers, err := filepath.Glob(filepath.Join(cacheDir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
