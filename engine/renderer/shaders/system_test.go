package shaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// countingCompiler produces a fixed binary and counts invocations; includes
// named in wantIncludes are pulled through the resolver like a real
// preprocessor would.
type countingCompiler struct {
	calls        int
	wantIncludes []string
}

func (c *countingCompiler) Compile(name string, source []byte, kind metadata.ShaderKind, macros []Macro, resolve IncludeResolver) ([]uint32, error) {
	c.calls++
	for _, inc := range c.wantIncludes {
		if _, err := resolve(inc); err != nil {
			return nil, err
		}
	}
	words := []uint32{0x07230203, uint32(len(macros))}
	return words, nil
}

type countingOptimizer struct {
	calls int
}

func (o *countingOptimizer) Optimize(words []uint32) ([]uint32, error) {
	o.calls++
	return words, nil
}

type nopReflector struct{}

func (nopReflector) Reflect(words []uint32) ([]metadata.ShaderResource, error) {
	return nil, nil
}

func writeShaderSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"tri.vert", "tri.frag", "util.glsl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("void main() {}"), 0o644))
	}
	return dir
}

func newTestSystem(t *testing.T, cfg config.ShaderConfig, compiler Compiler, optimizer Optimizer) *System {
	t.Helper()
	s, err := NewSystem(cfg, compiler, optimizer, nopReflector{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestVariantName(t *testing.T) {
	assert.Equal(t, "tri.vert", VariantName("tri.vert", nil))
	assert.Equal(t, "tri.vert", VariantName("tri.vert", NewMacros()))

	m := NewMacros().Set("B", "2").Set("A", "")
	assert.Equal(t, "tri.vert_A_B=2", VariantName("tri.vert", m))

	// same content, different insertion order, same variant
	m2 := NewMacros().Set("A", "").Set("B", "2")
	assert.Equal(t, VariantName("tri.vert", m), VariantName("tri.vert", m2))
}

func TestMacrosSetReplaces(t *testing.T) {
	m := NewMacros().Set("X", "1").Set("X", "2")
	require.Len(t, m.List(), 1)
	assert.Equal(t, "2", m.List()[0].Value)
}

func TestSystemCompiles(t *testing.T) {
	compiler := &countingCompiler{}
	s := newTestSystem(t, config.ShaderConfig{
		CacheDir:  t.TempDir(),
		SourceDir: writeShaderSources(t),
		SkipCache: true,
	}, compiler, nil)

	binary, err := s.Compile("tri", nil, metadata.ShaderKindVertex)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0}, binary.Words)
	assert.Equal(t, 1, compiler.calls)
}

func TestSystemMissingSource(t *testing.T) {
	s := newTestSystem(t, config.ShaderConfig{
		CacheDir:  t.TempDir(),
		SourceDir: t.TempDir(),
		SkipCache: true,
	}, &countingCompiler{}, nil)

	_, err := s.Compile("nope", nil, metadata.ShaderKindVertex)
	assert.Error(t, err)
}

func TestSystemCacheHitSkipsCompiler(t *testing.T) {
	cacheDir := t.TempDir()
	srcDir := writeShaderSources(t)
	compiler := &countingCompiler{}

	cfg := config.ShaderConfig{CacheDir: cacheDir, SourceDir: srcDir}

	s := newTestSystem(t, cfg, compiler, nil)
	_, err := s.Compile("tri", nil, metadata.ShaderKindVertex)
	require.NoError(t, err)
	require.Equal(t, 1, compiler.calls)

	// a fresh system over the same cache dir finds the binary on disk
	s2 := newTestSystem(t, cfg, compiler, nil)
	_, err = s2.Compile("tri", nil, metadata.ShaderKindVertex)
	require.NoError(t, err)
	assert.Equal(t, 1, compiler.calls)
}

func TestSystemVariantsCacheSeparately(t *testing.T) {
	compiler := &countingCompiler{}
	s := newTestSystem(t, config.ShaderConfig{
		CacheDir:  t.TempDir(),
		SourceDir: writeShaderSources(t),
	}, compiler, nil)

	_, err := s.Compile("tri", nil, metadata.ShaderKindFragment)
	require.NoError(t, err)
	_, err = s.Compile("tri", NewMacros().Set("VIGNETTE", "1"), metadata.ShaderKindFragment)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.calls)

	// both variants now cached
	_, err = s.Compile("tri", nil, metadata.ShaderKindFragment)
	require.NoError(t, err)
	_, err = s.Compile("tri", NewMacros().Set("VIGNETTE", "1"), metadata.ShaderKindFragment)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.calls)
}

func TestSystemOptimizerRuns(t *testing.T) {
	optimizer := &countingOptimizer{}
	s := newTestSystem(t, config.ShaderConfig{
		CacheDir:  t.TempDir(),
		SourceDir: writeShaderSources(t),
		SkipCache: true,
		Optimize:  true,
	}, &countingCompiler{}, optimizer)

	_, err := s.Compile("tri", nil, metadata.ShaderKindVertex)
	require.NoError(t, err)
	assert.Equal(t, 1, optimizer.calls)
}

func TestSystemIncludeBecomesCacheDependency(t *testing.T) {
	cacheDir := t.TempDir()
	srcDir := writeShaderSources(t)
	compiler := &countingCompiler{wantIncludes: []string{"util.glsl"}}

	cfg := config.ShaderConfig{CacheDir: cacheDir, SourceDir: srcDir}

	s := newTestSystem(t, cfg, compiler, nil)
	_, err := s.Compile("tri", nil, metadata.ShaderKindFragment)
	require.NoError(t, err)
	require.Equal(t, 1, compiler.calls)

	data, err := os.ReadFile(filepath.Join(cacheDir, "tri.frag.cache"))
	require.NoError(t, err)
	cd, err := ParseCacheData(data)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(srcDir, "util.glsl")}, cd.Dependencies)
}
