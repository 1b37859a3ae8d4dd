package shaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/spaghettifunk/prisma/engine/core"
)

// cacheVersion identifies the cache record format and the compiler options in
// effect. Bump it whenever either changes so stale binaries are recompiled.
const cacheVersion uint32 = 1

// CacheData is one on-disk cache record: format version, content hash of the
// compiled binary and the list of files the compilation depended on.
type CacheData struct {
	Version      uint32
	Hash         uint64
	Dependencies []string
}

// ParseCacheData parses the comma-delimited single-line record format
// `<version>,<hex-hash>[,<dependency-path>]*`.
func ParseCacheData(data []byte) (CacheData, error) {
	var cd CacheData

	parts := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(parts) < 2 {
		return cd, fmt.Errorf("cache record has %d fields, want at least 2", len(parts))
	}

	version, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return cd, fmt.Errorf("cache record version: %w", err)
	}
	cd.Version = uint32(version)

	hash, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return cd, fmt.Errorf("cache record hash: %w", err)
	}
	cd.Hash = hash

	if len(parts) > 2 {
		cd.Dependencies = append(cd.Dependencies, parts[2:]...)
	}
	return cd, nil
}

// Serialize renders the record in the same single-line format ParseCacheData
// reads.
func (cd CacheData) Serialize() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(cd.Version), 10))
	b.WriteString(",")
	b.WriteString(strconv.FormatUint(cd.Hash, 16))
	for _, dep := range cd.Dependencies {
		b.WriteString(",")
		b.WriteString(dep)
	}
	return b.String()
}

// spvFileName names a compiled binary by the first eight hex digits of its
// content hash, de-duplicating identical outputs across variants.
func spvFileName(hash uint64) string {
	return fmt.Sprintf("%016x", hash)[:8] + ".spv"
}

// cacheStore persists compiled shader binaries and their cache records under
// one directory.
type cacheStore struct {
	dir string
}

func newCacheStore(dir string) (*cacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shader cache dir %q: %w", dir, err)
	}
	return &cacheStore{dir: dir}, nil
}

func (cs *cacheStore) recordPath(variant string) string {
	return filepath.Join(cs.dir, variant+".cache")
}

// load returns the cached SPIR-V words for a variant, or ok=false on any
// cache miss. Misses are expected outcomes, not errors: version mismatch,
// missing binary, or the source or any dependency being newer than the
// record all mean "recompile".
func (cs *cacheStore) load(sourcePath, variant string) ([]uint32, bool) {
	cachePath := cs.recordPath(variant)
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}

	cd, err := ParseCacheData(data)
	if err != nil {
		core.LogDebug("shader cache %q unparseable: %v", cachePath, err)
		return nil, false
	}
	if cd.Version != cacheVersion {
		core.LogDebug("shader cache %q version mismatch, found %d when expected %d", cachePath, cd.Version, cacheVersion)
		return nil, false
	}

	spvPath := filepath.Join(cs.dir, spvFileName(cd.Hash))
	if _, err := os.Stat(spvPath); err != nil {
		return nil, false
	}

	// check timestamp against source and every dependency
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return nil, false
	}
	cacheTime := cacheInfo.ModTime()

	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, false
	}
	if sourceInfo.ModTime().After(cacheTime) {
		core.LogDebug("shader %q source is newer than cache, recompiling", sourcePath)
		return nil, false
	}

	for _, dep := range cd.Dependencies {
		depInfo, err := os.Stat(dep)
		if err != nil || depInfo.ModTime().After(cacheTime) {
			core.LogDebug("include %q is newer than cache, recompiling", dep)
			return nil, false
		}
	}

	words, err := readSPV(spvPath)
	if err != nil {
		core.LogDebug("shader binary %q: %v", spvPath, err)
		return nil, false
	}

	core.LogDebug("loaded shader %q from cache", spvPath)
	return words, true
}

// save writes the binary (content-addressed) and the variant's cache record.
func (cs *cacheStore) save(variant string, hash uint64, words []uint32, deps []string) error {
	spvPath := filepath.Join(cs.dir, spvFileName(hash))
	core.LogDebug("writing shader %q to %q", variant, spvPath)

	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	if err := cs.writeAtomic(spvPath, data); err != nil {
		return err
	}

	cd := CacheData{
		Version:      cacheVersion,
		Hash:         hash,
		Dependencies: deps,
	}
	return cs.writeAtomic(cs.recordPath(variant), []byte(cd.Serialize()))
}

// writeAtomic writes through a uniquely named temp file and renames it into
// place, so a crash mid-write never leaves a truncated cache entry behind.
func (cs *cacheStore) writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(cs.dir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// readSPV loads a raw SPIR-V word stream. The file size must be a multiple
// of the 4-byte word size.
func readSPV(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("spv file %q has incorrect size %d", path, len(data))
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
