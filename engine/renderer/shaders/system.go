package shaders

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// System owns shader compilation: source loading, the include cache, the
// on-disk SPIR-V cache and the external compiler/optimizer/reflector
// services. One instance lives for the renderer's lifetime; its caches are
// explicit state, torn down with it.
type System struct {
	cfg       config.ShaderConfig
	compiler  Compiler
	optimizer Optimizer
	reflector Reflector
	store     *cacheStore

	// mutex guards the source/include caches against the watcher goroutine
	mutex    sync.RWMutex
	sources  map[string][]byte
	includes map[string][]byte

	watcher *sourceWatcher
}

func NewSystem(cfg config.ShaderConfig, compiler Compiler, optimizer Optimizer, reflector Reflector) (*System, error) {
	if compiler == nil {
		return nil, fmt.Errorf("shader system requires a compiler")
	}
	if reflector == nil {
		return nil, fmt.Errorf("shader system requires a reflector")
	}

	store, err := newCacheStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	s := &System{
		cfg:       cfg,
		compiler:  compiler,
		optimizer: optimizer,
		reflector: reflector,
		store:     store,
		sources:   make(map[string][]byte),
		includes:  make(map[string][]byte),
	}

	w, err := newSourceWatcher(cfg.SourceDir, s.invalidate)
	if err != nil {
		// hot-reload is a development convenience, not a requirement
		core.LogWarn("shader source watcher unavailable: %v", err)
	} else {
		s.watcher = w
	}

	return s, nil
}

func (s *System) Close() error {
	if s.watcher != nil {
		return s.watcher.close()
	}
	return nil
}

// Compile produces the SPIR-V binary for one shader variant, going to the
// on-disk cache first. Compilation failure is fatal to the operation: a
// missing shader cannot be silently skipped.
func (s *System) Compile(name string, macros *Macros, kind metadata.ShaderKind) (*Binary, error) {
	sourceName := name + kind.Extension()
	variant := VariantName(sourceName, macros)
	sourcePath := filepath.Join(s.cfg.SourceDir, sourceName)

	if !s.cfg.SkipCache {
		core.LogDebug("looking for %q in cache...", variant)
		if words, ok := s.store.load(sourcePath, variant); ok {
			resources, err := s.reflector.Reflect(words)
			if err != nil {
				return nil, fmt.Errorf("shader %q reflection: %w", variant, err)
			}
			return &Binary{Words: words, Resources: resources}, nil
		}
		core.LogDebug("%q not found in cache", variant)
	}

	source, err := s.loadSource(sourceName)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", sourceName, err)
	}

	// every file the compiler pulls in through the resolver becomes a cache
	// dependency
	var deps []string
	resolve := func(include string) ([]byte, error) {
		path := filepath.Join(s.cfg.SourceDir, include)
		data, err := s.loadInclude(path)
		if err != nil {
			return nil, err
		}
		deps = append(deps, path)
		return data, nil
	}

	words, err := s.compiler.Compile(sourceName, source, kind, macros.List(), resolve)
	if err != nil {
		core.LogError("shader %s compile failed: %v", sourceName, err)
		return nil, fmt.Errorf("shader %q compile failed: %w", sourceName, err)
	}

	if s.cfg.Optimize && s.optimizer != nil {
		optimized, err := s.optimizer.Optimize(words)
		if err != nil {
			return nil, fmt.Errorf("shader %q optimization failed: %w", variant, err)
		}
		words = optimized
	}

	resources, err := s.reflector.Reflect(words)
	if err != nil {
		return nil, fmt.Errorf("shader %q reflection: %w", variant, err)
	}

	if !s.cfg.SkipCache {
		if err := s.store.save(variant, hashWords(words), words, deps); err != nil {
			// failing to persist the cache only costs a future recompile
			core.LogWarn("shader cache write for %q failed: %v", variant, err)
		}
	}

	return &Binary{Words: words, Resources: resources}, nil
}

func (s *System) loadSource(name string) ([]byte, error) {
	s.mutex.RLock()
	source, ok := s.sources[name]
	s.mutex.RUnlock()
	if ok {
		return source, nil
	}

	source, err := os.ReadFile(filepath.Join(s.cfg.SourceDir, name))
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.sources[name] = source
	s.mutex.Unlock()
	return source, nil
}

func (s *System) loadInclude(path string) ([]byte, error) {
	s.mutex.RLock()
	data, ok := s.includes[path]
	s.mutex.RUnlock()
	if ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.includes[path] = data
	s.mutex.Unlock()
	return data, nil
}

// invalidate drops cached contents for a changed file so the next compile
// rereads it from disk.
func (s *System) invalidate(path string) {
	name, err := filepath.Rel(s.cfg.SourceDir, path)
	if err != nil {
		name = filepath.Base(path)
	}

	s.mutex.Lock()
	delete(s.sources, name)
	delete(s.includes, path)
	s.mutex.Unlock()

	core.LogDebug("shader source %q changed, cache entry dropped", name)
}

func hashWords(words []uint32) uint64 {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		data[i*4] = byte(w)
		data[i*4+1] = byte(w >> 8)
		data[i*4+2] = byte(w >> 16)
		data[i*4+3] = byte(w >> 24)
	}
	return xxhash.Sum64(data)
}
