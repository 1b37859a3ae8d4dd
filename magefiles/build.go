//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every GLSL source once to catch syntax errors before runtime.
// The engine compiles shaders itself and keeps the SPIR-V in its cache, so
// the output here is discarded.
func (Build) Shaders() error {
	entries, err := filepath.Glob("shaders/*.vert")
	if err != nil {
		return err
	}
	frags, err := filepath.Glob("shaders/*.frag")
	if err != nil {
		return err
	}
	entries = append(entries, frags...)

	for _, src := range entries {
		args := []string{src, "-I", "shaders", "--target-env=vulkan1.0", "-o", os.DevNull}
		if _, err := executeCmd("glslc", withArgs(args...), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the demo binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "prisma", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Removes the on-disk shader cache.
func (Build) CleanCache() error {
	return os.RemoveAll("cache")
}
