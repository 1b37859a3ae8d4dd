package testbed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shaders"
)

// GlslCompiler compiles GLSL to SPIR-V by shelling out to glslc. Includes
// are resolved by glslc against IncludeDir; the resolver callback is still
// invoked per #include directive so dependencies land in the shader cache
// records.
type GlslCompiler struct {
	IncludeDir string
}

func (c *GlslCompiler) Compile(name string, source []byte, kind metadata.ShaderKind, macros []shaders.Macro, resolve shaders.IncludeResolver) ([]uint32, error) {
	stage := "vertex"
	if kind == metadata.ShaderKindFragment {
		stage = "fragment"
	}

	args := []string{"-fshader-stage=" + stage, "--target-env=vulkan1.0"}
	for _, m := range macros {
		if m.Value == "" {
			args = append(args, "-D"+m.Name)
		} else {
			args = append(args, fmt.Sprintf("-D%s=%s", m.Name, m.Value))
		}
	}
	if c.IncludeDir != "" {
		args = append(args, "-I", c.IncludeDir)
	}
	args = append(args, "-o", "-", "-")

	// Touch every include through the resolver so it gets recorded as a
	// cache dependency; glslc reads the actual contents itself.
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#include") {
			continue
		}
		if start := strings.Index(trimmed, `"`); start >= 0 {
			if end := strings.Index(trimmed[start+1:], `"`); end >= 0 {
				resolve(trimmed[start+1 : start+1+end])
			}
		}
	}

	cmd := exec.Command("glslc", args...)
	cmd.Stdin = bytes.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("glslc %s: %w\n%s", name, err, stderr.String())
	}
	return bytesToWords(stdout.Bytes())
}

// SpirvOptimizer runs spirv-opt -O over a binary. When the tool is not
// installed the input passes through unchanged.
type SpirvOptimizer struct {
	warnOnce sync.Once
}

func (o *SpirvOptimizer) Optimize(words []uint32) ([]uint32, error) {
	if _, err := exec.LookPath("spirv-opt"); err != nil {
		o.warnOnce.Do(func() {
			core.LogWarn("spirv-opt not found, shaders will not be optimized")
		})
		return words, nil
	}

	cmd := exec.Command("spirv-opt", "-O", "-", "-o", "-")
	cmd.Stdin = bytes.NewReader(wordsToBytes(words))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("spirv-opt: %w\n%s", err, stderr.String())
	}
	return bytesToWords(stdout.Bytes())
}

func bytesToWords(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("spir-v output has incorrect size %d", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

func wordsToBytes(words []uint32) []byte {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}
