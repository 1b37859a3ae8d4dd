package shaders

import (
	"sort"
	"strings"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Macro is one preprocessor definition. An empty Value defines the name with
// no value.
type Macro struct {
	Name  string
	Value string
}

// Macros is an ordered macro set. Insertion order is preserved for the
// compiler; the cache identity uses a sorted serialization so that two sets
// with the same content always name the same shader variant.
type Macros struct {
	defs []Macro
}

func NewMacros() *Macros {
	return &Macros{}
}

// Set adds or replaces a definition.
func (m *Macros) Set(name, value string) *Macros {
	for i := range m.defs {
		if m.defs[i].Name == name {
			m.defs[i].Value = value
			return m
		}
	}
	m.defs = append(m.defs, Macro{Name: name, Value: value})
	return m
}

func (m *Macros) List() []Macro {
	if m == nil {
		return nil
	}
	return m.defs
}

// VariantName disambiguates a source name by its macro set. Distinct macro
// combinations never collide in the cache.
func VariantName(name string, macros *Macros) string {
	if macros == nil || len(macros.defs) == 0 {
		return name
	}

	sorted := make([]string, 0, len(macros.defs))
	for _, d := range macros.defs {
		s := d.Name
		if d.Value != "" {
			s += "=" + d.Value
		}
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(name)
	for _, s := range sorted {
		b.WriteString("_")
		b.WriteString(s)
	}
	return b.String()
}

// Binary is a compiled shader: SPIR-V words plus the resource bindings
// reflected from them.
type Binary struct {
	Words     []uint32
	Resources []metadata.ShaderResource
}

// IncludeResolver maps an #include name to its byte contents. The shader
// system supplies one that records every resolved file as a cache dependency.
type IncludeResolver func(name string) ([]byte, error)

// Compiler turns GLSL source into SPIR-V words. Implementations wrap an
// external compiler service; the system treats them as a black box.
type Compiler interface {
	Compile(name string, source []byte, kind metadata.ShaderKind, macros []Macro, resolve IncludeResolver) ([]uint32, error)
}

// Optimizer runs a binary-level optimization pass over SPIR-V words.
type Optimizer interface {
	Optimize(words []uint32) ([]uint32, error)
}

// Reflector extracts the resource bindings a compiled shader declares.
type Reflector interface {
	Reflect(words []uint32) ([]metadata.ShaderResource, error)
}
