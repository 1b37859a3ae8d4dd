package testbed

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// SPIR-V opcodes and enums, only what binding reflection needs.
const (
	spvMagic uint32 = 0x07230203

	opTypeImage        = 25
	opTypeSampler      = 26
	opTypeSampledImage = 27
	opTypeStruct       = 30
	opTypeArray        = 28
	opTypePointer      = 32
	opVariable         = 59
	opDecorate         = 71

	decorationBlock         = 2
	decorationBufferBlock   = 3
	decorationBinding       = 33
	decorationDescriptorSet = 34

	storageClassUniformConstant = 0
	storageClassUniform         = 2
	storageClassStorageBuffer   = 12
)

type spvTypeKind int

const (
	typeUnknown spvTypeKind = iota
	typeSampler
	typeImage
	typeSampledImage
	typeStruct
)

// SpirvReflector extracts descriptor bindings straight from the binary's
// decoration and type instructions, enough to cross-check pipeline layouts.
type SpirvReflector struct{}

func (SpirvReflector) Reflect(words []uint32) ([]metadata.ShaderResource, error) {
	if len(words) < 5 || words[0] != spvMagic {
		return nil, fmt.Errorf("not a spir-v binary")
	}

	type varInfo struct {
		typeID  uint32
		storage uint32
	}
	type decoration struct {
		set, binding       uint32
		hasSet, hasBinding bool
		bufferBlock        bool
	}
	type pointer struct {
		storage uint32
		pointee uint32
	}

	kinds := map[uint32]spvTypeKind{}
	arrays := map[uint32]uint32{}
	pointers := map[uint32]pointer{}
	variables := map[uint32]varInfo{}
	decorations := map[uint32]*decoration{}

	deco := func(id uint32) *decoration {
		d, ok := decorations[id]
		if !ok {
			d = &decoration{}
			decorations[id] = d
		}
		return d
	}

	for i := 5; i < len(words); {
		wordCount := int(words[i] >> 16)
		opcode := words[i] & 0xFFFF
		if wordCount == 0 || i+wordCount > len(words) {
			return nil, fmt.Errorf("malformed spir-v instruction at word %d", i)
		}

		switch opcode {
		case opTypeSampler:
			kinds[words[i+1]] = typeSampler
		case opTypeImage:
			kinds[words[i+1]] = typeImage
		case opTypeSampledImage:
			kinds[words[i+1]] = typeSampledImage
		case opTypeStruct:
			kinds[words[i+1]] = typeStruct
		case opTypeArray:
			arrays[words[i+1]] = words[i+2]
		case opTypePointer:
			pointers[words[i+1]] = pointer{storage: words[i+2], pointee: words[i+3]}
		case opVariable:
			variables[words[i+2]] = varInfo{typeID: words[i+1], storage: words[i+3]}
		case opDecorate:
			if wordCount >= 3 {
				switch words[i+2] {
				case decorationDescriptorSet:
					d := deco(words[i+1])
					d.set = words[i+3]
					d.hasSet = true
				case decorationBinding:
					d := deco(words[i+1])
					d.binding = words[i+3]
					d.hasBinding = true
				case decorationBufferBlock:
					deco(words[i+1]).bufferBlock = true
				}
			}
		}
		i += wordCount
	}

	var resources []metadata.ShaderResource
	for id, v := range variables {
		d, ok := decorations[id]
		if !ok || !d.hasSet || !d.hasBinding {
			continue
		}

		// Pointer -> (optional array) -> pointee type.
		typeID := v.typeID
		if p, ok := pointers[typeID]; ok {
			typeID = p.pointee
		}
		if elem, ok := arrays[typeID]; ok {
			typeID = elem
		}

		var dt metadata.DescriptorType
		switch v.storage {
		case storageClassUniformConstant:
			switch kinds[typeID] {
			case typeSampler:
				dt = metadata.DescriptorTypeSampler
			case typeImage:
				dt = metadata.DescriptorTypeTexture
			case typeSampledImage:
				dt = metadata.DescriptorTypeCombinedSampler
			default:
				continue
			}
		case storageClassUniform:
			dt = metadata.DescriptorTypeUniformBuffer
			if td, ok := decorations[typeID]; ok && td.bufferBlock {
				dt = metadata.DescriptorTypeStorageBuffer
			}
		case storageClassStorageBuffer:
			dt = metadata.DescriptorTypeStorageBuffer
		default:
			continue
		}

		resources = append(resources, metadata.ShaderResource{
			Set:     d.set,
			Binding: d.binding,
			Type:    dt,
		})
	}
	return resources, nil
}
