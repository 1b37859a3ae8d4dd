package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// ins encodes one SPIR-V instruction: opcode in the low half-word, total
// word count in the high half-word.
func ins(opcode uint32, operands ...uint32) []uint32 {
	words := []uint32{uint32(len(operands)+1)<<16 | opcode}
	return append(words, operands...)
}

func module(instructions ...[]uint32) []uint32 {
	// header: magic, version 1.0, generator, id bound, schema
	words := []uint32{spvMagic, 0x00010000, 0, 100, 0}
	for _, i := range instructions {
		words = append(words, i...)
	}
	return words
}

func TestReflectUniformBuffer(t *testing.T) {
	words := module(
		ins(opDecorate, 5, decorationDescriptorSet, 0),
		ins(opDecorate, 5, decorationBinding, 0),
		ins(opTypeStruct, 2),
		ins(opTypePointer, 3, storageClassUniform, 2),
		ins(opVariable, 3, 5, storageClassUniform),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, metadata.ShaderResource{Set: 0, Binding: 0, Type: metadata.DescriptorTypeUniformBuffer}, resources[0])
}

func TestReflectCombinedSampler(t *testing.T) {
	words := module(
		ins(opDecorate, 13, decorationDescriptorSet, 0),
		ins(opDecorate, 13, decorationBinding, 1),
		ins(opTypeImage, 10, 6, 1, 0, 0, 0, 1, 0),
		ins(opTypeSampledImage, 11, 10),
		ins(opTypePointer, 12, storageClassUniformConstant, 11),
		ins(opVariable, 12, 13, storageClassUniformConstant),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, metadata.ShaderResource{Set: 0, Binding: 1, Type: metadata.DescriptorTypeCombinedSampler}, resources[0])
}

func TestReflectSeparateImageAndSampler(t *testing.T) {
	words := module(
		ins(opDecorate, 13, decorationDescriptorSet, 1),
		ins(opDecorate, 13, decorationBinding, 0),
		ins(opDecorate, 23, decorationDescriptorSet, 1),
		ins(opDecorate, 23, decorationBinding, 1),
		ins(opTypeImage, 10, 6, 1, 0, 0, 0, 1, 0),
		ins(opTypePointer, 12, storageClassUniformConstant, 10),
		ins(opVariable, 12, 13, storageClassUniformConstant),
		ins(opTypeSampler, 20),
		ins(opTypePointer, 22, storageClassUniformConstant, 20),
		ins(opVariable, 22, 23, storageClassUniformConstant),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	byBinding := map[uint32]metadata.DescriptorType{}
	for _, res := range resources {
		assert.Equal(t, uint32(1), res.Set)
		byBinding[res.Binding] = res.Type
	}
	assert.Equal(t, metadata.DescriptorTypeTexture, byBinding[0])
	assert.Equal(t, metadata.DescriptorTypeSampler, byBinding[1])
}

func TestReflectTextureArray(t *testing.T) {
	words := module(
		ins(opDecorate, 13, decorationDescriptorSet, 0),
		ins(opDecorate, 13, decorationBinding, 2),
		ins(opTypeImage, 10, 6, 1, 0, 0, 0, 1, 0),
		ins(opTypeArray, 11, 10, 99),
		ins(opTypePointer, 12, storageClassUniformConstant, 11),
		ins(opVariable, 12, 13, storageClassUniformConstant),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, metadata.DescriptorTypeTexture, resources[0].Type)
}

func TestReflectBufferBlockIsStorage(t *testing.T) {
	words := module(
		ins(opDecorate, 2, decorationBufferBlock),
		ins(opDecorate, 5, decorationDescriptorSet, 0),
		ins(opDecorate, 5, decorationBinding, 3),
		ins(opTypeStruct, 2),
		ins(opTypePointer, 3, storageClassUniform, 2),
		ins(opVariable, 3, 5, storageClassUniform),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, metadata.DescriptorTypeStorageBuffer, resources[0].Type)
}

func TestReflectStorageBufferClass(t *testing.T) {
	words := module(
		ins(opDecorate, 5, decorationDescriptorSet, 2),
		ins(opDecorate, 5, decorationBinding, 0),
		ins(opTypeStruct, 2),
		ins(opTypePointer, 3, storageClassStorageBuffer, 2),
		ins(opVariable, 3, 5, storageClassStorageBuffer),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, metadata.ShaderResource{Set: 2, Binding: 0, Type: metadata.DescriptorTypeStorageBuffer}, resources[0])
}

func TestReflectIgnoresUndecoratedVariables(t *testing.T) {
	// stage inputs and outputs carry no set/binding and must not show up
	words := module(
		ins(opTypeStruct, 2),
		ins(opTypePointer, 3, storageClassUniform, 2),
		ins(opVariable, 3, 5, storageClassUniform),
	)

	resources, err := SpirvReflector{}.Reflect(words)
	require.NoError(t, err)
	assert.Empty(t, resources)
}

func TestReflectRejectsBadMagic(t *testing.T) {
	_, err := SpirvReflector{}.Reflect([]uint32{0xdeadbeef, 0, 0, 0, 0})
	assert.Error(t, err)

	_, err = SpirvReflector{}.Reflect([]uint32{spvMagic})
	assert.Error(t, err)
}

func TestReflectRejectsMalformedInstruction(t *testing.T) {
	// zero word count would loop forever
	words := module()
	words = append(words, 0x00000047)
	_, err := SpirvReflector{}.Reflect(words)
	assert.Error(t, err)

	// declared length runs past the end of the stream
	words = module()
	words = append(words, ins(opDecorate, 5, decorationBinding, 0)[0])
	_, err = SpirvReflector{}.Reflect(words)
	assert.Error(t, err)
}

func TestWordsBytesRoundTrip(t *testing.T) {
	words := []uint32{spvMagic, 0x00010000, 42}
	got, err := bytesToWords(wordsToBytes(words))
	require.NoError(t, err)
	assert.Equal(t, words, got)
}

func TestBytesToWordsRejectsBadSizes(t *testing.T) {
	_, err := bytesToWords(nil)
	assert.Error(t, err)

	_, err = bytesToWords([]byte{1, 2, 3})
	assert.Error(t, err)
}
