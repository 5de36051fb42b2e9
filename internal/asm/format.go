package asm

import "github.com/nn-lang/nnc/internal/helpers"

// formatBit indexes one flag of an operand's format mask (spec.md §4.5
// "build a bitmask format::instruction summarizing each operand's imm|reg|mem
// and width/sign/float"), grounded on the original assembler's
// nnasm::format::raw bit layout (backend/nnasm.h).
type formatBit uint

const (
	fU8 formatBit = iota
	fU16
	fU32
	fU64
	fS8
	fS16
	fS32
	fS64
	fF32
	fF64
	fImm
	fReg
	fMem
	fBitCount
)

// operandFormat wraps helpers.BitSet (carried from the teacher's general
// small-bitset helper, reused here for the two-pass format-mask matching
// SPEC_FULL.md §4 calls out by name) to hold one operand's acceptable or
// actual format flags.
type operandFormat struct {
	bits helpers.BitSet
}

func newFormat(set ...formatBit) operandFormat {
	f := operandFormat{bits: helpers.NewBitSet(uint(fBitCount))}
	for _, b := range set {
		f.bits.SetBit(uint(b))
	}
	return f
}

func (f operandFormat) has(b formatBit) bool {
	return f.bits.HasBit(uint(b))
}

func (f operandFormat) with(b formatBit) operandFormat {
	f.bits.SetBit(uint(b))
	return f
}

// acceptsConcrete reports whether a concrete, single-operand format (exactly
// one target bit and one type bit set, describing the operand actually
// written in source) is accepted by f, an instruction variant's declared
// acceptable-format mask (which may OR together many widths, e.g. "any
// unsigned width"). Every bit the concrete operand sets must also be set in
// the variant's mask.
//
// The original source's instruction_format table builds its broad masks
// (any_int = sint|uint, any_target = reg|imm|mem, ...) precisely so one
// variant can serve many concrete widths; reading spec.md §4.5's "variant's
// format mask is a subset of the input" literally (variant ⊆ input) would
// make those broad constants useless, since a concrete operand only ever
// sets one width bit. The variants here are declared the same way the
// original table is (broad, type-category masks), so the match direction
// has to be concrete ⊆ variant.
func acceptsConcrete(variant, concrete operandFormat) bool {
	for i := uint(0); i < uint(fBitCount); i++ {
		if concrete.bits.HasBit(i) && !variant.bits.HasBit(i) {
			return false
		}
	}
	return true
}

var (
	anyUint  = []formatBit{fU8, fU16, fU32, fU64}
	anySint  = []formatBit{fS8, fS16, fS32, fS64}
	anyFloat = []formatBit{fF32}
	anyDble  = []formatBit{fF64}
	anyType  = append(append(append(append([]formatBit{}, anyUint...), anySint...), anyFloat...), anyDble...)
)

// withTypes is nil-safe: an empty/nil types list means "any type at all",
// since an omitted type list is always meant to accept whatever the
// instruction's own width/kind context supplies (operand.go's
// applyDefault), never "no type".
func withTypes(f operandFormat, types []formatBit) operandFormat {
	if len(types) == 0 {
		types = anyType
	}
	for _, t := range types {
		f = f.with(t)
	}
	return f
}

// target builds a "reg|imm|mem, any of types" accepted mask, the broad
// operand format most mnemonics declare (spec.md §4.5's "imm|reg|mem").
func target(types []formatBit) operandFormat {
	return withTypes(newFormat(fReg, fImm, fMem), types)
}

// regOnly/memOnly restrict the target set to a single operand kind, for
// destinations that must name a place to write to (spec.md names no VM
// calling convention; restricting writable destinations to registers and
// memory mirrors the register-VM shape described in §4.6).
func regOnly(types []formatBit) operandFormat {
	return withTypes(newFormat(fReg), types)
}

func memOnly(types []formatBit) operandFormat {
	return withTypes(newFormat(fMem), types)
}
