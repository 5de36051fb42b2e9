package asm

import (
	"math"
	"strconv"
	"strings"

	"github.com/nn-lang/nnc/internal/logger"
)

type width uint8

const (
	w8 width = iota
	w16
	w32
	w64
)

func (w width) bytes() int {
	switch w {
	case w8:
		return 1
	case w16:
		return 2
	case w32:
		return 4
	default:
		return 8
	}
}

func (w width) bit(k numKind) formatBit {
	switch k {
	case kSigned:
		return [...]formatBit{fS8, fS16, fS32, fS64}[w]
	case kFloat:
		return fF32
	case kDouble:
		return fF64
	default:
		return [...]formatBit{fU8, fU16, fU32, fU64}[w]
	}
}

type numKind uint8

const (
	kUnsigned numKind = iota
	kSigned
	kFloat
	kDouble
)

// register names r0-r15/f0-f15 share one 16-slot physical file (spec.md
// §4.5 lists both banks with the same width/sign/float suffix grammar);
// which bank a slot is read/written as is decided by the suffix, not by
// which of $r/$f spelled it, so $r3_f and $f3 address the same slot. pc/sf/sp
// are fixed extra slots, always unsigned 64-bit.
const (
	regPC uint8 = 16
	regSF uint8 = 17
	regSP uint8 = 18
)

func parseRegister(text string) (index uint8, w width, k numKind, ok bool) {
	name := text
	suffix := ""
	if idx := strings.IndexByte(text, '_'); idx >= 0 {
		name = text[:idx]
		suffix = text[idx+1:]
	}
	switch name {
	case "pc":
		return regPC, w64, kUnsigned, true
	case "sf":
		return regSF, w64, kUnsigned, true
	case "sp":
		return regSP, w64, kUnsigned, true
	}
	if len(name) < 2 || (name[0] != 'r' && name[0] != 'f') {
		return 0, 0, 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 15 {
		return 0, 0, 0, false
	}
	w, k = w64, kUnsigned
	if name[0] == 'f' {
		w, k = w32, kFloat
	}
	if suffix != "" {
		var sufOK bool
		w, k, sufOK = parseWidthKindSuffix(suffix, w, k)
		if !sufOK {
			return 0, 0, 0, false
		}
	}
	return uint8(n), w, k, true
}

// parseWidthKindSuffix reads a register/immediate suffix like "32s", "f",
// "d", "64", "s" into a width+numKind, starting from defaults (the bank's
// implied kind/width before the suffix is applied).
func parseWidthKindSuffix(suf string, defW width, defK numKind) (width, numKind, bool) {
	digits := ""
	i := 0
	for i < len(suf) && suf[i] >= '0' && suf[i] <= '9' {
		digits += string(suf[i])
		i++
	}
	letter := suf[i:]
	w := defW
	if digits != "" {
		switch digits {
		case "8":
			w = w8
		case "16":
			w = w16
		case "32":
			w = w32
		case "64":
			w = w64
		default:
			return 0, 0, false
		}
	}
	k := defK
	switch letter {
	case "":
		if digits != "" && k != kFloat && k != kDouble {
			k = kUnsigned
		}
	case "s":
		k = kSigned
	case "f":
		k, w = kFloat, w32
	case "d":
		k, w = kDouble, w64
	default:
		return 0, 0, false
	}
	return w, k, true
}

// parseImmediate reads an integer or float literal per spec.md §4.5:
// dec/0x/0o/0b integers, N.N floats, trailing "s" for signed, width hints
// _8/_16/_32/_64/_f/_d.
func parseImmediate(text string) (bits uint64, w width, k numKind, ok bool) {
	body := text
	suffix := ""
	if idx := strings.IndexByte(text, '_'); idx >= 0 {
		body = text[:idx]
		suffix = text[idx+1:]
	}
	isFloat := strings.ContainsRune(body, '.')
	w, k = w64, kUnsigned

	if isFloat {
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return 0, 0, 0, false
		}
		w, k = w64, kDouble
		if suffix != "" {
			w, k, ok = parseWidthKindSuffix(suffix, w, k)
			if !ok {
				return 0, 0, 0, false
			}
		}
		if k == kFloat {
			return uint64(math.Float32bits(float32(v))), w, k, true
		}
		return math.Float64bits(v), w, k, true
	}

	base := 10
	switch {
	case strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X"):
		base, body = 16, body[2:]
	case strings.HasPrefix(body, "0o") || strings.HasPrefix(body, "0O"):
		base, body = 8, body[2:]
	case strings.HasPrefix(body, "0b") || strings.HasPrefix(body, "0B"):
		base, body = 2, body[2:]
	}
	v, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return 0, 0, 0, false
	}
	if suffix != "" {
		w, k, ok = parseWidthKindSuffix(suffix, w, k)
		if !ok {
			return 0, 0, 0, false
		}
	}
	return v, w, k, true
}

type operandKind uint8

const (
	opNone operandKind = iota
	opRegister
	opImmediate
	opIdentifier // bare name: label, DB/DBS name, or a <value/~size expansion
	opMemory
)

// operand is one parsed instruction argument, still in source form: bare
// identifiers are not yet resolved to addresses (spec.md §4.5 "Identifiers
// whose definitions are unknown are placeholders").
type operand struct {
	kind operandKind

	w width
	k numKind

	regIndex uint8
	imm      uint64
	name     string

	memLoc     *operand
	memOff     *operand
	memOffNeg  bool
	hasMemOff  bool

	rng logger.Range
}

func (op operand) concreteFormat() operandFormat {
	switch op.kind {
	case opRegister:
		return newFormat(fReg, op.w.bit(op.k))
	case opImmediate:
		return newFormat(fImm, op.w.bit(op.k))
	case opIdentifier:
		return newFormat(fImm, op.w.bit(op.k))
	case opMemory:
		return newFormat(fMem, op.w.bit(op.k))
	default:
		return newFormat()
	}
}

// applyDefault propagates an instruction-wide default width/kind (taken
// from the first register operand, spec.md leaves the VM's own calling
// convention unspecified) into a memory/bare-identifier operand that carried
// no suffix of its own.
func (op *operand) applyDefault(w width, k numKind) {
	switch op.kind {
	case opMemory:
		op.w, op.k = w, k
	case opIdentifier:
		// Identifiers always resolve to an absolute 64-bit address
		// (spec.md never defines a relative addressing mode), regardless
		// of the instruction's own register-derived width/kind context.
		op.w, op.k = w64, kUnsigned
	}
}
