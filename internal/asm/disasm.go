package asm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Disassemble renders a .nnep image back to NNASM text (SPEC_FULL.md
// component O, the consumer side of spec.md §8's round-trip property):
// every mnemonic and operand kind this package's assembler can produce, it
// can also read back, via the same DecodeInstruction/DecodeOperand internal/vm
// uses to execute an image. Resolved addresses are printed as plain hex
// immediates rather than reconstructed label names — the image itself
// carries no symbol table (spec.md §4.6 only describes code/data/header),
// so the text is not the original source, and re-assembling it does not
// always reproduce the image byte for byte (an address operand, for one,
// comes back as an immediate).
func Disassemble(image []byte) (string, error) {
	hdr, err := DecodeHeader(image)
	if err != nil {
		return "", err
	}
	codeBytes := image[hdr.CodeStart:hdr.DataStart]
	dataBytes := image[hdr.DataStart:hdr.Size]

	var b strings.Builder
	pos := 0
	for pos < len(codeBytes) {
		// The code region is zero-padded to 8 bytes before the data region.
		if len(codeBytes)-pos < 8 && strings.Trim(string(codeBytes[pos:]), "\x00") == "" {
			break
		}
		instr, n, err := DecodeInstruction(codeBytes, pos)
		if err != nil {
			return "", err
		}
		pos += n
		b.WriteString(instr.Mnemonic)
		for _, op := range instr.Operands {
			b.WriteByte(' ')
			b.WriteString(operandText(op))
		}
		b.WriteByte('\n')
	}

	if len(dataBytes) > 0 {
		b.WriteString("DBS __data \"")
		b.WriteString(strings.ReplaceAll(string(dataBytes), "\"", "\\\""))
		b.WriteString("\"\n")
	}
	return b.String(), nil
}

func operandText(op RawOperand) string {
	switch op.Kind {
	case ORegister:
		return registerText(op.Reg, width(op.W), numKind(op.K))
	case OImmediate:
		return immediateText(op.Imm, width(op.W), numKind(op.K))
	case OAddress:
		return fmt.Sprintf("0x%x", op.Imm)
	case OMemory:
		s := "[" + operandText(*op.Loc)
		if op.HasOff {
			sign := "+"
			if op.OffNeg {
				sign = "-"
			}
			s += " " + sign + " " + operandText(*op.Off)
		}
		return s + "]"
	default:
		return "?"
	}
}

func registerText(idx uint8, w width, k numKind) string {
	switch idx {
	case regPC:
		return "$pc"
	case regSF:
		return "$sf"
	case regSP:
		return "$sp"
	}
	bank := "r"
	if k == kFloat || k == kDouble {
		bank = "f"
	}
	return "$" + bank + strconv.Itoa(int(idx)) + widthKindSuffix(w, k)
}

func widthKindSuffix(w width, k numKind) string {
	switch k {
	case kFloat:
		return "_f"
	case kDouble:
		return "_d"
	case kSigned:
		return "_" + widthDigits(w) + "s"
	default:
		if w == w64 {
			return ""
		}
		return "_" + widthDigits(w)
	}
}

func widthDigits(w width) string {
	switch w {
	case w8:
		return "8"
	case w16:
		return "16"
	case w32:
		return "32"
	default:
		return "64"
	}
}

func immediateText(bits uint64, w width, k numKind) string {
	switch k {
	case kFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(bits))), 'g', -1, 32) + "_f"
	case kDouble:
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64) + "_d"
	case kSigned:
		return strconv.FormatInt(signExtend(bits, w), 10) + "_" + widthDigits(w) + "s"
	default:
		suffix := ""
		if w != w64 {
			suffix = "_" + widthDigits(w)
		}
		return strconv.FormatUint(bits, 10) + suffix
	}
}

func signExtend(bits uint64, w width) int64 {
	switch w {
	case w8:
		return int64(int8(bits))
	case w16:
		return int64(int16(bits))
	case w32:
		return int64(int32(bits))
	default:
		return int64(bits)
	}
}
