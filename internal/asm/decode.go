package asm

import (
	"encoding/binary"
	"fmt"
)

// This file is the runtime counterpart of encodeOperand/assembleInstruction:
// it turns the wire bytes back into structured values rather than text,
// grounded the same way disasm.go's text decoder is (backend/nnasm.h's
// opertype/operlen + mem_hdr layout), so internal/vm can execute an image
// without re-deriving the encoding independently. operand.go's width/numKind
// stay private to the assembler's own matching code; Width/NumKind here are
// the public runtime-facing mirror of the same two-bit wire fields.

// Width is a decoded operand's byte width.
type Width uint8

const (
	W8 Width = iota
	W16
	W32
	W64
)

// Bytes returns the operand's width in bytes.
func (w Width) Bytes() int {
	switch w {
	case W8:
		return 1
	case W16:
		return 2
	case W32:
		return 4
	default:
		return 8
	}
}

// NumKind is a decoded operand's numeric interpretation.
type NumKind uint8

const (
	KUnsigned NumKind = iota
	KSigned
	KFloat
	KDouble
)

// OperandKind distinguishes the four operand shapes the wire format can
// carry. An identifier operand decodes as OAddress: by the time an image
// reaches this decoder, the assembler's link pass has already resolved it
// to an absolute offset, so there is nothing left distinguishing it from a
// plain resolved address at runtime.
type OperandKind uint8

const (
	ORegister OperandKind = iota
	OImmediate
	OAddress
	OMemory
)

// RawOperand is one decoded instruction operand in runtime form.
type RawOperand struct {
	Kind OperandKind
	W    Width
	K    NumKind

	Reg uint8
	Imm uint64 // immediate value bits, or (OAddress) the resolved absolute offset

	Loc    *RawOperand // OMemory only
	Off    *RawOperand // OMemory only, nil if HasOff is false
	OffNeg bool
	HasOff bool
}

// Instruction is one decoded instruction: an opcode plus its operands.
type Instruction struct {
	Opcode   uint16
	Mnemonic string
	Operands []RawOperand
}

// DecodeInstruction decodes one instruction starting at pos within a code
// region (hdr.CodeStart:hdr.DataStart), returning the instruction and the
// number of bytes it occupied.
func DecodeInstruction(codeBytes []byte, pos int) (Instruction, int, error) {
	start := pos
	if pos+2 > len(codeBytes) {
		return Instruction{}, 0, fmt.Errorf("asm: truncated opcode at code offset %d", pos)
	}
	c := code(binary.LittleEndian.Uint16(codeBytes[pos : pos+2]))
	pos += 2
	info, ok := codeTable[c]
	if !ok {
		return Instruction{}, 0, fmt.Errorf("asm: unknown opcode %d at code offset %d", c, pos-2)
	}
	instr := Instruction{Opcode: uint16(c), Mnemonic: info.mnemonic}
	for range info.operands {
		op, n, err := DecodeOperand(codeBytes, pos)
		if err != nil {
			return Instruction{}, 0, err
		}
		instr.Operands = append(instr.Operands, op)
		pos += n
	}
	return instr, pos - start, nil
}

// DecodeOperand decodes one top-level operand (the kind tag plus its body),
// the structural counterpart of encodeOperand in assembler.go.
func DecodeOperand(buf []byte, pos int) (RawOperand, int, error) {
	start := pos
	if pos >= len(buf) {
		return RawOperand{}, 0, fmt.Errorf("asm: truncated operand tag at code offset %d", pos)
	}
	tag := buf[pos]
	pos++
	switch tag {
	case tagRegister:
		if pos+2 > len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated register operand at code offset %d", pos)
		}
		idx, desc := buf[pos], buf[pos+1]
		pos += 2
		w, k := decodeDescriptor(desc)
		return RawOperand{Kind: ORegister, W: Width(w), K: NumKind(k), Reg: idx}, pos - start, nil

	case tagImmediate:
		if pos >= len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated immediate descriptor at code offset %d", pos)
		}
		w, k := decodeDescriptor(buf[pos])
		pos++
		pos = alignUp(pos, w.bytes())
		if pos+w.bytes() > len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated immediate value at code offset %d", pos)
		}
		bits := readUintN(buf, pos, w.bytes())
		pos += w.bytes()
		return RawOperand{Kind: OImmediate, W: Width(w), K: NumKind(k), Imm: bits}, pos - start, nil

	case tagIdentifier:
		if pos >= len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated identifier descriptor at code offset %d", pos)
		}
		pos++ // descriptor byte, always w64/unsigned for addresses
		pos = alignUp(pos, 8)
		addr, err := readU64(buf, pos)
		if err != nil {
			return RawOperand{}, 0, err
		}
		pos += 8
		return RawOperand{Kind: OAddress, W: W64, K: KUnsigned, Imm: addr}, pos - start, nil

	case tagMemory:
		if pos+2 > len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated memory operand at code offset %d", pos)
		}
		w, k := decodeDescriptor(buf[pos])
		pos++
		hdrByte := buf[pos]
		pos++
		locIsReg := hdrByte&1 != 0
		offType := (hdrByte >> 1) & 3

		loc, n, err := decodeRawLocation(buf, pos, locIsReg)
		if err != nil {
			return RawOperand{}, 0, err
		}
		pos += n

		op := RawOperand{Kind: OMemory, W: Width(w), K: NumKind(k), Loc: &loc}
		if offType != 0 {
			off, n2, err := decodeRawLocation(buf, pos, offType == 1 || offType == 2)
			if err != nil {
				return RawOperand{}, 0, err
			}
			pos += n2
			op.Off = &off
			op.HasOff = true
			op.OffNeg = offType == 2
		}
		return op, pos - start, nil

	default:
		return RawOperand{}, 0, fmt.Errorf("asm: unknown operand tag %d at code offset %d", tag, start)
	}
}

func decodeRawLocation(buf []byte, pos int, isReg bool) (RawOperand, int, error) {
	if isReg {
		if pos >= len(buf) {
			return RawOperand{}, 0, fmt.Errorf("asm: truncated memory register at code offset %d", pos)
		}
		return RawOperand{Kind: ORegister, W: W64, K: KUnsigned, Reg: buf[pos]}, 1, nil
	}
	aligned := alignUp(pos, 8)
	addr, err := readU64(buf, aligned)
	if err != nil {
		return RawOperand{}, 0, err
	}
	return RawOperand{Kind: OAddress, W: W64, K: KUnsigned, Imm: addr}, (aligned - pos) + 8, nil
}

func readU64(buf []byte, pos int) (uint64, error) {
	if pos+8 > len(buf) {
		return 0, fmt.Errorf("asm: truncated operand at code offset %d", pos)
	}
	return binary.LittleEndian.Uint64(buf[pos : pos+8]), nil
}

func readUintN(buf []byte, pos int, n int) uint64 {
	tmp := make([]byte, 8)
	copy(tmp, buf[pos:pos+n])
	return binary.LittleEndian.Uint64(tmp)
}

// LookupOpcode reports the mnemonic and operand count for a decoded opcode
// value, for callers (diagnostics, tracing) that only have the numeric code.
func LookupOpcode(op uint16) (mnemonic string, operandCount int, ok bool) {
	info, ok := codeTable[code(op)]
	if !ok {
		return "", 0, false
	}
	return info.mnemonic, len(info.operands), true
}
