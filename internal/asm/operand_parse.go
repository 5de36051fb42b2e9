package asm

import "github.com/nn-lang/nnc/internal/logger"

// parseOperands consumes every operand on an instruction line (spec.md
// §4.5 "an opcode mnemonic followed by 0-3 operands").
func (a *assembler) parseOperands(toks []token) ([]operand, bool) {
	var ops []operand
	i := 0
	for i < len(toks) {
		op, n, ok := a.parseOperand(toks[i:])
		if !ok {
			return nil, false
		}
		ops = append(ops, op)
		i += n
	}
	return ops, true
}

// parseOperand parses one operand starting at toks[0], returning the number
// of tokens consumed.
func (a *assembler) parseOperand(toks []token) (operand, int, bool) {
	if len(toks) == 0 {
		return operand{}, 0, false
	}
	if toks[0].kind == tLBracket {
		return a.parseMemory(toks)
	}
	return a.parseAtom(toks[0])
}

// parseAtom parses a single-token operand: register, immediate, bare
// identifier, a <value-ref expansion, or a ~size-ref expansion. Value/size
// references must already be defined (spec.md leaves this implicit; the
// original source's older assembler iteration enforces it explicitly,
// unlike plain identifiers and LBL-defined labels which are deferred via the
// unfinished list).
func (a *assembler) parseAtom(t token) (operand, int, bool) {
	switch t.kind {
	case tRegister:
		idx, w, k, ok := parseRegister(t.text)
		if !ok {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, t.rng.Loc, "malformed register '$"+t.text+"'")
			return operand{}, 0, false
		}
		return operand{kind: opRegister, regIndex: idx, w: w, k: k, rng: t.rng}, 1, true
	case tImmediate:
		bits, w, k, ok := parseImmediate(t.text)
		if !ok {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, t.rng.Loc, "malformed immediate '"+t.text+"'")
			return operand{}, 0, false
		}
		return operand{kind: opImmediate, imm: bits, w: w, k: k, rng: t.rng}, 1, true
	case tWord:
		return operand{kind: opIdentifier, name: t.text, rng: t.rng}, 1, true
	case tValueRef:
		alias, ok := a.values[t.text]
		if !ok {
			a.log.AddID(logger.MsgID_Asm_UnknownIdentifier, a.source, t.rng.Loc, "<"+t.text+" refers to an undefined VAL")
			return operand{}, 0, false
		}
		op, _, ok := a.parseAtom(alias)
		return op, 1, ok
	case tSizeRef:
		id, ok := a.idens[t.text]
		if !ok || !id.defined {
			a.log.AddID(logger.MsgID_Asm_UnknownIdentifier, a.source, t.rng.Loc, "~"+t.text+" refers to an undefined DB/DBS buffer")
			return operand{}, 0, false
		}
		return operand{kind: opImmediate, imm: id.length, w: w64, k: kUnsigned, rng: t.rng}, 1, true
	default:
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, t.rng.Loc, "expected an operand")
		return operand{}, 0, false
	}
}

// parseMemory parses "[ loc ]" or "[ loc (+|-) off ]" (spec.md §4.5
// Memory operand kind).
func (a *assembler) parseMemory(toks []token) (operand, int, bool) {
	start := toks[0].rng
	i := 1 // past '['
	if i >= len(toks) {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, start.Loc, "unterminated memory operand")
		return operand{}, 0, false
	}
	loc, n, ok := a.parseAtom(toks[i])
	if !ok {
		return operand{}, 0, false
	}
	i += n

	mem := operand{kind: opMemory, memLoc: &loc, rng: start}

	if i < len(toks) && (toks[i].kind == tPlus || toks[i].kind == tMinus) {
		neg := toks[i].kind == tMinus
		i++
		if i >= len(toks) {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, start.Loc, "memory offset missing after +/-")
			return operand{}, 0, false
		}
		off, n2, ok := a.parseAtom(toks[i])
		if !ok {
			return operand{}, 0, false
		}
		i += n2
		mem.memOff = &off
		mem.hasMemOff = true
		mem.memOffNeg = neg
	}

	if i >= len(toks) || toks[i].kind != tRBracket {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, start.Loc, "memory operand missing closing ']'")
		return operand{}, 0, false
	}
	i++
	return mem, i, true
}
