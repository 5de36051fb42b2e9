package asm

import (
	"encoding/binary"
	"strings"

	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
)

// ident is one entry of the unified label/value namespace DB/DBS buffers and
// LBL code labels share (spec.md §4.5 "DB name ..."/"LBL name"), grounded on
// the newer original-source iteration's single `idens` map (as opposed to
// the older iteration's separate labels/stored_values maps) which is what
// makes a DB/DBS name colliding with a code label a single, uniform error
// rather than two maps silently shadowing each other.
type ident struct {
	value   uint64 // byte offset within its own region (code or data)
	length  uint64 // byte length, for ~name size references
	inData  bool
	defined bool
}

// patch is spec.md §4.5's "(token, offset, in_data?)" unfinished-list entry:
// an 8-byte absolute-address slot already written as zero, to be filled in
// once every label is known (pass 2).
type patch struct {
	name      string
	siteInData bool
	offset    uint64
	rng       logger.Range
}

type assembler struct {
	sess   *config.Session
	source *logger.Source
	log    logger.Log

	idens  map[string]*ident
	values map[string]token

	code    []byte
	data    []byte
	patches []patch
}

// Assemble runs the full two-pass algorithm over source, returning a
// complete .nnep image. ok is false if any diagnostic was logged; the
// returned bytes are meaningless in that case.
func Assemble(sess *config.Session, source *logger.Source) ([]byte, bool) {
	a := &assembler{
		sess:   sess,
		source: source,
		log:    sess.Log,
		idens:  make(map[string]*ident),
		values: make(map[string]token),
	}
	logged := false
	addMsg := a.log.AddMsg
	a.log.AddMsg = func(msg logger.Msg) {
		logged = true
		addMsg(msg)
	}
	lines := splitLines(tokenize(source, a.log))
	for _, line := range lines {
		a.assembleLine(line)
	}
	image := a.link()
	return image, !logged
}

func splitLines(toks []token) [][]token {
	var lines [][]token
	var cur []token
	for _, t := range toks {
		if t.kind == tNewline || t.kind == tEOF {
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			cur = nil
			if t.kind == tEOF {
				break
			}
			continue
		}
		cur = append(cur, t)
	}
	return lines
}

func (a *assembler) assembleLine(line []token) {
	head := line[0]
	if head.kind != tWord {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, head.rng.Loc, "expected a mnemonic or pseudo-op at the start of a line")
		return
	}
	switch strings.ToUpper(head.text) {
	case "LBL":
		a.defineLabel(line)
	case "VAL":
		a.defineValue(line)
	case "DB":
		a.defineData(line, false)
	case "DBS":
		a.defineData(line, true)
	default:
		a.assembleInstruction(head, line[1:])
	}
}

func (a *assembler) declareIdent(name string, rng logger.Range, inData bool) *ident {
	if existing, ok := a.idens[name]; ok && existing.defined {
		a.log.AddID(logger.MsgID_Asm_UnknownIdentifier, a.source, rng.Loc, "redefinition of '"+name+"'")
		return existing
	}
	id := &ident{inData: inData, defined: true}
	a.idens[name] = id
	return id
}

func (a *assembler) defineLabel(line []token) {
	if len(line) < 2 || line[1].kind != tWord {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, line[0].rng.Loc, "LBL requires a name")
		return
	}
	id := a.declareIdent(line[1].text, line[1].rng, false)
	id.value = uint64(len(a.code))
}

func (a *assembler) defineValue(line []token) {
	if len(line) < 3 || line[1].kind != tWord {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, line[0].rng.Loc, "VAL requires a name and an expression")
		return
	}
	a.values[line[1].text] = line[2]
}

func (a *assembler) defineData(line []token, isString bool) {
	if len(line) < 2 || line[1].kind != tWord {
		a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, line[0].rng.Loc, "DB/DBS requires a name")
		return
	}
	name := line[1].text
	a.alignData(8)
	id := a.declareIdent(name, line[1].rng, true)
	id.value = uint64(len(a.data))

	if isString {
		if len(line) < 3 || line[2].kind != tString {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, line[0].rng.Loc, "DBS requires a string literal")
			return
		}
		bytes := append([]byte(line[2].text), 0)
		a.data = append(a.data, bytes...)
		id.length = uint64(len(bytes))
		return
	}

	start := len(a.data)
	for _, item := range line[2:] {
		if item.kind != tImmediate {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, item.rng.Loc, "DB values must be numeric literals")
			continue
		}
		bits, w, _, ok := parseImmediate(item.text)
		if !ok {
			a.log.AddID(logger.MsgID_Asm_MalformedOperand, a.source, item.rng.Loc, "malformed DB literal '"+item.text+"'")
			continue
		}
		a.data = appendUint(a.data, bits, w.bytes())
	}
	id.length = uint64(len(a.data) - start)
}

func (a *assembler) alignData(to int) {
	for len(a.data)%to != 0 {
		a.data = append(a.data, 0)
	}
}

// alignUp rounds pos up to the smallest power of two >= width, spec.md
// §4.5's code-pointer alignment rule.
func alignUp(pos int, width int) int {
	p := 1
	for p < width {
		p <<= 1
	}
	if pos%p == 0 {
		return pos
	}
	return pos + (p - pos%p)
}

func appendUint(buf []byte, v uint64, n int) []byte {
	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp, v)
	return append(buf, tmp[:n]...)
}

func (a *assembler) assembleInstruction(head token, rest []token) {
	mnemonic := strings.ToUpper(head.text)
	operands, ok := a.parseOperands(rest)
	if !ok {
		return
	}

	defW, defK := w64, kUnsigned
	for _, op := range operands {
		if op.kind == opRegister {
			defW, defK = op.w, op.k
			break
		}
	}
	for i := range operands {
		operands[i].applyDefault(defW, defK)
	}

	c, ok := lookup(mnemonic, operands)
	if !ok {
		if _, exists := operandCount(mnemonic); !exists {
			a.log.AddID(logger.MsgID_Asm_UnknownMnemonic, a.source, head.rng.Loc, "unknown mnemonic '"+head.text+"'")
		} else {
			a.log.AddID(logger.MsgID_Asm_FormatMismatch, a.source, head.rng.Loc, "no operand-format variant of '"+mnemonic+"' accepts the given operands")
		}
		return
	}

	a.code = appendUint(a.code, uint64(c), 2)
	for _, op := range operands {
		a.encodeOperand(op)
	}
}

// alignCode pads the code buffer with zero bytes up to the smallest power
// of two >= width (spec.md §4.5's alignment rule), applied per operand value
// rather than per instruction: aligning the whole instruction on its
// widest operand's width isn't decodable in one pass (the widest width is
// only known after the operands themselves, which haven't been read yet),
// whereas aligning right before each value's own bytes is, since that
// value's width was just read from the descriptor byte immediately
// preceding it.
func (a *assembler) alignCode(width int) {
	target := alignUp(len(a.code), width)
	for len(a.code) < target {
		a.code = append(a.code, 0)
	}
}

// Each top-level operand starts with a one-byte kind tag: the accepted
// format for a "target" position allows register/immediate/memory
// interchangeably, so the encoded bytes alone (a register index and an
// immediate's descriptor byte look alike) can't be told apart on
// disassembly without one.
const (
	tagRegister byte = iota
	tagImmediate
	tagIdentifier
	tagMemory
)

func (a *assembler) encodeOperand(op operand) {
	switch op.kind {
	case opRegister:
		a.code = append(a.code, tagRegister, op.regIndex, descriptorByte(op.w, op.k))
	case opImmediate:
		a.code = append(a.code, tagImmediate, descriptorByte(op.w, op.k))
		a.alignCode(op.w.bytes())
		a.code = appendUint(a.code, op.imm, op.w.bytes())
	case opIdentifier:
		a.code = append(a.code, tagIdentifier, descriptorByte(op.w, op.k))
		a.alignCode(op.w.bytes())
		a.emitAddressPatch(op.name, op.rng)
	case opMemory:
		a.code = append(a.code, tagMemory, descriptorByte(op.w, op.k))
		a.code = append(a.code, memHeaderByte(op))
		a.encodeLocation(*op.memLoc)
		if op.hasMemOff {
			a.encodeLocation(*op.memOff)
		}
	}
}

// encodeLocation writes a memory operand's location/offset sub-field: a
// register index byte (no alignment needed, always 1 byte) or an 8-byte
// absolute address (aligned to 8, spec.md's alignment rule applied to the
// widest value this dialect ever writes).
func (a *assembler) encodeLocation(op operand) {
	switch op.kind {
	case opRegister:
		a.code = append(a.code, op.regIndex)
	case opImmediate:
		a.alignCode(8)
		a.code = appendUint(a.code, op.imm, 8)
	case opIdentifier:
		a.alignCode(8)
		a.emitAddressPatch(op.name, op.rng)
	}
}

func (a *assembler) emitAddressPatch(name string, rng logger.Range) {
	offset := uint64(len(a.code))
	a.code = appendUint(a.code, 0, w64.bytes())
	a.patches = append(a.patches, patch{name: name, siteInData: false, offset: offset, rng: rng})
}

// descriptorByte packs width (bits 0-1) and numeric kind (bits 2-3) into one
// byte, the per-operand "type" tag read back by the disassembler.
func descriptorByte(w width, k numKind) byte {
	return byte(w) | byte(k)<<2
}

func decodeDescriptor(b byte) (width, numKind) {
	return width(b & 0x3), numKind((b >> 2) & 0x3)
}

// memHeaderByte mirrors backend/nnasm.h's mem_hdr bitfield: bit 0 marks
// whether the location operand is a register, bits 1-2 the offset's kind
// (0 none, 1 register, 2 negative register, 3 immediate/identifier).
func memHeaderByte(op operand) byte {
	var b byte
	if op.memLoc.kind == opRegister {
		b |= 1
	}
	if op.hasMemOff {
		switch {
		case op.memOff.kind == opRegister && op.memOffNeg:
			b |= 2 << 1
		case op.memOff.kind == opRegister:
			b |= 1 << 1
		default:
			b |= 3 << 1
		}
	}
	return b
}

func (a *assembler) link() []byte {
	codeStart := 128
	dataStart := alignUp(codeStart+len(a.code), 8)
	total := dataStart + len(a.data)

	for _, p := range a.patches {
		id, ok := a.idens[p.name]
		if !ok || !id.defined {
			a.log.AddID(logger.MsgID_Asm_UnknownIdentifier, a.source, p.rng.Loc, "undefined identifier '"+p.name+"'")
			continue
		}
		addr := uint64(codeStart) + id.value
		if id.inData {
			addr = uint64(dataStart) + id.value
		}
		buf := a.code
		if p.siteInData {
			buf = a.data
		}
		binary.LittleEndian.PutUint64(buf[p.offset:p.offset+8], addr)
	}

	hdr := Header{
		Magic:     magic,
		Version:   0,
		CodeStart: uint64(codeStart),
		DataStart: uint64(dataStart),
		Size:      uint64(total),
		Initial:   4 << 20,
	}
	image := hdr.encode()
	image = append(image, a.code...)
	for len(image) < dataStart {
		image = append(image, 0)
	}
	image = append(image, a.data...)
	return image
}
