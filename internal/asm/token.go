package asm

import "github.com/nn-lang/nnc/internal/logger"

// kind enumerates the lexical tokens of the NNASM dialect (spec.md §4.5).
// This is a second, independent tokenizer from internal/lexer's NN source
// lexer: the two dialects share nothing beyond the byte-scan/emit shape.
type kind uint8

const (
	tEOF kind = iota
	tNewline
	tWord      // bare identifier: mnemonic, pseudo-op, or an identifier operand
	tRegister  // $r0, $f3_32s, $pc, $sf, $sp
	tImmediate // numeric literal, int or float
	tString    // "..." (DBS contents)
	tValueRef  // <name
	tSizeRef   // ~name
	tLBracket  // [
	tRBracket  // ]
	tPlus
	tMinus
)

type token struct {
	kind  kind
	text  string // word/register/value-ref/size-ref name, or string contents
	imm   uint64 // integer literal bits, or math.Float32/64bits(value) for floats
	float bool
	rng   logger.Range
}
