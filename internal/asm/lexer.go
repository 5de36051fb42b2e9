package asm

import (
	"github.com/nn-lang/nnc/internal/logger"
)

// lexer turns one .nnasm source into a flat token slice. Unlike
// internal/lexer (which hands tokens to a parser one at a time), the
// assembler's two-pass algorithm re-walks the same line repeatedly, so it is
// simplest to tokenize the whole source up front (spec.md §4.5 "Pass 1:
// tokenize").
type lexer struct {
	source *logger.Source
	log    logger.Log
	code   []byte
	i      int32
}

func tokenize(source *logger.Source, log logger.Log) []token {
	lx := &lexer{source: source, log: log, code: []byte(source.Contents)}
	var toks []token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.kind == tEOF {
			break
		}
	}
	return toks
}

func (lx *lexer) peekByte() byte {
	if int(lx.i) >= len(lx.code) {
		return 0
	}
	return lx.code[lx.i]
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (lx *lexer) scanRun() (string, int32) {
	start := lx.i
	for isIdentByte(lx.peekByte()) {
		lx.i++
	}
	return string(lx.code[start:lx.i]), start
}

func (lx *lexer) next() token {
	for {
		c := lx.peekByte()
		switch {
		case c == 0 && int(lx.i) >= len(lx.code):
			return token{kind: tEOF, rng: logger.Range{Loc: logger.Loc{Start: lx.i}}}
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			lx.i++
			continue
		case c == ';' || (c == '/' && lx.i+1 < int32(len(lx.code)) && lx.code[lx.i+1] == '/'):
			for lx.peekByte() != '\n' && int(lx.i) < len(lx.code) {
				lx.i++
			}
			continue
		case c == '\n':
			start := lx.i
			lx.i++
			return token{kind: tNewline, rng: logger.Range{Loc: logger.Loc{Start: start}, Len: 1}}
		case c == '[':
			start := lx.i
			lx.i++
			return token{kind: tLBracket, rng: logger.Range{Loc: logger.Loc{Start: start}, Len: 1}}
		case c == ']':
			start := lx.i
			lx.i++
			return token{kind: tRBracket, rng: logger.Range{Loc: logger.Loc{Start: start}, Len: 1}}
		case c == '+':
			start := lx.i
			lx.i++
			return token{kind: tPlus, rng: logger.Range{Loc: logger.Loc{Start: start}, Len: 1}}
		case c == '-':
			start := lx.i
			lx.i++
			return token{kind: tMinus, rng: logger.Range{Loc: logger.Loc{Start: start}, Len: 1}}
		case c == '$':
			start := lx.i
			lx.i++
			text, _ := lx.scanRun()
			return token{kind: tRegister, text: text, rng: mkRange(start, lx.i)}
		case c == '<':
			start := lx.i
			lx.i++
			text, _ := lx.scanRun()
			return token{kind: tValueRef, text: text, rng: mkRange(start, lx.i)}
		case c == '~':
			start := lx.i
			lx.i++
			text, _ := lx.scanRun()
			return token{kind: tSizeRef, text: text, rng: mkRange(start, lx.i)}
		case c == '"':
			return lx.scanString()
		case c >= '0' && c <= '9':
			start := lx.i
			text, _ := lx.scanRun()
			return token{kind: tImmediate, text: text, rng: mkRange(start, lx.i)}
		case isIdentByte(c):
			start := lx.i
			text, _ := lx.scanRun()
			return token{kind: tWord, text: text, rng: mkRange(start, lx.i)}
		default:
			start := lx.i
			lx.log.AddID(logger.MsgID_Asm_MalformedOperand, lx.source, logger.Loc{Start: start}, "unexpected byte in assembly source")
			lx.i++
			continue
		}
	}
}

func (lx *lexer) scanString() token {
	start := lx.i
	lx.i++ // opening quote
	var text []byte
	for {
		if int(lx.i) >= len(lx.code) {
			lx.log.AddID(logger.MsgID_Asm_MalformedOperand, lx.source, logger.Loc{Start: start}, "unterminated string literal")
			break
		}
		c := lx.code[lx.i]
		if c == '"' {
			lx.i++
			break
		}
		if c == '\\' && int(lx.i+1) < len(lx.code) {
			text = append(text, unescape(lx.code[lx.i+1]))
			lx.i += 2
			continue
		}
		text = append(text, c)
		lx.i++
	}
	return token{kind: tString, text: string(text), rng: mkRange(start, lx.i)}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return c
	}
}

func mkRange(start, end int32) logger.Range {
	return logger.Range{Loc: logger.Loc{Start: start}, Len: end - start}
}
