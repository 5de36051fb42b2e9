// Package lexer implements spec.md §4.1: it classifies the bytes of one
// source file into a doubly-linked token.Token stream. Keyword vs. plain
// identifier is left undecided here — the parser's peek() promotes an
// IDENTIFIER to KEYWORD lazily by consulting the keyword table (spec.md
// §4.1 "Keyword vs identifier").
//
// Structurally this follows the teacher's js_lexer.go: a single forward
// scan over the source bytes, classification by starting byte, explicit
// escape decoding for strings/characters, and errors reported through the
// shared logger instead of panicking.
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/token"
)

type Lexer struct {
	source logger.Source
	log    *logger.Log

	code []byte
	i    int32
	line int32
	col  int32

	tokens []*token.Token
}

// Tokenize lexes an entire source file and returns the head of the resulting
// doubly-linked token stream (WHITESPACE/NEWLINE/COMMENT tokens included;
// the parser skips them).
func Tokenize(source logger.Source, log *logger.Log) *token.Token {
	lx := &Lexer{
		source: source,
		log:    log,
		code:   []byte(source.Contents),
		line:   1,
	}
	lx.run()
	lx.tokens = append(lx.tokens, &token.Token{
		Kind: token.END_OF_FILE,
		Pos:  lx.pos(),
		Range: logger.Range{Loc: logger.Loc{Start: lx.i}},
	})
	return token.NewList(lx.tokens)
}

const singleCharPunct = "()[]{},;"
const operatorRunChars = "+-*/%<>=!&|^~?.:"

func (lx *Lexer) pos() token.Position {
	return token.Position{Line: lx.line, Column: lx.col, Offset: lx.i}
}

func (lx *Lexer) eof() bool { return int(lx.i) >= len(lx.code) }

func (lx *Lexer) peekByte() byte {
	if lx.eof() {
		return 0
	}
	return lx.code[lx.i]
}

func (lx *Lexer) peekByteAt(off int32) byte {
	if int(lx.i+off) >= len(lx.code) {
		return 0
	}
	return lx.code[lx.i+off]
}

func (lx *Lexer) advance() byte {
	c := lx.code[lx.i]
	lx.i++
	if c == '\n' {
		lx.line++
		lx.col = 0
	} else {
		lx.col++
	}
	return c
}

func (lx *Lexer) emit(kind token.Kind, start int32, startPos token.Position, content string, value token.Value) {
	lx.tokens = append(lx.tokens, &token.Token{
		Kind:    kind,
		Content: content,
		Value:   value,
		Pos:     startPos,
		Range:   logger.Range{Loc: logger.Loc{Start: start}, Len: lx.i - start},
	})
}

func (lx *Lexer) run() {
	for !lx.eof() {
		start := lx.i
		startPos := lx.pos()
		c := lx.peekByte()

		switch {
		case c == ' ' || c == '\t' || c == '\v' || c == '\f':
			for !lx.eof() {
				c2 := lx.peekByte()
				if c2 != ' ' && c2 != '\t' && c2 != '\v' && c2 != '\f' {
					break
				}
				lx.advance()
			}
			lx.emit(token.WHITESPACE, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case c == '\n' || c == '\r':
			lx.advance()
			if c == '\r' && lx.peekByte() == '\n' {
				lx.advance()
			}
			lx.emit(token.NEWLINE, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case c == '#':
			for !lx.eof() && lx.peekByte() != '\n' {
				lx.advance()
			}
			lx.emit(token.COMPILER_NOTE, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case c == '/' && lx.peekByteAt(1) == '/':
			lx.advance()
			lx.advance()
			for !lx.eof() && lx.peekByte() != '\n' {
				lx.advance()
			}
			lx.emit(token.COMMENT, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case c == '/' && lx.peekByteAt(1) == '*':
			lx.lexBlockComment(start, startPos)

		case c == '"':
			lx.lexString(start, startPos, "")

		case c == '\'' && isQuotedLiteralOpen(lx.peekByteAt(1)):
			lx.advance()
			lx.advance()
			lx.emit(token.SYMBOL, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case c == '\'':
			lx.lexCharacter(start, startPos)

		case isDigit(c) || (c == '.' && isDigit(lx.peekByteAt(1))):
			lx.lexNumber(start, startPos)

		case isStringPrefixStart(lx.code[lx.i:]):
			prefix := stringPrefix(lx.code[lx.i:])
			for range prefix {
				lx.advance()
			}
			if lx.peekByte() == '"' {
				lx.lexString(start, startPos, prefix)
			} else {
				lx.lexIdentifierFrom(start, startPos)
			}

		case strings.IndexByte(singleCharPunct, c) >= 0:
			lx.advance()
			lx.emit(token.SYMBOL, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case strings.IndexByte(operatorRunChars, c) >= 0:
			for !lx.eof() && strings.IndexByte(operatorRunChars, lx.peekByte()) >= 0 {
				lx.advance()
			}
			lx.emit(token.SYMBOL, start, startPos, string(lx.code[start:lx.i]), token.Value{})

		case isIdentifierStart(lx.code[lx.i:]):
			lx.lexIdentifierFrom(start, startPos)

		default:
			r, size := utf8.DecodeRune(lx.code[lx.i:])
			if r == utf8.RuneError && size <= 1 {
				lx.advance()
				lx.log.AddID(logger.MsgID_Lex_InvalidByteSequence, &lx.source, logger.Loc{Start: start},
					"invalid byte in source file")
				for !lx.eof() && !isWhitespaceByte(lx.peekByte()) {
					lx.advance()
				}
				lx.emit(token.ERROR, start, startPos, string(lx.code[start:lx.i]), token.Value{})
			} else {
				lx.lexIdentifierFrom(start, startPos)
			}
		}
	}
}

func isWhitespaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isQuotedLiteralOpen reports whether c introduces one of the three quoted
// literal forms (spec.md §4.2: array '[…], struct '{…}, tuple '(…)) rather
// than a character literal; a bare "'" otherwise always starts a character.
func isQuotedLiteralOpen(c byte) bool {
	return c == '[' || c == '{' || c == '('
}

func isReservedByte(c byte) bool {
	return isWhitespaceByte(c) || c == '"' || c == '\'' || c == '#' ||
		strings.IndexByte(singleCharPunct, c) >= 0 || strings.IndexByte(operatorRunChars, c) >= 0
}

func isIdentifierStart(rest []byte) bool {
	if len(rest) == 0 {
		return false
	}
	c := rest[0]
	if c < 0x80 {
		return !isReservedByte(c) && !isDigit(c)
	}
	return true // multibyte UTF-8 passes through as an identifier character
}

func (lx *Lexer) lexIdentifierFrom(start int32, startPos token.Position) {
	for !lx.eof() {
		rest := lx.code[lx.i:]
		c := rest[0]
		if c < 0x80 {
			if isReservedByte(c) {
				break
			}
			lx.advance()
			continue
		}
		r, size := utf8.DecodeRune(rest)
		if r == utf8.RuneError && size <= 1 {
			break
		}
		for n := int32(0); n < int32(size); n++ {
			lx.advance()
		}
	}
	lx.emit(token.IDENTIFIER, start, startPos, string(lx.code[start:lx.i]), token.Value{})
}

var stringPrefixes = []string{"u8", "u16", "u32", "c"}

func isStringPrefixStart(rest []byte) bool {
	return stringPrefix(rest) != ""
}

func stringPrefix(rest []byte) string {
	for _, p := range stringPrefixes {
		if len(rest) > len(p) && string(rest[:len(p)]) == p && rest[len(p)] == '"' {
			return p
		}
	}
	return ""
}

func (lx *Lexer) lexBlockComment(start int32, startPos token.Position) {
	lx.advance() // '/'
	lx.advance() // '*'
	depth := 1
	for !lx.eof() && depth > 0 {
		if lx.peekByte() == '/' && lx.peekByteAt(1) == '*' {
			lx.advance()
			lx.advance()
			depth++
			continue
		}
		if lx.peekByte() == '*' && lx.peekByteAt(1) == '/' {
			lx.advance()
			lx.advance()
			depth--
			continue
		}
		lx.advance()
	}
	if depth > 0 {
		lx.log.AddID(logger.MsgID_Lex_UnterminatedComment, &lx.source, logger.Loc{Start: start}, "unterminated block comment")
	}
	lx.emit(token.COMMENT, start, startPos, string(lx.code[start:lx.i]), token.Value{})
}

func (lx *Lexer) lexString(start int32, startPos token.Position, prefix string) {
	lx.advance() // opening quote
	var out []byte
	terminated := false
	for !lx.eof() {
		c := lx.peekByte()
		if c == '"' {
			lx.advance()
			terminated = true
			break
		}
		if c == '\n' {
			break
		}
		if c == '\\' {
			lx.advance()
			b, ok := lx.decodeEscape()
			if ok {
				out = append(out, b...)
			}
			continue
		}
		out = append(out, c)
		lx.advance()
	}
	if !terminated {
		lx.log.AddID(logger.MsgID_Lex_UnterminatedString, &lx.source, logger.Loc{Start: start}, "unterminated string literal")
	}
	_ = prefix
	lx.emit(token.STRING, start, startPos, string(lx.code[start:lx.i]), token.Value{Bytes: out})
}

func (lx *Lexer) lexCharacter(start int32, startPos token.Position) {
	lx.advance() // opening quote
	var value int64
	terminated := false
	if !lx.eof() && lx.peekByte() == '\\' {
		lx.advance()
		b, _ := lx.decodeEscape()
		if len(b) > 0 {
			value = int64(b[0])
		}
	} else if !lx.eof() && lx.peekByte() != '\'' {
		r, size := utf8.DecodeRune(lx.code[lx.i:])
		value = int64(r)
		for n := int32(0); n < int32(size); n++ {
			lx.advance()
		}
	}
	if !lx.eof() && lx.peekByte() == '\'' {
		lx.advance()
		terminated = true
	}
	if !terminated {
		lx.log.AddID(logger.MsgID_Lex_UnterminatedString, &lx.source, logger.Loc{Start: start}, "unterminated character literal")
	}
	lx.emit(token.CHARACTER, start, startPos, string(lx.code[start:lx.i]), token.Value{Int: value})
}

// decodeEscape consumes the character(s) after a backslash and returns the
// decoded bytes. Supported escapes per spec.md §4.1: \n \t \r \\ \0 \u{hex}
// \xHH, plus a passthrough default for an unrecognized escape character.
func (lx *Lexer) decodeEscape() ([]byte, bool) {
	if lx.eof() {
		return nil, false
	}
	c := lx.advance()
	switch c {
	case 'n':
		return []byte{'\n'}, true
	case 't':
		return []byte{'\t'}, true
	case 'r':
		return []byte{'\r'}, true
	case '\\':
		return []byte{'\\'}, true
	case '0':
		return []byte{0}, true
	case '"':
		return []byte{'"'}, true
	case '\'':
		return []byte{'\''}, true
	case 'x':
		if len(lx.code)-int(lx.i) >= 2 {
			hi, ok1 := hexDigit(lx.peekByte())
			lx.advance()
			lo, ok2 := hexDigit(lx.peekByte())
			lx.advance()
			if ok1 && ok2 {
				return []byte{byte(hi<<4 | lo)}, true
			}
		}
		return nil, false
	case 'u':
		if lx.peekByte() == '{' {
			lx.advance()
			var v rune
			for !lx.eof() && lx.peekByte() != '}' {
				d, ok := hexDigit(lx.peekByte())
				lx.advance()
				if ok {
					v = v*16 + rune(d)
				}
			}
			if lx.peekByte() == '}' {
				lx.advance()
			}
			buf := make([]byte, utf8.UTFMax)
			n := utf8.EncodeRune(buf, v)
			return buf[:n], true
		}
		return nil, false
	default:
		return []byte{c}, true
	}
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// lexNumber consumes spec.md §4.1's number grammar:
//
//	0[bBoOxX]?[digits'_]*(.[digits])?([eE][+-]?[digits])?[fFdD]?
func (lx *Lexer) lexNumber(start int32, startPos token.Position) {
	isFloat := false
	isHex := false

	if lx.peekByte() == '0' && strings.IndexByte("bBoOxX", lx.peekByteAt(1)) >= 0 {
		isHex = lx.peekByteAt(1) == 'x' || lx.peekByteAt(1) == 'X'
		lx.advance()
		lx.advance()
	}
	for !lx.eof() && (isDigit(lx.peekByte()) || (isHex && isHexNumberByte(lx.peekByte())) || lx.peekByte() == '\'' || lx.peekByte() == '_') {
		lx.advance()
	}
	if lx.peekByte() == '.' && isDigit(lx.peekByteAt(1)) {
		isFloat = true
		lx.advance()
		for !lx.eof() && (isDigit(lx.peekByte()) || lx.peekByte() == '_') {
			lx.advance()
		}
	}
	if lx.peekByte() == 'e' || lx.peekByte() == 'E' {
		isFloat = true
		lx.advance()
		if lx.peekByte() == '+' || lx.peekByte() == '-' {
			lx.advance()
		}
		for !lx.eof() && isDigit(lx.peekByte()) {
			lx.advance()
		}
	}
	if strings.IndexByte("fFdD", lx.peekByte()) >= 0 {
		isFloat = true
		lx.advance()
	}

	text := string(lx.code[start:lx.i])
	kind := token.INTEGER
	var val token.Value
	if isFloat {
		kind = token.FLOATING
		val.Float = parseFloatLenient(text)
	} else {
		val.Int = parseIntLenient(text)
	}
	lx.emit(kind, start, startPos, text, val)
}

func isHexNumberByte(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseIntLenient and parseFloatLenient are deliberately forgiving: a
// malformed literal still produces a token (so the parser can proceed), with
// the exact diagnostic left to semantic analysis once the literal's
// context-dependent target type is known.
func parseIntLenient(text string) int64 {
	clean := stripDigitSeparators(text)
	base := 10
	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		base, clean = 16, clean[2:]
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		base, clean = 2, clean[2:]
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		base, clean = 8, clean[2:]
	}
	var v int64
	for _, c := range clean {
		d, ok := hexDigit(byte(c))
		if !ok || d >= base {
			break
		}
		v = v*int64(base) + int64(d)
	}
	return v
}

func parseFloatLenient(text string) float64 {
	clean := stripDigitSeparators(text)
	clean = strings.TrimRight(clean, "fFdD")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

func stripDigitSeparators(text string) string {
	if !strings.ContainsAny(text, "'_") {
		return text
	}
	var b strings.Builder
	for _, c := range text {
		if c == '\'' || c == '_' {
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
