// Package parser implements NN's recursive-descent file parser (spec.md
// §4.2): it turns a token.Token stream into an AST rooted in a TagBlock
// node, reparenting binary and unary expression trees for operator
// precedence as each node is built. The grammar cascade and the
// reorder_binary/reorder_unary/find_leftmost algorithm are translated
// directly from the reference compiler's frontend/compilers/file_parser.cpp
// (see reorder.go), since spec.md's English paraphrase of that algorithm is
// ambiguous about the direction of the precedence comparison; the original
// source is the ground truth that testable property 3 (precedence
// correctness) was derived from.
package parser

import (
	"math"

	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/token"
)

// Parser holds the mutable cursor over one file's token stream plus the
// diagnostic sink it reports into. One Parser instance parses exactly one
// file; internal/module owns the pool of Parsers running concurrently
// across files.
type Parser struct {
	source *logger.Source
	log    logger.Log

	cur *token.Token // current token, nil at end of stream
	eof *token.Token // synthetic END_OF_FILE sentinel, kept for error locations

	scope *symtab.Scope
}

// New creates a parser positioned at the head of tokens.
func New(source *logger.Source, log logger.Log, tokens *token.Token, root *symtab.Scope) *Parser {
	p := &Parser{source: source, log: log, cur: tokens, scope: root}
	p.skipTrivia()
	for t := tokens; t != nil; t = t.Next {
		if t.Kind == token.END_OF_FILE {
			p.eof = t
		}
	}
	return p
}

// ParseFile is the package entry point: parse the whole token stream as a
// sequence of top-level declarations and return the file's root block.
func ParseFile(source *logger.Source, log logger.Log, tokens *token.Token, root *symtab.Scope) *ast.Node {
	p := New(source, log, tokens, root)
	tok := p.cur
	var stmts []*ast.Node
	for !p.atEOF() {
		stmts = append(stmts, p.topLevelDecl())
	}
	return ast.New(ast.TagBlock, tok, &ast.BlockData{List: stmts})
}

// --- token cursor -----------------------------------------------------

func (p *Parser) atEOF() bool {
	return p.cur == nil || p.cur.Kind == token.END_OF_FILE
}

// skipTrivia advances past WHITESPACE/NEWLINE/COMMENT tokens, which the
// lexer emits but the parser never looks at directly (spec.md §4.1).
func (p *Parser) skipTrivia() {
	for p.cur != nil {
		switch p.cur.Kind {
		case token.WHITESPACE, token.NEWLINE, token.COMMENT:
			p.cur = p.cur.Next
			continue
		}
		break
	}
}

// next consumes and returns the current token, advancing past trivia.
func (p *Parser) next() *token.Token {
	t := p.cur
	if t != nil {
		p.cur = t.Next
	}
	p.skipTrivia()
	return t
}

func (p *Parser) errLoc() logger.Loc {
	if p.cur != nil {
		return p.cur.Range.Loc
	}
	if p.eof != nil {
		return p.eof.Range.Loc
	}
	return logger.Loc{}
}

// is reports whether the current token has the given kind.
func (p *Parser) is(k token.Kind) bool {
	return p.cur != nil && p.cur.Kind == k
}

// isContent reports whether the current token is an IDENTIFIER or SYMBOL
// whose spelling equals s. This is how keyword promotion and symbol
// recognition are both implemented: everything stays IDENTIFIER/SYMBOL in
// the lexer, and the parser tests spelling at the point of use (spec.md
// §4.1 "keyword vs identifier is decided lazily by the parser").
func (p *Parser) isContent(s string) bool {
	if p.cur == nil {
		return false
	}
	switch p.cur.Kind {
	case token.IDENTIFIER, token.KEYWORD, token.SYMBOL:
		return p.cur.Content == s
	}
	return false
}

func (p *Parser) isKeyword(s string) bool {
	return keywords[s] && p.isContent(s)
}

// peekSymbol implements symbol longest-match (spec.md §4.2): it walks
// prefixes of the current SYMBOL run, preferring the expected spelling as
// soon as it is found as a prefix even if a longer symbol also matches
// (disambiguating e.g. ">>" closing nested generics into two ">" tokens).
// On a match shorter than the raw run it splits the token in place and
// returns true without consuming; the caller then calls next() as usual.
func (p *Parser) peekSymbol(expected string) bool {
	if p.cur == nil || p.cur.Kind != token.SYMBOL {
		return false
	}
	content := p.cur.Content
	if content == expected {
		return true
	}
	if len(expected) < len(content) && content[:len(expected)] == expected {
		p.cur.Split(len(expected))
		return true
	}
	return false
}

// requireSymbol consumes expected if present (via peekSymbol), otherwise
// reports a diagnostic and returns false without consuming anything; the
// caller proceeds with error recovery rather than aborting (spec.md §4.2
// "error recovery").
func (p *Parser) requireSymbol(expected string) bool {
	if p.peekSymbol(expected) {
		return true
	}
	p.log.AddID(logger.MsgID_Parse_MissingRequired, p.source, p.errLoc(),
		"expected \""+expected+"\"")
	return false
}

func (p *Parser) requireContent(expected string) bool {
	if p.isContent(expected) {
		return true
	}
	p.log.AddID(logger.MsgID_Parse_MissingRequired, p.source, p.errLoc(),
		"expected \""+expected+"\"")
	return false
}

// errorNode manufactures a synthetic TagNone placeholder so that parsing
// can continue after a syntax error (spec.md §4.2 "error recovery").
func (p *Parser) errorNode(tok *token.Token, msg string) *ast.Node {
	p.log.AddID(logger.MsgID_Parse_UnexpectedToken, p.source, p.errLoc(), msg)
	return ast.New(ast.TagNone, tok, &ast.ZeroData{})
}

func (p *Parser) identifierName() (string, *token.Token) {
	if p.cur == nil || (p.cur.Kind != token.IDENTIFIER && p.cur.Kind != token.KEYWORD) {
		tok := p.cur
		p.errorNode(tok, "expected an identifier")
		return "", tok
	}
	tok := p.next()
	return tok.Content, tok
}

// --- top-level declarations --------------------------------------------

func (p *Parser) topLevelDecl() *ast.Node {
	switch {
	case p.isKeyword("import"):
		return p.importDecl()
	case p.isKeyword("using"):
		return p.usingDecl()
	case p.isKeyword("namespace"):
		return p.namespaceDecl()
	case p.isKeyword("struct"), p.isKeyword("union"), p.isKeyword("enum"), p.isKeyword("tuple"):
		return p.typeDef()
	case p.isKeyword("def"), p.isKeyword("fn"):
		return p.funcDef()
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("ref"):
		return p.varDeclStmt()
	default:
		return p.statement()
	}
}

func (p *Parser) importDecl() *ast.Node {
	tok := p.next() // import
	var path string
	if p.is(token.STRING) {
		strTok := p.next()
		path = strTok.Content
	} else {
		name, _ := p.identifierName()
		path = name
		for p.peekSymbol(".") {
			p.next()
			more, _ := p.identifierName()
			path += "." + more
		}
	}
	if path == currentModulePathHint(p.source) {
		p.log.AddID(logger.MsgID_Parse_SelfImport, p.source, tok.Range.Loc, "module cannot import itself")
	}
	p.endStatement()
	return ast.NewImport(tok, path)
}

// currentModulePathHint is a best-effort self-import check: the module
// system (internal/module) does the authoritative path resolution, this is
// just the early textual diagnostic spec.md §4.2 calls out.
func currentModulePathHint(source *logger.Source) string {
	if source == nil {
		return ""
	}
	return source.PrettyPath
}

func (p *Parser) usingDecl() *ast.Node {
	tok := p.next() // using
	name, _ := p.identifierName()
	path := name
	for p.peekSymbol(".") {
		p.next()
		more, _ := p.identifierName()
		path += "." + more
	}
	p.endStatement()
	return ast.NewUsing(tok, path)
}

func (p *Parser) namespaceDecl() *ast.Node {
	tok := p.next() // namespace
	name, _ := p.identifierName()
	inner := symtab.NewScope(symtab.Namespace, p.scope)
	body := p.block(inner)
	return ast.NewNamespace(tok, name, body)
}

// --- type definitions ---------------------------------------------------

func (p *Parser) typeDef() *ast.Node {
	tok := p.next() // struct/union/enum/tuple
	var kind ast.TypeDefKind
	switch tok.Content {
	case "struct":
		kind = ast.TypeDefStruct
	case "union":
		kind = ast.TypeDefUnion
	case "enum":
		kind = ast.TypeDefEnum
	case "tuple":
		kind = ast.TypeDefTuple
	}
	name, _ := p.identifierName()

	inner := symtab.NewScope(ownerForTypeDef(kind), p.scope)
	outer := p.scope
	p.scope = inner

	var fields []*ast.Node
	if p.requireSymbol("{") {
		p.next()
		for !p.atEOF() && !p.isContent("}") {
			fields = append(fields, p.typeFieldDecl(kind))
			if p.peekSymbol(",") {
				p.next()
				continue
			}
			break
		}
		p.requireSymbol("}")
		if p.isContent("}") {
			p.next()
		}
	}

	p.scope = outer
	fieldsBlock := ast.New(ast.TagBlock, tok, &ast.BlockData{List: fields})
	return ast.NewTypeDef(tok, &ast.TypeDefData{Kind: kind, Name: name, Fields: fieldsBlock})
}

func ownerForTypeDef(kind ast.TypeDefKind) symtab.OwnerKind {
	switch kind {
	case ast.TypeDefUnion:
		return symtab.Union
	case ast.TypeDefEnum:
		return symtab.Enum
	default:
		return symtab.Struct
	}
}

// typeFieldDecl parses one struct/union/tuple field or enum enumerator.
func (p *Parser) typeFieldDecl(kind ast.TypeDefKind) *ast.Node {
	if kind == ast.TypeDefEnum {
		name, tok := p.identifierName()
		var init *ast.Node
		if p.peekSymbol("=") {
			p.next()
			init = p.expression()
		}
		p.scope.Declare(&symtab.Entry{Name: name, Kind: symtab.KindField, DeclaringAST: tok})
		return ast.NewVarDecl(tok, &ast.VarDeclData{Kind: ast.VarVar, Name: ast.New(ast.TagIdentifier, tok, &ast.IdentifierData{}), Init: init})
	}
	name, tok := p.identifierName()
	p.requireSymbol(":")
	if p.isContent(":") {
		p.next()
	}
	typeNode := p.typeExpr()
	p.scope.Declare(&symtab.Entry{Name: name, Kind: symtab.KindField, DeclaringAST: tok})
	return ast.NewVarDecl(tok, &ast.VarDeclData{Kind: ast.VarVar, Name: ast.New(ast.TagIdentifier, tok, &ast.IdentifierData{}), DeclType: typeNode})
}

// typeExpr parses a type reference: a dotted identifier chain with
// optional trailing pointer ('*') and array ('[]') suffixes, each suffix
// wrapping the result in a unary "*" or "[]" node. It produces a TagType
// node whose Token is the name's first identifier; sema resolves that
// spelling against internal/types.Table and leaves TypeData.Type unset.
// Later segments of a dotted name are consumed but not recorded.
func (p *Parser) typeExpr() *ast.Node {
	name, tok := p.identifierName()
	for p.peekSymbol(".") {
		p.next()
		more, _ := p.identifierName()
		name += "." + more
	}
	node := ast.New(ast.TagType, tok, &ast.TypeData{})
	for {
		switch {
		case p.peekSymbol("*"):
			p.next()
			node = ast.New(ast.TagUnary, tok, &ast.UnaryData{Sym: "*", Child: node})
		case p.peekSymbol("["):
			p.next()
			p.requireSymbol("]")
			if p.isContent("]") {
				p.next()
			}
			node = ast.New(ast.TagUnary, tok, &ast.UnaryData{Sym: "[]", Child: node})
		default:
			return node
		}
	}
}

// --- function definitions ------------------------------------------------

func (p *Parser) funcDef() *ast.Node {
	tok := p.next() // def/fn
	name, _ := p.identifierName()

	outer := p.scope
	inner := symtab.NewScope(symtab.Function, outer)
	p.scope = inner

	var params []*ast.FuncParam
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}
	for !p.atEOF() && !p.isContent(")") {
		pname, ptok := p.identifierName()
		p.requireSymbol(":")
		if p.isContent(":") {
			p.next()
		}
		ptype := p.typeExpr()
		params = append(params, &ast.FuncParam{Name: pname, Type: ptype})
		p.scope.Declare(&symtab.Entry{Name: pname, Kind: symtab.KindVariable, DeclaringAST: ptok})
		if p.peekSymbol(",") {
			p.next()
			continue
		}
		break
	}
	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}

	var returns []*ast.Node
	if p.peekSymbol(":") {
		p.next()
		if p.isContent("infer") {
			itok := p.next()
			returns = append(returns, ast.New(ast.TagIdentifier, itok, &ast.IdentifierData{}))
		} else {
			returns = append(returns, p.typeExpr())
			for p.peekSymbol(",") {
				p.next()
				returns = append(returns, p.typeExpr())
			}
		}
	}

	var body *ast.Node
	if p.isContent(";") {
		p.next() // forward declaration
	} else {
		bodyScope := symtab.NewScope(symtab.Block, inner)
		body = p.block(bodyScope)
	}

	p.scope = outer
	p.scope.Declare(&symtab.Entry{Name: name, Kind: symtab.KindFunction, InnerScope: inner, DeclaringAST: tok})

	return ast.NewFuncDef(tok, &ast.FuncDefData{Name: name, Params: params, Returns: returns, Body: body})
}

// --- statements -----------------------------------------------------------

// block parses a "{ stmt* }" sequence under the given scope.
func (p *Parser) block(scope *symtab.Scope) *ast.Node {
	tok := p.cur
	outer := p.scope
	p.scope = scope

	p.requireSymbol("{")
	if p.isContent("{") {
		p.next()
	}
	var stmts []*ast.Node
	for !p.atEOF() && !p.isContent("}") {
		stmts = append(stmts, p.statement())
	}
	p.requireSymbol("}")
	if p.isContent("}") {
		p.next()
	}

	p.scope = outer
	return ast.New(ast.TagBlock, tok, &ast.BlockData{List: stmts})
}

func (p *Parser) endStatement() {
	if p.isContent(";") {
		p.next()
	}
}

func (p *Parser) statement() *ast.Node {
	switch {
	case p.isContent("{"):
		return p.block(symtab.NewScope(symtab.Block, p.scope))
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("ref"):
		return p.varDeclStmt()
	case p.isKeyword("if"):
		return p.ifStmt()
	case p.isKeyword("for"):
		return p.forStmt()
	case p.isKeyword("while"), p.isKeyword("loop"):
		return p.whileLoopStmt()
	case p.isKeyword("switch"):
		return p.switchStmt()
	case p.isKeyword("try"):
		return p.tryStmt()
	case p.isKeyword("return"):
		return p.returnStmt()
	case p.isKeyword("raise"):
		return p.raiseStmt()
	case p.isKeyword("goto"):
		return p.gotoLabelStmt("goto")
	case p.isKeyword("label"):
		return p.gotoLabelStmt("label")
	case p.isKeyword("break"):
		tok := p.next()
		p.endStatement()
		return ast.NewJump(tok, nil)
	case p.isKeyword("continue"):
		tok := p.next()
		p.endStatement()
		return ast.NewJump(tok, nil)
	case p.isKeyword("defer"):
		tok := p.next()
		e := p.expression()
		p.endStatement()
		return ast.NewDefer(tok, e)
	case p.isKeyword("delete"):
		tok := p.next()
		e := p.expression()
		p.endStatement()
		return ast.NewDelete(tok, e)
	case p.isKeyword("struct"), p.isKeyword("union"), p.isKeyword("enum"), p.isKeyword("tuple"):
		return p.typeDef()
	case p.isKeyword("def"), p.isKeyword("fn"):
		return p.funcDef()
	case p.isContent(";"):
		tok := p.next()
		return ast.New(ast.TagNone, tok, &ast.ZeroData{})
	default:
		e := p.expression()
		p.endStatement()
		return e
	}
}

func (p *Parser) varDeclStmt() *ast.Node {
	tok := p.next() // var/let/ref
	kind := ast.VarVar
	switch tok.Content {
	case "let":
		kind = ast.VarLet
	case "ref":
		kind = ast.VarRef
	}
	name, ntok := p.identifierName()
	var declType *ast.Node
	if p.peekSymbol(":") {
		p.next()
		declType = p.typeExpr()
	}
	var init *ast.Node
	if p.peekSymbol("=") {
		p.next()
		init = p.expression()
	}
	p.endStatement()
	p.scope.Declare(&symtab.Entry{Name: name, Kind: symtab.KindVariable, DeclaringAST: ntok})
	nameNode := ast.New(ast.TagIdentifier, ntok, &ast.IdentifierData{})
	return ast.NewVarDecl(tok, &ast.VarDeclData{Kind: kind, Name: nameNode, DeclType: declType, Init: init})
}

func (p *Parser) ifStmt() *ast.Node {
	tok := p.next() // if
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}
	cond := p.expression()
	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}
	then := p.statement()
	var els *ast.Node
	if p.isKeyword("else") {
		p.next()
		els = p.statement()
	}
	return ast.NewIf(tok, cond, then, els)
}

func (p *Parser) whileLoopStmt() *ast.Node {
	tok := p.next() // while/loop
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}
	cond := p.expression()
	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}
	body := p.statement()
	return ast.NewWhileLoop(tok, cond, body)
}

// forStmt disambiguates the three for-loop shapes spec.md §4.4 lowers
// differently. A header led by var/let/ref, or one whose bare leading
// identifier is followed by neither "in" nor "=", is the classic
// init;cond;step form; "ident in expr" is for-each; "ident = expr, expr[,
// expr]" is for-lua.
func (p *Parser) forStmt() *ast.Node {
	tok := p.next() // for
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}

	loopScope := symtab.NewScope(symtab.Loop, p.scope)
	outer := p.scope
	p.scope = loopScope

	var fd *ast.ForData
	switch {
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("ref"):
		init := p.varDeclStmt() // consumes its own trailing ";"
		fd = p.forClassicTail(init)
	case p.isContent(";"):
		p.next()
		fd = p.forClassicTail(nil)
	default:
		varName, varTok := p.identifierName()
		nameNode := ast.New(ast.TagIdentifier, varTok, &ast.IdentifierData{})
		switch {
		case p.isKeyword("in"):
			p.next()
			seq := p.expression()
			p.scope.Declare(&symtab.Entry{Name: varName, Kind: symtab.KindVariable, DeclaringAST: varTok})
			fd = &ast.ForData{Kind: ast.ForEach, Var: nameNode, Seq: seq}
		case p.peekSymbol("="):
			p.next()
			first := p.expression()
			if p.peekSymbol(",") {
				// for-lua: ident = start, stop[, step]
				p.next()
				stop := p.expression()
				var step *ast.Node
				if p.peekSymbol(",") {
					p.next()
					step = p.expression()
				}
				p.scope.Declare(&symtab.Entry{Name: varName, Kind: symtab.KindVariable, DeclaringAST: varTok})
				fd = &ast.ForData{Kind: ast.ForLua, Var: nameNode, Start: first, Stop: stop, LuaStep: step}
			} else {
				// classic with a plain "ident = expr" init clause
				init := ast.New(ast.TagBinary, varTok, &ast.BinaryData{Sym: "=", Left: nameNode, Right: first})
				init.Precedence = ast.NotReorderable
				p.requireSymbol(";")
				if p.isContent(";") {
					p.next()
				}
				fd = p.forClassicTail(init)
			}
		default:
			p.requireSymbol(";")
			if p.isContent(";") {
				p.next()
			}
			fd = p.forClassicTail(nameNode)
		}
	}

	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}
	fd.Body = p.statement()
	p.scope = outer
	return ast.NewFor(tok, fd)
}

// forClassicTail parses the ";cond; step" remainder of a classic for
// header given an already-parsed (and ";"-terminated) init clause.
func (p *Parser) forClassicTail(init *ast.Node) *ast.ForData {
	var cond *ast.Node
	if !p.isContent(";") {
		cond = p.expression()
	}
	p.requireSymbol(";")
	if p.isContent(";") {
		p.next()
	}
	var step *ast.Node
	if !p.isContent(")") {
		step = p.expression()
	}
	return &ast.ForData{Kind: ast.ForClassic, Init: init, Cond: cond, Step: step}
}

func (p *Parser) switchStmt() *ast.Node {
	tok := p.next() // switch
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}
	subject := p.expression()
	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}
	p.requireSymbol("{")
	if p.isContent("{") {
		p.next()
	}

	var cases []*ast.SwitchCase
	for !p.atEOF() && !p.isContent("}") {
		var match *ast.Node
		if p.isKeyword("case") {
			p.next()
			match = p.expression()
		} else {
			p.requireContent("else")
			if p.isContent("else") {
				p.next()
			}
		}
		p.requireSymbol(":")
		if p.isContent(":") {
			p.next()
		}
		var body []*ast.Node
		fallsThrough := false
		for !p.atEOF() && !p.isKeyword("case") && !p.isContent("else") && !p.isContent("}") {
			if p.isKeyword("continue") {
				p.next()
				p.endStatement()
				fallsThrough = true
				continue
			}
			body = append(body, p.statement())
		}
		bodyTok := tok
		if len(body) > 0 {
			bodyTok = body[0].Token
		}
		cases = append(cases, &ast.SwitchCase{
			Match:       match,
			Body:        ast.New(ast.TagBlock, bodyTok, &ast.BlockData{List: body}),
			Fallthrough: fallsThrough,
		})
	}
	p.requireSymbol("}")
	if p.isContent("}") {
		p.next()
	}

	return ast.NewSwitch(tok, &ast.SwitchData{Subject: subject, Cases: cases})
}

func (p *Parser) tryStmt() *ast.Node {
	tok := p.next() // try
	tryScope := symtab.NewScope(symtab.Block, p.scope)
	body := p.block(tryScope)

	p.requireContent("catch")
	if p.isContent("catch") {
		p.next()
	}
	p.requireSymbol("(")
	if p.isContent("(") {
		p.next()
	}
	name, ntok := p.identifierName()
	p.requireSymbol(")")
	if p.isContent(")") {
		p.next()
	}

	catchScope := symtab.NewScope(symtab.Block, p.scope)
	catchScope.Declare(&symtab.Entry{Name: name, Kind: symtab.KindVariable, DeclaringAST: ntok})
	outer := p.scope
	p.scope = catchScope
	catchBody := p.block(symtab.NewScope(symtab.Block, catchScope))
	p.scope = outer

	return ast.NewTry(tok, &ast.TryData{
		Body:      body,
		CatchName: ast.New(ast.TagIdentifier, ntok, &ast.IdentifierData{}),
		CatchBody: catchBody,
	})
}

func (p *Parser) returnStmt() *ast.Node {
	tok := p.next() // return
	var exprs []*ast.Node
	if !p.isContent(";") && !p.isContent("}") {
		exprs = append(exprs, p.expression())
		for p.peekSymbol(",") {
			p.next()
			exprs = append(exprs, p.expression())
		}
	}
	p.endStatement()
	return ast.NewReturn(tok, exprs)
}

func (p *Parser) raiseStmt() *ast.Node {
	tok := p.next() // raise
	var e *ast.Node
	if !p.isContent(";") {
		e = p.expression()
	}
	p.endStatement()
	return ast.NewRaise(tok, e)
}

func (p *Parser) gotoLabelStmt(kind string) *ast.Node {
	tok := p.next()
	name, ntok := p.identifierName()
	p.endStatement()
	target := ast.New(ast.TagIdentifier, ntok, &ast.IdentifierData{})
	_ = name
	return ast.NewJump(tok, target)
}

// --- expression cascade ----------------------------------------------
//
// ternaryExpr -> newExpr -> prefixExpr -> postfixExpr -> infixExpr ->
// dotExpr -> postcircumfixExpr -> literalExpr
//
// This mirrors file_parser.cpp's own cascade name-for-name: infixExpr
// recurses back into expression() for its right-hand side (rather than
// descending only into the next tighter tier), which is why reorder_binary
// is required at all and why same-precedence chains associate right
// instead of left (see reorder.go's doc comment for the worked proof).

// assignOps are handled above the reorder-managed cascade entirely: they
// are right-associative, bind looser than every operator in the
// precedence table, and are never subject to reorder_binary (the IR
// builder in spec.md §4.4 lowers them specially: evaluate-right,
// evaluate-left, then COPY or op-then-COPY for the compound forms).
var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func (p *Parser) expression() *ast.Node {
	lhs := p.ternaryExpr()
	if p.cur != nil && p.cur.Kind == token.SYMBOL && assignOps[p.cur.Content] {
		tok := p.next()
		rhs := p.expression() // right-associative
		node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: tok.Content, Left: lhs, Right: rhs})
		node.Precedence = ast.NotReorderable
		return node
	}
	return lhs
}

func (p *Parser) ternaryExpr() *ast.Node {
	cond := p.newExpr()
	if p.peekSymbol("?") {
		tok := p.next()
		then := p.expression()
		p.requireSymbol(":")
		if p.isContent(":") {
			p.next()
		}
		els := p.expression()
		node := ast.New(ast.TagCompound, tok, &ast.CompoundData{List: []*ast.Node{cond, then, els}})
		node.Precedence = precTernary
		return node
	}
	if p.peekSymbol("??") {
		tok := p.next()
		rhs := p.expression()
		node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: "??", Left: cond, Right: rhs})
		node.Precedence = precTernary
		return reorderBinary(node)
	}
	return cond
}

func (p *Parser) newExpr() *ast.Node {
	if p.isKeyword("new") {
		tok := p.next()
		typeNode := p.typeExpr()
		var args []*ast.Node
		if p.peekSymbol("(") {
			p.next()
			for !p.atEOF() && !p.isContent(")") {
				args = append(args, p.expression())
				if p.peekSymbol(",") {
					p.next()
					continue
				}
				break
			}
			p.requireSymbol(")")
			if p.isContent(")") {
				p.next()
			}
		}
		call := ast.New(ast.TagCompound, tok, &ast.CompoundData{List: append([]*ast.Node{typeNode}, args...)})
		node := ast.New(ast.TagUnary, tok, &ast.UnaryData{Sym: "new", Child: call})
		node.Precedence = ast.NotReorderable
		return node
	}
	return p.prefixExpr()
}

func (p *Parser) prefixExpr() *ast.Node {
	if p.cur != nil && (p.cur.Kind == token.SYMBOL || p.cur.Kind == token.KEYWORD) && prefixOps[p.cur.Content] {
		tok := p.next()
		child := p.expression()
		ret := ast.New(ast.TagUnary, tok, &ast.UnaryData{Sym: tok.Content, Child: child})
		if tok.Content == spreadOp {
			ret.Precedence = precSpread
		} else {
			ret.Precedence = precPrefix
		}
		return reorderUnary(ret)
	}
	return p.postfixExpr()
}

func (p *Parser) postfixExpr() *ast.Node {
	infix := p.infixExpr()
	for p.cur != nil && p.cur.Kind == token.SYMBOL && postOps[p.cur.Content] {
		tok := p.next()
		infix = ast.New(ast.TagUnary, tok, &ast.UnaryData{Sym: tok.Content, Child: infix, Post: true})
		infix.Precedence = precPostUnary
		infix = reorderUnary(infix)
	}
	return infix
}

func (p *Parser) infixExpr() *ast.Node {
	dot := p.dotExpr()
	if p.cur != nil && (p.cur.Kind == token.SYMBOL || p.cur.Kind == token.KEYWORD || p.cur.Kind == token.IDENTIFIER) {
		if prec, ok := infixPrecedence[p.cur.Content]; ok {
			tok := p.next()
			ret := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: tok.Content, Left: dot})
			right := p.expression()
			ret.Data.(*ast.BinaryData).Right = right
			ret.Precedence = prec
			return reorderBinary(ret)
		}
	}
	return dot
}

func (p *Parser) dotExpr() *ast.Node {
	cur := p.postcircumfixExpr()
	for p.peekSymbol(".") {
		tok := p.next()
		if p.peekSymbol("*") {
			// trailing ".*" glob: terminates the chain (spec.md §4.3).
			p.next()
			cur = ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: ".", Left: cur, Right: ast.New(ast.TagIdentifier, tok, &ast.IdentifierData{})})
			cur.Precedence = precDot
			return cur
		}
		name, ntok := p.identifierName()
		rhs := ast.New(ast.TagIdentifier, ntok, &ast.IdentifierData{})
		_ = name
		node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: ".", Left: cur, Right: rhs})
		node.Precedence = precDot // non-reorderable; right-associative via explicit rotation on nesting
		cur = node
	}
	return cur
}

func (p *Parser) postcircumfixExpr() *ast.Node {
	lit := p.literalExpr()
	for {
		switch {
		case p.peekSymbol("("):
			tok := p.next()
			var args []*ast.Node
			for !p.atEOF() && !p.isContent(")") {
				args = append(args, p.expression())
				if p.peekSymbol(",") {
					p.next()
					continue
				}
				break
			}
			p.requireSymbol(")")
			if p.isContent(")") {
				p.next()
			}
			node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: "()", Left: lit, Right: ast.New(ast.TagCompound, tok, &ast.CompoundData{List: args})})
			node.Precedence = precPostcircum
			lit = reorderBinary(node)
		case p.peekSymbol("["):
			tok := p.next()
			idx := p.expression()
			p.requireSymbol("]")
			if p.isContent("]") {
				p.next()
			}
			node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: "[]", Left: lit, Right: idx})
			node.Precedence = precPostcircum
			lit = reorderBinary(node)
		case p.peekSymbol("::"):
			tok := p.next()
			p.requireSymbol("[")
			if p.isContent("[") {
				p.next()
			}
			var targs []*ast.Node
			for !p.atEOF() && !p.isContent("]") {
				targs = append(targs, p.typeExpr())
				if p.peekSymbol(",") {
					p.next()
					continue
				}
				break
			}
			p.requireSymbol("]")
			if p.isContent("]") {
				p.next()
			}
			node := ast.New(ast.TagBinary, tok, &ast.BinaryData{Sym: "::[]", Left: lit, Right: ast.New(ast.TagCompound, tok, &ast.CompoundData{List: targs})})
			node.Precedence = precGenericIndex
			lit = reorderBinary(node)
		default:
			return lit
		}
	}
}

// literalExpr parses the atoms at the bottom of the cascade: numbers,
// strings, characters, identifiers, "this", parenthesized sub-expressions,
// and the three quoted literal forms ('[ array, '{ struct, '( tuple ).
func (p *Parser) literalExpr() *ast.Node {
	if p.cur == nil {
		return p.errorNode(p.eof, "unexpected end of file")
	}

	switch p.cur.Kind {
	case token.INTEGER, token.FLOATING, token.CHARACTER:
		tok := p.next()
		return ast.New(ast.TagValue, tok, &ast.ValueData{Bits: valueBits(tok)})
	case token.STRING:
		tok := p.next()
		return ast.New(ast.TagString, tok, &ast.StringData{Bytes: tok.Value.Bytes})
	case token.IDENTIFIER, token.KEYWORD:
		switch p.cur.Content {
		case "this", "true", "false", "null":
			tok := p.next()
			return ast.New(ast.TagZero, tok, &ast.ZeroData{})
		}
		name, tok := p.identifierName()
		_ = name
		return ast.New(ast.TagIdentifier, tok, &ast.IdentifierData{})
	case token.SYMBOL:
		switch p.cur.Content {
		case "(":
			p.next()
			e := p.expression()
			p.requireSymbol(")")
			if p.isContent(")") {
				p.next()
			}
			return e
		case "'[":
			return p.quotedLiteral("'[", "]")
		case "'{":
			return p.quotedLiteral("'{", "}")
		case "'(":
			return p.quotedLiteral("'(", ")")
		}
	}
	tok := p.next()
	return p.errorNode(tok, "unexpected token")
}

func (p *Parser) quotedLiteral(open, close string) *ast.Node {
	tok := p.next() // the quoted-open symbol
	var elems []*ast.Node
	for !p.atEOF() && !p.isContent(close) {
		elems = append(elems, p.expression())
		if p.peekSymbol(",") {
			p.next()
			continue
		}
		break
	}
	p.requireSymbol(close)
	if p.isContent(close) {
		p.next()
	}
	return ast.New(ast.TagCompound, tok, &ast.CompoundData{List: elems})
}

func valueBits(tok *token.Token) uint64 {
	switch tok.Kind {
	case token.FLOATING:
		return math.Float64bits(tok.Value.Float)
	default:
		return uint64(tok.Value.Int)
	}
}
