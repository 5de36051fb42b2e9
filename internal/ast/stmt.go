// Statement-level AST shapes. NN's AST does not grow a node kind per
// statement form; instead, as in the teacher's js_ast.go "S" variants
// collapsed here into the nine Tag/Data pairs, a statement is one of the
// existing Tag/Data combinations discriminated by its declaring Token's
// spelling (e.g. Token.Content == "if"). These constructors and accessors
// are the single place that convention is encoded, so the parser and the
// sema package never hand-roll the List layout themselves.
package ast

import "github.com/nn-lang/nnc/internal/token"

// NewIf builds an if/else statement: TagCompound, List = [cond, then, else].
// else is nil when there is no else-branch.
func NewIf(tok *token.Token, cond, then, els *Node) *Node {
	list := []*Node{cond, then}
	if els != nil {
		list = append(list, els)
	}
	return New(TagCompound, tok, &CompoundData{List: list})
}

// If reports whether n is an if statement and returns its parts.
func (n *Node) If() (cond, then, els *Node, ok bool) {
	if n == nil || n.Tag != TagCompound || n.Token == nil || n.Token.Content != "if" {
		return nil, nil, nil, false
	}
	cd := n.Data.(*CompoundData)
	cond, then = cd.List[0], cd.List[1]
	if len(cd.List) > 2 {
		els = cd.List[2]
	}
	return cond, then, els, true
}

// ForKind distinguishes the three for-loop shapes spec.md §4.4 lowers
// differently.
type ForKind uint8

const (
	ForClassic ForKind = iota
	ForEach
	ForLua
)

// ForData carries whichever subset of fields its Kind needs.
type ForData struct {
	Kind ForKind

	// ForClassic
	Init, Cond, Step *Node

	// ForEach: Var ranges over Seq
	Var *Node
	Seq *Node

	// ForLua: Var = Start, Stop[, Step]
	Start, Stop, LuaStep *Node

	Body *Node
}

func (*ForData) isASTData() {}

func NewFor(tok *token.Token, data *ForData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) For() (*ForData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	fd, ok := n.Data.(*ForData)
	return fd, ok
}

// NewWhileLoop builds a while (cond checked before body) or loop (cond
// checked after, i.e. a do-while) statement. tok.Content distinguishes them.
func NewWhileLoop(tok *token.Token, cond, body *Node) *Node {
	return New(TagCompound, tok, &CompoundData{List: []*Node{cond, body}})
}

func (n *Node) WhileLoop() (cond, body *Node, ok bool) {
	if n == nil || n.Tag != TagCompound || n.Token == nil {
		return nil, nil, false
	}
	if n.Token.Content != "while" && n.Token.Content != "loop" {
		return nil, nil, false
	}
	cd, ok := n.Data.(*CompoundData)
	if !ok || len(cd.List) != 2 {
		return nil, nil, false
	}
	return cd.List[0], cd.List[1], true
}

// SwitchCase is one arm of a switch statement. Match is nil for the
// else/default arm. Fallthrough marks a "case ... continue" arm, which
// falls into the next arm's body rather than exiting the switch.
type SwitchCase struct {
	Match       *Node
	Body        *Node
	Fallthrough bool
}

type SwitchData struct {
	Subject *Node
	Cases   []*SwitchCase
}

func (*SwitchData) isASTData() {}

func NewSwitch(tok *token.Token, data *SwitchData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) Switch() (*SwitchData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	sd, ok := n.Data.(*SwitchData)
	return sd, ok
}

// TryData is a try/catch: Catch binds the raised error to the CatchName
// identifier node inside CatchBody.
type TryData struct {
	Body       *Node
	CatchName  *Node // identifier node naming the bound error symbol
	CatchBody  *Node
}

func (*TryData) isASTData() {}

func NewTry(tok *token.Token, data *TryData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) Try() (*TryData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	td, ok := n.Data.(*TryData)
	return td, ok
}

// NewReturn/NewRaise build the two block-terminating statements that carry
// an expression list. tok.Content distinguishes "return" from "raise".
func NewReturn(tok *token.Token, exprs []*Node) *Node {
	return New(TagCompound, tok, &CompoundData{List: exprs})
}

func NewRaise(tok *token.Token, expr *Node) *Node {
	list := []*Node{}
	if expr != nil {
		list = append(list, expr)
	}
	return New(TagCompound, tok, &CompoundData{List: list})
}

func (n *Node) ReturnExprs() ([]*Node, bool) {
	if n == nil || n.Tag != TagCompound || n.Token == nil || n.Token.Content != "return" {
		return nil, false
	}
	return n.Data.(*CompoundData).List, true
}

func (n *Node) RaiseExpr() (*Node, bool) {
	if n == nil || n.Tag != TagCompound || n.Token == nil || n.Token.Content != "raise" {
		return nil, false
	}
	list := n.Data.(*CompoundData).List
	if len(list) == 0 {
		return nil, true
	}
	return list[0], true
}

// NewJump builds goto/break/continue/label: a bare keyword optionally
// naming a target identifier (goto/label only).
func NewJump(tok *token.Token, target *Node) *Node {
	return New(TagUnary, tok, &UnaryData{Sym: tok.Content, Child: target})
}

func (n *Node) Jump() (kind string, target *Node, ok bool) {
	if n == nil || n.Tag != TagUnary {
		return "", nil, false
	}
	ud := n.Data.(*UnaryData)
	switch n.Token.Content {
	case "goto", "label", "break", "continue":
		return n.Token.Content, ud.Child, true
	}
	return "", nil, false
}

// NewDelete/NewDefer wrap a single operand statement.
func NewDelete(tok *token.Token, expr *Node) *Node {
	return New(TagUnary, tok, &UnaryData{Sym: "delete", Child: expr})
}

func NewDefer(tok *token.Token, expr *Node) *Node {
	return New(TagUnary, tok, &UnaryData{Sym: "defer", Child: expr})
}

// VarKind distinguishes var/let/ref declarations (spec.md §4.2).
type VarKind uint8

const (
	VarVar VarKind = iota
	VarLet
	VarRef
)

// VarDeclData is one name in a var/let/ref declaration statement.
// DeclType is nil when the type is to be inferred from Init.
type VarDeclData struct {
	Kind     VarKind
	Name     *Node // IdentifierData, Symbol filled in by sema
	DeclType *Node // TagType node, or nil
	Init     *Node // initializer expression, or nil
}

func (*VarDeclData) isASTData() {}

func NewVarDecl(tok *token.Token, data *VarDeclData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) VarDecl() (*VarDeclData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	vd, ok := n.Data.(*VarDeclData)
	return vd, ok
}

// TypeDefKind distinguishes struct/union/enum/tuple definitions.
type TypeDefKind uint8

const (
	TypeDefStruct TypeDefKind = iota
	TypeDefUnion
	TypeDefEnum
	TypeDefTuple
)

type TypeDefData struct {
	Kind   TypeDefKind
	Name   string
	Fields *Node // TagBlock holding per-field VarDeclData nodes (or enumerator ZeroData nodes)
}

func (*TypeDefData) isASTData() {}

func NewTypeDef(tok *token.Token, data *TypeDefData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) TypeDef() (*TypeDefData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	td, ok := n.Data.(*TypeDefData)
	return td, ok
}

// FuncParam is one parameter of a function definition.
type FuncParam struct {
	Name string
	Type *Node // TagType
}

// FuncDefData is a function definition: name, parameter list, declared
// (possibly "infer") return-type list, and body block.
type FuncDefData struct {
	Name    string
	Params  []*FuncParam
	Returns []*Node // TagType nodes; a TagIdentifier with Token.Content=="infer" marks inference
	Body    *Node   // TagBlock, nil for a forward declaration
}

func (*FuncDefData) isASTData() {}

func NewFuncDef(tok *token.Token, data *FuncDefData) *Node {
	return New(TagCompound, tok, data)
}

func (n *Node) FuncDef() (*FuncDefData, bool) {
	if n == nil || n.Tag != TagCompound {
		return nil, false
	}
	fd, ok := n.Data.(*FuncDefData)
	return fd, ok
}

// ImportData names a module import; Path is the dotted or quoted spelling
// as written, resolution to a filesystem path happens in internal/module.
type ImportData struct {
	Path string
}

func (*ImportData) isASTData() {}

func NewImport(tok *token.Token, path string) *Node {
	return New(TagZero, tok, &ImportData{Path: path})
}

func (n *Node) Import() (string, bool) {
	if n == nil || n.Tag != TagZero {
		return "", false
	}
	id, ok := n.Data.(*ImportData)
	if !ok {
		return "", false
	}
	return id.Path, true
}

// UsingData names a "using" directive target (a namespace or module path).
type UsingData struct {
	Path string
}

func (*UsingData) isASTData() {}

func NewUsing(tok *token.Token, path string) *Node {
	return New(TagZero, tok, &UsingData{Path: path})
}

// NamespaceData groups a block of declarations under a name.
type NamespaceData struct {
	Name string
	Body *Node // TagBlock
}

func (*NamespaceData) isASTData() {}

func NewNamespace(tok *token.Token, name string, body *Node) *Node {
	return New(TagCompound, tok, &NamespaceData{Name: name, Body: body})
}
