// Package ast implements the tagged-variant AST node described in spec.md
// §3.4. A single Node type carries a Tag plus a Data payload; Data is
// implemented by the payload structs in this file and the statement payloads in stmt.go, mirroring
// the teacher's js_ast.go Expr{Loc, Data} / "E interface{ isExpr() }" shape
// but collapsed into one node kind since NN's AST does not separate
// statements from expressions at the type level (spec.md makes no such
// split; Block simply holds a peer list of whatever tag each child is).
package ast

import (
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/token"
	"github.com/nn-lang/nnc/internal/types"
)

type Tag uint8

const (
	TagNone Tag = iota
	TagZero
	TagUnary
	TagBinary
	TagValue
	TagString
	TagCompound
	TagBlock
	TagType
	TagIdentifier
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagZero:
		return "zero"
	case TagUnary:
		return "unary"
	case TagBinary:
		return "binary"
	case TagValue:
		return "value"
	case TagString:
		return "string"
	case TagCompound:
		return "compound"
	case TagBlock:
		return "block"
	case TagType:
		return "type"
	case TagIdentifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// NotReorderable marks an operator (e.g. dotted access) whose binding can
// never be changed by reorder_binary/reorder_unary.
const NotReorderable int16 = -1

// Data is implemented by the payload structs below and the statement
// payloads in stmt.go.
type Data interface{ isASTData() }

func (*ZeroData) isASTData()       {}
func (*UnaryData) isASTData()      {}
func (*BinaryData) isASTData()     {}
func (*ValueData) isASTData()      {}
func (*StringData) isASTData()     {}
func (*CompoundData) isASTData()   {}
func (*BlockData) isASTData()      {}
func (*TypeData) isASTData()       {}
func (*IdentifierData) isASTData() {}

// ZeroData is a zero-ary placeholder or atom (e.g. "this", a bare literal
// keyword) optionally bound to a symbol.
type ZeroData struct {
	Symbol *symtab.Entry
}

// UnaryData is a pre- or post-unary operator application.
type UnaryData struct {
	Sym  string
	Child *Node
	Post bool
}

// BinaryData is a binary operator application; its Left/Right children are
// exactly what reorder_binary re-links (spec.md §4.2).
type BinaryData struct {
	Sym   string
	Left  *Node
	Right *Node
}

// ValueData is a scalar literal; the 64-bit payload is interpreted according
// to Node.ResolvedType (integer, float bit pattern, boolean, character).
type ValueData struct {
	Bits uint64
}

// StringData is a string literal.
type StringData struct {
	Bytes []byte
}

// CompoundData is an ordered list of peer children (array elements, function
// argument lists, struct/tuple literal parts).
type CompoundData struct {
	List []*Node
}

// BlockData is a statement list plus its defer/cleanup tail, executed in
// reverse source order at block exit (spec.md §4.3 "defer e").
type BlockData struct {
	List  []*Node
	AtEnd []*Node
}

// TypeData names a fully- or partially-resolved type.
type TypeData struct {
	Type types.ID
}

// IdentifierData is a name reference, bound to a symbol once resolved.
type IdentifierData struct {
	Symbol *symtab.Entry
}

// Node is one AST node. Nodes form a tree (never a cycle) owned by the
// enclosing Block or parent node.
type Node struct {
	Tag   Tag
	Token *token.Token // the declaring token

	ResolvedType types.ID
	// Compiled points to this node itself once semantic analysis has
	// finished with it unmodified, or to a replacement node (e.g. an
	// inferred conversion wrapper) otherwise. nil before compilation.
	Compiled *Node

	Compiletime bool

	Precedence          int16
	InheritedPrecedence int16

	Data Data
}

func New(tag Tag, tok *token.Token, data Data) *Node {
	return &Node{Tag: tag, Token: tok, Precedence: NotReorderable, Data: data}
}

// Clone produces a structural copy of the subtree rooted at n. Per spec.md
// §3.4, all symbol pointers in the copy are borrowed (shared with the
// original), never duplicated — only the tree shape and scalar fields are
// copied.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	switch d := n.Data.(type) {
	case *ZeroData:
		nd := *d
		out.Data = &nd
	case *UnaryData:
		nd := *d
		nd.Child = d.Child.Clone()
		out.Data = &nd
	case *BinaryData:
		nd := *d
		nd.Left = d.Left.Clone()
		nd.Right = d.Right.Clone()
		out.Data = &nd
	case *ValueData:
		nd := *d
		out.Data = &nd
	case *StringData:
		nd := *d
		nd.Bytes = append([]byte(nil), d.Bytes...)
		out.Data = &nd
	case *CompoundData:
		nd := *d
		nd.List = make([]*Node, len(d.List))
		for i, c := range d.List {
			nd.List[i] = c.Clone()
		}
		out.Data = &nd
	case *BlockData:
		nd := *d
		nd.List = make([]*Node, len(d.List))
		for i, c := range d.List {
			nd.List[i] = c.Clone()
		}
		nd.AtEnd = make([]*Node, len(d.AtEnd))
		for i, c := range d.AtEnd {
			nd.AtEnd[i] = c.Clone()
		}
		out.Data = &nd
	case *TypeData:
		nd := *d
		out.Data = &nd
	case *IdentifierData:
		nd := *d
		out.Data = &nd
	case *ForData:
		nd := *d
		nd.Init, nd.Cond, nd.Step = d.Init.Clone(), d.Cond.Clone(), d.Step.Clone()
		nd.Var, nd.Seq = d.Var.Clone(), d.Seq.Clone()
		nd.Start, nd.Stop, nd.LuaStep = d.Start.Clone(), d.Stop.Clone(), d.LuaStep.Clone()
		nd.Body = d.Body.Clone()
		out.Data = &nd
	case *SwitchData:
		nd := *d
		nd.Subject = d.Subject.Clone()
		nd.Cases = make([]*SwitchCase, len(d.Cases))
		for i, c := range d.Cases {
			cc := *c
			cc.Match = c.Match.Clone()
			cc.Body = c.Body.Clone()
			nd.Cases[i] = &cc
		}
		out.Data = &nd
	case *TryData:
		nd := *d
		nd.Body, nd.CatchName, nd.CatchBody = d.Body.Clone(), d.CatchName.Clone(), d.CatchBody.Clone()
		out.Data = &nd
	case *VarDeclData:
		nd := *d
		nd.Name, nd.DeclType, nd.Init = d.Name.Clone(), d.DeclType.Clone(), d.Init.Clone()
		out.Data = &nd
	case *TypeDefData:
		nd := *d
		nd.Fields = d.Fields.Clone()
		out.Data = &nd
	case *FuncDefData:
		nd := *d
		nd.Params = make([]*FuncParam, len(d.Params))
		for i, p := range d.Params {
			pp := *p
			pp.Type = p.Type.Clone()
			nd.Params[i] = &pp
		}
		nd.Returns = make([]*Node, len(d.Returns))
		for i, r := range d.Returns {
			nd.Returns[i] = r.Clone()
		}
		nd.Body = d.Body.Clone()
		out.Data = &nd
	case *ImportData:
		nd := *d
		out.Data = &nd
	case *UsingData:
		nd := *d
		out.Data = &nd
	case *NamespaceData:
		nd := *d
		nd.Body = d.Body.Clone()
		out.Data = &nd
	}
	return &out
}

// IsErrorPlaceholder reports whether n is a synthetic node manufactured by
// parser error recovery (a TagNone node with no token content).
func (n *Node) IsErrorPlaceholder() bool {
	return n != nil && n.Tag == TagNone
}
