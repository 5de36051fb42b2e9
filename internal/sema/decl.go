package sema

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// ownerForTypeDef maps a struct/union/enum/tuple definition to the inner
// scope's OwnerKind and the SupercompoundKind types.Table expects, per
// spec.md §3.2/§3.3.
func ownerForTypeDef(kind ast.TypeDefKind) (symtab.OwnerKind, types.SupercompoundKind) {
	switch kind {
	case ast.TypeDefStruct:
		return symtab.Struct, types.SuperStruct
	case ast.TypeDefUnion:
		return symtab.Union, types.SuperUnion
	case ast.TypeDefEnum:
		return symtab.Enum, types.SuperEnum
	default:
		return symtab.Struct, types.SuperTuple
	}
}

// compileTypeDef resolves td's field list into a Compound type, wraps it in
// a named Supercompound, and drives it to a fixed-point size (spec.md §4.3
// "struct/union/enum/tuple compilation"). Each field is compiled
// synchronously in declaration order; a field whose type names a sibling
// def not yet finished blocks this fiber via waitForType until the sibling
// fiber catches up.
func (c *Compiler) compileTypeDef(f *Fiber, n *ast.Node, td *ast.TypeDefData, outer *symtab.Scope, entry *symtab.Entry) {
	owner, superKind := ownerForTypeDef(td.Kind)
	inner := symtab.NewScope(owner, outer)

	var members []types.Member
	if td.Fields != nil {
		if bd, ok := td.Fields.Data.(*ast.BlockData); ok {
			for i, field := range bd.List {
				if td.Kind == ast.TypeDefEnum {
					members = append(members, c.compileEnumerator(f, field, inner, i))
					continue
				}
				members = append(members, c.compileStructField(f, field, inner))
			}
		}
	}

	compoundID := c.tb().Intern(&types.Type{Tag: types.TagCompound, Compound: types.CompoundData{Members: members}})
	superID := c.tb().Intern(&types.Type{
		Tag: types.TagSupercompound,
		Supercompound: types.SupercompoundData{
			Kind:     superKind,
			Name:     td.Name,
			Compound: compoundID,
			Scope:    inner,
		},
	})

	entry.Type = superID
	entry.Defined = true

	if !c.waitSize(f, func() bool { return c.tb().SetSize(superID) }) {
		c.errorf(n.Token.Range.Loc, logger.MsgID_Sema_CircularDependency, "circular size dependency in "+td.Name)
	}
}

// compileStructField handles one struct/union/tuple member: a VarDeclData
// node naming the field and its declared type.
func (c *Compiler) compileStructField(f *Fiber, field *ast.Node, inner *symtab.Scope) types.Member {
	vd, ok := field.VarDecl()
	if !ok {
		c.errorf(field.Token.Range.Loc, logger.MsgID_Sema_TypeMismatch, "malformed field declaration")
		return types.Member{Type: types.InvalidID}
	}

	fieldType := c.resolveTypeExpr(f, vd.DeclType, inner)
	name := fieldIdentifierName(vd.Name)

	idx := len(inner.Owned)
	inner.Declare(&symtab.Entry{
		Name: name, Kind: symtab.KindField, FieldIndex: idx, FieldParent: types.InvalidID,
		VarType: fieldType, DeclaringAST: field,
	})

	return types.Member{Type: fieldType, IsCompiletime: vd.Kind == ast.VarLet, IsReference: vd.Kind == ast.VarRef}
}

// compileEnumerator handles one enum member: a bare name, optionally with an
// explicit compile-time value, given the e64 discriminant type spec.md
// reserves for enums (types.Table.SetSize hard-codes 8 bytes for SuperEnum).
func (c *Compiler) compileEnumerator(f *Fiber, field *ast.Node, inner *symtab.Scope, ordinal int) types.Member {
	name := fieldIdentifierName(field)
	e64 := c.errorChannelType()

	inner.Declare(&symtab.Entry{
		Name: name, Kind: symtab.KindField, FieldIndex: ordinal, VarType: e64, DeclaringAST: field,
	})
	return types.Member{Type: e64}
}

func fieldIdentifierName(n *ast.Node) string {
	if n == nil {
		return ""
	}
	if n.Token != nil {
		return n.Token.Content
	}
	return ""
}

// errorChannelType returns the e64 primitive type id used both for enum
// discriminants and for raise/try channel typing (spec.md §4.3 "raise
// requires e64 among returns").
func (c *Compiler) errorChannelType() types.ID {
	return c.tb().Intern(&types.Type{Tag: types.TagPrimitive, Primitive: types.PrimitiveData{Kind: types.PrimError, Width: 64}})
}

// compileFuncDef resolves fn's parameter and return types, compiles its
// body (unless it is a forward declaration), and finalizes return-type
// inference (spec.md §4.3 "function compilation"). No "this" parameter is
// bound: every definition is compiled as a free function.
func (c *Compiler) compileFuncDef(f *Fiber, n *ast.Node, fd *ast.FuncDefData, outer *symtab.Scope, entry *symtab.Entry) {
	fnScope := symtab.NewScope(symtab.Function, outer)

	var params []types.Param
	for _, p := range fd.Params {
		pt := c.resolveTypeExpr(f, p.Type, fnScope)
		fnScope.Declare(&symtab.Entry{Name: p.Name, Kind: symtab.KindVariable, VarType: pt})
		params = append(params, types.Param{Type: pt})
	}

	inferring := false
	var returns []types.Return
	for _, r := range fd.Returns {
		if r.Tag == ast.TagIdentifier && r.Token != nil && r.Token.Content == "infer" {
			inferring = true
			returns = append(returns, types.Return{Type: c.tb().Intern(&types.Type{Tag: types.TagSpecial, Special: types.SpecialData{Kind: types.SpecialInfer}})})
			continue
		}
		returns = append(returns, types.Return{Type: c.resolveTypeExpr(f, r, fnScope)})
	}

	fnEntry := &entryReturnState{returns: returns, inferring: inferring}

	var bodyOut *ast.Node
	if fd.Body != nil {
		bodyOut = c.compileBlock(f, fd.Body, fnScope, fnEntry)
	}

	fnType := c.tb().Intern(&types.Type{Tag: types.TagFunction, Function: types.FunctionData{Params: params, Returns: fnEntry.returns}})

	entry.InnerScope = fnScope
	entry.Overloads = append(entry.Overloads, &symtab.Overload{Signature: fnType, Body: bodyOut})
}

// entryReturnState threads the return-type list through body compilation so
// the first encountered "return" statement can patch any "infer" slot
// in place (spec.md §4.3 "sole infer adopts verbatim; multi-return with any
// infer entry patched on first return").
type entryReturnState struct {
	returns   []types.Return
	inferring bool
	patched   bool
}
