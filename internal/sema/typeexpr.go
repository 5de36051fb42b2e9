package sema

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// primitiveKeyword maps the lexical spelling of NN's built-in type names to
// the primitive shape types.seedPrimitives() already interned, so resolving
// "i32" or "f64" never re-constructs a primitive Type (spec.md §3.2
// "primitives are pre-seeded").
var primitiveKeyword = map[string]types.PrimitiveData{
	"bool": {Kind: types.PrimBoolean, Width: 8},
	"c8":   {Kind: types.PrimCharacter, Width: 8},
	"c16":  {Kind: types.PrimCharacter, Width: 16},
	"c32":  {Kind: types.PrimCharacter, Width: 32},
	"i8":   {Kind: types.PrimSigned, Width: 8},
	"i16":  {Kind: types.PrimSigned, Width: 16},
	"i32":  {Kind: types.PrimSigned, Width: 32},
	"i64":  {Kind: types.PrimSigned, Width: 64},
	"u8":   {Kind: types.PrimUnsigned, Width: 8},
	"u16":  {Kind: types.PrimUnsigned, Width: 16},
	"u32":  {Kind: types.PrimUnsigned, Width: 32},
	"u64":  {Kind: types.PrimUnsigned, Width: 64},
	"f32":  {Kind: types.PrimFloating, Width: 32},
	"f64":  {Kind: types.PrimFloating, Width: 64},
	"any":  {Kind: types.PrimAny, Width: 0},
	"void": {Kind: types.PrimVoid, Width: 0},
	"e64":  {Kind: types.PrimError, Width: 64},
	"type": {Kind: types.PrimType, Width: 0},
}

// pointerSigil maps the prefix spelling a pointer type expression is written
// with to the PointerKind spec.md §3.2 names (naked "*", unique "~", shared
// "^", weak "?" — grounded on original_source's pointer-sigil table since
// spec.md's own prose names the four kinds without repeating their prefix
// spellings).
var pointerSigil = map[string]types.PointerKind{
	"*": types.PtrNaked,
	"~": types.PtrUnique,
	"^": types.PtrShared,
	"?": types.PtrWeak,
}

// resolveTypeExpr compiles a type-expression node (spec.md §4.3 "type
// compilation") to an interned types.ID. It covers the shapes every
// declaration in this package exercises: a bare primitive keyword, a named
// type reference (struct/union/enum/tuple/alias, possibly forward-declared
// by a sibling fiber), resolved by the spelling of the node's token (the
// parser's TagType nodes leave TypeData.Type unset), a pointer sigil
// wrapping an inner type expression, and the parser's unary "[]" suffix for
// an unsized array. A node this function doesn't recognize degrades to the ERROR
// special type rather than panicking, since malformed input always reaches
// here through the parser's own best-effort recovery.
func (c *Compiler) resolveTypeExpr(f *Fiber, n *ast.Node, scope *symtab.Scope) types.ID {
	if n == nil {
		return c.specialType(types.SpecialNothing)
	}

	if (n.Tag == ast.TagIdentifier || n.Tag == ast.TagType) && n.Token != nil {
		name := n.Token.Content
		if prim, ok := primitiveKeyword[name]; ok {
			return c.tb().Intern(&types.Type{Tag: types.TagPrimitive, Primitive: prim})
		}
		id, ok := c.waitForType(f, scope, name, n.Token.Range.Loc)
		if !ok {
			return c.specialType(types.SpecialErrorType)
		}
		return id
	}

	if td, ok := n.Data.(*ast.TypeData); ok && td.Type != types.InvalidID {
		return td.Type
	}

	if ud, ok := n.Data.(*ast.UnaryData); ok {
		if kind, ok := pointerSigil[ud.Sym]; ok {
			pointee := c.resolveTypeExpr(f, ud.Child, scope)
			return c.tb().Intern(&types.Type{Tag: types.TagPointer, Pointer: types.PointerData{Kind: kind, Pointee: pointee}})
		}
		if ud.Sym == "[]" {
			elem := c.resolveTypeExpr(f, ud.Child, scope)
			return c.tb().Intern(&types.Type{Tag: types.TagArray, Array: types.ArrayData{Element: elem, Sized: false}})
		}
	}

	// Array type-expression shape: CompoundData{List: [elementType, size?]}.
	if cd, ok := n.Data.(*ast.CompoundData); ok && len(cd.List) >= 1 {
		elem := c.resolveTypeExpr(f, cd.List[0], scope)
		if len(cd.List) >= 2 && cd.List[1].Tag == ast.TagValue {
			vd := cd.List[1].Data.(*ast.ValueData)
			return c.tb().Intern(&types.Type{Tag: types.TagArray, Array: types.ArrayData{Element: elem, Sized: true, Size: int64(vd.Bits)}})
		}
		return c.tb().Intern(&types.Type{Tag: types.TagArray, Array: types.ArrayData{Element: elem, Sized: false}})
	}

	c.errorf(locOf(n), logger.MsgID_Sema_TypeMismatch, "unrecognized type expression")
	return c.specialType(types.SpecialErrorType)
}

func (c *Compiler) specialType(kind types.SpecialKind) types.ID {
	return c.tb().Intern(&types.Type{Tag: types.TagSpecial, Special: types.SpecialData{Kind: kind}})
}

func locOf(n *ast.Node) logger.Loc {
	if n == nil || n.Token == nil {
		return logger.Loc{}
	}
	return n.Token.Range.Loc
}
