package sema

import "github.com/nn-lang/nnc/internal/types"

// weakConvert reports whether a value of type `from` may be used where `to`
// is expected without an explicit "as" (spec.md §4.3 "weak conversion"):
// numeric widening (never narrowing), ANY accepting anything,
// NULL assignable to any pointer kind, an unsized array accepting a sized
// array of the same element (the "size-constraint loosening" spec.md
// names), and e64 always convertible from any concrete error-carrying
// result. Identity always weak-converts.
func (c *Compiler) weakConvert(to, from types.ID) bool {
	if to == from {
		return true
	}
	tb := c.tb()
	toT, fromT := tb.Get(to), tb.Get(from)
	if toT == nil || fromT == nil {
		return false
	}

	if toT.Tag == types.TagPrimitive && toT.Primitive.Kind == types.PrimAny {
		return true
	}
	if fromT.Tag == types.TagSpecial && fromT.Special.Kind == types.SpecialNull && toT.Tag == types.TagPointer {
		return true
	}
	if toT.Tag == types.TagPrimitive && fromT.Tag == types.TagPrimitive {
		return weakNumeric(toT.Primitive, fromT.Primitive)
	}
	if toT.Tag == types.TagArray && fromT.Tag == types.TagArray {
		if !c.weakConvert(toT.Array.Element, fromT.Array.Element) && toT.Array.Element != fromT.Array.Element {
			return false
		}
		if !toT.Array.Sized {
			return true // unsized accepts any sized-or-unsized array of a matching element
		}
		return fromT.Array.Sized && toT.Array.Size == fromT.Array.Size
	}
	if toT.Tag == types.TagPointer && fromT.Tag == types.TagPointer {
		return toT.Pointer.Kind == fromT.Pointer.Kind && c.weakConvert(toT.Pointer.Pointee, fromT.Pointer.Pointee)
	}
	return false
}

// weakNumeric implements the widening-only subset of numeric conversion:
// signed widens to wider signed or to floating, unsigned widens to wider
// unsigned/signed/floating, and any signed or unsigned kind (not a
// floating one) widens to e64 (spec.md's
// "raising" rule for channels that can report failure).
func weakNumeric(to, from types.PrimitiveData) bool {
	if to.Kind == types.PrimError {
		return from.Kind == types.PrimSigned || from.Kind == types.PrimUnsigned || from.Kind == types.PrimError
	}
	if to.Kind == from.Kind {
		return to.Width >= from.Width
	}
	switch from.Kind {
	case types.PrimUnsigned:
		return (to.Kind == types.PrimSigned && to.Width > from.Width) ||
			(to.Kind == types.PrimFloating)
	case types.PrimSigned:
		return to.Kind == types.PrimFloating
	}
	return false
}

// strongConvert implements the explicit "as" operator (spec.md §4.3 "strong
// conversion"): signed/unsigned reinterpretation at the same width,
// truncating widening/narrowing between any two numeric kinds, casts
// between any two pointer types (neither kind nor pointee is checked), and
// TYPE-to-TYPE (compile-time type value) reinterpretation. Anything
// weakConvert already allows is, by construction, also a valid strong
// conversion.
func (c *Compiler) strongConvert(to, from types.ID) bool {
	if c.weakConvert(to, from) {
		return true
	}
	tb := c.tb()
	toT, fromT := tb.Get(to), tb.Get(from)
	if toT == nil || fromT == nil {
		return false
	}
	if toT.Tag == types.TagPrimitive && fromT.Tag == types.TagPrimitive {
		numeric := func(k types.PrimitiveKind) bool {
			return k == types.PrimSigned || k == types.PrimUnsigned || k == types.PrimFloating || k == types.PrimCharacter || k == types.PrimError
		}
		return numeric(toT.Primitive.Kind) && numeric(fromT.Primitive.Kind)
	}
	if toT.Tag == types.TagPointer && fromT.Tag == types.TagPointer {
		return true
	}
	if toT.Tag == types.TagPrimitive && toT.Primitive.Kind == types.PrimType &&
		fromT.Tag == types.TagPrimitive && fromT.Primitive.Kind == types.PrimType {
		return true
	}
	return false
}
