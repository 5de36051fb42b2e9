// Package types implements the interned, structurally-identified type table
// (spec.md §3.2). Types are never compared by identity across two ad hoc
// constructions; they are always looked up through Table.Intern, which
// returns the pre-existing ID for any structurally-equal type.
package types

import (
	"fmt"
	"strings"
	"sync"
)

// ID is a dense index into a Table, assigned from 0 in interning order;
// InvalidID (-1) is never a valid ID.
type ID int32

const InvalidID ID = -1

type Tag uint8

const (
	TagPrimitive Tag = iota
	TagPointer
	TagArray
	TagCompound
	TagSupercompound
	TagFunction
	TagSuperfunction
	TagSpecial
)

type PrimitiveKind uint8

const (
	PrimSigned PrimitiveKind = iota
	PrimUnsigned
	PrimBoolean
	PrimFloating
	PrimCharacter
	PrimError
	PrimType
	PrimAny
	PrimVoid
)

type PointerKind uint8

const (
	PtrNaked PointerKind = iota
	PtrUnique
	PtrShared
	PtrWeak
)

type SpecialKind uint8

const (
	SpecialInfer SpecialKind = iota
	SpecialGeneric
	SpecialGenericUnknown
	SpecialGenericCompound
	SpecialNothing
	SpecialTypeless
	SpecialNone
	SpecialNoneArray
	SpecialNoneStruct
	SpecialNoneTuple
	SpecialNoneFunction
	SpecialNull
	SpecialErrorType
	SpecialErrorCompound
)

// Member is one element of a Compound type.
type Member struct {
	Type         ID
	IsCompiletime bool
	IsReference   bool
}

// Param is one parameter of a Function type.
type Param struct {
	Type        ID
	Compiletime bool
	Reference   bool
	Spread      bool
	Generic     bool
	Binding     bool
	ThisArg     bool
}

// Return is one return slot of a Function type.
type Return struct {
	Type        ID
	Compiletime bool
	Reference   bool
}

type PrimitiveData struct {
	Kind  PrimitiveKind
	Width int // bit width, 0 for non-numeric kinds
}

type PointerData struct {
	Kind   PointerKind
	Pointee ID
}

type ArrayData struct {
	Element ID
	Sized   bool
	Size    int64
}

type CompoundData struct {
	Members []Member
}

// SupercompoundKind distinguishes the four named-member-table constructors
// that wrap a Compound.
type SupercompoundKind uint8

const (
	SuperStruct SupercompoundKind = iota
	SuperUnion
	SuperEnum
	SuperTuple
)

type SupercompoundData struct {
	Kind      SupercompoundKind
	Name      string
	Compound  ID // a TagCompound type id
	Scope     interface{} // *symtab.Scope; interface{} to avoid an import cycle
	IsGeneric bool
	IsGenerated bool
}

type FunctionData struct {
	Params  []Param
	Returns []Return
}

type SuperfunctionData struct {
	Function     ID // a TagFunction type id
	ParamNames   []string
	ReturnNames  []string
	// DefaultValues[i] is an opaque AST handle (interface{} to avoid the
	// types<->ast import cycle); nil when the parameter has no default.
	DefaultValues []interface{}
	Scope         interface{} // *symtab.Scope
	IsGeneric     bool
	IsGenerated   bool
}

type SpecialData struct {
	Kind SpecialKind
}

// Type is one entry of the table. Size is -1 until resolved by SetSize;
// Intern sizes primitive and special types immediately.
type Type struct {
	ID       ID
	Tag      Tag
	Const    bool
	Volatile bool

	size int64 // -1 = unknown

	Primitive     PrimitiveData
	Pointer       PointerData
	Array         ArrayData
	Compound      CompoundData
	Supercompound SupercompoundData
	Function      FunctionData
	Superfunction SuperfunctionData
	Special       SpecialData
}

func (t *Type) SizeKnown() bool { return t.size >= 0 }
func (t *Type) Size() int64     { return t.size }

// key returns a structural fingerprint ignoring names and default values, so
// that two syntactically distinct spellings denoting the same structural
// type collapse to one ID (spec.md §3.2 Invariants, property 1 in §8).
func (t *Type) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%v:%v:", t.Tag, t.Const, t.Volatile)
	switch t.Tag {
	case TagPrimitive:
		fmt.Fprintf(&b, "%d/%d", t.Primitive.Kind, t.Primitive.Width)
	case TagPointer:
		fmt.Fprintf(&b, "%d/%d", t.Pointer.Kind, t.Pointer.Pointee)
	case TagArray:
		fmt.Fprintf(&b, "%d/%v/%d", t.Array.Element, t.Array.Sized, t.Array.Size)
	case TagCompound:
		for _, m := range t.Compound.Members {
			fmt.Fprintf(&b, "(%d,%v,%v)", m.Type, m.IsCompiletime, m.IsReference)
		}
	case TagSupercompound:
		// Named supertypes are identified by declaration site (name plus
		// wrapped compound), not purely structurally: two distinct "struct { x: i32 }"
		// declarations are distinct types even though their compounds match.
		fmt.Fprintf(&b, "%d/%s/%p", t.Supercompound.Kind, t.Supercompound.Name, t)
	case TagFunction:
		for _, p := range t.Function.Params {
			fmt.Fprintf(&b, "(%d,%v,%v,%v,%v,%v,%v)", p.Type, p.Compiletime, p.Reference, p.Spread, p.Generic, p.Binding, p.ThisArg)
		}
		b.WriteByte('|')
		for _, r := range t.Function.Returns {
			fmt.Fprintf(&b, "(%d,%v,%v)", r.Type, r.Compiletime, r.Reference)
		}
	case TagSuperfunction:
		fmt.Fprintf(&b, "%d/%p", t.Superfunction.Function, t)
	case TagSpecial:
		fmt.Fprintf(&b, "%d", t.Special.Kind)
	}
	return b.String()
}

// Table is the process-wide type table. Interning is serialized with a
// mutex: concurrent file-parser goroutines and semantic fibers may all
// construct candidate types and race to intern them (spec.md §5, "Shared
// resources").
type Table struct {
	mu      sync.Mutex
	entries []*Type
	byKey   map[string]ID

	PointerWidth int // bytes; used to size NAKED/UNIQUE/SHARED/WEAK pointers
}

func NewTable(pointerWidth int) *Table {
	tb := &Table{
		byKey:        make(map[string]ID),
		PointerWidth: pointerWidth,
	}
	tb.seedPrimitives()
	return tb
}

func (tb *Table) seedPrimitives() {
	prim := func(kind PrimitiveKind, width int) {
		tb.Intern(&Type{Tag: TagPrimitive, Primitive: PrimitiveData{Kind: kind, Width: width}})
	}
	prim(PrimVoid, 0)
	prim(PrimBoolean, 8)
	prim(PrimCharacter, 8)
	prim(PrimCharacter, 16)
	prim(PrimCharacter, 32)
	for _, w := range []int{8, 16, 32, 64} {
		prim(PrimSigned, w)
		prim(PrimUnsigned, w)
	}
	prim(PrimFloating, 32)
	prim(PrimFloating, 64)
	prim(PrimAny, 0)
	prim(PrimError, 64) // e64
	prim(PrimType, 0)
	for _, k := range []SpecialKind{
		SpecialInfer, SpecialGeneric, SpecialGenericUnknown, SpecialGenericCompound,
		SpecialNothing, SpecialTypeless, SpecialNone, SpecialNoneArray, SpecialNoneStruct,
		SpecialNoneTuple, SpecialNoneFunction, SpecialNull, SpecialErrorType, SpecialErrorCompound,
	} {
		tb.Intern(&Type{Tag: TagSpecial, Special: SpecialData{Kind: k}})
	}
}

// Intern registers t (or returns the pre-existing entry) by structural key.
// Supercompound/Superfunction types are never deduplicated by structure
// (each declaration site is a distinct named type); everything else is.
func (tb *Table) Intern(t *Type) ID {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	t.size = -1
	if t.Tag == TagPrimitive || t.Tag == TagSpecial {
		// These are always fully sized up front.
		t.size = primitiveSize(t)
	}

	key := t.key()
	if t.Tag != TagSupercompound && t.Tag != TagSuperfunction {
		if id, ok := tb.byKey[key]; ok {
			return id
		}
	}

	id := ID(len(tb.entries))
	t.ID = id
	tb.entries = append(tb.entries, t)
	tb.byKey[key] = id
	return id
}

func primitiveSize(t *Type) int64 {
	switch t.Tag {
	case TagPrimitive:
		if t.Primitive.Width == 0 {
			return 0
		}
		return int64(t.Primitive.Width) / 8
	default:
		return 0
	}
}

func (tb *Table) Get(id ID) *Type {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if id < 0 || int(id) >= len(tb.entries) {
		return nil
	}
	return tb.entries[id]
}

// IsError reports whether id names the e64 primitive or the ERROR_TYPE or
// ERROR_COMPOUND special type.
func (tb *Table) IsError(id ID) bool {
	t := tb.Get(id)
	return t != nil && ((t.Tag == TagPrimitive && t.Primitive.Kind == PrimError) ||
		(t.Tag == TagSpecial && (t.Special.Kind == SpecialErrorType || t.Special.Kind == SpecialErrorCompound)))
}

// SetSize runs the fixed-point sizing pass for one type: it returns true once
// t.Size() is resolvable, false if a dependency is still unresolved (the
// caller, sema's size_loop, is expected to retry via cooperative yield).
func (tb *Table) SetSize(id ID) bool {
	tb.mu.Lock()
	t := tb.Get(id)
	tb.mu.Unlock()
	if t == nil {
		return false
	}
	if t.SizeKnown() {
		return true
	}

	switch t.Tag {
	case TagPointer:
		t.size = int64(tb.PointerWidth)
		return true

	case TagArray:
		if !t.Array.Sized {
			// Unsized (slice-like) arrays are (pointer, length) pairs.
			t.size = int64(tb.PointerWidth) * 2
			return true
		}
		elem := tb.Get(t.Array.Element)
		if elem == nil || !tb.SetSize(t.Array.Element) {
			return false
		}
		t.size = elem.Size() * t.Array.Size
		return true

	case TagCompound:
		total := int64(0)
		for _, m := range t.Compound.Members {
			if m.IsCompiletime {
				continue
			}
			if !tb.SetSize(m.Type) {
				return false
			}
			total += align(tb.Get(m.Type).Size())
		}
		t.size = total
		return true

	case TagSupercompound:
		compound := tb.Get(t.Supercompound.Compound)
		if compound == nil {
			return false
		}
		switch t.Supercompound.Kind {
		case SuperUnion:
			max := int64(0)
			for _, m := range compound.Compound.Members {
				if m.IsCompiletime {
					continue
				}
				if !tb.SetSize(m.Type) {
					return false
				}
				if s := tb.Get(m.Type).Size(); s > max {
					max = s
				}
			}
			t.size = max
		case SuperEnum:
			t.size = 8 // enums carry an underlying e64-sized discriminant
		default: // struct, tuple
			if !tb.SetSize(t.Supercompound.Compound) {
				return false
			}
			t.size = compound.Size()
		}
		return true

	case TagFunction, TagSuperfunction:
		t.size = int64(tb.PointerWidth) // function values are code pointers
		return true

	default:
		t.size = 0
		return true
	}
}

func align(size int64) int64 {
	// 8-byte alignment, matching the assembler's data-region alignment rule
	// (spec.md §4.5) so struct layout and DB layout agree.
	if size <= 0 {
		return size
	}
	rem := size % 8
	if rem == 0 {
		return size
	}
	return size + (8 - rem)
}

func (tb *Table) String(id ID) string {
	t := tb.Get(id)
	if t == nil {
		return "<invalid type>"
	}
	switch t.Tag {
	case TagPrimitive:
		return fmt.Sprintf("prim(%d,w=%d)", t.Primitive.Kind, t.Primitive.Width)
	case TagPointer:
		return fmt.Sprintf("*%s", tb.String(t.Pointer.Pointee))
	case TagArray:
		if t.Array.Sized {
			return fmt.Sprintf("%s[%d]", tb.String(t.Array.Element), t.Array.Size)
		}
		return fmt.Sprintf("%s[]", tb.String(t.Array.Element))
	case TagSupercompound:
		return t.Supercompound.Name
	case TagSpecial:
		return fmt.Sprintf("special(%d)", t.Special.Kind)
	default:
		return fmt.Sprintf("type#%d", id)
	}
}
