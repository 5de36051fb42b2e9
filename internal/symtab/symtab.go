// Package symtab implements the nested symbol-table tree (spec.md §3.3):
// scopes own their entries, entries carry a discriminated payload, and
// lookup walks toward the root subject to an owner-kind boundary.
package symtab

import (
	"fmt"

	"github.com/nn-lang/nnc/internal/types"
)

type OwnerKind uint8

const (
	Free OwnerKind = iota
	Block
	Namespace
	Loop
	Function
	Struct
	Module
	Union
	Enum
	Copy
)

type EntryKind uint8

const (
	KindType EntryKind = iota
	KindVariable
	KindFunction
	KindNamespace
	KindModule
	KindField
	KindOverload
	KindLabel
)

// Overload is one typed signature sharing a name with other overloads on a
// Function entry.
type Overload struct {
	Signature types.ID    // a TagFunction or TagSuperfunction id
	Body      interface{} // the function body AST, opaque here to avoid an import cycle
}

// Entry is one symbol-table slot. Which fields are meaningful depends on
// Kind; this mirrors the teacher's tagged-struct style (js_ast.E) but keeps
// everything in one struct since the per-kind payloads here are small and a
// single scope frequently needs to range over mixed-kind entries (e.g. for
// "using" merges).
type Entry struct {
	Name         string
	DeclaringAST interface{} // borrowed pointer to the declaring AST node
	Kind         EntryKind

	// KindType
	Type    types.ID
	Defined bool // also reused by KindVariable below

	// KindVariable
	VarType     types.ID
	Value       interface{} // optional initializer AST
	Compiletime bool
	Reference   bool
	ThisArg     bool
	IsReturn    bool

	// KindFunction
	InnerScope *Scope // scope for signatures / compile-time constants
	Overloads  []*Overload

	// KindNamespace / KindModule
	// InnerScope reused for Namespace; ModuleScope below for Module.
	ModuleScope *Scope

	// KindField
	FieldIndex  int
	FieldParent types.ID

	// KindOverload
	OverloadFn  *Entry
	OverloadRec *Overload
}

// Scope is one node of the symbol-table tree.
type Scope struct {
	Owner    OwnerKind
	Parent   *Scope
	Children []*Scope

	// Owned entries are destroyed with the scope (conceptually; in Go this
	// only matters for the uniqueness invariant, not for memory). Borrowed
	// entries come from "using" imports and are never removed even though
	// they are visible through this scope.
	Owned    map[string]*Entry
	Borrowed map[string]*Entry
}

func NewScope(owner OwnerKind, parent *Scope) *Scope {
	s := &Scope{
		Owner:    owner,
		Parent:   parent,
		Owned:    make(map[string]*Entry),
		Borrowed: make(map[string]*Entry),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Declare adds a new owned entry. It enforces the symbol-uniqueness
// invariant (spec.md §8 property 4): two owned entries may never share a
// name in the same scope.
func (s *Scope) Declare(e *Entry) error {
	if _, exists := s.Owned[e.Name]; exists {
		return fmt.Errorf("redeclaration of %q in this scope", e.Name)
	}
	s.Owned[e.Name] = e
	return nil
}

// Use merges in a name made visible by a "using" directive. Per spec.md §9
// Open Question (b), a borrowed name never shadows or conflicts with an
// owned name; two borrowed names with the same spelling are allowed to
// coexist at declaration time, with ambiguity reported lazily on first use
// (see Get).
func (s *Scope) Use(e *Entry) {
	if existing, ok := s.Borrowed[e.Name]; ok && existing != e {
		// Record the collision by chaining through a synthetic ambiguous
		// marker entry; Get detects this and reports on first lookup.
		s.Borrowed[e.Name] = &Entry{Name: e.Name, Kind: KindOverload, OverloadFn: existing, OverloadRec: &Overload{Body: e}}
		return
	}
	s.Borrowed[e.Name] = e
}

// AmbiguousUse reports whether a prior Use call collided for name.
func (s *Scope) AmbiguousUse(name string) (first, second *Entry, ambiguous bool) {
	e, ok := s.Borrowed[name]
	if !ok || e.Kind != KindOverload || e.OverloadRec == nil {
		return nil, nil, false
	}
	second, _ = e.OverloadRec.Body.(*Entry)
	return e.OverloadFn, second, true
}

// Get walks from s toward the root. propagate=false restricts the search to
// s itself. When propagate is true, the walk includes every ancestor up to
// and including the first one whose Owner equals until; further ancestors
// are not searched. Owned entries take priority over borrowed ones at every
// level (a local name always beats an imported one, per spec.md §9 (b)).
func (s *Scope) Get(name string, propagate bool, until OwnerKind) (*Entry, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if e, ok := cur.Owned[name]; ok {
			return e, true
		}
		if e, ok := cur.Borrowed[name]; ok {
			return e, true
		}
		if !propagate || cur.Owner == until {
			break
		}
	}
	return nil, false
}

// GetLocal is shorthand for Get(name, false, Free): a strict, non-propagating
// lookup in exactly this scope.
func (s *Scope) GetLocal(name string) (*Entry, bool) {
	return s.Get(name, false, Free)
}

// EnclosingOfKind returns the nearest ancestor (including s) whose Owner
// matches kind, or nil.
func (s *Scope) EnclosingOfKind(kind OwnerKind) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Owner == kind {
			return cur
		}
	}
	return nil
}
