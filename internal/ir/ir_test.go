package ir

import (
	"strings"
	"testing"

	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/test"
	"github.com/nn-lang/nnc/internal/token"
	"github.com/nn-lang/nnc/internal/types"
)

func newTestSession() *config.Session {
	return config.NewSession(config.Options{Target: config.Target64}, logger.NewDeferLog())
}

func i32Type(sess *config.Session) types.ID {
	return sess.Types.Intern(&types.Type{Tag: types.TagPrimitive, Primitive: types.PrimitiveData{Kind: types.PrimSigned, Width: 32}})
}

func tok(content string) *token.Token { return &token.Token{Content: content} }

func identNode(entry *symtab.Entry, t types.ID) *ast.Node {
	n := ast.New(ast.TagIdentifier, tok(entry.Name), &ast.IdentifierData{Symbol: entry})
	n.ResolvedType = t
	return n
}

// a simple "return a + b" body, mirroring the hello-world/add-two-numbers
// shape of spec.md §8's first end-to-end scenario.
func TestBuildFunctionReturn(t *testing.T) {
	sess := newTestSession()
	i32 := i32Type(sess)

	a := &symtab.Entry{Name: "a", Kind: symtab.KindVariable, VarType: i32}
	bEntry := &symtab.Entry{Name: "b", Kind: symtab.KindVariable, VarType: i32}

	sum := ast.New(ast.TagBinary, tok("+"), &ast.BinaryData{Sym: "+", Left: identNode(a, i32), Right: identNode(bEntry, i32)})
	sum.ResolvedType = i32

	ret := ast.NewReturn(tok("return"), []*ast.Node{sum})
	body := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{ret}})

	fn := BuildFunction(sess, "add", []*symtab.Entry{a, bEntry}, []types.ID{i32}, body)

	if fn.Start == InvalidID || fn.End == InvalidID {
		t.Fatalf("function missing start/end sentinels")
	}
	if fn.Triples[fn.Start].Op != OpFunctionStart {
		t.Fatalf("fn.Start does not point at FUNCTION_START")
	}
	if fn.Triples[fn.End].Op != OpFunctionEnd {
		t.Fatalf("fn.End does not point at FUNCTION_END")
	}
	if len(fn.RetSlots) != 1 {
		t.Fatalf("expected 1 ret slot, got %d", len(fn.RetSlots))
	}

	dump := Dump(fn)
	test.AssertEqual(t, strings.Contains(dump, "ADD"), true)
	test.AssertEqual(t, strings.Contains(dump, "RETURN"), true)
	test.AssertEqual(t, strings.Contains(dump, "FUNCTION_END"), true)
}

// an if/else both arms of which return, checking that an IF_NOT_ZERO unwind
// test is emitted and that the function ends in FUNCTION_END (spec.md §4.4's
// unwind-test mechanism).
func TestLowerIfBothArmsReturn(t *testing.T) {
	sess := newTestSession()
	i32 := i32Type(sess)

	cond := ast.New(ast.TagValue, tok("1"), &ast.ValueData{Bits: 1})
	cond.ResolvedType = i32

	one := ast.New(ast.TagValue, tok("1"), &ast.ValueData{Bits: 1})
	one.ResolvedType = i32
	two := ast.New(ast.TagValue, tok("2"), &ast.ValueData{Bits: 2})
	two.ResolvedType = i32

	thenRet := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{ast.NewReturn(tok("return"), []*ast.Node{one})}})
	elseRet := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{ast.NewReturn(tok("return"), []*ast.Node{two})}})
	ifStmt := ast.NewIf(tok("if"), cond, thenRet, elseRet)
	body := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{ifStmt}})

	fn := BuildFunction(sess, "pick", nil, []types.ID{i32}, body)

	foundReturning := false
	for _, tr := range fn.Triples {
		if tr.Op == OpIfNotZero {
			foundReturning = true
		}
	}
	test.AssertEqual(t, foundReturning, true)
	test.AssertEqual(t, fn.Triples[fn.End].Op, OpFunctionEnd)
}

// a while loop with a break inside, checking that the break sets its flag
// (a COPY of the immediate 1).
func TestLowerWhileBreak(t *testing.T) {
	sess := newTestSession()
	i32 := i32Type(sess)

	cond := ast.New(ast.TagValue, tok("1"), &ast.ValueData{Bits: 1})
	cond.ResolvedType = i32
	brk := ast.NewJump(tok("break"), nil)
	body := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{brk}})
	loop := ast.NewWhileLoop(tok("while"), cond, body)
	fnBody := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{List: []*ast.Node{loop}})

	fn := BuildFunction(sess, "spin", nil, nil, fnBody)

	copies := 0
	for _, tr := range fn.Triples {
		if tr.Op == OpCopy && tr.P2.Kind == ParamImmediate && tr.P2.Imm == 1 {
			copies++
		}
	}
	if copies == 0 {
		t.Fatalf("expected at least one flag-set COPY triple for break")
	}
}

// defer ordering: two defers in one block must splice in reverse order
// ahead of BLOCK_END (spec.md §4.3 "defer e" LIFO).
func TestDeferLIFOOrder(t *testing.T) {
	sess := newTestSession()
	i32 := i32Type(sess)

	firstCall := ast.New(ast.TagValue, tok("1"), &ast.ValueData{Bits: 1})
	firstCall.ResolvedType = i32
	secondCall := ast.New(ast.TagValue, tok("2"), &ast.ValueData{Bits: 2})
	secondCall.ResolvedType = i32

	deferFirst := ast.NewDefer(tok("defer"), firstCall)
	deferSecond := ast.NewDefer(tok("defer"), secondCall)
	body := ast.New(ast.TagBlock, tok("{"), &ast.BlockData{
		List:  nil,
		AtEnd: []*ast.Node{deferFirst, deferSecond},
	})

	fn := BuildFunction(sess, "cleanup", nil, nil, body)

	// Walk the actual execution chain (Next pointers), not array index order:
	// endBlock relinks Next to splice defers LIFO, so array order alone
	// wouldn't reflect it.
	order := 0
	firstPos, secondPos := -1, -1
	for id := fn.Start; id != InvalidID; id = fn.Triples[id].Next {
		tr := fn.Triples[id]
		if tr.Op == OpValue && tr.P1.Kind == ParamImmediate {
			switch tr.P1.Imm {
			case 1:
				firstPos = order
			case 2:
				secondPos = order
			}
		}
		order++
		if order > len(fn.Triples)+1 {
			t.Fatalf("Next chain did not terminate (cycle?)")
		}
	}
	if firstPos == -1 || secondPos == -1 {
		t.Fatalf("expected both deferred VALUE triples reachable via the Next chain")
	}
	if secondPos >= firstPos {
		t.Fatalf("expected the second defer (LIFO) to run before the first in execution order: first=%d second=%d", firstPos, secondPos)
	}
}
