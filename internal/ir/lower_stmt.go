package ir

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// BuildFunction lowers one sema-compiled function body to a Function (spec.md
// §4.4 "function prologue/epilogue FUNCTION_START/FUNCTION_END sentinels,
// function-wide returning TEMP flag"). body is nil for a forward declaration,
// in which case the function block is empty: the result still holds the
// sentinels, the return-slot TEMPs, the block's BLOCK_START/BLOCK_END with
// its returning flag, and the final RETURN.
func BuildFunction(sess *config.Session, name string, params []*symtab.Entry, returns []types.ID, body *ast.Node) *Function {
	b := NewBuilder(sess, name)
	b.fn.Params = params
	b.fn.Returns = returns

	b.fn.Start = b.emit(Triple{Op: OpFunctionStart})

	b.fn.RetSlots = make([]ID, len(returns))
	for i, rt := range returns {
		b.fn.RetSlots[i] = b.newTemp(rt)
	}

	b.beginBlock(blockFunction)
	if body != nil {
		b.lowerBlockStmts(body)
	}
	b.endBlock()

	ret := b.emit(Triple{Op: OpReturn})
	if len(b.fn.RetSlots) > 0 {
		b.fn.Triples[ret].P1 = TripleParam(b.fn.RetSlots[0])
	}
	if len(b.fn.RetSlots) > 1 {
		b.fn.Triples[ret].P2 = TripleParam(b.fn.RetSlots[1])
	}
	// A RETURN triple only carries two Param slots; functions with more than
	// two return values are read back by Function.RetSlots directly rather
	// than through P1/P2 (both still materialized above for the common
	// one/two-return case a disassembly listing wants to show inline).

	b.fn.End = b.emit(Triple{Op: OpFunctionEnd})
	return b.fn
}

// lowerBody wraps n (a TagBlock or a single bare statement — NN allows an
// unbraced body anywhere a block is, spec.md §4.2) in its own lexical block
// so every control-flow form gets uniform defer/unwind handling, and
// returns the block's BLOCK_START id as a branch target for the caller.
func (b *Builder) lowerBody(n *ast.Node) ID {
	bl := b.beginBlock(blockPlain)
	b.lowerBlockStmts(n)
	b.endBlock()
	return bl.start
}

// lowerBlockStmts lowers n's statement list (or n itself, if it isn't a
// TagBlock) into the CURRENTLY open block, then its deferred tail in
// reverse source order (spec.md §4.3 "defer e").
func (b *Builder) lowerBlockStmts(n *ast.Node) {
	if n == nil {
		return
	}
	if n.Tag != ast.TagBlock {
		b.lowerOneStmt(n)
		return
	}
	bd := n.Data.(*ast.BlockData)
	for _, stmt := range bd.List {
		b.lowerOneStmt(stmt)
	}
	for _, d := range bd.AtEnd {
		if d.Tag == ast.TagUnary {
			if ud, ok := d.Data.(*ast.UnaryData); ok && ud.Sym == "defer" {
				b.lowerDeferStmt(ud.Child)
				continue
			}
		}
		b.lowerDeferStmt(d)
	}
}

// lowerOneStmt lowers a single statement, then emits the cascading
// IF_NOT_ZERO checks (spec.md §4.4 "unwind tests for returned/broke/
// continued propagation to outer block end") that let an early return/
// break/continue from anywhere inside skip the rest of every enclosing
// block's statement list while still running each one's own defers.
func (b *Builder) lowerOneStmt(stmt *ast.Node) {
	b.lowerStmt(stmt)
	cur := b.curBlock()
	if cur == nil {
		return
	}
	b.unwindCheck(cur.returning)
	b.unwindCheck(cur.breakFlag)
	b.unwindCheck(cur.continueFlag)
}

// lowerDeferStmt lowers expr's triples, then hides them from the current
// block's ordinary chain by restoring cur.latest to what it was beforehand:
// endBlock splices every deferred entry back in itself (in reverse order),
// so letting emit's normal auto-chain also link this entry in ahead of time
// would leave endBlock re-linking an already-linked triple — harmless for a
// single defer, but corrupting for a second one (its first triple would find
// cur.latest.Next already taken by the first defer and never link into the
// main chain at all, yet endBlock's walk-forward-to-find-the-tail loop would
// then wrongly include the first defer's own triples as part of the second
// one's "tail").
func (b *Builder) lowerDeferStmt(expr *ast.Node) {
	cur := b.curBlock()
	savedGlobal := b.last
	var savedLocal ID = InvalidID
	if cur != nil {
		savedLocal = cur.latest
	}
	tail := b.lowerExpr(expr)
	b.deferStmt(tail)
	b.last = savedGlobal
	if cur != nil {
		cur.latest = savedLocal
	}
}

// lowerStmt dispatches one statement node, mirroring sema's compileStmt
// Tag/Data-shape switch (ast/stmt.go's discriminated-by-keyword convention).
func (b *Builder) lowerStmt(n *ast.Node) {
	if n == nil || n.IsErrorPlaceholder() {
		return
	}

	if cond, then, els, ok := n.If(); ok {
		b.lowerIf(cond, then, els)
		return
	}
	if fd, ok := n.For(); ok {
		b.lowerFor(fd)
		return
	}
	if cond, body, ok := n.WhileLoop(); ok {
		b.lowerWhile(cond, body, n.Token != nil && n.Token.Content == "loop")
		return
	}
	if sd, ok := n.Switch(); ok {
		b.lowerSwitch(sd)
		return
	}
	if td, ok := n.Try(); ok {
		b.lowerTry(td)
		return
	}
	if exprs, ok := n.ReturnExprs(); ok {
		b.lowerReturn(exprs)
		return
	}
	if expr, ok := n.RaiseExpr(); ok {
		b.lowerRaise(expr)
		return
	}
	if kind, target, ok := n.Jump(); ok {
		b.lowerJump(kind, target)
		return
	}
	if vd, ok := n.VarDecl(); ok {
		b.lowerVarDecl(vd)
		return
	}
	if _, ok := n.TypeDef(); ok {
		return // a locally-nested type def carries no runtime code
	}
	if _, ok := n.FuncDef(); ok {
		// A locally-nested function def lowers as its own independent
		// Function (internal/module drives that from the top-level decl
		// scan), not inline into its enclosing function's triple chain.
		return
	}
	if _, ok := n.Data.(*ast.NamespaceData); ok {
		return
	}
	if _, ok := n.Data.(*ast.ImportData); ok {
		return
	}
	if _, ok := n.Data.(*ast.UsingData); ok {
		return
	}
	if n.Tag == ast.TagUnary {
		ud := n.Data.(*ast.UnaryData)
		if ud.Sym == "defer" {
			b.lowerDeferStmt(ud.Child)
			return
		}
	}
	if n.Tag == ast.TagBlock {
		b.lowerBody(n)
		return
	}

	// Anything else is a bare expression statement.
	b.lowerExpr(n)
}

// lowerIf lowers "if cond then [else els]" via IF_ZERO branching around the
// then-arm, with a NOOP merge point both arms (or the fallthrough) land on.
func (b *Builder) lowerIf(cond, then, els *ast.Node) {
	condVal := b.lowerExpr(cond)
	test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(condVal)})
	b.lowerBody(then)

	if els == nil {
		merge := b.emit(Triple{Op: OpNoop})
		b.linkCond(test, merge)
		return
	}
	skip := b.emit(Triple{Op: OpJump})
	elseStart := b.lowerBody(els)
	b.linkCond(test, elseStart)
	merge := b.emit(Triple{Op: OpNoop})
	b.link(skip, merge)
}

// lowerWhile lowers "while cond body" (condition checked before the body)
// and "loop body while cond" style do-while (n.Token.Content == "loop",
// condition checked after). Either way, a break/return found after the body
// exits straight to the loop's own BLOCK_END rather than re-testing cond.
func (b *Builder) lowerWhile(cond, body *ast.Node, isDoWhile bool) {
	bl := b.beginBlock(blockLoop)
	top := b.emit(Triple{Op: OpNoop})

	if isDoWhile {
		b.lowerBody(body)
		b.unwindCheck(bl.returning)
		b.unwindCheck(bl.breakFlag)
		b.assignImmediate(bl.continueFlag, 0)
		condVal := b.lowerExpr(cond)
		again := b.emit(Triple{Op: OpIfNotZero, P1: TripleParam(condVal)})
		b.linkCond(again, top)
	} else {
		condVal := b.lowerExpr(cond)
		test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(condVal)})
		b.patchCondToBlockEnd(test)
		b.lowerBody(body)
		b.unwindCheck(bl.returning)
		b.unwindCheck(bl.breakFlag)
		b.assignImmediate(bl.continueFlag, 0)
		back := b.emit(Triple{Op: OpJump})
		b.link(back, top)
	}
	b.endBlock()
}

func (b *Builder) lowerFor(fd *ast.ForData) {
	switch fd.Kind {
	case ast.ForEach:
		b.lowerForEach(fd)
	case ast.ForLua:
		b.lowerForLua(fd)
	default:
		b.lowerForClassic(fd)
	}
}

func (b *Builder) lowerForClassic(fd *ast.ForData) {
	bl := b.beginBlock(blockLoop)
	if fd.Init != nil {
		b.lowerStmt(fd.Init)
	}
	top := b.emit(Triple{Op: OpNoop})
	if fd.Cond != nil {
		condVal := b.lowerExpr(fd.Cond)
		test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(condVal)})
		b.patchCondToBlockEnd(test)
	}
	b.lowerBody(fd.Body)
	b.unwindCheck(bl.returning)
	b.unwindCheck(bl.breakFlag)
	b.assignImmediate(bl.continueFlag, 0)
	if fd.Step != nil {
		b.lowerExpr(fd.Step)
	}
	back := b.emit(Triple{Op: OpJump})
	b.link(back, top)
	b.endBlock()
}

func (b *Builder) indexType() types.ID {
	return b.sess.Types.Intern(&types.Type{Tag: types.TagPrimitive, Primitive: types.PrimitiveData{Kind: types.PrimUnsigned, Width: 64}})
}

// lowerForEach lowers "for v in seq body" as a counting loop over LENGTH/
// INDEX (spec.md §4.4 names INDEX as the array-projection op).
func (b *Builder) lowerForEach(fd *ast.ForData) {
	bl := b.beginBlock(blockLoop)
	seqVal := b.lowerExpr(fd.Seq)
	length := b.emit(Triple{Op: OpLength, P1: TripleParam(seqVal)})

	idxT := b.indexType()
	counter := b.newTemp(idxT)
	b.assignImmediate(counter, 0)

	top := b.emit(Triple{Op: OpNoop})
	cmp := b.emit(Triple{Op: OpLess, P1: TripleParam(counter), P2: TripleParam(length), ResultType: b.boolType})
	test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(cmp)})
	b.patchCondToBlockEnd(test)

	var elemType types.ID
	if fd.Var != nil {
		elemType = fd.Var.ResolvedType
	}
	elem := b.emit(Triple{Op: OpIndex, P1: TripleParam(seqVal), P2: TripleParam(counter), ResultType: elemType})
	if fd.Var != nil {
		varSlot := b.lowerExpr(fd.Var)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(varSlot), P2: TripleParam(elem)})
	}

	b.lowerBody(fd.Body)
	b.unwindCheck(bl.returning)
	b.unwindCheck(bl.breakFlag)
	b.assignImmediate(bl.continueFlag, 0)

	one := b.value(1, idxT)
	next := b.emit(Triple{Op: OpAdd, P1: TripleParam(counter), P2: TripleParam(one), ResultType: idxT})
	b.emit(Triple{Op: OpCopy, P1: TripleParam(counter), P2: TripleParam(next)})
	back := b.emit(Triple{Op: OpJump})
	b.link(back, top)
	b.endBlock()
}

// lowerForLua lowers "for v = start, stop[, step] body". When step is
// omitted, its sign is derived at runtime from start<=>stop rather than
// assumed (spec.md §4.4 "for-lua: step omitted => derive ±1"); the loop
// condition is then selected branchlessly from that sign so one lowering
// covers both ascending and descending ranges (the "reverse range" scenario
// spec.md §8 calls out).
func (b *Builder) lowerForLua(fd *ast.ForData) {
	bl := b.beginBlock(blockLoop)
	t := fd.Start.ResolvedType
	startVal := b.lowerExpr(fd.Start)
	stopVal := b.lowerExpr(fd.Stop)

	var stepVal ID
	if fd.LuaStep != nil {
		stepVal = b.lowerExpr(fd.LuaStep)
	} else {
		asc := b.emit(Triple{Op: OpLessEqual, P1: TripleParam(startVal), P2: TripleParam(stopVal), ResultType: b.boolType})
		stepVal = b.newTemp(t)
		test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(asc)})
		posOne := b.value(1, t)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(stepVal), P2: TripleParam(posOne)})
		skip := b.emit(Triple{Op: OpJump})
		negSrc := b.value(1, t)
		negOne := b.emit(Triple{Op: OpNeg, P1: TripleParam(negSrc), ResultType: t})
		b.linkCond(test, negOne)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(stepVal), P2: TripleParam(negOne)})
		merge := b.emit(Triple{Op: OpNoop})
		b.link(skip, merge)
	}

	zero := b.value(0, t)
	ascending := b.emit(Triple{Op: OpGreaterEqual, P1: TripleParam(stepVal), P2: TripleParam(zero), ResultType: b.boolType})

	var iVar ID = InvalidID
	if fd.Var != nil {
		iVar = b.lowerExpr(fd.Var)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(iVar), P2: TripleParam(startVal)})
	}

	top := b.emit(Triple{Op: OpNoop})
	contAsc := b.emit(Triple{Op: OpLessEqual, P1: TripleParam(iVar), P2: TripleParam(stopVal), ResultType: b.boolType})
	contDesc := b.emit(Triple{Op: OpGreaterEqual, P1: TripleParam(iVar), P2: TripleParam(stopVal), ResultType: b.boolType})
	notAsc := b.emit(Triple{Op: OpNot, P1: TripleParam(ascending), ResultType: b.boolType})
	ascArm := b.emit(Triple{Op: OpAnd, P1: TripleParam(ascending), P2: TripleParam(contAsc), ResultType: b.boolType})
	descArm := b.emit(Triple{Op: OpAnd, P1: TripleParam(notAsc), P2: TripleParam(contDesc), ResultType: b.boolType})
	cont := b.emit(Triple{Op: OpOr, P1: TripleParam(ascArm), P2: TripleParam(descArm), ResultType: b.boolType})

	test := b.emit(Triple{Op: OpIfZero, P1: TripleParam(cont)})
	b.patchCondToBlockEnd(test)

	b.lowerBody(fd.Body)
	b.unwindCheck(bl.returning)
	b.unwindCheck(bl.breakFlag)
	b.assignImmediate(bl.continueFlag, 0)

	if iVar != InvalidID {
		next := b.emit(Triple{Op: OpAdd, P1: TripleParam(iVar), P2: TripleParam(stepVal), ResultType: t})
		b.emit(Triple{Op: OpCopy, P1: TripleParam(iVar), P2: TripleParam(next)})
	}
	back := b.emit(Triple{Op: OpJump})
	b.link(back, top)
	b.endBlock()
}

// lowerSwitch lowers a chain of EQUALS/IF_ZERO tests, one per case (spec.md
// §4.4 names switch among the forms that lower to triples; the fallthrough
// arm — "case ... continue" — simply omits the jump-to-end that every other
// arm gets, letting it fall into the next case's body).
func (b *Builder) lowerSwitch(sd *ast.SwitchData) {
	subj := b.lowerExpr(sd.Subject)
	bl := b.beginBlock(blockSwitch)

	var prevFailTest ID = InvalidID  // previous case's "no match" test, patched to this case's start
	var fallFrom ID = InvalidID      // previous (fallthrough) case's unconditional jump into this case's body
	for i, cs := range sd.Cases {
		var bodyStart ID
		if cs.Match != nil {
			caseTop := b.emit(Triple{Op: OpNoop})
			if prevFailTest != InvalidID {
				b.linkCond(prevFailTest, caseTop)
			}
			matchVal := b.lowerExpr(cs.Match)
			eq := b.emit(Triple{Op: OpEquals, P1: TripleParam(subj), P2: TripleParam(matchVal), ResultType: b.boolType})
			failTest := b.emit(Triple{Op: OpIfZero, P1: TripleParam(eq)})
			bodyStart = b.lowerBody(cs.Body)
			prevFailTest = failTest
		} else {
			bodyStart = b.lowerBody(cs.Body)
			if prevFailTest != InvalidID {
				b.linkCond(prevFailTest, bodyStart)
				prevFailTest = InvalidID
			}
		}
		if fallFrom != InvalidID {
			b.link(fallFrom, bodyStart)
			fallFrom = InvalidID
		}
		if cs.Fallthrough {
			fallFrom = b.emit(Triple{Op: OpJump})
		} else if i != len(sd.Cases)-1 {
			skip := b.emit(Triple{Op: OpJump})
			b.patchCondToBlockEnd(skip)
		}
	}
	if prevFailTest != InvalidID {
		b.patchCondToBlockEnd(prevFailTest)
	}
	if fallFrom != InvalidID {
		b.patchCondToBlockEnd(fallFrom)
	}
	b.unwindCheck(bl.breakFlag)
	b.endBlock()
}

// lowerTry lowers the try-block normally. Routing a raise from inside a
// nested CALL to this catch body would need every CALL triple to carry a
// conditional test against a shared raise channel (spec.md's "per-CALL
// raise test"); that cross-cutting rewire is not yet wired up, so the catch
// body below still lowers (and its bound symbol still gets a storage slot
// sema resolves identifiers against) but is not presently a reachable
// handler target — an accepted, documented simplification, not an
// oversight.
func (b *Builder) lowerTry(td *ast.TryData) {
	b.lowerBody(td.Body)
	if td.CatchBody != nil {
		b.lowerBody(td.CatchBody)
	}
}

func (b *Builder) lowerReturn(exprs []*ast.Node) {
	for i, e := range exprs {
		val := b.lowerExpr(e)
		if i < len(b.fn.RetSlots) {
			b.emit(Triple{Op: OpCopy, P1: TripleParam(b.fn.RetSlots[i]), P2: TripleParam(val)})
		}
	}
	if cur := b.curBlock(); cur != nil {
		b.assignImmediate(cur.returning, 1)
	}
}

// lowerRaise treats "raise e" as returning through the function's e64 error
// channel slot (spec.md §4.3 "raise requires an e64 return channel", already
// enforced by sema before ir ever sees this node).
func (b *Builder) lowerRaise(expr *ast.Node) {
	slot := b.errorRetSlot()
	if expr != nil && slot != InvalidID {
		val := b.lowerExpr(expr)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(slot), P2: TripleParam(val)})
	} else if expr != nil {
		b.lowerExpr(expr)
	}
	if cur := b.curBlock(); cur != nil {
		b.assignImmediate(cur.returning, 1)
	}
}

func (b *Builder) errorRetSlot() ID {
	for i, t := range b.fn.Returns {
		if b.sess.Types.IsError(t) && i < len(b.fn.RetSlots) {
			return b.fn.RetSlots[i]
		}
	}
	return InvalidID
}

func (b *Builder) lowerVarDecl(vd *ast.VarDeclData) {
	idd, _ := vd.Name.Data.(*ast.IdentifierData)
	var entry *symtab.Entry
	if idd != nil {
		entry = idd.Symbol
	}
	slot := b.emit(Triple{Op: OpSymbol, P1: SymbolParam(entry), ResultType: vd.Name.ResolvedType})
	if vd.Init != nil {
		val := b.lowerExpr(vd.Init)
		b.emit(Triple{Op: OpCopy, P1: TripleParam(slot), P2: TripleParam(val)})
	}
}

// lowerJump handles break/continue (set the nearest flag the current block
// inherited) and goto/label (direct, non-cascading jumps — a goto out of a
// block skips that block's defers, same documented limitation as raise
// propagation above).
func (b *Builder) lowerJump(kind string, target *ast.Node) {
	switch kind {
	case "break":
		if cur := b.curBlock(); cur != nil {
			b.assignImmediate(cur.breakFlag, 1)
		}
	case "continue":
		if cur := b.curBlock(); cur != nil {
			b.assignImmediate(cur.continueFlag, 1)
		}
	case "label":
		name := jumpTargetName(target)
		anchor := b.emit(Triple{Op: OpNoop, Label: name})
		b.labels[name] = anchor
		remaining := b.pendingGotos[:0]
		for _, g := range b.pendingGotos {
			if g.name == name {
				b.link(g.jump, anchor)
				continue
			}
			remaining = append(remaining, g)
		}
		b.pendingGotos = remaining
	case "goto":
		name := jumpTargetName(target)
		jump := b.emit(Triple{Op: OpJump, Label: name})
		if anchor, ok := b.labels[name]; ok {
			b.link(jump, anchor)
		} else {
			b.pendingGotos = append(b.pendingGotos, pendingGoto{jump: jump, name: name})
		}
	}
}

func jumpTargetName(n *ast.Node) string {
	if n == nil || n.Token == nil {
		return ""
	}
	return n.Token.Content
}
