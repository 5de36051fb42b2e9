package ir

import (
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/types"
)

// blockKind distinguishes the four reasons a break/continue/return might
// need to find a particular enclosing block (spec.md §4.4 "Block ... unwind
// tests for returned/broke/continued propagation to outer block end").
type blockKind uint8

const (
	blockPlain blockKind = iota
	blockLoop
	blockSwitch
	blockFunction
)

// block is one entry of the builder's block stack (spec.md §4.4 "block
// stack with start/end/latest"). end is queued (not yet spliced into the
// main Next chain) until endBlock runs, so deferred triples can still be
// appended ahead of it.
type block struct {
	kind blockKind

	start ID
	end   ID // BLOCK_END sentinel, created eagerly but spliced in late
	latest ID

	// breakFlag/continueFlag are TEMP ids a break/continue inside this block
	// sets to 1 before falling through (never a direct jump): unwinding has
	// to pass through every enclosing block's own BLOCK_END first so their
	// deferred triples still run, exactly like returning below. blockLoop
	// creates fresh ones and blockSwitch a fresh breakFlag; every other kind
	// inherits its parent's (InvalidID if there is no enclosing loop/switch
	// yet).
	breakFlag    ID
	continueFlag ID

	// returning is the function-wide TEMP flag (spec.md §4.4 "function-wide
	// returning TEMP flag"); created once by BuildFunction's outermost
	// blockFunction entry and inherited by every nested block.
	returning ID

	deferred []ID
}

// Builder drives one Function's lowering. It owns the block stack and the
// growing Triples slice; statement/expression lowering methods live in
// lower_stmt.go / lower_expr.go.
type Builder struct {
	sess   *config.Session
	fn     *Function
	blocks []*block

	// pendingUnwind maps a block to the IF_NOT_ZERO and JUMP triples emitted
	// after its statements that need their branch target (Cond, or a JUMP's
	// Next) patched to that block's unwind target once endBlock computes it
	// (patchCondToBlockEnd appends, endBlock drains).
	pendingUnwind map[*block][]ID

	labels       map[string]ID
	pendingGotos []pendingGoto

	boolType types.ID

	// last is the most recently emitted triple, independent of the block
	// stack: the Next chain has to span block boundaries (FUNCTION_START
	// into the first RetSlot TEMP, a popped block's last statement into its
	// own BLOCK_END), so auto-chaining can't be keyed off a single block's
	// .latest alone.
	last ID
}

type pendingGoto struct {
	jump ID
	name string
}

func NewBuilder(sess *config.Session, name string) *Builder {
	return &Builder{
		sess:          sess,
		fn:            &Function{Name: name, Start: InvalidID, End: InvalidID},
		pendingUnwind: make(map[*block][]ID),
		labels:        make(map[string]ID),
		boolType:      sess.Types.Intern(&types.Type{Tag: types.TagPrimitive, Primitive: types.PrimitiveData{Kind: types.PrimBoolean, Width: 8}}),
		last:          InvalidID,
	}
}

func (b *Builder) Function() *Function { return b.fn }

// emit appends t to the triple chain, linking the previously emitted triple's
// Next to it (spec.md §4.4 block.latest bookkeeping) unless that triple
// already branches unconditionally (a JUMP's Next is left dangling on
// purpose — nothing should fall through an unconditional jump). Chaining is
// tracked across block boundaries (b.last), not just within the current
// block, since FUNCTION_START/the RetSlot TEMPs run before any block is open
// and a block's last statement has to reach its own BLOCK_END after the
// block is popped; per-block .latest is still kept for block-local
// bookkeeping (endBlock's deferred splice, lowerDeferStmt's isolation).
func (b *Builder) emit(t Triple) ID {
	id := ID(len(b.fn.Triples))
	t.Next = InvalidID
	t.Cond = InvalidID
	b.fn.Triples = append(b.fn.Triples, t)

	if b.last != InvalidID && b.fn.Triples[b.last].Next == InvalidID && b.fn.Triples[b.last].Op != OpJump {
		b.fn.Triples[b.last].Next = id
	}
	b.last = id

	if len(b.blocks) > 0 {
		b.blocks[len(b.blocks)-1].latest = id
	}
	return id
}

func (b *Builder) at(id ID) *Triple {
	if id == InvalidID {
		return nil
	}
	return &b.fn.Triples[id]
}

// link forces from.Next = to regardless of what emit's default chaining
// computed, used to resolve forward references (e.g. an IF_ZERO's else
// target) once the destination triple exists.
func (b *Builder) link(from, to ID) {
	if from == InvalidID {
		return
	}
	b.fn.Triples[from].Next = to
}

func (b *Builder) linkCond(from, to ID) {
	if from == InvalidID {
		return
	}
	b.fn.Triples[from].Cond = to
}

func (b *Builder) curBlock() *block {
	if len(b.blocks) == 0 {
		return nil
	}
	return b.blocks[len(b.blocks)-1]
}

// beginBlock opens a new lexical block (spec.md §4.4 Block: "BLOCK_START").
// blockLoop gets its own fresh break/continue flags; blockSwitch gets a
// fresh break flag but inherits continue (a switch doesn't catch continue);
// blockFunction creates the returning flag; every other kind inherits all
// three flags unchanged.
func (b *Builder) beginBlock(kind blockKind) *block {
	start := b.emit(Triple{Op: OpBlockStart})
	bl := &block{kind: kind, start: start, end: InvalidID, latest: start,
		breakFlag: InvalidID, continueFlag: InvalidID, returning: InvalidID}
	if parent := b.curBlock(); parent != nil {
		bl.breakFlag = parent.breakFlag
		bl.continueFlag = parent.continueFlag
		bl.returning = parent.returning
	}
	switch kind {
	case blockLoop:
		bl.breakFlag = b.newTemp(b.boolType)
		bl.continueFlag = b.newTemp(b.boolType)
	case blockSwitch:
		bl.breakFlag = b.newTemp(b.boolType)
	case blockFunction:
		bl.returning = b.newTemp(b.boolType)
	}
	b.blocks = append(b.blocks, bl)
	return bl
}

// endBlock splices bl's deferred (defer-statement) triples ahead of its
// BLOCK_END sentinel, appends BLOCK_END, and pops the block stack (spec.md
// §4.4 "end_block() splices end sentinel into main chain").
func (b *Builder) endBlock() ID {
	bl := b.blocks[len(b.blocks)-1]
	b.blocks = b.blocks[:len(b.blocks)-1]

	for _, d := range bl.deferred {
		if bl.latest != InvalidID {
			b.fn.Triples[bl.latest].Next = d
		}
		bl.latest = d
		// walk d's own chain forward to the actual tail triple it lowered to
		for b.fn.Triples[bl.latest].Next != InvalidID {
			bl.latest = b.fn.Triples[bl.latest].Next
		}
	}

	end := b.emit(Triple{Op: OpBlockEnd})
	// bl is already popped, so emit's own auto-chain raced against whatever
	// b.last happened to be (the pre-defer anchor, if lowerDeferStmt restored
	// it) rather than bl's true final tail; pin the link explicitly now that
	// bl.latest has been walked all the way to it.
	if bl.latest != InvalidID {
		b.fn.Triples[bl.latest].Next = end
	}
	bl.end = end
	if len(b.blocks) > 0 {
		parent := b.blocks[len(b.blocks)-1]
		parent.latest = end
	}

	// An early unwind (return/break/continue cascading through this block)
	// must still run this block's own defers, so it targets the first
	// deferred triple rather than skipping straight to BLOCK_END.
	unwindTarget := end
	if len(bl.deferred) > 0 {
		unwindTarget = bl.deferred[0]
	}
	for _, t := range b.pendingUnwind[bl] {
		if b.fn.Triples[t].Op == OpJump {
			b.link(t, unwindTarget)
		} else {
			b.linkCond(t, unwindTarget)
		}
	}
	delete(b.pendingUnwind, bl)
	return end
}

// patchCondToBlockEnd queues t's branch target (a JUMP's Next, any other
// triple's Cond) to be set to the current block's unwind target (its first
// deferred triple, else its own BLOCK_END) once endBlock computes it.
func (b *Builder) patchCondToBlockEnd(t ID) {
	if t == InvalidID {
		return
	}
	cur := b.curBlock()
	if cur == nil {
		return
	}
	b.pendingUnwind[cur] = append(b.pendingUnwind[cur], t)
}

// unwindCheck emits an IF_NOT_ZERO test on flag that branches to the current
// block's own end once endBlock computes it, so returning/breaking/
// continuing cascades out one BLOCK_END (and its deferred triples) at a
// time rather than jumping straight past them (spec.md §4.4 "unwind tests
// for returned/broke/continued propagation to outer block end").
func (b *Builder) unwindCheck(flag ID) {
	if flag == InvalidID {
		return
	}
	test := b.emit(Triple{Op: OpIfNotZero, P1: TripleParam(flag)})
	b.patchCondToBlockEnd(test)
}

// assignImmediate copies an immediate value into an existing TEMP (a flag
// reset, a loop counter (re)init).
func (b *Builder) assignImmediate(dst ID, v uint64) {
	if dst == InvalidID {
		return
	}
	b.emit(Triple{Op: OpCopy, P1: TripleParam(dst), P2: ImmediateParam(v)})
}

// deferStmt queues id (a lowered expression's tail triple) to run at the
// current block's exit, reversed relative to source order at splice time
// per spec.md §4.3 "defer e" (LIFO). It is pushed to the front so endBlock's
// left-to-right walk realizes the reversal without a second pass.
func (b *Builder) deferStmt(id ID) {
	cur := b.curBlock()
	if cur == nil {
		return
	}
	cur.deferred = append([]ID{id}, cur.deferred...)
}

func (b *Builder) newTemp(t types.ID) ID {
	return b.emit(Triple{Op: OpTemp, ResultType: t})
}

func (b *Builder) value(imm uint64, t types.ID) ID {
	return b.emit(Triple{Op: OpValue, P1: ImmediateParam(imm), ResultType: t})
}
