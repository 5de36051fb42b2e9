// Package sema implements semantic analysis (spec.md §4.3): name resolution,
// type checking, and type-table sizing, driven by the cooperative fiber
// scheduler in fiber.go. Forward references (a function calling one declared
// later in the same file, a struct embedding another declared later) are
// resolved by yielding rather than by a separate pre-pass, mirroring the
// original compiler's own fiber-based design (see fiber.go's doc comment).
package sema

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// Compiler holds everything one module's semantic pass needs: the shared
// session (type table, string pool, diagnostics), the module's own source
// (for diagnostic locations), and a fiber scheduler private to this module
// (spec.md §4.3 scopes define_loop/size_loop to "the file root").
type Compiler struct {
	sess   *config.Session
	source *logger.Source
	sched  *Scheduler
}

func NewCompiler(sess *config.Session, source *logger.Source) *Compiler {
	return &Compiler{sess: sess, source: source, sched: NewScheduler()}
}

func (c *Compiler) tb() *types.Table { return c.sess.Types }

func (c *Compiler) errorf(loc logger.Loc, id logger.MsgID, text string) {
	c.sess.Log.AddID(id, c.source, loc, text)
}

// CompileModule implements spec.md §4.3's top-level two-phase scan: every
// def/type-def statement gets a placeholder symbol declared up front (so
// forward references from sibling defs resolve), then a fiber is spawned to
// finish compiling its body; the remaining top-level statements are compiled
// synchronously, in source order, interleaved with whichever fibers the
// scheduler has already made progress on. Run() is called last to drain
// every outstanding fiber to completion or to a reported circular-dependency
// diagnostic.
func (c *Compiler) CompileModule(root *ast.Node, scope *symtab.Scope) {
	bd, ok := root.Data.(*ast.BlockData)
	if !ok {
		return
	}

	var rest []*ast.Node
	for _, stmt := range bd.List {
		if fd, ok := stmt.FuncDef(); ok {
			c.spawnFuncDef(stmt, fd, scope)
			continue
		}
		if td, ok := stmt.TypeDef(); ok {
			c.spawnTypeDef(stmt, td, scope)
			continue
		}
		rest = append(rest, stmt)
	}

	for _, stmt := range rest {
		c.compileStmt(nil, stmt, scope, nil)
	}

	c.sched.Run()
}

// wait resolves a dependency that may or may not be able to cooperatively
// yield: inside a fiber (f != nil) it retries via defineLoop up to
// maxYields times; outside one (top-level statements run synchronously, not
// as their own fiber) it can only check once, since there is no scheduler
// turn to hand the baton back to.
func (c *Compiler) wait(f *Fiber, ready func() bool) bool {
	if f == nil {
		return ready()
	}
	return f.defineLoop(ready)
}

// waitSize is wait's counterpart for type_table.set_size: a locally-nested
// type def (compiled synchronously, outside any fiber) gets a single
// best-effort sizing attempt instead of a retry loop.
func (c *Compiler) waitSize(f *Fiber, setSize func() bool) bool {
	if f == nil {
		return setSize()
	}
	return f.sizeLoop(setSize)
}

// spawnTypeDef declares td's placeholder symbol synchronously (so every
// sibling, including ones compiled before this def in source order, can see
// the name immediately) and hands the heavy lifting — field compilation and
// sizing — to a fiber.
func (c *Compiler) spawnTypeDef(n *ast.Node, td *ast.TypeDefData, scope *symtab.Scope) {
	entry := &symtab.Entry{Name: td.Name, Kind: symtab.KindType, DeclaringAST: n, Type: types.InvalidID}
	if err := scope.Declare(entry); err != nil {
		c.errorf(n.Token.Range.Loc, logger.MsgID_Sema_Redeclaration, err.Error())
		return
	}

	c.sched.Spawn(td.Name, func(f *Fiber) {
		c.compileTypeDef(f, n, td, scope, entry)
	})
}

// spawnFuncDef mirrors spawnTypeDef for function/method definitions. The
// placeholder starts with no InnerScope and no overloads; callers that
// resolve the name before the fiber finishes see it that way, since nothing
// waits for a function's fiber.
func (c *Compiler) spawnFuncDef(n *ast.Node, fd *ast.FuncDefData, scope *symtab.Scope) {
	entry, existing := scope.GetLocal(fd.Name)
	if !existing || entry.Kind != symtab.KindFunction {
		entry = &symtab.Entry{Name: fd.Name, Kind: symtab.KindFunction}
		if err := scope.Declare(entry); err != nil {
			c.errorf(n.Token.Range.Loc, logger.MsgID_Sema_Redeclaration, err.Error())
			return
		}
	}

	c.sched.Spawn(fd.Name, func(f *Fiber) {
		c.compileFuncDef(f, n, fd, scope, entry)
	})
}

// waitForType blocks the calling fiber until sym names a fully-defined type
// (spec.md §4.3 define_loop), reporting circular dependency once the retry
// budget is spent.
func (c *Compiler) waitForType(f *Fiber, scope *symtab.Scope, name string, loc logger.Loc) (types.ID, bool) {
	var entry *symtab.Entry
	ok := c.wait(f, func() bool {
		e, found := scope.Get(name, true, symtab.Module)
		if !found || e.Kind != symtab.KindType || !e.Defined {
			return false
		}
		entry = e
		return true
	})
	if !ok {
		c.errorf(loc, logger.MsgID_Sema_CircularDependency, "circular dependency resolving type "+name)
		return types.InvalidID, false
	}
	return entry.Type, true
}
