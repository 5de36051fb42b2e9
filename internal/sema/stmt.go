package sema

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// compileBlock compiles every statement of a TagBlock node in order, then
// its deferred tail (spec.md §4.3 "defer e": prepended to the enclosing
// block's at_end list, executed in reverse source order at block exit — the
// reversal itself is internal/ir's concern, sema only needs AtEnd populated
// with compiled nodes).
func (c *Compiler) compileBlock(f *Fiber, n *ast.Node, scope *symtab.Scope, rs *entryReturnState) *ast.Node {
	bd, ok := n.Data.(*ast.BlockData)
	if !ok {
		return n
	}
	for _, stmt := range bd.List {
		c.compileStmt(f, stmt, scope, rs)
	}
	for _, d := range bd.AtEnd {
		c.compileStmt(f, d, scope, rs)
	}
	n.Compiled = n
	return n
}

// compileStmt dispatches one top-level-or-nested statement node by its
// Tag/Data shape (ast/stmt.go's discriminated-by-keyword convention) and
// compiles it in place. rs is non-nil only while compiling a function body;
// it lets "return" patch an "infer" return slot on first sight and lets
// "raise" check that an e64 return exists.
func (c *Compiler) compileStmt(f *Fiber, n *ast.Node, scope *symtab.Scope, rs *entryReturnState) {
	if n == nil || n.IsErrorPlaceholder() {
		return
	}

	if cond, then, els, ok := n.If(); ok {
		c.compileExpr(f, cond, scope)
		c.compileAsBlockOrStmt(f, then, scope, rs)
		c.compileAsBlockOrStmt(f, els, scope, rs)
		return
	}
	if fd, ok := n.For(); ok {
		c.compileFor(f, fd, scope, rs)
		return
	}
	if cond, body, ok := n.WhileLoop(); ok {
		c.compileExpr(f, cond, scope)
		c.compileAsBlockOrStmt(f, body, scope, rs)
		return
	}
	if sd, ok := n.Switch(); ok {
		c.compileExpr(f, sd.Subject, scope)
		for _, cs := range sd.Cases {
			if cs.Match != nil {
				c.compileExpr(f, cs.Match, scope)
			}
			c.compileAsBlockOrStmt(f, cs.Body, scope, rs)
		}
		return
	}
	if td, ok := n.Try(); ok {
		c.compileAsBlockOrStmt(f, td.Body, scope, rs)
		catchScope := symtab.NewScope(symtab.Block, scope)
		if td.CatchName != nil && td.CatchName.Token != nil {
			catchScope.Declare(&symtab.Entry{Name: td.CatchName.Token.Content, Kind: symtab.KindVariable, VarType: c.errorChannelType()})
		}
		c.compileAsBlockOrStmt(f, td.CatchBody, catchScope, rs)
		return
	}
	if exprs, ok := n.ReturnExprs(); ok {
		c.compileReturn(f, n, exprs, scope, rs)
		return
	}
	if expr, ok := n.RaiseExpr(); ok {
		if expr != nil {
			c.compileExpr(f, expr, scope)
		}
		if rs != nil && !hasErrorChannel(rs.returns, c.tb()) {
			c.errorf(locOf(n), logger.MsgID_Sema_RaiseWithoutErrorChannel, "raise requires an e64 return channel")
		}
		return
	}
	if _, _, ok := n.Jump(); ok {
		return // goto/label/break/continue carry no expression to type-check
	}
	if vd, ok := n.VarDecl(); ok {
		c.compileVarDecl(f, vd, scope)
		return
	}
	if td, ok := n.TypeDef(); ok {
		// A locally-nested type def compiles synchronously rather than
		// spawning its own fiber: only file-root defs participate in the
		// two-phase forward-reference scan (spec.md §4.3 names the file
		// root specifically), and a local type has no siblings to be a
		// forward reference for.
		entry := &symtab.Entry{Name: td.Name, Kind: symtab.KindType, DeclaringAST: n, Type: types.InvalidID}
		if err := scope.Declare(entry); err != nil {
			c.errorf(locOf(n), logger.MsgID_Sema_Redeclaration, err.Error())
		} else {
			c.compileTypeDef(f, n, td, scope, entry)
		}
		return
	}
	if fd, ok := n.FuncDef(); ok {
		entry := &symtab.Entry{Name: fd.Name, Kind: symtab.KindFunction}
		if err := scope.Declare(entry); err != nil {
			c.errorf(locOf(n), logger.MsgID_Sema_Redeclaration, err.Error())
		} else {
			c.compileFuncDef(f, n, fd, scope, entry)
		}
		return
	}
	if nd, ok := n.Data.(*ast.NamespaceData); ok {
		nsScope := symtab.NewScope(symtab.Namespace, scope)
		scope.Declare(&symtab.Entry{Name: nd.Name, Kind: symtab.KindNamespace, InnerScope: nsScope})
		c.compileBlock(f, nd.Body, nsScope, nil)
		return
	}
	if _, ok := n.Data.(*ast.ImportData); ok {
		return // resolved by internal/module before sema ever sees the tree
	}
	if _, ok := n.Data.(*ast.UsingData); ok {
		return // likewise; module wires Use() into scope ahead of sema
	}
	if n.Tag == ast.TagUnary {
		ud := n.Data.(*ast.UnaryData)
		switch ud.Sym {
		case "delete":
			c.compileExpr(f, ud.Child, scope)
			return
		case "defer":
			c.compileExpr(f, ud.Child, scope)
			return
		}
	}
	if n.Tag == ast.TagBlock {
		c.compileBlock(f, n, symtab.NewScope(symtab.Block, scope), rs)
		return
	}

	// Anything else is a bare expression statement.
	c.compileExpr(f, n, scope)
}

// compileAsBlockOrStmt handles the common "this arm may be a single
// statement or a braced block" shape every control-flow form in NN's
// grammar allows.
func (c *Compiler) compileAsBlockOrStmt(f *Fiber, n *ast.Node, scope *symtab.Scope, rs *entryReturnState) {
	if n == nil {
		return
	}
	if n.Tag == ast.TagBlock {
		c.compileBlock(f, n, symtab.NewScope(symtab.Block, scope), rs)
		return
	}
	c.compileStmt(f, n, scope, rs)
}

func (c *Compiler) compileFor(f *Fiber, fd *ast.ForData, scope *symtab.Scope, rs *entryReturnState) {
	loopScope := symtab.NewScope(symtab.Loop, scope)
	switch fd.Kind {
	case ast.ForClassic:
		c.compileStmt(f, fd.Init, loopScope, rs)
		if fd.Cond != nil {
			c.compileExpr(f, fd.Cond, loopScope)
		}
		if fd.Step != nil {
			c.compileExpr(f, fd.Step, loopScope)
		}
	case ast.ForEach:
		c.compileExpr(f, fd.Seq, loopScope)
		if fd.Var != nil && fd.Var.Token != nil {
			elemType := c.sequenceElementType(fd.Seq.ResolvedType)
			entry := &symtab.Entry{Name: fd.Var.Token.Content, Kind: symtab.KindVariable, VarType: elemType, DeclaringAST: fd.Var}
			loopScope.Declare(entry)
			if idd, ok := fd.Var.Data.(*ast.IdentifierData); ok {
				idd.Symbol = entry
			}
			fd.Var.ResolvedType = elemType
		}
	case ast.ForLua:
		c.compileExpr(f, fd.Start, loopScope)
		c.compileExpr(f, fd.Stop, loopScope)
		if fd.LuaStep != nil {
			c.compileExpr(f, fd.LuaStep, loopScope)
		}
		if fd.Var != nil && fd.Var.Token != nil {
			entry := &symtab.Entry{Name: fd.Var.Token.Content, Kind: symtab.KindVariable, VarType: fd.Start.ResolvedType, DeclaringAST: fd.Var}
			loopScope.Declare(entry)
			if idd, ok := fd.Var.Data.(*ast.IdentifierData); ok {
				idd.Symbol = entry
			}
			fd.Var.ResolvedType = fd.Start.ResolvedType
		}
	}
	c.compileAsBlockOrStmt(f, fd.Body, loopScope, rs)
}

func (c *Compiler) sequenceElementType(seq types.ID) types.ID {
	t := c.tb().Get(seq)
	if t == nil || t.Tag != types.TagArray {
		return c.specialType(types.SpecialErrorType)
	}
	return t.Array.Element
}

func (c *Compiler) compileVarDecl(f *Fiber, vd *ast.VarDeclData, scope *symtab.Scope) {
	var declared types.ID
	if vd.DeclType != nil {
		declared = c.resolveTypeExpr(f, vd.DeclType, scope)
	}
	if vd.Init != nil {
		c.compileExpr(f, vd.Init, scope)
		if vd.DeclType == nil {
			declared = vd.Init.ResolvedType
		} else if !c.weakConvert(declared, vd.Init.ResolvedType) {
			c.errorf(locOf(vd.Init), logger.MsgID_Sema_TypeMismatch,
				"cannot assign "+c.tb().String(vd.Init.ResolvedType)+" to "+c.tb().String(declared))
		}
	}
	name := fieldIdentifierName(vd.Name)
	entry := &symtab.Entry{
		Name: name, Kind: symtab.KindVariable, VarType: declared,
		Compiletime: vd.Kind == ast.VarLet, Reference: vd.Kind == ast.VarRef, DeclaringAST: vd.Name,
	}
	if err := scope.Declare(entry); err != nil {
		c.errorf(locOf(vd.Name), logger.MsgID_Sema_Redeclaration, err.Error())
		return
	}
	if vd.Name != nil {
		if idd, ok := vd.Name.Data.(*ast.IdentifierData); ok {
			idd.Symbol = entry
		}
		vd.Name.ResolvedType = declared
	}
}

func (c *Compiler) compileReturn(f *Fiber, n *ast.Node, exprs []*ast.Node, scope *symtab.Scope, rs *entryReturnState) {
	for _, e := range exprs {
		c.compileExpr(f, e, scope)
	}
	if rs == nil {
		return
	}
	if len(exprs) != len(rs.returns) && !(rs.inferring && !rs.patched) {
		c.errorf(locOf(n), logger.MsgID_Sema_DestructureCountMismatch, "return arity does not match declared returns")
		return
	}
	if rs.inferring && !rs.patched {
		newReturns := make([]types.Return, len(exprs))
		for i, e := range exprs {
			newReturns[i] = types.Return{Type: e.ResolvedType}
		}
		rs.returns = newReturns
		rs.patched = true
		return
	}
	for i, e := range exprs {
		if i >= len(rs.returns) {
			break
		}
		if !c.weakConvert(rs.returns[i].Type, e.ResolvedType) {
			c.errorf(locOf(e), logger.MsgID_Sema_TypeMismatch,
				"cannot return "+c.tb().String(e.ResolvedType)+" as "+c.tb().String(rs.returns[i].Type))
		}
	}
}

func hasErrorChannel(returns []types.Return, tb *types.Table) bool {
	for _, r := range returns {
		if tb.IsError(r.Type) {
			return true
		}
	}
	return false
}
