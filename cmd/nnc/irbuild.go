package main

import (
	"github.com/nn-lang/nnc/internal/ast"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/ir"
	"github.com/nn-lang/nnc/internal/module"
	"github.com/nn-lang/nnc/internal/symtab"
	"github.com/nn-lang/nnc/internal/types"
)

// buildModuleIR lowers every function definition m's sema pass resolved to
// IR (internal/ir, spec.md §4.4). Forward declarations (no body) and
// functions sema never finished (no overload recorded, e.g. a redeclaration
// diagnostic) are skipped; their errors already reached the diagnostic log.
func buildModuleIR(sess *config.Session, m *module.Module) []*ir.Function {
	bd, ok := m.AST.Data.(*ast.BlockData)
	if !ok {
		return nil
	}

	var fns []*ir.Function
	for _, stmt := range bd.List {
		fd, ok := stmt.FuncDef()
		if !ok {
			continue
		}
		entry, ok := m.Scope.GetLocal(fd.Name)
		if !ok || entry.Kind != symtab.KindFunction || len(entry.Overloads) == 0 || entry.InnerScope == nil {
			continue
		}
		ov := entry.Overloads[0]
		body, ok := ov.Body.(*ast.Node)
		if !ok || body == nil {
			continue
		}
		sig := sess.Types.Get(ov.Signature)
		if sig == nil || sig.Tag != types.TagFunction {
			continue
		}

		var params []*symtab.Entry
		for _, p := range fd.Params {
			if pe, ok := entry.InnerScope.GetLocal(p.Name); ok {
				params = append(params, pe)
			}
		}
		var returns []types.ID
		for _, r := range sig.Function.Returns {
			returns = append(returns, r.Type)
		}

		fns = append(fns, ir.BuildFunction(sess, fd.Name, params, returns, body))
	}
	return fns
}
