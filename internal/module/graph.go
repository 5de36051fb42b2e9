package module

import "github.com/nn-lang/nnc/internal/logger"

// DependencyOrder returns every module reachable from entry in dependency-
// first order: a module never appears before one of its own imports unless
// doing so would require breaking a cycle. spec.md's only hard ordering
// requirement is that a module's semantic phase waits for its direct
// imports' parse phase (§5), which Load already guarantees by parsing the
// whole graph before returning; this ordering exists for callers (cmd/nnc)
// that want to run internal/sema over the graph in a sensible sequence.
//
// Cycles are diagnosed once per back edge and broken by visiting the
// cycle-closing module in whatever position the DFS first reaches it.
func (r *Registry) DependencyOrder(entry *Module) []*Module {
	var order []*Module
	visited := map[*Module]bool{}
	onStack := map[*Module]bool{}

	var visit func(m *Module)
	visit = func(m *Module) {
		if visited[m] {
			return
		}
		if onStack[m] {
			r.sess.Log.AddID(logger.MsgID_Module_CircularImport, nil, logger.Loc{Start: -1},
				"import cycle involving \""+m.Path+"\"")
			return
		}
		onStack[m] = true
		for _, dep := range m.Dependencies {
			visit(dep)
		}
		onStack[m] = false
		visited[m] = true
		order = append(order, m)
	}

	visit(entry)
	return order
}
