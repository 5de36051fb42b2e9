package ir

import (
	"fmt"
	"strings"
)

// Dump renders fn as a flat, line-per-triple listing (one mnemonic plus its
// params per line, ids in brackets) used by --emit-ir and by this package's
// own tests to assert lowering shape without comparing Go struct literals.
func Dump(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s\n", fn.Name)
	for id, t := range fn.Triples {
		fmt.Fprintf(&b, "%4d: %s", id, t.Op)
		if t.Label != "" {
			fmt.Fprintf(&b, " %q", t.Label)
		}
		if t.P1.Kind != ParamNone {
			fmt.Fprintf(&b, " %s", dumpParam(t.P1))
		}
		if t.P2.Kind != ParamNone {
			fmt.Fprintf(&b, ", %s", dumpParam(t.P2))
		}
		if t.Next != InvalidID {
			fmt.Fprintf(&b, " next=%d", t.Next)
		}
		if t.Cond != InvalidID {
			fmt.Fprintf(&b, " cond=%d", t.Cond)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func dumpParam(p Param) string {
	switch p.Kind {
	case ParamTriple:
		return fmt.Sprintf("#%d", p.Triple)
	case ParamImmediate:
		return fmt.Sprintf("imm(%d)", p.Imm)
	case ParamSymbol:
		if p.Symbol != nil {
			return "sym(" + p.Symbol.Name + ")"
		}
		return "sym(?)"
	case ParamLiteral:
		return "lit"
	default:
		return "-"
	}
}
