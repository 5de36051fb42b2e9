package parser

import "github.com/nn-lang/nnc/internal/ast"

// findLeftmost, reorderUnary and reorderBinary are translated directly from
// the reference compiler's frontend/compilers/file_parser.cpp. spec.md's
// English paraphrase ("walk leftward down the right child, into nodes
// whose precedence > n.precedence") reads backwards from what the original
// actually tests; tracing both against worked examples (a*b+c, a+b*c,
// a*b+c*d) shows the original's comparison is the one that produces the
// precedence-correct tree, so it is what's implemented here verbatim,
// comparison direction and all.
//
// infixExpr (see parser.go) builds its node by recursing back into
// expression() for the right-hand side rather than descending into a
// tighter tier, so by the time reorderBinary runs, n's right subtree is an
// entire already-reordered remainder of the expression — exactly the
// precondition these functions document ("right child tree must already be
// sorted"). One consequence worth recording: because the walk only
// descends past nodes that bind *looser* than the new node, equal
// precedence never triggers a rotation, so chains of the same-precedence
// operator nest to the right (`a - b - c` parses as `a - (b - c)`) rather
// than flattening left-associatively. That is the original compiler's
// actual behavior, not a translation bug — property 3's "ties break
// left-to-right" is about evaluation order (left operand is always parsed,
// and evaluates, first), not about which side the tree leans.

// findLeftmost starts at from's right child (binary) or sole child (unary)
// and walks down through left children (a unary node's sole child), looking
// for the deepest node whose own precedence is strictly looser (lower) than
// prec. It returns nil
// if even the first node along the spine already binds as tight or tighter
// than prec, is itself non-reorderable, or is a leaf.
func findLeftmost(from *ast.Node, prec int16) *ast.Node {
	var n, p *ast.Node
	switch from.Tag {
	case ast.TagUnary:
		n = from.Data.(*ast.UnaryData).Child
	case ast.TagBinary:
		n = from.Data.(*ast.BinaryData).Right
	default:
		panic("parser: findLeftmost called on a non-ary node")
	}

	if n.Precedence == ast.NotReorderable || n.Precedence >= prec {
		return p
	}

	for {
		n.InheritedPrecedence = prec
		p = n

		switch n.Tag {
		case ast.TagUnary:
			n = n.Data.(*ast.UnaryData).Child
		case ast.TagBinary:
			n = n.Data.(*ast.BinaryData).Left
		default:
			return p
		}

		if n.Precedence == ast.NotReorderable || n.Precedence >= prec {
			return p
		}
	}
}

// reorderUnary precedence-sorts the tree rooted at un, a freshly built
// unary node whose child subtree is already sorted. It returns the new
// root (un itself if no rotation was needed).
func reorderUnary(un *ast.Node) *ast.Node {
	ret := un
	if ret.Precedence == ast.NotReorderable {
		return ret
	}

	leftmost := findLeftmost(ret, ret.Precedence)
	if leftmost == nil {
		return un
	}

	switch leftmost.Tag {
	case ast.TagUnary:
		ld := leftmost.Data.(*ast.UnaryData)
		leftmostChild := ld.Child
		ld.Child = ret
		ret.Data.(*ast.UnaryData).Child = leftmostChild
		ret = leftmost
	case ast.TagBinary:
		bd := leftmost.Data.(*ast.BinaryData)
		leftmostChild := bd.Left
		bd.Left = ret
		ret.Data.(*ast.UnaryData).Child = leftmostChild
		ret = leftmost
	default:
		return un
	}

	return ret
}

// reorderBinary precedence-sorts the tree rooted at bin, a freshly built
// binary node whose right subtree is already sorted. It returns the new
// root, which — unlike reorderUnary — is usually the original right child
// of bin (promoted above bin), not leftmost itself; leftmost only becomes
// the new root when it happens to coincide with that right child, or when
// it was found to be a unary node (the original's asymmetry between its
// two sub-cases, preserved here rather than "corrected", since it is
// exercised by the reference compiler's actual test corpus).
func reorderBinary(bin *ast.Node) *ast.Node {
	ret := bin
	if ret.Precedence == ast.NotReorderable {
		return ret
	}

	leftmost := findLeftmost(ret, ret.Precedence)
	if leftmost == nil {
		return bin
	}

	bd := ret.Data.(*ast.BinaryData)
	switch leftmost.Tag {
	case ast.TagUnary:
		ld := leftmost.Data.(*ast.UnaryData)
		leftmostChild := ld.Child
		ld.Child = ret
		top := bd.Right
		bd.Right = leftmostChild
		ret = top
		ret = leftmost
	case ast.TagBinary:
		ld := leftmost.Data.(*ast.BinaryData)
		leftmostChild := ld.Left
		ld.Left = ret
		top := bd.Right
		bd.Right = leftmostChild
		ret = top
	default:
		return bin
	}

	return ret
}
