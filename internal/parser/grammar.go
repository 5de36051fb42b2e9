package parser

// Precedence values from spec.md §4.2, high binds tightest. -1 marks a
// non-reorderable operator (dotted access).
const (
	precAs           int16 = 0x3F
	precPostUnary    int16 = 0x3F
	precPostcircum   int16 = 0x3F
	precGenericIndex int16 = 0x3D
	precSpread       int16 = 0x3E
	precPrefix       int16 = 0x3C
	precMulDivModulo int16 = 0x3B
	precAddSub       int16 = 0x3A
	precShift        int16 = 0x39
	precBitOp        int16 = 0x38
	precBitAnd       int16 = 0x37
	precBitOr        int16 = 0x36
	precBitXor       int16 = 0x35
	precCompare      int16 = 0x34
	precEquality     int16 = 0x33
	precLAnd         int16 = 0x32
	precLOr          int16 = 0x31
	precTernary      int16 = 0x30
	precDot          int16 = -1
)

// infixPrecedence maps every binary operator spelling to its precedence.
// Order within a tier does not matter; tiers match spec.md's table exactly.
// spec.md groups "++" into this tier as the string-concatenation operator,
// but the reference compiler's grammar table gives concatenation (CONCAT) a
// token distinct from increment/decrement (INCREMENT/DECREMENT, used as
// both a prefix and a postOps postfix operator below) — the two can't
// share a spelling without making "x++" ambiguous between "x" concatenated
// with a following unary-plus operand and post-increment of x. Concat is
// spelled ".." here to keep both readable without that clash.
var infixPrecedence = map[string]int16{
	"as": precAs,

	"*": precMulDivModulo, "/": precMulDivModulo, "//": precMulDivModulo, "%": precMulDivModulo,

	"+": precAddSub, "-": precAddSub, "..": precAddSub,

	"<<": precShift, ">>": precShift, "<<>": precShift, "<>>": precShift,

	"<|": precBitOp, "&~": precBitOp, "<^>": precBitOp, "?|": precBitOp,

	"&": precBitAnd,
	"|": precBitOr,
	"^": precBitXor,

	"<": precCompare, "<=": precCompare, ">": precCompare, ">=": precCompare,

	"==": precEquality, "!=": precEquality,

	"&&": precLAnd,
	"||": precLOr,
}

// prefixOps are unary operators recognized before a primary expression.
// ++/-- double as both prefix and postfix (postOps below); the reference
// compiler keeps them as one token kind used in both positions, distinct
// from ".." string concatenation's own infix-only token.
var prefixOps = map[string]bool{
	"-": true, "!": true, "~": true, "*": true, "&": true, "...": true, "new": true,
	"++": true, "--": true,
}

// spreadOp gets the higher 0x3E precedence instead of the normal 0x3C.
const spreadOp = "..."

// postOps are unary operators recognized after a primary expression.
var postOps = map[string]bool{
	"++": true, "--": true,
}

// keywords is the promotion table spec.md §4.1 describes: the lexer emits
// IDENTIFIER for anything byte-shaped like a name, and the parser's peek
// promotes a subset of those spellings to KEYWORD lazily, only when used in
// keyword position (a bare identifier named "if" used as a variable name
// elsewhere never gets promoted, since peekKeyword only fires at statement
// start).
var keywords = map[string]bool{
	"import": true, "using": true, "namespace": true,
	"struct": true, "union": true, "enum": true, "tuple": true,
	"fn": true, "def": true, "var": true, "let": true, "ref": true,
	"if": true, "else": true, "for": true, "in": true, "while": true, "loop": true,
	"switch": true, "case": true, "continue": true,
	"try": true, "catch": true, "return": true, "raise": true,
	"goto": true, "label": true, "break": true, "defer": true,
	"delete": true, "new": true, "this": true, "infer": true,
	"true": true, "false": true, "null": true,
}

