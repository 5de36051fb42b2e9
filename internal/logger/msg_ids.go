package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors do not get a message ID because you
// cannot turn errors into non-errors (otherwise the build would incorrectly
// succeed). Some internal log messages do not get a message ID because they
// are part of verbose and/or internal debugging output. These messages use
// "MsgID_None" instead.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Lexical analysis
	MsgID_Lex_InvalidByteSequence
	MsgID_Lex_UnterminatedString
	MsgID_Lex_UnterminatedComment
	MsgID_Lex_MalformedNumber

	// Syntactic analysis
	MsgID_Parse_UnexpectedToken
	MsgID_Parse_MissingRequired
	MsgID_Parse_SelfImport
	MsgID_Parse_TrailingOperator

	// Semantic analysis
	MsgID_Sema_UndeclaredIdentifier
	MsgID_Sema_TypeMismatch
	MsgID_Sema_AmbiguousOverload
	MsgID_Sema_Redeclaration
	MsgID_Sema_IllegalOperator
	MsgID_Sema_RaiseWithoutErrorChannel
	MsgID_Sema_CircularDependency
	MsgID_Sema_DestructureCountMismatch
	MsgID_Sema_UsingAmbiguity

	// Assembler
	MsgID_Asm_MalformedOperand
	MsgID_Asm_UnknownMnemonic
	MsgID_Asm_UnknownIdentifier
	MsgID_Asm_FormatMismatch

	// Module graph
	MsgID_Module_CircularImport

	MsgID_END
)

var msgIDNames = [MsgID_END]string{
	MsgID_None:                          "none",
	MsgID_Lex_InvalidByteSequence:       "lex-invalid-byte-sequence",
	MsgID_Lex_UnterminatedString:        "lex-unterminated-string",
	MsgID_Lex_UnterminatedComment:       "lex-unterminated-comment",
	MsgID_Lex_MalformedNumber:           "lex-malformed-number",
	MsgID_Parse_UnexpectedToken:         "parse-unexpected-token",
	MsgID_Parse_MissingRequired:         "parse-missing-required",
	MsgID_Parse_SelfImport:              "parse-self-import",
	MsgID_Parse_TrailingOperator:        "parse-trailing-operator",
	MsgID_Sema_UndeclaredIdentifier:     "sema-undeclared-identifier",
	MsgID_Sema_TypeMismatch:             "sema-type-mismatch",
	MsgID_Sema_AmbiguousOverload:        "sema-ambiguous-overload",
	MsgID_Sema_Redeclaration:            "sema-redeclaration",
	MsgID_Sema_IllegalOperator:          "sema-illegal-operator",
	MsgID_Sema_RaiseWithoutErrorChannel: "sema-raise-without-error-channel",
	MsgID_Sema_CircularDependency:       "sema-circular-dependency",
	MsgID_Sema_DestructureCountMismatch: "sema-destructure-count-mismatch",
	MsgID_Sema_UsingAmbiguity:           "sema-using-ambiguity",
	MsgID_Asm_MalformedOperand:          "asm-malformed-operand",
	MsgID_Asm_UnknownMnemonic:           "asm-unknown-mnemonic",
	MsgID_Asm_UnknownIdentifier:         "asm-unknown-identifier",
	MsgID_Asm_FormatMismatch:            "asm-format-mismatch",
	MsgID_Module_CircularImport:         "module-circular-import",
}

func StringToMsgID(str string) MsgID {
	for id, name := range msgIDNames {
		if name == str {
			return MsgID(id)
		}
	}
	return MsgID_None
}

func MsgIDToString(id MsgID) string {
	if id < MsgID_END {
		return msgIDNames[id]
	}
	return "none"
}
