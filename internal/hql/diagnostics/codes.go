package diagnostics

// Code is a stable identifier for a diagnostic, grouped by the pipeline
// stage that raises it (LEX-*, PARSE-*, TRANSFORM-*, IMPORT-*, MACRO-*,
// CODEGEN-*), following the same shouting-kebab convention the teacher
// compiler uses for its own diagnostic codes.
type Code string

const (
	// Lexer
	CodeLexUnterminatedString Code = "LEX-UNTERMINATED-STRING"
	CodeLexUnterminatedEscape Code = "LEX-UNTERMINATED-ESCAPE"

	// Parser
	CodeParseUnclosedList  Code = "PARSE-UNCLOSED-LIST"
	CodeParseUnexpectedRP  Code = "PARSE-UNEXPECTED-RPAREN"
	CodeParseUnexpectedEOF Code = "PARSE-UNEXPECTED-EOF"

	// Syntax transform / HQL-AST lowering
	CodeTransformUnknownForm Code = "TRANSFORM-UNKNOWN-FORM"
	CodeTransformBadShape    Code = "TRANSFORM-BAD-SHAPE"

	// Import resolution
	CodeImportNotFound Code = "IMPORT-NOT-FOUND"
	CodeImportCycle    Code = "IMPORT-CYCLE"

	// Macro system
	CodeMacroEmptyName     Code = "MACRO-EMPTY-NAME"
	CodeMacroBadName       Code = "MACRO-BAD-NAME"
	CodeMacroBadParams     Code = "MACRO-BAD-PARAMS"
	CodeMacroArity         Code = "MACRO-ARITY"
	CodeMacroUndefined     Code = "MACRO-UNDEFINED"
	CodeMacroNotExported   Code = "MACRO-NOT-EXPORTED"
	CodeMacroUnquoteScope  Code = "MACRO-UNQUOTE-OUTSIDE-QUASIQUOTE"
	CodeMacroCondShape     Code = "MACRO-COND-SHAPE"
	CodeMacroLetShape      Code = "MACRO-LET-SHAPE"
	CodeMacroDepthExceeded Code = "MACRO-DEPTH-EXCEEDED"
	CodeMacroSpliceNonList Code = "MACRO-SPLICE-NON-LIST"

	// IR / codegen
	CodeCodeGenBadNode   Code = "CODEGEN-BAD-NODE"
	CodeCodeGenOddKV     Code = "CODEGEN-ODD-KEY-VALUE"
	CodeCodeGenBadLet    Code = "CODEGEN-BAD-LET-BINDINGS"
	CodeCodeGenBadExport Code = "CODEGEN-BAD-EXPORT"
)
