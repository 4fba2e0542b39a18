package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the instruction schema version.
	IRVersion = "1"

	// CompilerVersion is the construction compiler version.
	CompilerVersion = "0.1.0"
)
