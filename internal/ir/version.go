package ir

// Version constants for the persisted state and the compiler.
const (
	// SchemaVersion is the version of the on-disk store layout.
	SchemaVersion = 1

	// CompilerVersion is the nanoc compiler version. It participates in
	// action sequence checksums so a compiler upgrade recompiles everything.
	CompilerVersion = "0.1.0"
)
