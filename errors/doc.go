// Package errors provides structured error types for the port-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, Go type name,
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSerialize, errors.KindUnclonable).
//		Path("payload", "callback").
//		GoType("func()").
//		Detail("functions cannot be cloned").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SelfTransfer()
//	err := errors.Detached(errors.PhaseTransfer, "buffer")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
