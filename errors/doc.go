// Package errors provides structured error types for fieldoffsets.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending type and field as a path, the Go and WIT
// type names involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInspect, errors.KindUnnamedField).
//		Path("Data", "_").
//		GoType("int32").
//		Detail("blank fields have no offset").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotStruct(errors.PhaseInspect, "Color", "named basic type")
//	err := errors.NotFound(errors.PhaseParse, "record", "point")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
