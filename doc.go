// Package fieldoffsets reports the byte offset of every named field of a struct.
//
// The offsets are produced by a go generate tool that attaches a method to each
// selected struct type. The method returns a fixed-length array of (name, offset)
// pairs in declaration order, with every offset taken from unsafe.Offsetof, so the
// numbers are the ones the compiler laid out and never a reimplementation of them.
//
// # Architecture Overview
//
//	fieldoffsets/        Runtime support: Field, Table, Of, Compare
//	├── cmd/fieldoffsets Generator CLI (generate, inspect, check)
//	├── generator/       Package loading, declaration analysis, source emission
//	├── witabi/          Canonical ABI layouts and guest memory copies for FFI checks
//	├── errors/          Structured error types
//	└── examples/ffi/    A generated table asserted against its expected offsets
//
// # Quick Start
//
// Mark the declaration and run go generate:
//
//	//go:generate go run github.com/wippyai/fieldoffsets/cmd/fieldoffsets -type=Data
//
//	type Data struct {
//	    x     int32
//	    y     int32
//	    label [8]byte
//	}
//
// Or use the directive form and omit -type:
//
//	//fieldoffsets:generate
//	type Data struct { ... }
//
// Consume the table:
//
//	for _, f := range Data{}.FieldOffsets() {
//	    fmt.Printf("field %s offset is %d.\n", f.Name, f.Offset)
//	}
//	// field x offset is 0.
//	// field y offset is 4.
//	// field label offset is 8.
//
// # Supported Declarations
//
// Only struct types with named fields are accepted. Interfaces and type-set
// constraints, named basic types used as enumerations, aliases, and structs
// containing blank (_) fields are rejected at generation time. Embedded fields
// are reported under their field name. Generic structs get a method on the
// parameterized receiver.
//
// # FFI Checks
//
// Compare asserts that two tables agree, and Of builds a table by reflection
// for types that were not generated. The witabi package compares a table with
// the canonical ABI layout of a WIT record.
package fieldoffsets
