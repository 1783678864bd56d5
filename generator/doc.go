// Package generator implements the declaration-time transformer behind the
// fieldoffsets command.
//
// A run has three steps:
//
//  1. Load    - type-check the target packages with golang.org/x/tools/go/packages
//  2. Inspect - select struct declarations and reject shapes that have no
//     per-field offsets (non-structs, aliases, blank fields)
//  3. Render  - emit one gofmt'ed file per package with a method per struct
//
// The emitted method never contains a number. Each entry is
//
//	{Name: "x", Offset: unsafe.Offsetof(Data{}.x)}
//
// so the table always reflects the layout chosen by the compiler that builds it,
// for whatever GOARCH it targets.
//
// # Selecting types
//
// Types are named explicitly (Options.Types) or marked in source:
//
//	//fieldoffsets:generate
//	type Header struct { ... }
//
// Explicit names win; directives are only consulted when no names are given.
package generator
