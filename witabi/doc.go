// Package witabi checks Go struct layouts against WebAssembly Component
// Model records and copies checked structs in and out of guest memory.
//
// A Go struct can be handed to a guest as raw bytes only when every field
// sits where the Canonical ABI puts the matching record field. The offsets
// table produced by a generated FieldOffsets method (or by fieldoffsets.Of)
// is compared with the record layout computed here:
//
//	rec, _ := witabi.ParseRecord(`record point { x: s32, y: s32 }`)
//	err := witabi.Check(fieldoffsets.Table(Point{}.FieldOffsets()[:]), rec)
//
// # Layout Rules
//
// The calculator follows the Canonical ABI:
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: fields laid out sequentially with padding for alignment
//   - Variants, options and results: discriminant followed by the largest payload
//   - Lists and strings: (pointer, length) pair of u32
//   - Handles: a single u32
//
// # Field Matching
//
// Record fields are matched to Go fields by wit struct tag (CheckValue only),
// then by exact name, then case-insensitively, then by kebab-case conversion
// of the Go name.
//
// # Guest Memory
//
// Store and Load copy a struct byte for byte after CheckValue accepts it.
// Types holding Go pointers are refused, as are big-endian hosts.
package witabi
