package fieldoffsets

import (
	"fmt"
	"strings"
)

// Field is the byte offset of one named field from the start of its struct.
type Field struct {
	Name   string
	Offset uintptr
}

func (f Field) String() string {
	return fmt.Sprintf("%s@%d", f.Name, f.Offset)
}

// Table is an ordered view over a generated offsets array:
//
//	t := fieldoffsets.Table(Data{}.FieldOffsets()[:])
type Table []Field

// Lookup returns the offset of the named field
func (t Table) Lookup(name string) (uintptr, bool) {
	for _, f := range t {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

// Names returns the field names in declaration order
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, f := range t {
		names[i] = f.Name
	}
	return names
}

func (t Table) String() string {
	parts := make([]string, len(t))
	for i, f := range t {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
