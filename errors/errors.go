package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // package loading
	PhaseInspect Phase = "inspect" // declaration analysis
	PhaseRender  Phase = "render"  // source emission
	PhaseWrite   Phase = "write"   // output file
	PhaseCompare Phase = "compare" // offset table comparison
	PhaseParse   Phase = "parse"   // WIT parsing
	PhaseCheck   Phase = "check"   // Go vs WIT layout checks
	PhaseMemory  Phase = "memory"  // guest memory access
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindUnnamedField   Kind = "unnamed_field"
	KindConflict       Kind = "conflict"
	KindLayoutMismatch Kind = "layout_mismatch"
	KindSizeMismatch   Kind = "size_mismatch"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNilPointer     Kind = "nil_pointer"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	WitType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WitType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WitType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WitType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Empty Phase or Kind fields
// of the target match any value.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || t.Phase == e.Phase) && (t.Kind == "" || t.Kind == e.Kind)
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the type/field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotStruct rejects a type whose underlying type is not a struct.
// kind describes what was found instead, e.g. "interface" or "named basic type".
func NotStruct(phase Phase, typeName, kind string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   []string{typeName},
		Detail: fmt.Sprintf("only struct types are supported, found %s", kind),
	}
}

// UnnamedField rejects a blank field, which has no name to report and no offset
// that unsafe.Offsetof can address.
func UnnamedField(phase Phase, typeName string, index int, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnnamedField,
		Path:   []string{typeName, "_"},
		GoType: goType,
		Detail: fmt.Sprintf("field %d is blank; only named fields are supported", index),
		Value:  index,
	}
}

// Conflict reports a generated identifier that collides with an existing one
func Conflict(phase Phase, typeName, name, existing string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConflict,
		Path:   []string{typeName, name},
		Detail: fmt.Sprintf("%s already declares %s %q", typeName, existing, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) out of bounds (memory size %d)", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Mismatch is a single field whose reported layout differs from the expected one
type Mismatch struct {
	Field string
	What  string // offset, size, type, order, missing or extra
	Got   string
	Want  string
}

// LayoutError is returned when two layouts of the same type disagree
type LayoutError struct {
	Phase      Phase
	Type       string
	Mismatches []Mismatch
}

// Add appends a mismatch
func (e *LayoutError) Add(field, what string, got, want any) {
	e.Mismatches = append(e.Mismatches, Mismatch{
		Field: field,
		What:  what,
		Got:   fmt.Sprint(got),
		Want:  fmt.Sprint(want),
	})
}

// Err returns e if it holds any mismatch, nil otherwise
func (e *LayoutError) Err() error {
	if len(e.Mismatches) == 0 {
		return nil
	}
	return e
}

func (e *LayoutError) Error() string {
	if len(e.Mismatches) == 0 {
		return fmt.Sprintf("[%s] layout_mismatch at %s: no mismatches recorded", e.Phase, e.Type)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] layout_mismatch at %s: %d field(s) differ:", e.Phase, e.Type, len(e.Mismatches))

	for _, m := range e.Mismatches {
		b.WriteString("\n  - ")
		b.WriteString(m.Field)
		b.WriteString(": ")
		b.WriteString(m.What)
		switch m.What {
		case "missing", "extra":
		default:
			b.WriteString(" got ")
			b.WriteString(m.Got)
			b.WriteString(", want ")
			b.WriteString(m.Want)
		}
	}

	return b.String()
}

// Is reports whether target matches this error type. A *Error target matches
// when its Phase and Kind are empty or name this phase and KindLayoutMismatch.
func (e *LayoutError) Is(target error) bool {
	switch t := target.(type) {
	case *LayoutError:
		return true
	case *Error:
		return (t.Kind == "" || t.Kind == KindLayoutMismatch) && (t.Phase == "" || t.Phase == e.Phase)
	}
	return false
}
