package witabi

import (
	"reflect"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/fieldoffsets"
	"github.com/wippyai/fieldoffsets/errors"
)

// GoField describes one field of a Go struct for layout checks.
type GoField struct {
	Name   string
	Tag    string // value of the wit struct tag, if any
	Offset uint64
	Size   uint64
	Kind   reflect.Kind // reflect.Invalid skips the type check
}

// Check compares an offsets table with the Canonical ABI layout of rec.
// Every record field must match a Go field at the same offset, and every Go
// field must match a record field. Sizes are not known from a table; use
// CheckValue or CheckLayout to compare them as well.
func Check(got fieldoffsets.Table, rec *wit.TypeDef) error {
	fields := make([]GoField, len(got))
	for i, f := range got {
		fields[i] = GoField{Name: f.Name, Offset: uint64(f.Offset)}
	}
	_, err := check(recordName(rec), fields, 0, false, rec)
	return err
}

// CheckLayout compares fields, and the total size of their struct, with the
// Canonical ABI layout of rec. Field differences are reported as one
// *errors.LayoutError. When the fields all agree and only the total size
// differs, the error is a KindSizeMismatch *errors.Error instead.
// Fields tagged wit:"-" are left out of the comparison.
func CheckLayout(typeName string, fields []GoField, size uint64, rec *wit.TypeDef) error {
	_, err := check(typeName, fields, size, true, rec)
	return err
}

// CheckValue checks the struct type of v against rec. v may be a struct
// value, a pointer to a struct, or a reflect.Type of either. Go fields are
// matched by wit tag before name.
func CheckValue(v any, rec *wit.TypeDef) error {
	_, err := checkValue(v, rec)
	return err
}

func checkValue(v any, rec *wit.TypeDef) (Layout, error) {
	typ, err := structType(v)
	if err != nil {
		return Layout{}, err
	}
	if _, err := fieldoffsets.Of(typ); err != nil {
		return Layout{}, err
	}

	fields := make([]GoField, typ.NumField())
	for i := range fields {
		f := typ.Field(i)
		fields[i] = GoField{
			Name:   f.Name,
			Tag:    f.Tag.Get("wit"),
			Offset: uint64(f.Offset),
			Size:   uint64(f.Type.Size()),
			Kind:   f.Type.Kind(),
		}
	}
	return check(typ.Name(), fields, uint64(typ.Size()), true, rec)
}

func check(typeName string, fields []GoField, size uint64, sized bool, rec *wit.TypeDef) (Layout, error) {
	if rec == nil {
		return Layout{}, errors.NilPointer(errors.PhaseCheck, nil, "*wit.TypeDef")
	}
	if _, ok := rec.Kind.(*wit.Record); !ok {
		return Layout{}, errors.Unsupported(errors.PhaseCheck, recordName(rec)+" is a "+kindName(rec.Kind)+", not a record")
	}

	layout := NewCalculator().Calculate(rec)
	if typeName == "" {
		typeName = recordName(rec)
	}
	le := &errors.LayoutError{Phase: errors.PhaseCheck, Type: typeName}

	match := matchFields(fields, layout.Fields)
	used := make([]bool, len(fields))
	for i, fl := range layout.Fields {
		j := match[i]
		if j < 0 {
			le.Add(fl.Name, "missing", nil, nil)
			continue
		}
		used[j] = true
		gf := fields[j]

		if gf.Offset != uint64(fl.Offset) {
			le.Add(fl.Name, "offset", gf.Offset, fl.Offset)
		}
		if sized && gf.Size != uint64(fl.Size) {
			le.Add(fl.Name, "size", gf.Size, fl.Size)
		}
		if gf.Kind != reflect.Invalid && !compatible(gf.Kind, fl.Type) {
			le.Add(fl.Name, "type", gf.Kind, TypeString(fl.Type))
		}
	}
	for j, gf := range fields {
		if !used[j] && gf.Tag != "-" {
			le.Add(gf.Name, "extra", nil, nil)
		}
	}
	if sized && size != uint64(layout.Size) {
		if len(le.Mismatches) == 0 {
			// Every field lines up; only the trailing padding differs.
			return layout, errors.New(errors.PhaseCheck, errors.KindSizeMismatch).
				Path(typeName).
				WitType(recordName(rec)).
				Value(size).
				Detail("size got %d, want %d", size, layout.Size).
				Build()
		}
		le.Add("(record)", "size", size, layout.Size)
	}

	if err := le.Err(); err != nil {
		Logger().Debug("layout check failed",
			zap.String("type", typeName),
			zap.String("record", recordName(rec)),
			zap.Int("mismatches", len(le.Mismatches)))
		return layout, err
	}
	return layout, nil
}

// matchFields returns, for each record field, the index of the Go field it
// maps to or -1. Matching tries the wit tag, then the exact name, then a
// case-insensitive name, then the kebab-case form of the Go name. A Go field
// tagged "-" never matches.
func matchFields(fields []GoField, record []FieldLayout) []int {
	out := make([]int, len(record))
	for i := range out {
		out[i] = -1
	}
	used := make([]bool, len(fields))

	rules := []func(gf GoField, witName string) bool{
		func(gf GoField, witName string) bool { return gf.Tag == witName },
		func(gf GoField, witName string) bool { return gf.Tag == "" && gf.Name == witName },
		func(gf GoField, witName string) bool { return gf.Tag == "" && strings.EqualFold(gf.Name, witName) },
		func(gf GoField, witName string) bool { return gf.Tag == "" && KebabCase(gf.Name) == witName },
	}
	for _, rule := range rules {
		for i, fl := range record {
			if out[i] >= 0 {
				continue
			}
			for j, gf := range fields {
				if used[j] || gf.Tag == "-" || !rule(gf, fl.Name) {
					continue
				}
				out[i] = j
				used[j] = true
				break
			}
		}
	}
	return out
}

// compatible reports whether a Go field of kind k can hold a primitive WIT
// value. Non-primitive WIT types are only checked by size.
func compatible(k reflect.Kind, t wit.Type) bool {
	switch t.(type) {
	case wit.Bool:
		return k == reflect.Bool
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.U64, wit.S64:
		return isInteger(k)
	case wit.F32:
		return k == reflect.Float32
	case wit.F64:
		return k == reflect.Float64
	case wit.Char:
		return k == reflect.Int32 || k == reflect.Uint32
	}
	return true
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// TypeString renders t in WIT syntax
func TypeString(t wit.Type) string {
	switch typ := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if typ.Name != nil {
			return *typ.Name
		}
		switch kind := typ.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(kind.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(kind.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(kind.Types))
			for i, e := range kind.Types {
				parts[i] = TypeString(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		case *wit.Result:
			switch {
			case kind.OK == nil && kind.Err == nil:
				return "result"
			case kind.Err == nil:
				return "result<" + TypeString(kind.OK) + ">"
			}
			return "result<" + TypeString(kind.OK) + ", " + TypeString(kind.Err) + ">"
		case *wit.Own:
			return "own"
		case *wit.Borrow:
			return "borrow"
		case wit.Type:
			return TypeString(kind)
		}
		return kindName(typ.Kind)
	}
	return "unknown"
}

func recordName(rec *wit.TypeDef) string {
	if rec == nil || rec.Name == nil {
		return "record"
	}
	return *rec.Name
}

func structType(v any) (reflect.Type, error) {
	if v == nil {
		return nil, errors.NilPointer(errors.PhaseCheck, nil, "nil")
	}
	typ, ok := v.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(v)
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errors.NotStruct(errors.PhaseCheck, typ.String(), fieldoffsets.KindName(typ.Kind(), typ.Name() != ""))
	}
	return typ, nil
}

// KebabCase converts a Go identifier to the WIT name it matches, MaxSize to max-size
func KebabCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteByte('-')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
