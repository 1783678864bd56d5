package fieldoffsets

import (
	"reflect"

	"github.com/wippyai/fieldoffsets/errors"
)

// Of builds the offsets table of a struct by reflection. v may be a struct
// value, a pointer to a struct, or a reflect.Type of either. The result matches
// what the generated FieldOffsets method returns for the same type.
func Of(v any) (Table, error) {
	typ, err := structType(v)
	if err != nil {
		return nil, err
	}

	table := make(Table, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Name == "_" {
			return nil, errors.UnnamedField(errors.PhaseInspect, typeName(typ), i, f.Type.String())
		}
		table = append(table, Field{Name: f.Name, Offset: f.Offset})
	}
	return table, nil
}

// MustOf is like Of but panics on error. Intended for package-level tables.
func MustOf(v any) Table {
	t, err := Of(v)
	if err != nil {
		panic(err)
	}
	return t
}

func structType(v any) (reflect.Type, error) {
	if v == nil {
		return nil, errors.NilPointer(errors.PhaseInspect, nil, "nil")
	}

	typ, ok := v.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(v)
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errors.NotStruct(errors.PhaseInspect, typeName(typ), KindName(typ.Kind(), typ.Name() != ""))
	}
	return typ, nil
}

// KindName describes a non-struct kind the way rejection errors report it.
// named reports whether the type is a defined type rather than a literal.
func KindName(k reflect.Kind, named bool) string {
	switch k {
	case reflect.Interface:
		return "interface"
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		if named {
			return "named basic type"
		}
		return "basic type"
	case reflect.Pointer, reflect.UnsafePointer:
		return "pointer"
	case reflect.Func:
		return "func"
	default:
		return k.String()
	}
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
