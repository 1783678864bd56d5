package generator

import (
	"go/types"
	"reflect"

	"github.com/wippyai/fieldoffsets/errors"
)

// FieldLayout is a field's placement as go/types reports it for one GOARCH.
type FieldLayout struct {
	Name   string
	Type   string
	Offset int64
	Size   int64
	Align  int64
	Kind   reflect.Kind
}

// Layout asks go/types for the gc layout of s on goarch. The generated method
// stays authoritative; this is only a preview for inspect and check, which run
// without building the package. Generic structs have no layout until
// instantiated.
func (s *Struct) Layout(goarch string) ([]FieldLayout, int64, error) {
	if len(s.TypeParams) > 0 {
		return nil, 0, errors.New(errors.PhaseInspect, errors.KindUnsupported).
			Path(s.Name).
			Detail("generic struct has no layout until instantiated").
			Build()
	}
	sizes := types.SizesFor("gc", goarch)
	if sizes == nil {
		return nil, 0, errors.InvalidInput(errors.PhaseInspect, "unknown GOARCH "+goarch)
	}

	vars := make([]*types.Var, s.Underlying.NumFields())
	for i := range vars {
		vars[i] = s.Underlying.Field(i)
	}
	offsets := sizes.Offsetsof(vars)

	out := make([]FieldLayout, len(vars))
	for i, v := range vars {
		out[i] = FieldLayout{
			Name:   v.Name(),
			Type:   s.Fields[i].Type,
			Offset: offsets[i],
			Size:   sizes.Sizeof(v.Type()),
			Align:  sizes.Alignof(v.Type()),
			Kind:   kindOf(v.Type()),
		}
	}
	return out, sizes.Sizeof(s.Underlying), nil
}

var basicKinds = map[types.BasicKind]reflect.Kind{
	types.Bool:          reflect.Bool,
	types.Int:           reflect.Int,
	types.Int8:          reflect.Int8,
	types.Int16:         reflect.Int16,
	types.Int32:         reflect.Int32,
	types.Int64:         reflect.Int64,
	types.Uint:          reflect.Uint,
	types.Uint8:         reflect.Uint8,
	types.Uint16:        reflect.Uint16,
	types.Uint32:        reflect.Uint32,
	types.Uint64:        reflect.Uint64,
	types.Uintptr:       reflect.Uintptr,
	types.Float32:       reflect.Float32,
	types.Float64:       reflect.Float64,
	types.Complex64:     reflect.Complex64,
	types.Complex128:    reflect.Complex128,
	types.String:        reflect.String,
	types.UnsafePointer: reflect.UnsafePointer,
}

// kindOf maps a type to the reflect.Kind its values would have at run time
func kindOf(t types.Type) reflect.Kind {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return basicKinds[u.Kind()]
	case *types.Pointer:
		return reflect.Pointer
	case *types.Array:
		return reflect.Array
	case *types.Slice:
		return reflect.Slice
	case *types.Map:
		return reflect.Map
	case *types.Chan:
		return reflect.Chan
	case *types.Signature:
		return reflect.Func
	case *types.Interface:
		return reflect.Interface
	case *types.Struct:
		return reflect.Struct
	}
	return reflect.Invalid
}
