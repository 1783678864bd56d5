package witabi

import (
	"go.bytecodealliance.org/wit"
)

// Layout is the Canonical ABI size and alignment of a WIT type.
// Fields is set for records only, in declaration order.
type Layout struct {
	Size   uint32
	Align  uint32
	Fields []FieldLayout
}

// FieldLayout places one record field.
type FieldLayout struct {
	Name   string
	Type   wit.Type
	Offset uint32
	Size   uint32
	Align  uint32
}

// Field returns the layout of the named record field
func (l Layout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// Calculator computes Canonical ABI layouts, caching type definitions.
// A Calculator is not safe for concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Layout
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Layout),
	}
}

// Calculate returns the layout of t
func (c *Calculator) Calculate(t wit.Type) Layout {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Layout{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Layout{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Layout{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Layout{Size: 8, Align: 8}
	case wit.String:
		return Layout{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Layout{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Layout {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var l Layout

	switch kind := t.Kind.(type) {
	case *wit.Record:
		l = c.calculateRecord(kind)
	case *wit.Variant:
		l = c.calculateVariant(kind)
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		l = Layout{Size: size, Align: size}
	case *wit.List:
		l = Layout{Size: 8, Align: 4}
	case *wit.Option:
		l = c.calculatePayload(1, kind.Type)
	case *wit.Result:
		l = c.calculatePayload(1, kind.OK, kind.Err)
	case *wit.Tuple:
		l = c.calculateTuple(kind)
	case *wit.Flags:
		l = calculateFlags(len(kind.Flags))
	case *wit.Own, *wit.Borrow:
		l = Layout{Size: 4, Align: 4}
	case wit.Type:
		l = c.Calculate(kind)
	default:
		l = Layout{Size: 0, Align: 1}
	}

	c.cache[t] = l
	return l
}

func (c *Calculator) calculateRecord(r *wit.Record) Layout {
	if len(r.Fields) == 0 {
		return Layout{Size: 0, Align: 1}
	}

	fields := make([]FieldLayout, 0, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fl := c.Calculate(field.Type)

		offset = alignTo(offset, fl.Align)
		fields = append(fields, FieldLayout{
			Name:   field.Name,
			Type:   field.Type,
			Offset: offset,
			Size:   fl.Size,
			Align:  fl.Align,
		})

		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Layout{
		Size:   alignTo(offset, maxAlign),
		Align:  maxAlign,
		Fields: fields,
	}
}

func (c *Calculator) calculateVariant(v *wit.Variant) Layout {
	if len(v.Cases) == 0 {
		return Layout{Size: 0, Align: 1}
	}

	cases := make([]wit.Type, len(v.Cases))
	for i, cs := range v.Cases {
		cases[i] = cs.Type
	}
	return c.calculatePayload(discriminantSize(len(v.Cases)), cases...)
}

// calculatePayload lays out a discriminant of discSize bytes followed by the
// largest of the case payloads. nil cases carry no payload.
func (c *Calculator) calculatePayload(discSize uint32, cases ...wit.Type) Layout {
	maxAlign := discSize
	maxSize := uint32(0)

	for _, typ := range cases {
		if typ == nil {
			continue
		}
		l := c.Calculate(typ)
		if l.Align > maxAlign {
			maxAlign = l.Align
		}
		if l.Size > maxSize {
			maxSize = l.Size
		}
	}

	payloadOffset := alignTo(discSize, maxAlign)
	return Layout{
		Size:  alignTo(payloadOffset+maxSize, maxAlign),
		Align: maxAlign,
	}
}

func (c *Calculator) calculateTuple(t *wit.Tuple) Layout {
	if len(t.Types) == 0 {
		return Layout{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, typ := range t.Types {
		l := c.Calculate(typ)
		offset = alignTo(offset, l.Align)
		if l.Align > maxAlign {
			maxAlign = l.Align
		}
		offset += l.Size
	}

	return Layout{
		Size:  alignTo(offset, maxAlign),
		Align: maxAlign,
	}
}

func calculateFlags(n int) Layout {
	switch {
	case n == 0:
		return Layout{Size: 0, Align: 1}
	case n <= 8:
		return Layout{Size: 1, Align: 1}
	case n <= 16:
		return Layout{Size: 2, Align: 2}
	case n <= 32:
		return Layout{Size: 4, Align: 4}
	}
	// more than 32 flags are stored as consecutive u32 words
	return Layout{Size: uint32((n + 31) / 32 * 4), Align: 4}
}

// discriminantSize returns the byte size of a discriminant for n cases
func discriminantSize(n int) uint32 {
	if n <= 256 {
		return 1
	}
	if n <= 65536 {
		return 2
	}
	return 4
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
