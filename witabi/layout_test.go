package witabi

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestCalculatePrimitives(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S8{}, "s8", 1, 1},
		{wit.U16{}, "u16", 2, 2},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S32{}, "s32", 4, 4},
		{wit.U64{}, "u64", 8, 8},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
		{wit.String{}, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := c.Calculate(tc.typ)
			if l.Size != tc.size {
				t.Errorf("size: got %d, want %d", l.Size, tc.size)
			}
			if l.Align != tc.align {
				t.Errorf("align: got %d, want %d", l.Align, tc.align)
			}
		})
	}
}

func TestCalculateRecord(t *testing.T) {
	c := NewCalculator()

	t.Run("empty", func(t *testing.T) {
		l := c.Calculate(&wit.TypeDef{Kind: &wit.Record{}})
		if l.Size != 0 || l.Align != 1 {
			t.Errorf("got size %d align %d, want 0 and 1", l.Size, l.Align)
		}
	})

	t.Run("padding", func(t *testing.T) {
		rec := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: &wit.TypeDef{Kind: &wit.Option{Type: wit.U64{}}}},
			{Name: "c", Type: wit.U16{}},
		}}}
		l := c.Calculate(rec)
		if l.Size != 32 || l.Align != 8 {
			t.Errorf("got size %d align %d, want 32 and 8", l.Size, l.Align)
		}

		want := []uint32{0, 8, 24}
		for i, f := range l.Fields {
			if f.Offset != want[i] {
				t.Errorf("field %s offset: got %d, want %d", f.Name, f.Offset, want[i])
			}
		}
		if f, ok := l.Field("b"); !ok || f.Size != 16 || f.Align != 8 {
			t.Errorf("Field(b) = %+v, %v", f, ok)
		}
		if _, ok := l.Field("z"); ok {
			t.Error("Field(z) should not be found")
		}
	})

	t.Run("cached", func(t *testing.T) {
		rec := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{{Name: "x", Type: wit.U32{}}}}}
		first := c.Calculate(rec)
		second := c.Calculate(rec)
		if &first.Fields[0] != &second.Fields[0] {
			t.Error("expected cached layout to be reused")
		}
	})
}

func TestCalculateTypeDefs(t *testing.T) {
	c := NewCalculator()
	def := func(k wit.TypeDefKind) *wit.TypeDef { return &wit.TypeDef{Kind: k} }

	cases := func(n int) []wit.EnumCase {
		out := make([]wit.EnumCase, n)
		for i := range out {
			out[i] = wit.EnumCase{Name: "c"}
		}
		return out
	}
	flags := func(n int) []wit.Flag {
		out := make([]wit.Flag, n)
		for i := range out {
			out[i] = wit.Flag{Name: "f"}
		}
		return out
	}

	tests := []struct {
		name  string
		typ   wit.Type
		size  uint32
		align uint32
	}{
		{"list", def(&wit.List{Type: wit.U8{}}), 8, 4},
		{"option u64", def(&wit.Option{Type: wit.U64{}}), 16, 8},
		{"option u8", def(&wit.Option{Type: wit.U8{}}), 2, 1},
		{"result u32 u8", def(&wit.Result{OK: wit.U32{}, Err: wit.U8{}}), 8, 4},
		{"result empty", def(&wit.Result{}), 1, 1},
		{"tuple u8 u16", def(&wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U16{}}}), 4, 2},
		{"tuple empty", def(&wit.Tuple{}), 0, 1},
		{"enum 3", def(&wit.Enum{Cases: cases(3)}), 1, 1},
		{"enum 300", def(&wit.Enum{Cases: cases(300)}), 2, 2},
		{"flags 9", def(&wit.Flags{Flags: flags(9)}), 2, 2},
		{"flags 40", def(&wit.Flags{Flags: flags(40)}), 8, 4},
		{"flags 64", def(&wit.Flags{Flags: flags(64)}), 8, 4},
		{"flags 70", def(&wit.Flags{Flags: flags(70)}), 12, 4},
		{"variant", def(&wit.Variant{Cases: []wit.Case{
			{Name: "none"},
			{Name: "circle", Type: wit.F32{}},
			{Name: "rect", Type: def(&wit.Tuple{Types: []wit.Type{wit.F32{}, wit.F32{}}})},
		}}), 12, 4},
		{"own", def(&wit.Own{}), 4, 4},
		{"alias", def(wit.U16{}), 2, 2},
	}

	t.Run("record after wide flags", func(t *testing.T) {
		rec := def(&wit.Record{Fields: []wit.Field{
			{Name: "bits", Type: def(&wit.Flags{Flags: flags(40)})},
			{Name: "n", Type: wit.U32{}},
		}})
		l := c.Calculate(rec)
		if n, ok := l.Field("n"); !ok || n.Offset != 8 {
			t.Errorf("n offset: got %+v, want 8", n)
		}
		if l.Size != 12 || l.Align != 4 {
			t.Errorf("record: got size %d align %d, want 12, 4", l.Size, l.Align)
		}
	})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := c.Calculate(tc.typ)
			if l.Size != tc.size {
				t.Errorf("size: got %d, want %d", l.Size, tc.size)
			}
			if l.Align != tc.align {
				t.Errorf("align: got %d, want %d", l.Align, tc.align)
			}
		})
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint32
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{7, 1, 7},
		{3, 0, 3},
	}
	for _, tc := range tests {
		if got := alignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("alignTo(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}
