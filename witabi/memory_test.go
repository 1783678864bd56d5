package witabi

import (
	"context"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	ferrors "github.com/wippyai/fieldoffsets/errors"
)

type sample struct {
	ID      uint32
	Enabled bool
	Level   uint8
	Code    uint16
	Score   float64
}

const sampleWIT = `record sample { id: u32, enabled: bool, level: u8, code: u16, score: f64 }`

func newMemory(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	mem, closer, err := NewScratchMemory(ctx, 1)
	if err != nil {
		t.Fatalf("NewScratchMemory: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close(ctx) })
	return mem
}

func TestMemory_Bounds(t *testing.T) {
	mem := newMemory(t)

	if mem.Size() != 65536 {
		t.Fatalf("Size = %d, want 65536", mem.Size())
	}
	if err := mem.Write(65530, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := mem.Read(65530, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	oob := &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindOutOfBounds}
	if _, err := mem.Read(65534, 4); !errors.Is(err, oob) {
		t.Errorf("Read: expected out of bounds, got %v", err)
	}
	if err := mem.Write(65535, []byte{1, 2}); !errors.Is(err, oob) {
		t.Errorf("Write: expected out of bounds, got %v", err)
	}
}

func TestNewScratchMemory(t *testing.T) {
	ctx := context.Background()

	mem, closer, err := NewScratchMemory(ctx, 200)
	if err != nil {
		t.Fatalf("NewScratchMemory: %v", err)
	}
	defer closer.Close(ctx)
	if mem.Size() != 200*65536 {
		t.Errorf("Size = %d, want %d", mem.Size(), 200*65536)
	}

	if _, _, err := NewScratchMemory(ctx, 0); !errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindInvalidInput}) {
		t.Errorf("expected invalid input for zero pages, got %v", err)
	}
}

func TestStoreLoad(t *testing.T) {
	SetLogger(zaptest.NewLogger(t))
	defer SetLogger(nil)

	mem := newMemory(t)
	rec, err := ParseRecord(sampleWIT)
	if err != nil {
		t.Fatal(err)
	}

	in := sample{ID: 0xdeadbeef, Enabled: true, Level: 7, Code: 0x1234, Score: 2.5}
	if err := Store(mem, 64, in, rec); err != nil {
		t.Fatalf("Store: %v", err)
	}

	raw, err := mem.Read(64, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(raw[0:]); got != 0xdeadbeef {
		t.Errorf("id = %#x, want 0xdeadbeef", got)
	}
	if raw[4] != 1 || raw[5] != 7 {
		t.Errorf("enabled, level = %d, %d, want 1, 7", raw[4], raw[5])
	}
	if got := binary.LittleEndian.Uint16(raw[6:]); got != 0x1234 {
		t.Errorf("code = %#x, want 0x1234", got)
	}

	var out sample
	if err := Load(mem, 64, &out, rec); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	t.Run("pointer input", func(t *testing.T) {
		in := &sample{ID: 1}
		if err := Store(mem, 128, in, rec); err != nil {
			t.Fatalf("Store: %v", err)
		}
		var out sample
		if err := Load(mem, 128, &out, rec); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if out.ID != 1 {
			t.Errorf("ID = %d, want 1", out.ID)
		}
	})

	t.Run("bool normalized", func(t *testing.T) {
		if err := mem.Write(68, []byte{7}); err != nil {
			t.Fatal(err)
		}
		var out sample
		if err := Load(mem, 64, &out, rec); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if b := *(*uint8)(unsafe.Pointer(&out.Enabled)); b != 1 {
			t.Errorf("bool byte = %d, want 1", b)
		}
	})
}

func TestStoreLoad_Errors(t *testing.T) {
	mem := newMemory(t)
	rec, err := ParseRecord(sampleWIT)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("misaligned", func(t *testing.T) {
		err := Store(mem, 65, sample{}, rec)
		if !errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindInvalidInput}) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		err := Store(mem, 65536-8, sample{}, rec)
		if !errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindOutOfBounds}) {
			t.Errorf("expected out of bounds, got %v", err)
		}
		var out sample
		err = Load(mem, 65536-8, &out, rec)
		if !errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindOutOfBounds}) {
			t.Errorf("expected out of bounds, got %v", err)
		}
	})

	t.Run("layout mismatch", func(t *testing.T) {
		type short struct{ ID uint32 }
		err := Store(mem, 0, short{}, rec)
		var le *ferrors.LayoutError
		if !errors.As(err, &le) {
			t.Errorf("expected layout error, got %v", err)
		}
	})

	t.Run("go pointers", func(t *testing.T) {
		if unsafe.Sizeof(uintptr(0)) != 8 {
			t.Skip("needs 64-bit pointers")
		}
		type withPtr struct{ P *uint64 }
		prec, err := ParseRecord(`record with-ptr { p: tuple<u32, u32> }`)
		if err != nil {
			t.Fatal(err)
		}
		err = Store(mem, 0, withPtr{}, prec)
		if !errors.Is(err, &ferrors.Error{Phase: ferrors.PhaseMemory, Kind: ferrors.KindUnsupported}) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})

	t.Run("bad arguments", func(t *testing.T) {
		var nilSample *sample
		tests := []struct {
			name string
			err  error
			kind ferrors.Kind
		}{
			{"store nil memory", Store(nil, 0, sample{}, rec), ferrors.KindNilPointer},
			{"store nil value", Store(mem, 0, nil, rec), ferrors.KindNilPointer},
			{"store nil pointer", Store(mem, 0, nilSample, rec), ferrors.KindNilPointer},
			{"load nil memory", Load(nil, 0, &sample{}, rec), ferrors.KindNilPointer},
			{"load non-pointer", Load(mem, 0, sample{}, rec), ferrors.KindInvalidInput},
			{"load nil", Load(mem, 0, nil, rec), ferrors.KindInvalidInput},
			{"load nil pointer", Load(mem, 0, nilSample, rec), ferrors.KindNilPointer},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var fe *ferrors.Error
				if !errors.As(tt.err, &fe) || fe.Kind != tt.kind {
					t.Errorf("expected %s, got %v", tt.kind, tt.err)
				}
			})
		}
	})
}

func TestHasPointers(t *testing.T) {
	type flat struct {
		A [4]uint32
		B struct{ C int64 }
	}
	type nested struct {
		A [2]struct{ S string }
	}
	tests := []struct {
		v    any
		want bool
	}{
		{flat{}, false},
		{nested{}, true},
		{[0]*int{}, false},
		{struct{ M map[int]int }{}, true},
		{struct{ F func() }{}, true},
	}
	for _, tt := range tests {
		typ := reflect.TypeOf(tt.v)
		if got := hasPointers(typ); got != tt.want {
			t.Errorf("hasPointers(%s) = %v, want %v", typ, got, tt.want)
		}
	}
}

func TestMemoryModule(t *testing.T) {
	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	}
	if diff := cmp.Diff(want, memoryModule(1)); diff != "" {
		t.Errorf("module bytes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0xc8, 0x01}, uleb128(200)); diff != "" {
		t.Errorf("uleb128 mismatch (-want +got):\n%s", diff)
	}
}
