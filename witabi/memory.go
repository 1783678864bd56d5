package witabi

import (
	"context"
	"reflect"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/fieldoffsets/errors"
)

// Memory is a bounds-checked view of a guest's linear memory.
type Memory struct {
	mem api.Memory
}

// NewMemory wraps a wazero memory
func NewMemory(mem api.Memory) *Memory {
	return &Memory{mem: mem}
}

// Size returns the current size of the memory in bytes
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Read returns a view of length bytes at offset. The view aliases guest
// memory and is invalidated when the memory grows.
func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, offset, length, m.mem.Size())
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMemory, offset, uint32(len(data)), m.mem.Size())
	}
	return nil
}

// NewScratchMemory instantiates a module that only exports a linear memory
// of the given number of 64KiB pages. Close the returned closer to release
// the runtime.
func NewScratchMemory(ctx context.Context, pages uint32) (*Memory, api.Closer, error) {
	if pages == 0 || pages > 65536 {
		return nil, nil, errors.InvalidInput(errors.PhaseMemory, "page count must be within [1, 65536]")
	}

	r := wazero.NewRuntime(ctx)
	mod, err := r.Instantiate(ctx, memoryModule(pages))
	if err != nil {
		_ = r.Close(ctx)
		return nil, nil, errors.Wrap(errors.PhaseMemory, errors.KindInvalidData, err, "instantiate memory module")
	}
	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = r.Close(ctx)
		return nil, nil, errors.NotFound(errors.PhaseMemory, "export", "memory")
	}
	return NewMemory(mem), r, nil
}

// memoryModule encodes a binary module with one memory of min pages,
// exported as "memory".
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x00}, uleb128(pages)...)
	memSec := append(uleb128(1), limits...)

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = append(bin, 0x05)
	bin = append(bin, uleb128(uint32(len(memSec)))...)
	bin = append(bin, memSec...)

	export := []byte{0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00}
	bin = append(bin, 0x07, byte(len(export)))
	return append(bin, export...)
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// Store copies the struct v into guest memory at ptr. v may be a struct or a
// pointer to one; its type must pass CheckValue against rec, hold no Go
// pointers, and ptr must be aligned for rec.
func Store(mem *Memory, ptr uint32, v any, rec *wit.TypeDef) error {
	if mem == nil {
		return errors.NilPointer(errors.PhaseMemory, nil, "*witabi.Memory")
	}
	if v == nil {
		return errors.NilPointer(errors.PhaseMemory, nil, "nil")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.NilPointer(errors.PhaseMemory, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}

	layout, err := copyable(rv.Type(), ptr, rec)
	if err != nil {
		return err
	}
	if !rv.CanAddr() {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		rv = p.Elem()
	}

	if err := mem.Write(ptr, rawBytes(rv)); err != nil {
		return err
	}
	Logger().Debug("stored struct",
		zap.String("type", rv.Type().String()),
		zap.Uint32("ptr", ptr),
		zap.Uint32("size", layout.Size))
	return nil
}

// Load copies a record at ptr in guest memory into the struct out points to.
// Bool fields are normalized so any non-zero byte reads as true.
func Load(mem *Memory, ptr uint32, out any, rec *wit.TypeDef) error {
	if mem == nil {
		return errors.NilPointer(errors.PhaseMemory, nil, "*witabi.Memory")
	}
	rv := reflect.ValueOf(out)
	if out == nil || rv.Kind() != reflect.Pointer {
		return errors.InvalidInput(errors.PhaseMemory, "Load needs a non-nil pointer to a struct")
	}
	if rv.IsNil() {
		return errors.NilPointer(errors.PhaseMemory, nil, rv.Type().String())
	}
	rv = rv.Elem()

	layout, err := copyable(rv.Type(), ptr, rec)
	if err != nil {
		return err
	}

	data, err := mem.Read(ptr, layout.Size)
	if err != nil {
		return err
	}
	copy(rawBytes(rv), data)
	normalizeBools(rv)

	Logger().Debug("loaded struct",
		zap.String("type", rv.Type().String()),
		zap.Uint32("ptr", ptr),
		zap.Uint32("size", layout.Size))
	return nil
}

// copyable checks that values of typ can be copied byte for byte to or from
// a rec at ptr.
func copyable(typ reflect.Type, ptr uint32, rec *wit.TypeDef) (Layout, error) {
	if !littleEndian {
		return Layout{}, errors.Unsupported(errors.PhaseMemory, "guest memory copies need a little-endian host")
	}
	layout, err := checkValue(typ, rec)
	if err != nil {
		return Layout{}, err
	}
	if hasPointers(typ) {
		return Layout{}, errors.New(errors.PhaseMemory, errors.KindUnsupported).
			GoType(typ.String()).
			WitType(recordName(rec)).
			Detail("type holds Go pointers").
			Build()
	}
	if ptr%layout.Align != 0 {
		return Layout{}, errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			WitType(recordName(rec)).
			Value(ptr).
			Detail("pointer %d is not aligned to %d", ptr, layout.Align).
			Build()
	}
	return layout, nil
}

// rawBytes returns the memory of an addressable value
func rawBytes(v reflect.Value) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v.UnsafeAddr())), v.Type().Size())
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func normalizeBools(v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		b := (*uint8)(unsafe.Pointer(v.UnsafeAddr()))
		if *b > 1 {
			*b = 1
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			normalizeBools(v.Index(i))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			normalizeBools(v.Field(i))
		}
	}
}

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()
