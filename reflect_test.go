package fieldoffsets

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	ferrors "github.com/wippyai/fieldoffsets/errors"
)

type sample struct {
	x     int32
	y     int32
	label [8]byte
}

type mixed struct {
	a uint8
	b uint64
	c uint16
}

type inner struct {
	v int32
}

type outer struct {
	inner
	w int64
}

type padded struct {
	a int32
	_ int32
	b int32
}

type pair[K comparable, V any] struct {
	key K
	val V
}

type color int

func TestOf(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Table
	}{
		{
			name:  "c-like layout",
			input: sample{},
			want:  Table{{"x", 0}, {"y", 4}, {"label", 8}},
		},
		{
			name:  "padding",
			input: mixed{},
			want:  Table{{"a", 0}, {"b", 8}, {"c", 16}},
		},
		{
			name:  "pointer to struct",
			input: &sample{},
			want:  Table{{"x", 0}, {"y", 4}, {"label", 8}},
		},
		{
			name:  "reflect type",
			input: reflect.TypeOf(mixed{}),
			want:  Table{{"a", 0}, {"b", 8}, {"c", 16}},
		},
		{
			name:  "embedded field",
			input: outer{},
			want:  Table{{"inner", 0}, {"w", 8}},
		},
		{
			name:  "generic instance",
			input: pair[uint8, uint32]{},
			want:  Table{{"key", 0}, {"val", 4}},
		},
		{
			name:  "empty struct",
			input: struct{}{},
			want:  Table{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.input)
			if err != nil {
				t.Fatalf("Of: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Of mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOf_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		kind     ferrors.Kind
		contains string
	}{
		{"nil", nil, ferrors.KindNilPointer, "nil"},
		{"named basic type", color(0), ferrors.KindUnsupported, "named basic type"},
		{"interface", (*io.Reader)(nil), ferrors.KindUnsupported, "interface"},
		{"slice", []int{}, ferrors.KindUnsupported, "slice"},
		{"blank field", padded{}, ferrors.KindUnnamedField, "padded._"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Of(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			var fe *ferrors.Error
			if !errors.As(err, &fe) {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", fe.Kind, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestMustOf(t *testing.T) {
	if got := MustOf(sample{}); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}

	defer func() {
		if recover() == nil {
			t.Error("MustOf should panic on a non-struct")
		}
	}()
	MustOf(color(1))
}
