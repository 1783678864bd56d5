package fieldoffsets

import (
	"maps"

	"github.com/wippyai/fieldoffsets/errors"
)

// Compare asserts that got and want describe the same layout: the same names
// in the same order at the same offsets. Every difference is reported in a
// single *errors.LayoutError; nil means the tables agree.
//
// A typical FFI assertion compares a generated table with offsets published by
// the other side of the boundary:
//
//	err := fieldoffsets.Compare("Data", Data{}.FieldOffsets()[:], cOffsets)
func Compare(typeName string, got, want Table) error {
	le := &errors.LayoutError{Phase: errors.PhaseCompare, Type: typeName}

	gotIdx, gotN := index(got)
	wantIdx, wantN := index(want)

	// Names are matched as multisets, so a duplicated entry on either side
	// is reported as extra or missing.
	left := maps.Clone(gotN)
	for i, w := range want {
		if left[w.Name] == 0 {
			le.Add(w.Name, "missing", nil, w.Offset)
			continue
		}
		left[w.Name]--
		if wantIdx[w.Name] != i {
			continue
		}
		if g := got[gotIdx[w.Name]]; g.Offset != w.Offset {
			le.Add(w.Name, "offset", g.Offset, w.Offset)
		}
	}
	left = maps.Clone(wantN)
	for _, g := range got {
		if left[g.Name] == 0 {
			le.Add(g.Name, "extra", g.Offset, nil)
			continue
		}
		left[g.Name]--
	}

	// Order only matters once both sides hold the same names.
	if len(le.Mismatches) == 0 {
		for i := range min(len(got), len(want)) {
			if got[i].Name != want[i].Name {
				le.Add(want[i].Name, "order", gotIdx[want[i].Name], i)
				break
			}
		}
	}

	return le.Err()
}

// index returns the first position and the number of entries of each name
func index(t Table) (first, count map[string]int) {
	first = make(map[string]int, len(t))
	count = make(map[string]int, len(t))
	for i, f := range t {
		if _, ok := first[f.Name]; !ok {
			first[f.Name] = i
		}
		count[f.Name]++
	}
	return first, count
}
