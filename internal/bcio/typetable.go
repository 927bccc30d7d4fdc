package bcio

import (
	"fmt"

	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// typeRecord is one entry of the write-time type table. Non-Fun
// entries need no payload beyond the tag.
type typeRecord struct {
	tag     hltypes.Tag
	argRefs []int
	retRef  int
	orig    hltypes.Type // only meaningful for Fun entries, used for dedup
}

// typeTable interns every distinct type a module references, forcing
// the seven non-function primitives into ids 0..6 in the fixed order
// Void, UI8, I32, F32, F64, Bool, Any so their indices never drift
// between writes. Fun types are deduplicated by structural equality
// and appended after.
type typeTable struct {
	records []typeRecord
}

func newTypeTable() *typeTable {
	tt := &typeTable{}
	for _, tag := range []hltypes.Tag{hltypes.Void, hltypes.UI8, hltypes.I32, hltypes.F32, hltypes.F64, hltypes.Bool, hltypes.Any} {
		tt.records = append(tt.records, typeRecord{tag: tag})
	}
	return tt
}

// ref returns t's table index, inserting it (and, for a Fun type, its
// nested arg/ret types) if not already present.
func (tt *typeTable) ref(t hltypes.Type) int {
	if t.Tag != hltypes.Fun {
		return int(t.Tag) // basics' index equals their tag value by construction.
	}
	for i := 7; i < len(tt.records); i++ {
		if hltypes.Equal(tt.records[i].orig, t) {
			return i
		}
	}
	argRefs := make([]int, len(t.Args))
	for i, a := range t.Args {
		argRefs[i] = tt.ref(a)
	}
	retRef := tt.ref(t.Ret)
	idx := len(tt.records)
	tt.records = append(tt.records, typeRecord{tag: hltypes.Fun, argRefs: argRefs, retRef: retRef, orig: t})
	return idx
}

// resolveTypeRef is the reader-side inverse: given the types reconstructed
// so far, it returns the Type at idx, or an error if idx is out of range.
func resolveTypeRef(resolved []hltypes.Type, idx int) (hltypes.Type, error) {
	if idx < 0 || idx >= len(resolved) {
		return hltypes.Type{}, diagx.New(diagx.InternalInvariant, fmt.Sprintf("type ref %d out of range (table has %d entries)", idx, len(resolved)))
	}
	return resolved[idx], nil
}
