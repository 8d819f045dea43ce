package rtsvc

import (
	"github.com/roach88/rtsvc/internal/smc"
)

// unused marks a table slot that no descriptor owns. Catalogs are always
// shorter than Capacity, so no descriptor index collides with it.
const unused = 0xFF

// Index is the built routing table. It is read-only once Build returns and
// safe for concurrent use.
type Index struct {
	catalog Catalog
	table   [Capacity]uint8

	// Per-descriptor outcome of the build, indexed by catalog position.
	initErrs   []error
	registered []bool
}

// Slot is one occupied entry of the table.
type Slot struct {
	Key      int
	OEN      smc.OEN
	CallType smc.CallType

	// Index is the catalog position of the owning descriptor.
	Index int
	Name  string
}

func newIndex(c Catalog) *Index {
	ix := &Index{
		catalog:    c,
		initErrs:   make([]error, c.Len()),
		registered: make([]bool, c.Len()),
	}
	for i := range ix.table {
		ix.table[i] = unused
	}
	return ix
}

// Lookup returns the catalog position owning key. ok is false for a key
// outside [0, Capacity) or an unused slot.
func (ix *Index) Lookup(key int) (index int, ok bool) {
	if key < 0 || key >= Capacity {
		return 0, false
	}
	v := ix.table[key]
	if v == unused || int(v) >= ix.catalog.Len() {
		return 0, false
	}
	return int(v), true
}

// Resolve looks up the descriptor owning (oen, callType). OENs at or above
// smc.OENLimit and undefined call types never resolve.
func (ix *Index) Resolve(oen smc.OEN, callType smc.CallType) (*Descriptor, bool) {
	if oen >= smc.OENLimit || !callType.Valid() {
		return nil, false
	}
	i, ok := ix.Lookup(UniqueKey(oen, callType))
	if !ok {
		return nil, false
	}
	return ix.catalog.At(i), true
}

// Catalog returns the catalog the index was built from.
func (ix *Index) Catalog() Catalog {
	return ix.catalog
}

// Len returns the number of occupied slots.
func (ix *Index) Len() int {
	n := 0
	for _, v := range ix.table {
		if v != unused {
			n++
		}
	}
	return n
}

// Registered reports whether descriptor i had its range written to the
// table. A registered descriptor may still have lost every slot to a later
// overlapping one.
func (ix *Index) Registered(i int) bool {
	if i < 0 || i >= len(ix.registered) {
		return false
	}
	return ix.registered[i]
}

// InitErr returns the error reported by descriptor i's Init, or nil.
func (ix *Index) InitErr(i int) error {
	if i < 0 || i >= len(ix.initErrs) {
		return nil
	}
	return ix.initErrs[i]
}

// Slots returns the occupied slots in key order.
func (ix *Index) Slots() []Slot {
	var out []Slot
	for key, v := range ix.table {
		if v == unused {
			continue
		}
		d := ix.catalog.At(int(v))
		out = append(out, Slot{
			Key:      key,
			OEN:      smc.OEN(key & smc.OENMask),
			CallType: smc.CallType(key >> keyTypeShift),
			Index:    int(v),
			Name:     d.Name,
		})
	}
	return out
}

// Table returns a copy of the raw table. Unused slots hold 0xFF.
func (ix *Index) Table() [Capacity]uint8 {
	return ix.table
}
