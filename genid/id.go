package genid

import (
	"math"
	"strconv"
)

// Generation tags one occupancy epoch of a slot.
type Generation uint64

// firstGeneration is the generation of a slot that was never vacated, so the
// zero ID never resolves.
const firstGeneration Generation = 1

// retired marks a slot whose generation can no longer advance. Such slots are
// never reused.
const retired Generation = math.MaxUint64

// ID names one logical entry of a generational table.
type ID struct {
	Index int
	Gen   Generation
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.Index == 0 && id.Gen == 0
}

func (id ID) String() string {
	return strconv.Itoa(id.Index) + ":" + strconv.FormatUint(uint64(id.Gen), 10)
}
