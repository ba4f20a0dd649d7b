package internal

import "unsafe"

const timestampByteSize = int(unsafe.Sizeof(int64(0)))

var fieldValueByteSize = int(unsafe.Sizeof(FieldValue{}))

type aggregatedEntry struct {
	key        AtomDimensionKey
	timestamps []int64
}

// AggregatedAtoms maps atom dimension keys to the timestamps they were seen at.
//
// Keys iterate in first-seen order. Lookup goes through the key hash and every
// candidate sharing a hash is compared structurally.
type AggregatedAtoms struct {
	index   map[uint64][]int
	entries []aggregatedEntry
}

func NewAggregatedAtoms() *AggregatedAtoms {
	return &AggregatedAtoms{index: map[uint64][]int{}}
}

// Append records timestampNs for key, inserting key if it is new.
func (a *AggregatedAtoms) Append(key AtomDimensionKey, timestampNs int64) {
	h := key.Hash()
	for _, i := range a.index[h] {
		if a.entries[i].key.Equal(key) {
			a.entries[i].timestamps = append(a.entries[i].timestamps, timestampNs)
			return
		}
	}
	a.index[h] = append(a.index[h], len(a.entries))
	a.entries = append(a.entries, aggregatedEntry{key: key, timestamps: []int64{timestampNs}})
}

// Len returns the number of distinct keys.
func (a *AggregatedAtoms) Len() int { return len(a.entries) }

// Timestamps returns the timestamps recorded for key, or nil.
func (a *AggregatedAtoms) Timestamps(key AtomDimensionKey) []int64 {
	for _, i := range a.index[key.Hash()] {
		if a.entries[i].key.Equal(key) {
			return a.entries[i].timestamps
		}
	}
	return nil
}

// Each calls fn for every key in first-seen order. fn must not retain timestamps.
func (a *AggregatedAtoms) Each(fn func(key AtomDimensionKey, timestamps []int64)) {
	for _, e := range a.entries {
		fn(e.key, e.timestamps)
	}
}

func (a *AggregatedAtoms) Clear() {
	clear(a.index)
	a.entries = nil
}

// ByteSize approximates the memory held: the field values of every key plus
// eight bytes per timestamp.
func (a *AggregatedAtoms) ByteSize() int {
	total := 0
	for _, e := range a.entries {
		total += fieldValueByteSize * e.key.values.Len()
		total += timestampByteSize * len(e.timestamps)
	}
	return total
}
