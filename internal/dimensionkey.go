package internal

import (
	"encoding/binary"
	"strings"

	"github.com/twmb/murmur3"
)

// HashableDimensionKey is an ordered, immutable list of field values.
type HashableDimensionKey struct {
	values []FieldValue
}

// NewHashableDimensionKey copies values into a new key.
func NewHashableDimensionKey(values []FieldValue) HashableDimensionKey {
	if len(values) == 0 {
		return HashableDimensionKey{}
	}
	copied := make([]FieldValue, len(values))
	copy(copied, values)
	return HashableDimensionKey{values: copied}
}

// Values returns a copy of the key's values.
func (k HashableDimensionKey) Values() []FieldValue {
	if len(k.values) == 0 {
		return nil
	}
	copied := make([]FieldValue, len(k.values))
	copy(copied, k.values)
	return copied
}

func (k HashableDimensionKey) Len() int { return len(k.values) }

func (k HashableDimensionKey) Equal(other HashableDimensionKey) bool {
	if len(k.values) != len(other.values) {
		return false
	}
	for i := range k.values {
		if k.values[i] != other.values[i] {
			return false
		}
	}
	return true
}

func (k HashableDimensionKey) Hash() uint64 {
	return murmur3.Sum64(k.appendEncoded(nil))
}

func (k HashableDimensionKey) String() string {
	var sb strings.Builder
	for i, fv := range k.values {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(fv.value.ToString())
	}
	return sb.String()
}

func (k HashableDimensionKey) appendEncoded(buf []byte) []byte {
	for _, fv := range k.values {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(fv.field.pos))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(fv.field.index))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(fv.field.subPos))
		buf = append(buf, byte(fv.value.typ))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(fv.value.bits))
		buf = binary.AppendUvarint(buf, uint64(len(fv.value.str)))
		buf = append(buf, fv.value.str...)
	}
	return buf
}

// AtomDimensionKey identifies one aggregation bucket: an atom tag and the atom's
// full list of field values.
type AtomDimensionKey struct {
	tag    int32
	values HashableDimensionKey
}

func NewAtomDimensionKey(tag int32, values HashableDimensionKey) AtomDimensionKey {
	return AtomDimensionKey{tag: tag, values: values}
}

func (k AtomDimensionKey) Tag() int32 { return k.tag }
func (k AtomDimensionKey) Values() HashableDimensionKey { return k.values }

func (k AtomDimensionKey) Equal(other AtomDimensionKey) bool {
	return k.tag == other.tag && k.values.Equal(other.values)
}

func (k AtomDimensionKey) Hash() uint64 {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(k.tag))
	return murmur3.Sum64(k.values.appendEncoded(buf))
}

// MetricDimensionKey is the slicing key of a metric: the "what" dimension and
// the state values. Event metrics do not slice, so they use DefaultMetricDimensionKey.
type MetricDimensionKey struct {
	dimensionKeyInWhat HashableDimensionKey
	stateValuesKey     HashableDimensionKey
}

func NewMetricDimensionKey(inWhat, stateValues HashableDimensionKey) MetricDimensionKey {
	return MetricDimensionKey{dimensionKeyInWhat: inWhat, stateValuesKey: stateValues}
}

func (k MetricDimensionKey) DimensionKeyInWhat() HashableDimensionKey { return k.dimensionKeyInWhat }
func (k MetricDimensionKey) StateValuesKey() HashableDimensionKey { return k.stateValuesKey }

var DefaultMetricDimensionKey = MetricDimensionKey{}

// ConditionKey holds, per condition id, the dimension a sliced condition is queried with.
type ConditionKey map[int64]HashableDimensionKey
