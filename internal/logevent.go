package internal

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chrisconley/eventmetric/specs"
)

// LogEvent is a matched atom: its tag, when it was logged, and its field values
// ordered by position.
type LogEvent struct {
	tagID              int32
	elapsedTimestampNs int64
	truncateTimestamp  bool
	values             []FieldValue
}

func NewLogEvent(spec specs.LogEventSpec) (LogEvent, error) {
	values := make([]FieldValue, len(spec.Fields))
	for i, fieldSpec := range spec.Fields {
		fv, err := NewFieldValue(fieldSpec)
		if err != nil {
			return LogEvent{}, fmt.Errorf("invalid fields[%d]: %w", i, err)
		}
		values[i] = fv
	}

	event, err := NewLogEventFromValues(spec.AtomID, spec.ElapsedTimestampNs, values)
	if err != nil {
		return LogEvent{}, err
	}
	event.truncateTimestamp = spec.TruncateTimestamp
	return event, nil
}

// NewLogEventFromValues builds an event from already typed values. values is
// copied and sorted by position; values sharing a position keep their order.
// tagID becomes the field number of the atom message, so it must be a valid
// protobuf field number.
func NewLogEventFromValues(tagID int32, elapsedTimestampNs int64, values []FieldValue) (LogEvent, error) {
	if !validFieldNumber(tagID) {
		return LogEvent{}, fmt.Errorf("atom ID must be in [1, %d], got %d", protowire.MaxValidNumber, tagID)
	}
	sorted := make([]FieldValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].field.Less(sorted[j].field)
	})
	return LogEvent{tagID: tagID, elapsedTimestampNs: elapsedTimestampNs, values: sorted}, nil
}

func (e LogEvent) TagID() int32 { return e.tagID }
func (e LogEvent) ElapsedTimestampNs() int64 { return e.elapsedTimestampNs }
func (e LogEvent) TruncateTimestamp() bool { return e.truncateTimestamp }

// Values returns the event's values. Callers must not modify the slice.
func (e LogEvent) Values() []FieldValue { return e.values }

// ToProto writes the event as the atom message: one field numbered by the tag
// that holds the atom's fields.
func (e LogEvent) ToProto(out *ProtoOutputStream) {
	writeFieldValueTreeToStream(e.tagID, e.values, out)
}

func (e LogEvent) ToSpec() specs.LogEventSpec {
	fields := make([]specs.FieldValueSpec, len(e.values))
	for i, fv := range e.values {
		fields[i] = fv.ToSpec()
	}
	return specs.LogEventSpec{
		AtomID:             e.tagID,
		ElapsedTimestampNs: e.elapsedTimestampNs,
		Fields:             fields,
		TruncateTimestamp:  e.truncateTimestamp,
	}
}

// writeFieldValueTreeToStream writes values, sorted by position, as the message
// at field tag. Nested values sharing a field number become one repeated message
// per element index.
func writeFieldValueTreeToStream(tag int32, values []FieldValue, out *ProtoOutputStream) {
	atomToken := out.Start(tag)
	for i := 0; i < len(values); {
		fv := values[i]
		if !fv.field.IsNested() {
			writeValueToStream(fv.field.pos, fv.value, out)
			i++
			continue
		}

		elementToken := out.Start(fv.field.pos)
		j := i
		for ; j < len(values); j++ {
			next := values[j].field
			if !next.IsNested() || next.pos != fv.field.pos || next.index != fv.field.index {
				break
			}
			writeValueToStream(next.subPos, values[j].value, out)
		}
		out.End(elementToken)
		i = j
	}
	out.End(atomToken)
}

func writeValueToStream(num int32, v Value, out *ProtoOutputStream) {
	switch v.typ {
	case ValueTypeInt:
		out.WriteInt32(num, v.Int())
	case ValueTypeLong:
		out.WriteInt64(num, v.Long())
	case ValueTypeFloat:
		out.WriteFloat(num, v.Float())
	case ValueTypeDouble:
		out.WriteDouble(num, v.Double())
	case ValueTypeString:
		out.WriteString(num, v.Str())
	case ValueTypeBool:
		out.WriteBool(num, v.Bool())
	case ValueTypeBytes:
		out.WriteBytes(num, v.Bytes())
	}
}
