package specs

import "strconv"

// Field value types accepted in FieldValueSpec.Type.
const (
	FieldTypeInt    = "int"
	FieldTypeLong   = "long"
	FieldTypeFloat  = "float"
	FieldTypeDouble = "double"
	FieldTypeString = "string"
	FieldTypeBool   = "bool"
	FieldTypeBytes  = "bytes"
)

// LogEventSpec represents one atom logged on the device and matched by an upstream matcher.
//
// Log events are the input boundary of the event metric recorder. The dispatch layer
// delivers a log event to every metric whose "what" matcher fired for it; the recorder
// then decides whether to keep it and in which representation.
type LogEventSpec struct {
	// Atom identifier (tag) of this event.
	//
	// Identifies the atom schema the fields belong to. Must be positive. The tag also
	// becomes the field number of the atom inside the serialized report, so two events
	// with different tags never aggregate together.
	AtomID int32 `json:"atomID"`

	// Elapsed (monotonic since boot) timestamp of the event in nanoseconds.
	//
	// This is the time the event was logged, not the time it was matched or recorded.
	// Negative or out-of-range values are clamped by the recorder's timestamp policy
	// instead of being rejected.
	ElapsedTimestampNs int64 `json:"elapsedTimestampNs"`

	// Field values of the atom in field order.
	//
	// Each value carries its position and type. Values for repeated nested messages
	// (attribution chains) use Index and SubField; see FieldValueSpec.
	Fields []FieldValueSpec `json:"fields,omitempty"`

	// Whether the event asked for its timestamp to be coarsened.
	//
	// Set by atoms that could otherwise leak precise user activity times. When true
	// the recorder truncates the timestamp to a five minute boundary.
	TruncateTimestamp bool `json:"truncateTimestamp,omitempty"`
}

// FieldValueSpec represents a single typed value inside an atom.
//
// Values are carried as strings to keep this boundary free of language-specific numeric
// types; numeric strings are parsed as exact decimals and range-checked against Type.
//
// Position:
//   - Top-level field: Field > 0, Index == 0, SubField == 0
//   - Repeated nested message element: Field > 0, Index >= 1 (1-based element), SubField > 0
//
// Examples:
//   - uid at field 1: {Field: 1, Type: "int", Value: "1000"}
//   - tag of the second attribution node: {Field: 1, Index: 2, SubField: 2, Type: "string", Value: "wakelock"}
type FieldValueSpec struct {
	// Field number of the value inside the atom.
	Field int32 `json:"field"`

	// 1-based element index when Field is a repeated nested message, 0 otherwise.
	Index int32 `json:"index,omitempty"`

	// Field number inside the nested message element, 0 for top-level values.
	SubField int32 `json:"subField,omitempty"`

	// Value type: "int", "long", "float", "double", "string", "bool" or "bytes".
	//
	// Determines both the range check applied to Value and the wire encoding used when
	// the atom is serialized into a report.
	Type string `json:"type"`

	// Value as a string.
	//
	// Numeric types must be parseable as a decimal number within the type's range.
	// Bools accept strconv.ParseBool syntax. Bytes are carried verbatim.
	Value string `json:"value"`
}

// NewIntFieldValue creates a top-level int32 field value.
func NewIntFieldValue(field int32, value int32) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeInt, Value: strconv.FormatInt(int64(value), 10)}
}

// NewLongFieldValue creates a top-level int64 field value.
func NewLongFieldValue(field int32, value int64) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeLong, Value: strconv.FormatInt(value, 10)}
}

// NewFloatFieldValue creates a top-level float32 field value.
func NewFloatFieldValue(field int32, value float32) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeFloat, Value: strconv.FormatFloat(float64(value), 'g', -1, 32)}
}

// NewDoubleFieldValue creates a top-level float64 field value.
func NewDoubleFieldValue(field int32, value float64) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeDouble, Value: strconv.FormatFloat(value, 'g', -1, 64)}
}

// NewStringFieldValue creates a top-level string field value.
func NewStringFieldValue(field int32, value string) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeString, Value: value}
}

// NewBoolFieldValue creates a top-level bool field value.
func NewBoolFieldValue(field int32, value bool) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeBool, Value: strconv.FormatBool(value)}
}

// NewBytesFieldValue creates a top-level bytes field value.
func NewBytesFieldValue(field int32, value []byte) FieldValueSpec {
	return FieldValueSpec{Field: field, Type: FieldTypeBytes, Value: string(value)}
}

// NewNestedFieldValue places a value inside element index (1-based) of the repeated
// nested message at field. The inner value's Field becomes the SubField.
//
// Examples:
//   - NewNestedFieldValue(1, 1, NewIntFieldValue(1, 1000)): uid of the first attribution node
func NewNestedFieldValue(field, index int32, inner FieldValueSpec) FieldValueSpec {
	return FieldValueSpec{
		Field:    field,
		Index:    index,
		SubField: inner.Field,
		Type:     inner.Type,
		Value:    inner.Value,
	}
}
