package internal

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chrisconley/eventmetric/specs"
)

// ValueType is the declared type of a field value. It selects the wire encoding.
type ValueType int

const (
	ValueTypeUnknown ValueType = iota
	ValueTypeInt
	ValueTypeLong
	ValueTypeFloat
	ValueTypeDouble
	ValueTypeString
	ValueTypeBool
	ValueTypeBytes
)

func NewValueType(value string) (ValueType, error) {
	switch value {
	case specs.FieldTypeInt:
		return ValueTypeInt, nil
	case specs.FieldTypeLong:
		return ValueTypeLong, nil
	case specs.FieldTypeFloat:
		return ValueTypeFloat, nil
	case specs.FieldTypeDouble:
		return ValueTypeDouble, nil
	case specs.FieldTypeString:
		return ValueTypeString, nil
	case specs.FieldTypeBool:
		return ValueTypeBool, nil
	case specs.FieldTypeBytes:
		return ValueTypeBytes, nil
	default:
		return ValueTypeUnknown, fmt.Errorf("unknown value type %q", value)
	}
}

func (t ValueType) ToString() string {
	switch t {
	case ValueTypeInt:
		return specs.FieldTypeInt
	case ValueTypeLong:
		return specs.FieldTypeLong
	case ValueTypeFloat:
		return specs.FieldTypeFloat
	case ValueTypeDouble:
		return specs.FieldTypeDouble
	case ValueTypeString:
		return specs.FieldTypeString
	case ValueTypeBool:
		return specs.FieldTypeBool
	case ValueTypeBytes:
		return specs.FieldTypeBytes
	default:
		return "unknown"
	}
}

// Field is the position of a value inside an atom.
//
// Top-level values have index 0 and subPos 0. Values inside a repeated nested
// message (attribution chain) carry the 1-based element index and the field
// number inside the element.
type Field struct {
	pos    int32
	index  int32
	subPos int32
}

// validFieldNumber reports whether n can be encoded as a protobuf field number.
func validFieldNumber(n int32) bool {
	num := protowire.Number(n)
	return num >= protowire.MinValidNumber && num <= protowire.MaxValidNumber
}

func NewField(pos, index, subPos int32) (Field, error) {
	if !validFieldNumber(pos) {
		return Field{}, fmt.Errorf("field number must be in [1, %d], got %d", protowire.MaxValidNumber, pos)
	}
	if index < 0 || subPos < 0 {
		return Field{}, fmt.Errorf("field %d: negative index or sub-field", pos)
	}
	if subPos > 0 && !validFieldNumber(subPos) {
		return Field{}, fmt.Errorf("field %d: sub-field number %d out of range", pos, subPos)
	}
	if (index == 0) != (subPos == 0) {
		return Field{}, fmt.Errorf("field %d: index and sub-field must both be set for nested values", pos)
	}
	return Field{pos: pos, index: index, subPos: subPos}, nil
}

// TopLevelField returns the position of top-level field pos.
func TopLevelField(pos int32) Field {
	return Field{pos: pos}
}

func (f Field) Pos() int32 { return f.pos }
func (f Field) Index() int32 { return f.index }
func (f Field) SubPos() int32 { return f.subPos }

// IsNested reports whether f lives inside a repeated nested message.
func (f Field) IsNested() bool { return f.index > 0 }

// Less orders fields by field number, then element index, then sub-field.
func (f Field) Less(other Field) bool {
	if f.pos != other.pos {
		return f.pos < other.pos
	}
	if f.index != other.index {
		return f.index < other.index
	}
	return f.subPos < other.subPos
}

// Value is a typed scalar.
//
// Floats are held by bit pattern so that Value is comparable with == and NaN
// payloads compare equal to themselves.
type Value struct {
	typ  ValueType
	bits int64
	str  string
}

func NewIntValue(v int32) Value { return Value{typ: ValueTypeInt, bits: int64(v)} }
func NewLongValue(v int64) Value { return Value{typ: ValueTypeLong, bits: v} }
func NewStringValue(v string) Value { return Value{typ: ValueTypeString, str: v} }
func NewBytesValue(v []byte) Value { return Value{typ: ValueTypeBytes, str: string(v)} }
func NewFloatValue(v float32) Value { return Value{typ: ValueTypeFloat, bits: int64(math.Float32bits(v))} }
func NewDoubleValue(v float64) Value { return Value{typ: ValueTypeDouble, bits: int64(math.Float64bits(v))} }

func NewBoolValue(v bool) Value {
	if v {
		return Value{typ: ValueTypeBool, bits: 1}
	}
	return Value{typ: ValueTypeBool}
}

// ParseValue converts the string form of a value of type typ.
func ParseValue(typ ValueType, value string) (Value, error) {
	switch typ {
	case ValueTypeString:
		return NewStringValue(value), nil
	case ValueTypeBytes:
		return NewBytesValue([]byte(value)), nil
	case ValueTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Value{}, fmt.Errorf("invalid bool: %w", err)
		}
		return NewBoolValue(b), nil
	}

	d, err := NewDecimal(value)
	if err != nil {
		return Value{}, err
	}
	switch typ {
	case ValueTypeInt:
		i, err := d.Int32()
		if err != nil {
			return Value{}, err
		}
		return NewIntValue(i), nil
	case ValueTypeLong:
		i, err := d.Int64()
		if err != nil {
			return Value{}, err
		}
		return NewLongValue(i), nil
	case ValueTypeFloat:
		f, err := d.Float32()
		if err != nil {
			return Value{}, err
		}
		return NewFloatValue(f), nil
	case ValueTypeDouble:
		f, err := d.Float64()
		if err != nil {
			return Value{}, err
		}
		return NewDoubleValue(f), nil
	default:
		return Value{}, fmt.Errorf("unknown value type %d", typ)
	}
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) Int() int32 { return int32(v.bits) }
func (v Value) Long() int64 { return v.bits }
func (v Value) Float() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v Value) Double() float64 { return math.Float64frombits(uint64(v.bits)) }
func (v Value) Str() string { return v.str }
func (v Value) Bool() bool { return v.bits != 0 }
func (v Value) Bytes() []byte { return []byte(v.str) }
func (v Value) Equal(o Value) bool { return v == o }

func (v Value) ToString() string {
	switch v.typ {
	case ValueTypeInt, ValueTypeLong:
		return strconv.FormatInt(v.bits, 10)
	case ValueTypeFloat:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case ValueTypeDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case ValueTypeBool:
		return strconv.FormatBool(v.Bool())
	default:
		return v.str
	}
}

// FieldValue is one typed value at one position of an atom.
type FieldValue struct {
	field Field
	value Value
}

func NewFieldValue(spec specs.FieldValueSpec) (FieldValue, error) {
	field, err := NewField(spec.Field, spec.Index, spec.SubField)
	if err != nil {
		return FieldValue{}, fmt.Errorf("invalid field: %w", err)
	}

	typ, err := NewValueType(spec.Type)
	if err != nil {
		return FieldValue{}, fmt.Errorf("invalid field %d: %w", spec.Field, err)
	}

	value, err := ParseValue(typ, spec.Value)
	if err != nil {
		return FieldValue{}, fmt.Errorf("invalid field %d value: %w", spec.Field, err)
	}

	return FieldValue{field: field, value: value}, nil
}

func NewFieldValueOf(field Field, value Value) FieldValue {
	return FieldValue{field: field, value: value}
}

func (fv FieldValue) Field() Field { return fv.field }
func (fv FieldValue) Value() Value { return fv.value }

func (fv FieldValue) ToSpec() specs.FieldValueSpec {
	return specs.FieldValueSpec{
		Field:    fv.field.pos,
		Index:    fv.field.index,
		SubField: fv.field.subPos,
		Type:     fv.value.typ.ToString(),
		Value:    fv.value.ToString(),
	}
}
