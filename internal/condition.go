package internal

import (
	"fmt"

	"github.com/chrisconley/eventmetric/specs"
)

// ConditionState is the tri-state value of a condition.
type ConditionState int

const (
	ConditionUnknown ConditionState = iota
	ConditionFalse
	ConditionTrue
)

func (s ConditionState) String() string {
	switch s {
	case ConditionFalse:
		return "false"
	case ConditionTrue:
		return "true"
	default:
		return "unknown"
	}
}

// ConditionWizard answers sliced condition queries. It is shared read-only
// across producers.
type ConditionWizard interface {
	Query(conditionIndex int, conditionKey ConditionKey) ConditionState
}

// Position selects elements of a repeated nested message.
type Position int

const (
	PositionAll Position = iota
	PositionFirst
	PositionLast
)

func NewPosition(value string) (Position, error) {
	switch value {
	case specs.PositionAny, specs.PositionAll:
		return PositionAll, nil
	case specs.PositionFirst:
		return PositionFirst, nil
	case specs.PositionLast:
		return PositionLast, nil
	default:
		return PositionAll, fmt.Errorf("unknown position %q", value)
	}
}

// Matcher selects values at one field, or at one sub-field of the elements of a
// repeated nested message.
type Matcher struct {
	pos      int32
	position Position
	subPos   int32
}

func (m Matcher) nested() bool { return m.subPos > 0 }

// Select returns the values m selects, in order.
func (m Matcher) Select(values []FieldValue) []FieldValue {
	var lastIndex int32
	if m.nested() && m.position == PositionLast {
		for _, fv := range values {
			if fv.field.pos == m.pos && fv.field.index > lastIndex {
				lastIndex = fv.field.index
			}
		}
	}

	var selected []FieldValue
	for _, fv := range values {
		if fv.field.pos != m.pos {
			continue
		}
		if !m.nested() {
			if !fv.field.IsNested() {
				selected = append(selected, fv)
			}
			continue
		}
		if fv.field.subPos != m.subPos {
			continue
		}
		switch m.position {
		case PositionFirst:
			if fv.field.index != 1 {
				continue
			}
		case PositionLast:
			if fv.field.index != lastIndex {
				continue
			}
		}
		selected = append(selected, fv)
	}
	return selected
}

// translateFieldMatcher flattens a field matcher tree into leaf matchers.
func translateFieldMatcher(spec specs.FieldMatcherSpec) ([]Matcher, error) {
	if !validFieldNumber(spec.Field) {
		return nil, fmt.Errorf("invalid atom tag %d", spec.Field)
	}
	if len(spec.Children) == 0 {
		return nil, fmt.Errorf("atom %d: no fields selected", spec.Field)
	}

	var matchers []Matcher
	for _, child := range spec.Children {
		if !validFieldNumber(child.Field) {
			return nil, fmt.Errorf("atom %d: invalid field number %d", spec.Field, child.Field)
		}
		if len(child.Children) == 0 {
			matchers = append(matchers, Matcher{pos: child.Field})
			continue
		}
		position, err := NewPosition(child.Position)
		if err != nil {
			return nil, fmt.Errorf("atom %d field %d: %w", spec.Field, child.Field, err)
		}
		for _, leaf := range child.Children {
			if !validFieldNumber(leaf.Field) {
				return nil, fmt.Errorf("atom %d field %d: invalid sub-field number %d", spec.Field, child.Field, leaf.Field)
			}
			matchers = append(matchers, Matcher{pos: child.Field, position: position, subPos: leaf.Field})
		}
	}
	return matchers, nil
}

// Metric2Condition links metric-side fields to the dimension of one condition.
type Metric2Condition struct {
	ConditionID     int64
	metricFields    []Matcher
	conditionFields []Matcher
}

func NewMetric2Condition(spec specs.MetricConditionLinkSpec) (Metric2Condition, error) {
	metricFields, err := translateFieldMatcher(spec.FieldsInWhat)
	if err != nil {
		return Metric2Condition{}, fmt.Errorf("invalid fields in what: %w", err)
	}
	conditionFields, err := translateFieldMatcher(spec.FieldsInCondition)
	if err != nil {
		return Metric2Condition{}, fmt.Errorf("invalid fields in condition: %w", err)
	}
	if len(metricFields) != len(conditionFields) {
		return Metric2Condition{}, fmt.Errorf("condition %d: %d fields in what but %d in condition",
			spec.Condition, len(metricFields), len(conditionFields))
	}
	return Metric2Condition{
		ConditionID:     spec.Condition,
		metricFields:    metricFields,
		conditionFields: conditionFields,
	}, nil
}

// getDimensionForCondition selects the linked values from an event and renames
// them to the positions the condition's dimension uses.
func getDimensionForCondition(values []FieldValue, link Metric2Condition) HashableDimensionKey {
	var dimension []FieldValue
	for i, m := range link.metricFields {
		target := link.conditionFields[i]
		for _, fv := range m.Select(values) {
			field := Field{pos: target.pos}
			if target.nested() {
				index := fv.field.index
				if index == 0 {
					index = 1
				}
				field = Field{pos: target.pos, index: index, subPos: target.subPos}
			}
			dimension = append(dimension, FieldValue{field: field, value: fv.value})
		}
	}
	return HashableDimensionKey{values: dimension}
}
