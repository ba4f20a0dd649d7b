package specs

// Matcher positions accepted in FieldMatcherSpec.Position.
const (
	PositionAny   = ""
	PositionFirst = "FIRST"
	PositionLast  = "LAST"
	PositionAll   = "ALL"
)

// EventMetricSpec defines one event metric inside a config.
//
// An event metric records every matched event (optionally gated by a condition)
// until a report is pulled. It has no buckets: data accumulates for the life of the
// report and is emitted verbatim or aggregated by atom dimension.
type EventMetricSpec struct {
	// Unique identifier for this metric within its config.
	//
	// Written as the first field of every report section the metric produces.
	ID int64 `json:"id"`

	// Identifier of the atom matcher whose matches feed this metric.
	//
	// Must resolve against the config's atom matchers when the config is loaded or
	// updated; an unresolvable matcher disables the metric.
	What int64 `json:"what"`

	// Optional identifier of the predicate gating this metric.
	//
	// If nil the metric records every matched event. If set, events are recorded only
	// while the predicate evaluates to true.
	Condition *int64 `json:"condition,omitempty"`

	// Links correlating fields of the matched atom with dimensions of a sliced condition.
	//
	// When any link is declared the condition becomes sliced: instead of a single
	// boolean the condition is queried per event with a key built from the linked fields.
	Links []MetricConditionLinkSpec `json:"links,omitempty"`
}

// MetricConditionLinkSpec maps metric-side fields to condition-side fields.
//
// FieldsInWhat and FieldsInCondition must select the same number of fields; the i-th
// metric field is renamed to the i-th condition field when building the condition key.
type MetricConditionLinkSpec struct {
	// Identifier of the predicate this link queries.
	Condition int64 `json:"condition"`

	// Fields selected from the matched atom.
	FieldsInWhat FieldMatcherSpec `json:"fieldsInWhat"`

	// Fields of the condition's dimension the selected values correspond to.
	FieldsInCondition FieldMatcherSpec `json:"fieldsInCondition"`
}

// FieldMatcherSpec selects fields from an atom.
//
// The root Field is the atom tag. Each child selects a top-level field by number;
// a child with its own children selects sub-fields of a repeated nested message.
//
// Examples:
//   - uid (field 1) of atom 10: {Field: 10, Children: [{Field: 1}]}
//   - uid of the first attribution node: {Field: 10, Children: [{Field: 1, Position: "FIRST", Children: [{Field: 1}]}]}
type FieldMatcherSpec struct {
	// Atom tag at the root, field number below it.
	Field int32 `json:"field"`

	// Element selection for repeated nested messages: "FIRST", "LAST", or "ALL".
	// Empty selects every element, like "ALL".
	Position string `json:"position,omitempty"`

	// Sub-selections.
	Children []FieldMatcherSpec `json:"children,omitempty"`
}
