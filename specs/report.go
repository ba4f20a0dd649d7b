package specs

// EventMetricReportSpec is the decoded view of one event metric's report section.
//
// The wire form is a length-delimited binary message; this type is what a reader of
// that message sees. Exactly one of Data and AggregatedAtoms is populated for a
// given producer: the storage mode is fixed for the producer's lifetime.
type EventMetricReportSpec struct {
	// Identifier of the metric that produced the section.
	MetricID int64 `json:"metricID"`

	// Whether the metric was active when the report was dumped.
	//
	// Reflects the activation state tracked outside the recorder, not whether any
	// data was stored.
	IsActive bool `json:"isActive"`

	// Verbatim records in arrival order.
	Data []EventMetricDataSpec `json:"data,omitempty"`

	// Aggregated entries, one per distinct atom dimension.
	//
	// Order across entries is not significant; timestamps inside an entry are in
	// arrival order.
	AggregatedAtoms []AggregatedAtomSpec `json:"aggregatedAtoms,omitempty"`
}

// EventMetricDataSpec is one verbatim record.
type EventMetricDataSpec struct {
	// Elapsed timestamp recorded for the event, after clamping and truncation.
	ElapsedTimestampNs int64 `json:"elapsedTimestampNs"`

	// The recorded atom.
	Atom AtomSpec `json:"atom"`
}

// AggregatedAtomSpec is one aggregated entry: an atom dimension and every time it was seen.
type AggregatedAtomSpec struct {
	// The atom reconstructed from its dimension key.
	Atom AtomSpec `json:"atom"`

	// Elapsed timestamps of every recorded occurrence, in arrival order.
	ElapsedTimestampsNs []int64 `json:"elapsedTimestampsNs"`
}

// AtomSpec is a decoded atom.
//
// The wire form does not carry declared types, so decoded fields are typed by their
// encoding: varints decode as "long", 32-bit fixed as "float", 64-bit fixed as
// "double", and length-delimited values as "string".
type AtomSpec struct {
	// Atom tag.
	AtomID int32 `json:"atomID"`

	// Top-level fields in wire order.
	Fields []FieldValueSpec `json:"fields,omitempty"`
}
