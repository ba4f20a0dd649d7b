package specs

// ConfigKeySpec identifies the config that owns a metric.
type ConfigKeySpec struct {
	// Uid of the client that pushed the config.
	UID int32 `json:"uid"`

	// Config identifier, unique per uid.
	ID int64 `json:"id"`
}

// StatsdConfigSpec is the subset of a pushed config an event metric needs to relink
// itself on a config update.
//
// Matchers and predicates are referenced by id; their position in these slices is
// the tracker index handed to producers.
type StatsdConfigSpec struct {
	// Config identifier.
	ID int64 `json:"id"`

	// Atom matchers defined by the config.
	AtomMatchers []AtomMatcherSpec `json:"atomMatchers,omitempty"`

	// Predicates defined by the config.
	Predicates []PredicateSpec `json:"predicates,omitempty"`

	// Event metrics defined by the config.
	EventMetrics []EventMetricSpec `json:"eventMetrics,omitempty"`
}

// AtomMatcherSpec identifies an atom matcher.
type AtomMatcherSpec struct {
	// Matcher identifier referenced by EventMetricSpec.What.
	ID int64 `json:"id"`

	// Atom tag the matcher fires on.
	AtomID int32 `json:"atomID"`
}

// PredicateSpec identifies a predicate (condition).
type PredicateSpec struct {
	// Predicate identifier referenced by EventMetricSpec.Condition and links.
	ID int64 `json:"id"`
}
