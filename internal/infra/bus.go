package infra

// EventType represents the type of event in the system
type EventType int

const (
	LogEventPublished EventType = iota
	MatchedLogEventPublished
	ConditionChanged
	SlicedConditionMayChange
	ReportDumpRequested
	DataDropRequested
	PastBucketsClearRequested
)

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case LogEventPublished:
		return "LogEventPublished"
	case MatchedLogEventPublished:
		return "MatchedLogEventPublished"
	case ConditionChanged:
		return "ConditionChanged"
	case SlicedConditionMayChange:
		return "SlicedConditionMayChange"
	case ReportDumpRequested:
		return "ReportDumpRequested"
	case DataDropRequested:
		return "DataDropRequested"
	case PastBucketsClearRequested:
		return "PastBucketsClearRequested"
	default:
		return "Unknown"
	}
}

type Event interface{ EventType() EventType }
type Handler func(Event)

// Bus delivers events synchronously, in subscription order, on the publishing
// goroutine. Subscribe all handlers before publishing.
type Bus struct{ subs map[EventType][]Handler }

func NewBus() *Bus { return &Bus{subs: map[EventType][]Handler{}} }
func (b *Bus) Publish(e Event) {
	for _, h := range b.subs[e.EventType()] {
		h(e)
	}
}
func (b *Bus) Subscribe(evt EventType, h Handler) { b.subs[evt] = append(b.subs[evt], h) }

// Subscribers returns the number of handlers subscribed to evt.
func (b *Bus) Subscribers(evt EventType) int { return len(b.subs[evt]) }
