package specs

// OnMatchedLogEvent delivers one matched log event to an event metric.
//
// For each delivery:
//  1. Drop the event if the metric is not active
//  2. Resolve the condition gate (no condition, unsliced, or sliced via links)
//  3. Drop the event if the gate is false
//  4. Clamp the event timestamp and truncate it for atoms that require it
//  5. Store the event verbatim, or append its timestamp to its atom dimension
//
// Admission has no error return: malformed events are stored with clamped values
// or not at all.
//
// This is the contract form using only primitive types.
// See internal.Guard.OnMatchedLogEvent for the reference implementation.
type OnMatchedLogEvent func(matcherIndex int, event LogEventSpec)

// DumpReport serializes everything the metric stored since its last erase.
//
// The section always carries the metric id and active flag. Stored data follows
// only when something was recorded. When erase is true the store is emptied after
// a successful write.
//
// Returns the serialized section and any sink error. A sink error may leave a
// partially written section; the store is then kept unless nothing was written.
//
// See internal.Guard.DumpReport for the reference implementation and
// internal.DecodeStatsLogReport for turning the bytes back into an EventMetricReportSpec.
type DumpReport func(dumpTimeNs int64, erase bool) ([]byte, error)
