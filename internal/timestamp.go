package internal

import "time"

// Atoms with tags in this range always have their timestamps truncated.
const (
	TimestampTruncationStartTag int32 = 300000
	TimestampTruncationEndTag   int32 = 304999
)

const timestampTruncationNs = int64(5 * time.Minute)

// TimestampPolicy turns the timestamp an event was logged with into the one
// recorded for it.
type TimestampPolicy interface {
	Truncate(event LogEvent) int64
}

// SaturatingTimestampPolicy clamps timestamps instead of rejecting events.
//
// Negative timestamps become 0. When a clock is set, timestamps past the
// clock's current value become that value. Events that ask for truncation, and
// atoms in the truncation set or range, are then rounded down to five minutes.
type SaturatingTimestampPolicy struct {
	now        func() int64
	truncated  map[int32]struct{}
	rangeStart int32
	rangeEnd   int32
}

type TimestampPolicyOption func(*SaturatingTimestampPolicy)

// WithClock sets the source of the current elapsed time in nanoseconds.
func WithClock(now func() int64) TimestampPolicyOption {
	return func(p *SaturatingTimestampPolicy) { p.now = now }
}

// WithTruncatedAtoms adds atoms whose timestamps are always truncated.
func WithTruncatedAtoms(tags ...int32) TimestampPolicyOption {
	return func(p *SaturatingTimestampPolicy) {
		for _, tag := range tags {
			p.truncated[tag] = struct{}{}
		}
	}
}

// WithTruncationRange replaces the default truncation tag range. An empty range
// (start > end) disables it.
func WithTruncationRange(start, end int32) TimestampPolicyOption {
	return func(p *SaturatingTimestampPolicy) {
		p.rangeStart = start
		p.rangeEnd = end
	}
}

func NewSaturatingTimestampPolicy(opts ...TimestampPolicyOption) *SaturatingTimestampPolicy {
	p := &SaturatingTimestampPolicy{
		truncated:  map[int32]struct{}{},
		rangeStart: TimestampTruncationStartTag,
		rangeEnd:   TimestampTruncationEndTag,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SaturatingTimestampPolicy) Truncate(event LogEvent) int64 {
	ts := event.ElapsedTimestampNs()
	if ts < 0 {
		ts = 0
	}
	if p.now != nil {
		if now := p.now(); now >= 0 && ts > now {
			ts = now
		}
	}
	if p.shouldTruncate(event) {
		ts = ts / timestampTruncationNs * timestampTruncationNs
	}
	return ts
}

func (p *SaturatingTimestampPolicy) shouldTruncate(event LogEvent) bool {
	if event.TruncateTimestamp() {
		return true
	}
	tag := event.TagID()
	if _, ok := p.truncated[tag]; ok {
		return true
	}
	return tag >= p.rangeStart && tag <= p.rangeEnd
}
