package internal

import "github.com/chrisconley/eventmetric/internal/infra"

// MatchedLogEvent is published when matcher MatcherIndex fires for Event.
type MatchedLogEvent struct {
	MatcherIndex int
	Event        LogEvent
}

func (MatchedLogEvent) EventType() infra.EventType { return infra.MatchedLogEventPublished }

// ConditionChange is published when condition tracker ConditionIndex flips.
type ConditionChange struct {
	ConditionIndex int
	ConditionMet   bool
	EventTimeNs    int64
}

func (ConditionChange) EventType() infra.EventType { return infra.ConditionChanged }

type SlicedConditionChange struct {
	ConditionIndex   int
	OverallCondition bool
	EventTimeNs      int64
}

func (SlicedConditionChange) EventType() infra.EventType { return infra.SlicedConditionMayChange }

// ReportDump asks every producer to append its section to Out as one
// ConfigMetricsReport metrics entry.
type ReportDump struct {
	DumpTimeNs                  int64
	IncludeCurrentPartialBucket bool
	EraseData                   bool
	Latency                     DumpLatency
	Out                         *ProtoOutputStream
}

func (ReportDump) EventType() infra.EventType { return infra.ReportDumpRequested }

type DataDrop struct {
	DropTimeNs int64
}

func (DataDrop) EventType() infra.EventType { return infra.DataDropRequested }

type PastBucketsClear struct {
	DumpTimeNs int64
}

func (PastBucketsClear) EventType() infra.EventType { return infra.PastBucketsClearRequested }

// SubscribeProducer routes bus events to p. matcherIndex is the index of the
// matcher feeding p. Each handler holds p's lock for the duration of the call.
func SubscribeProducer(bus *infra.Bus, p *EventMetricProducer, matcherIndex int) {
	bus.Subscribe(infra.MatchedLogEventPublished, func(e infra.Event) {
		matched := e.(MatchedLogEvent)
		if matched.MatcherIndex != matcherIndex {
			return
		}
		p.WithLock(func(g *Guard) {
			g.OnMatchedLogEvent(matched.MatcherIndex, matched.Event)
		})
	})

	bus.Subscribe(infra.ConditionChanged, func(e infra.Event) {
		changed := e.(ConditionChange)
		p.WithLock(func(g *Guard) {
			if g.ConditionTrackerIndex() != changed.ConditionIndex {
				return
			}
			g.OnConditionChanged(changed.ConditionMet, changed.EventTimeNs)
		})
	})

	bus.Subscribe(infra.SlicedConditionMayChange, func(e infra.Event) {
		changed := e.(SlicedConditionChange)
		p.WithLock(func(g *Guard) {
			if g.ConditionTrackerIndex() != changed.ConditionIndex {
				return
			}
			g.OnSlicedConditionMayChange(changed.OverallCondition, changed.EventTimeNs)
		})
	})

	bus.Subscribe(infra.ReportDumpRequested, func(e infra.Event) {
		dump := e.(ReportDump)
		p.WithLock(func(g *Guard) {
			g.dumpSection(dump)
		})
	})

	bus.Subscribe(infra.DataDropRequested, func(e infra.Event) {
		drop := e.(DataDrop)
		p.WithLock(func(g *Guard) {
			g.DropData(drop.DropTimeNs)
		})
	})

	bus.Subscribe(infra.PastBucketsClearRequested, func(e infra.Event) {
		clearReq := e.(PastBucketsClear)
		p.WithLock(func(g *Guard) {
			g.ClearPastBuckets(clearReq.DumpTimeNs)
		})
	})
}

// dumpSection writes p's report section as one metrics entry of dump.Out. The
// section is built apart so the store is only erased once dump.Out has
// accepted it.
func (g *Guard) dumpSection(dump ReportDump) {
	section := NewProtoOutputStream()
	g.DumpReport(dump.DumpTimeNs, dump.IncludeCurrentPartialBucket, false, dump.Latency, section)
	dump.Out.WriteBytes(fieldIDMetrics, section.Bytes())

	if err := dump.Out.Err(); err != nil {
		g.p.logger.Warnw("event metric report section rejected", "metric_id", g.p.metricID, "error", err)
		return
	}
	if dump.EraseData && section.Err() == nil {
		g.p.state.store.clear()
	}
}
