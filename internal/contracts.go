package internal

import (
	"fmt"

	"github.com/chrisconley/eventmetric/specs"
)

// OnMatchedLogEventFunc implements specs.OnMatchedLogEvent for p.
// Events that do not convert are logged and dropped.
func OnMatchedLogEventFunc(p *EventMetricProducer) specs.OnMatchedLogEvent {
	return func(matcherIndex int, eventSpec specs.LogEventSpec) {
		event, err := NewLogEvent(eventSpec)
		if err != nil {
			p.logger.Debugw("dropping invalid log event", "metric_id", p.metricID, "atom", eventSpec.AtomID, "error", err)
			return
		}
		p.WithLock(func(g *Guard) {
			g.OnMatchedLogEvent(matcherIndex, event)
		})
	}
}

// DumpReportFunc implements specs.DumpReport for p.
func DumpReportFunc(p *EventMetricProducer) specs.DumpReport {
	return func(dumpTimeNs int64, erase bool) ([]byte, error) {
		out := NewProtoOutputStream()
		p.WithLock(func(g *Guard) {
			g.DumpReport(dumpTimeNs, true, erase, DumpLatencyFast, out)
		})
		if err := out.Err(); err != nil {
			return out.Bytes(), fmt.Errorf("dump metric %d: %w", p.metricID, err)
		}
		return out.Bytes(), nil
	}
}
