package benchmarks

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chrisconley/eventmetric/internal"
	"github.com/chrisconley/eventmetric/specs"
)

func newBenchProducer(tb testing.TB, aggregate bool) *internal.EventMetricProducer {
	tb.Helper()
	stats, err := internal.NewPrometheusStats(prometheus.NewRegistry())
	if err != nil {
		tb.Fatal(err)
	}
	p, err := internal.NewEventMetricProducer(
		internal.ConfigKey{UID: 1000, ID: 1},
		specs.EventMetricSpec{ID: 1, What: 100},
		-1, nil, nil, 0, 0,
		internal.WithStats(stats),
		internal.WithFlagProvider(internal.StaticFlagProvider{internal.AggregateAtomsFlag: aggregate}),
	)
	if err != nil {
		tb.Fatal(err)
	}
	return p
}

// wakelockEvents returns n wakelock events spread over distinct uids.
func wakelockEvents(tb testing.TB, n, distinct int) []internal.LogEvent {
	tb.Helper()
	events := make([]internal.LogEvent, n)
	for i := range events {
		event, err := internal.NewLogEvent(specs.LogEventSpec{
			AtomID:             10,
			ElapsedTimestampNs: int64(i) * 1000,
			Fields: []specs.FieldValueSpec{
				specs.NewNestedFieldValue(1, 1, specs.NewIntFieldValue(1, int32(10000+i%distinct))),
				specs.NewNestedFieldValue(1, 1, specs.NewStringFieldValue(2, "com.example.app")),
				specs.NewIntFieldValue(2, 1),
				specs.NewStringFieldValue(3, "*job*/sync"),
			},
		})
		if err != nil {
			tb.Fatal(err)
		}
		events[i] = event
	}
	return events
}

var modes = []struct {
	name      string
	aggregate bool
}{
	{"Verbatim", false},
	{"Aggregated", true},
}

// Benchmark admitting one event into each storage mode
func BenchmarkOnMatchedLogEvent(b *testing.B) {
	for _, mode := range modes {
		b.Run(mode.name, func(b *testing.B) {
			p := newBenchProducer(b, mode.aggregate)
			events := wakelockEvents(b, 1024, 16)
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				g := p.Lock()
				g.OnMatchedLogEvent(0, events[i%len(events)])
				if i%len(events) == len(events)-1 {
					g.ClearPastBuckets(0)
				}
				g.Unlock()
			}
		})
	}
}

// Benchmark dumping a filled store without erasing it
func BenchmarkDumpReport(b *testing.B) {
	for _, mode := range modes {
		for _, n := range []int{10, 1000} {
			b.Run(fmt.Sprintf("%s/%d_events", mode.name, n), func(b *testing.B) {
				p := newBenchProducer(b, mode.aggregate)
				p.WithLock(func(g *internal.Guard) {
					for _, event := range wakelockEvents(b, n, 16) {
						g.OnMatchedLogEvent(0, event)
					}
				})
				b.ReportAllocs()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					out := internal.NewProtoOutputStream()
					p.WithLock(func(g *internal.Guard) {
						g.DumpReport(0, true, false, internal.DumpLatencyFast, out)
					})
					if out.Err() != nil {
						b.Fatal(out.Err())
					}
				}
			})
		}
	}
}
