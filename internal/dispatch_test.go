package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisconley/eventmetric/internal/infra"
	"github.com/chrisconley/eventmetric/specs"
)

func TestSubscribeProducer(t *testing.T) {
	t.Run("routes matched events by matcher index", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		p := newTestProducer(t, testProducerConfig{})
		SubscribeProducer(bus, p, 3)

		// Act
		bus.Publish(MatchedLogEvent{MatcherIndex: 2, Event: newTestEvent(t, testAtomTag, 100, specs.NewIntFieldValue(1, 1))})
		bus.Publish(MatchedLogEvent{MatcherIndex: 3, Event: newTestEvent(t, testAtomTag, 200, specs.NewIntFieldValue(1, 2))})

		// Assert
		report := dumpReport(t, p, false)
		require.Len(t, report.Data, 1)
		assert.Equal(t, int64(200), report.Data[0].ElapsedTimestampNs)
	})

	t.Run("applies condition changes for its own tracker only", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		p := newTestProducer(t, testProducerConfig{
			metric:         specs.EventMetricSpec{ID: testMetricID, What: 100, Condition: ptr(int64(200))},
			conditionIndex: 1,
			conditionCache: []ConditionState{ConditionTrue, ConditionFalse},
		})
		SubscribeProducer(bus, p, 0)

		// Act & Assert
		bus.Publish(ConditionChange{ConditionIndex: 0, ConditionMet: true, EventTimeNs: 10})
		p.WithLock(func(g *Guard) { assert.Equal(t, ConditionFalse, g.Condition()) })

		bus.Publish(ConditionChange{ConditionIndex: 1, ConditionMet: true, EventTimeNs: 20})
		p.WithLock(func(g *Guard) { assert.Equal(t, ConditionTrue, g.Condition()) })

		bus.Publish(SlicedConditionChange{ConditionIndex: 1, OverallCondition: false, EventTimeNs: 30})
		p.WithLock(func(g *Guard) { assert.Equal(t, ConditionTrue, g.Condition()) })
	})

	t.Run("dumps every producer as one metrics entry each", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		first := newTestProducer(t, testProducerConfig{metric: specs.EventMetricSpec{ID: 1, What: 100}})
		second := newTestProducer(t, testProducerConfig{aggregate: true, metric: specs.EventMetricSpec{ID: 2, What: 100}})
		SubscribeProducer(bus, first, 0)
		SubscribeProducer(bus, second, 0)
		bus.Publish(MatchedLogEvent{Event: newTestEvent(t, testAtomTag, 100, specs.NewIntFieldValue(1, 1))})
		out := NewProtoOutputStream()

		// Act
		bus.Publish(ReportDump{DumpTimeNs: 1000, EraseData: true, Latency: DumpLatencyNoTimeConstraints, Out: out})

		// Assert
		require.NoError(t, out.Err())
		reports, err := DecodeConfigMetricsReport(out.Bytes())
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, int64(1), reports[0].MetricID)
		assert.Len(t, reports[0].Data, 1)
		assert.Equal(t, int64(2), reports[1].MetricID)
		require.Len(t, reports[1].AggregatedAtoms, 1)
		assert.Equal(t, []int64{100}, reports[1].AggregatedAtoms[0].ElapsedTimestampsNs)
		assert.Zero(t, byteSize(first))
		assert.Zero(t, byteSize(second))
	})

	t.Run("keeps stored events when the sink rejects the section", func(t *testing.T) {
		for _, mode := range bothModes {
			t.Run(mode.name, func(t *testing.T) {
				// Arrange
				bus := infra.NewBus()
				p := newTestProducer(t, testProducerConfig{aggregate: mode.aggregate})
				SubscribeProducer(bus, p, 0)
				bus.Publish(MatchedLogEvent{Event: newTestEvent(t, testAtomTag, 100, specs.NewIntFieldValue(1, 1))})
				sizeBefore := byteSize(p)
				full := NewProtoOutputStream(WithCapacity(8))

				// Act
				bus.Publish(ReportDump{DumpTimeNs: 1000, EraseData: true, Out: full})

				// Assert
				assert.ErrorIs(t, full.Err(), ErrCapacityExceeded)
				assert.Zero(t, full.BytesWritten())
				assert.Equal(t, sizeBefore, byteSize(p))

				out := NewProtoOutputStream()
				bus.Publish(ReportDump{DumpTimeNs: 2000, EraseData: true, Out: out})
				require.NoError(t, out.Err())
				reports, err := DecodeConfigMetricsReport(out.Bytes())
				require.NoError(t, err)
				require.Len(t, reports, 1)
				assert.Equal(t, 1, len(reports[0].Data)+len(reports[0].AggregatedAtoms))
				assert.Zero(t, byteSize(p))
			})
		}
	})

	t.Run("does not erase when the sink has already failed", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		p := newTestProducer(t, testProducerConfig{})
		SubscribeProducer(bus, p, 0)
		bus.Publish(MatchedLogEvent{Event: newTestEvent(t, testAtomTag, 100, specs.NewIntFieldValue(1, 1))})
		out := NewProtoOutputStream(WithCapacity(1))
		out.WriteString(1, "does not fit")
		require.Error(t, out.Err())

		// Act
		bus.Publish(ReportDump{DumpTimeNs: 1000, EraseData: true, Out: out})

		// Assert
		assert.Positive(t, byteSize(p))
	})

	t.Run("drops and clears stored events", func(t *testing.T) {
		for _, evt := range []infra.Event{DataDrop{DropTimeNs: 10}, PastBucketsClear{DumpTimeNs: 10}} {
			t.Run(evt.EventType().String(), func(t *testing.T) {
				// Arrange
				bus := infra.NewBus()
				p := newTestProducer(t, testProducerConfig{})
				SubscribeProducer(bus, p, 0)
				bus.Publish(MatchedLogEvent{Event: newTestEvent(t, testAtomTag, 100, specs.NewIntFieldValue(1, 1))})
				require.Positive(t, byteSize(p))

				// Act
				bus.Publish(evt)

				// Assert
				assert.Zero(t, byteSize(p))
			})
		}
	})

	t.Run("subscribes to every producer event", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()

		// Act
		SubscribeProducer(bus, newTestProducer(t, testProducerConfig{}), 0)

		// Assert
		for _, evt := range []infra.EventType{
			infra.MatchedLogEventPublished,
			infra.ConditionChanged,
			infra.SlicedConditionMayChange,
			infra.ReportDumpRequested,
			infra.DataDropRequested,
			infra.PastBucketsClearRequested,
		} {
			assert.Equal(t, 1, bus.Subscribers(evt), evt.String())
		}
	})
}

func TestContracts(t *testing.T) {
	t.Run("records and dumps through the function contracts", func(t *testing.T) {
		// Arrange
		p := newTestProducer(t, testProducerConfig{})
		onMatched := OnMatchedLogEventFunc(p)
		dump := DumpReportFunc(p)

		// Act
		onMatched(0, specs.LogEventSpec{AtomID: testAtomTag, ElapsedTimestampNs: 100, Fields: []specs.FieldValueSpec{specs.NewIntFieldValue(1, 1)}})
		onMatched(0, specs.LogEventSpec{AtomID: 0})
		b, err := dump(1000, true)

		// Assert
		require.NoError(t, err)
		report, err := DecodeStatsLogReport(b)
		require.NoError(t, err)
		require.Len(t, report.Data, 1)
		assert.Equal(t, int64(100), report.Data[0].ElapsedTimestampNs)
		assert.Zero(t, byteSize(p))
	})
}
