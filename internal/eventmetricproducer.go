package internal

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/chrisconley/eventmetric/specs"
)

var (
	ErrUnknownMatcher   = errors.New("unknown atom matcher")
	ErrUnknownCondition = errors.New("unknown condition")
)

// StorageMode is how an event metric stores admitted events. It is fixed when
// the producer is built.
type StorageMode int

const (
	StorageModeVerbatim StorageMode = iota
	StorageModeAggregated
)

func (m StorageMode) String() string {
	switch m {
	case StorageModeVerbatim:
		return "verbatim"
	case StorageModeAggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}

// DumpLatency hints how long a dump may take. Event metrics do no work that
// depends on it.
type DumpLatency int

const (
	DumpLatencyFast DumpLatency = iota
	DumpLatencyNoTimeConstraints
)

func (l DumpLatency) String() string {
	switch l {
	case DumpLatencyFast:
		return "fast"
	case DumpLatencyNoTimeConstraints:
		return "no_time_constraints"
	default:
		return "unknown"
	}
}

// ConfigKey identifies the config a metric belongs to.
type ConfigKey struct {
	UID int32
	ID  int64
}

func NewConfigKey(spec specs.ConfigKeySpec) ConfigKey {
	return ConfigKey{UID: spec.UID, ID: spec.ID}
}

func (k ConfigKey) String() string {
	return fmt.Sprintf("(%d %d)", k.UID, k.ID)
}

type producerOptions struct {
	logger     *zap.SugaredLogger
	flags      FlagProvider
	stats      Stats
	activation Activation
	timestamps TimestampPolicy
}

type ProducerOption func(*producerOptions)

func WithLogger(logger *zap.SugaredLogger) ProducerOption {
	return func(o *producerOptions) { o.logger = logger }
}

// WithFlagProvider sets where the storage mode flag is read from. Defaults to
// the environment.
func WithFlagProvider(flags FlagProvider) ProducerOption {
	return func(o *producerOptions) { o.flags = flags }
}

// WithStats sets where drop statistics are recorded. Defaults to DefaultStats.
func WithStats(stats Stats) ProducerOption {
	return func(o *producerOptions) { o.stats = stats }
}

func WithActivation(activation Activation) ProducerOption {
	return func(o *producerOptions) { o.activation = activation }
}

func WithTimestampPolicy(policy TimestampPolicy) ProducerOption {
	return func(o *producerOptions) { o.timestamps = policy }
}

// EventMetricProducer records the events matched for one event metric and
// writes them into reports.
//
// All mutable state sits behind a mutex. Lock returns the Guard through which
// every operation is reached.
type EventMetricProducer struct {
	metricID  int64
	configKey ConfigKey
	protoHash uint64
	mode      StorageMode
	logger    *zap.SugaredLogger

	mu    sync.Mutex
	state producerState
}

type producerState struct {
	timeBaseNs            int64
	conditionTrackerIndex int
	condition             ConditionState
	conditionSliced       bool
	links                 []Metric2Condition
	wizard                ConditionWizard
	activation            Activation
	stats                 Stats
	timestamps            TimestampPolicy
	store                 eventStore
}

// NewEventMetricProducer builds a producer for metric. conditionIndex is the
// index of the metric's condition tracker, or -1 when it has none;
// initialConditionCache holds the current state of every condition tracker.
func NewEventMetricProducer(
	key ConfigKey,
	metric specs.EventMetricSpec,
	conditionIndex int,
	initialConditionCache []ConditionState,
	wizard ConditionWizard,
	protoHash uint64,
	startTimeNs int64,
	opts ...ProducerOption,
) (*EventMetricProducer, error) {
	o := producerOptions{logger: nopLogger(), activation: AlwaysActive{}}
	for _, opt := range opts {
		opt(&o)
	}

	links, err := translateLinks(metric.Links)
	if len(metric.Links) > 0 && wizard == nil {
		err = multierr.Append(err, errors.New("links declared without a condition wizard"))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid metric %d: %w", metric.ID, err)
	}

	if o.flags == nil {
		flags, err := NewEnvFlagProvider()
		if err != nil {
			return nil, fmt.Errorf("invalid metric %d: %w", metric.ID, err)
		}
		o.flags = flags
	}
	if o.stats == nil {
		o.stats = DefaultStats()
	}
	if o.timestamps == nil {
		o.timestamps = NewSaturatingTimestampPolicy()
	}

	mode := StorageModeVerbatim
	var store eventStore = newVerbatimStore()
	if o.flags.GetBootFlagBool(AggregateAtomsFlag, false) {
		mode = StorageModeAggregated
		store = newAggregatedStore()
	}

	p := &EventMetricProducer{
		metricID:  metric.ID,
		configKey: key,
		protoHash: protoHash,
		mode:      mode,
		logger:    o.logger,
		state: producerState{
			timeBaseNs:            startTimeNs,
			conditionTrackerIndex: conditionIndex,
			condition:             initialCondition(conditionIndex, initialConditionCache),
			conditionSliced:       len(links) > 0,
			links:                 links,
			wizard:                wizard,
			activation:            o.activation,
			stats:                 o.stats,
			timestamps:            o.timestamps,
			store:                 store,
		},
	}

	p.logger.Debugw("event metric created",
		"metric_id", metric.ID,
		"config", key.String(),
		"mode", mode.String(),
		"start_time_ns", startTimeNs,
	)
	return p, nil
}

func translateLinks(linkSpecs []specs.MetricConditionLinkSpec) ([]Metric2Condition, error) {
	var errs error
	links := make([]Metric2Condition, 0, len(linkSpecs))
	for i, linkSpec := range linkSpecs {
		link, err := NewMetric2Condition(linkSpec)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid links[%d]: %w", i, err))
			continue
		}
		links = append(links, link)
	}
	if errs != nil {
		return nil, errs
	}
	return links, nil
}

func initialCondition(conditionIndex int, cache []ConditionState) ConditionState {
	if conditionIndex < 0 {
		return ConditionTrue
	}
	if conditionIndex >= len(cache) {
		return ConditionUnknown
	}
	return cache[conditionIndex]
}

func (p *EventMetricProducer) MetricID() int64 { return p.metricID }
func (p *EventMetricProducer) ConfigKey() ConfigKey { return p.configKey }
func (p *EventMetricProducer) Mode() StorageMode { return p.mode }
func (p *EventMetricProducer) ProtoHash() uint64 { return p.protoHash }

// Lock acquires the producer and returns the guard its operations hang off.
func (p *EventMetricProducer) Lock() *Guard {
	p.mu.Lock()
	return &Guard{p: p}
}

// WithLock runs fn while holding the producer.
func (p *EventMetricProducer) WithLock(fn func(g *Guard)) {
	g := p.Lock()
	defer g.Unlock()
	fn(g)
}

// Guard is proof that the producer's lock is held. It is invalid after Unlock.
type Guard struct {
	p *EventMetricProducer
}

func (g *Guard) Unlock() {
	p := g.p
	g.p = nil
	p.mu.Unlock()
}

func (g *Guard) Condition() ConditionState { return g.p.state.condition }
func (g *Guard) ConditionSliced() bool { return g.p.state.conditionSliced }
func (g *Guard) IsActive() bool { return g.p.state.activation.IsActive() }

// ConditionTrackerIndex returns the index of the metric's condition tracker,
// or -1 when it has none.
func (g *Guard) ConditionTrackerIndex() int { return g.p.state.conditionTrackerIndex }

// OnMatchedLogEvent resolves the condition gate for event and records it.
func (g *Guard) OnMatchedLogEvent(matcherIndex int, event LogEvent) {
	s := &g.p.state
	if !s.activation.IsActive() {
		return
	}

	var conditionKey ConditionKey
	condition := s.condition == ConditionTrue
	if s.conditionSliced {
		conditionKey = make(ConditionKey, len(s.links))
		for _, link := range s.links {
			conditionKey[link.ConditionID] = getDimensionForCondition(event.Values(), link)
		}
		condition = s.wizard.Query(s.conditionTrackerIndex, conditionKey) == ConditionTrue
	}

	g.OnMatchedLogEventInternal(matcherIndex, DefaultMetricDimensionKey, conditionKey, condition, event, nil)
}

// OnMatchedLogEventInternal records event when condition holds. eventKey,
// conditionKey and statePrimaryKeys are accepted for parity with sliced metrics
// and are not used.
func (g *Guard) OnMatchedLogEventInternal(
	matcherIndex int,
	eventKey MetricDimensionKey,
	conditionKey ConditionKey,
	condition bool,
	event LogEvent,
	statePrimaryKeys map[int32]HashableDimensionKey,
) {
	if !condition {
		return
	}

	s := &g.p.state
	elapsedTimeNs := s.timestamps.Truncate(event)
	if elapsedTimeNs != event.ElapsedTimestampNs() {
		g.p.logger.Debugw("event timestamp adjusted",
			"metric_id", g.p.metricID,
			"atom", event.TagID(),
			"logged_ns", event.ElapsedTimestampNs(),
			"recorded_ns", elapsedTimeNs,
		)
	}
	s.store.record(elapsedTimeNs, event)
}

// OnConditionChanged replaces the stored condition state.
func (g *Guard) OnConditionChanged(conditionMet bool, eventTimeNs int64) {
	g.p.logger.Debugw("condition changed", "metric_id", g.p.metricID, "condition", conditionMet, "event_time_ns", eventTimeNs)
	if conditionMet {
		g.p.state.condition = ConditionTrue
	} else {
		g.p.state.condition = ConditionFalse
	}
}

// OnSlicedConditionMayChange does nothing: event metrics query sliced
// conditions per event.
func (g *Guard) OnSlicedConditionMayChange(overallCondition bool, eventTimeNs int64) {}

// DumpReport writes the metric's report section to out: the metric id, the
// active flag, then the stored events if there are any. When eraseData is set
// the store is cleared afterwards.
//
// Sink failures are logged and left on out.Err(). Bytes already written stay
// written; the store is only kept when nothing past the header was written.
func (g *Guard) DumpReport(dumpTimeNs int64, includeCurrentPartialBucket, eraseData bool, latency DumpLatency, out *ProtoOutputStream) {
	s := &g.p.state
	out.WriteInt64(fieldIDID, g.p.metricID)
	out.WriteBool(fieldIDIsActive, s.activation.IsActive())
	if s.store.empty() {
		return
	}

	g.p.logger.Debugw("dumping event metric",
		"metric_id", g.p.metricID,
		"dump_time_ns", dumpTimeNs,
		"time_base_ns", s.timeBaseNs,
		"byte_size", s.store.byteSize(),
		"erase", eraseData,
		"latency", latency.String(),
	)

	before := out.BytesWritten()
	if err := s.store.writeTo(out); err != nil {
		g.p.logger.Warnw("event metric report incomplete", "metric_id", g.p.metricID, "error", err)
		if out.BytesWritten() == before {
			return
		}
	}
	if eraseData {
		s.store.clear()
	}
}

// DropData discards stored events without reporting them.
func (g *Guard) DropData(dropTimeNs int64) {
	g.p.state.store.clear()
	g.p.state.stats.NoteBucketDropped(g.p.metricID)
	g.p.logger.Debugw("event metric data dropped", "metric_id", g.p.metricID, "drop_time_ns", dropTimeNs)
}

// ClearPastBuckets discards stored events.
func (g *Guard) ClearPastBuckets(dumpTimeNs int64) {
	g.p.state.store.clear()
}

// ByteSize approximates the memory held by stored events.
func (g *Guard) ByteSize() int {
	return g.p.state.store.byteSize()
}

// ConfigUpdate carries what a producer needs to relink itself to a new config.
type ConfigUpdate struct {
	Config specs.StatsdConfigSpec
	// Index of the metric in Config.EventMetrics.
	ConfigIndex int
	// Index of the producer among all producers of the config.
	MetricIndex int

	AtomMatchingTrackerMap map[int64]int
	ConditionTrackerMap    map[int64]int
	Wizard                 ConditionWizard
	// Current state of every condition tracker of the new config, indexed like
	// ConditionTrackerMap values. Read only when the metric moves to another
	// tracker; missing entries leave the condition unknown.
	InitialConditionCache []ConditionState

	// Filled in with MetricIndex on success.
	TrackerToMetricMap   map[int][]int
	ConditionToMetricMap map[int][]int
}

// OnConfigUpdated relinks the metric to the trackers of update.Config. It
// returns false when the metric's matcher or condition cannot be resolved; the
// caller then removes the metric. A metric moved to another condition tracker
// takes that tracker's state from update.InitialConditionCache.
func (g *Guard) OnConfigUpdated(update ConfigUpdate) bool {
	if err := g.onConfigUpdated(update); err != nil {
		g.p.logger.Warnw("event metric config update failed", "metric_id", g.p.metricID, "error", err)
		return false
	}
	return true
}

func (g *Guard) onConfigUpdated(u ConfigUpdate) error {
	if u.ConfigIndex < 0 || u.ConfigIndex >= len(u.Config.EventMetrics) {
		return fmt.Errorf("config index %d out of range", u.ConfigIndex)
	}
	metric := u.Config.EventMetrics[u.ConfigIndex]
	if metric.ID != g.p.metricID {
		return fmt.Errorf("config index %d holds metric %d", u.ConfigIndex, metric.ID)
	}

	trackerIndex, ok := u.AtomMatchingTrackerMap[metric.What]
	if !ok {
		return fmt.Errorf("what %d: %w", metric.What, ErrUnknownMatcher)
	}
	appendMetricIndex(u.TrackerToMetricMap, trackerIndex, u.MetricIndex)

	conditionIndex := -1
	var links []Metric2Condition
	if metric.Condition != nil {
		index, ok := u.ConditionTrackerMap[*metric.Condition]
		if !ok {
			return fmt.Errorf("condition %d: %w", *metric.Condition, ErrUnknownCondition)
		}
		for _, link := range metric.Links {
			if _, ok := u.ConditionTrackerMap[link.Condition]; !ok {
				return fmt.Errorf("link condition %d: %w", link.Condition, ErrUnknownCondition)
			}
		}
		appendMetricIndex(u.ConditionToMetricMap, index, u.MetricIndex)

		var err error
		links, err = translateLinks(metric.Links)
		if err != nil {
			return err
		}
		conditionIndex = index
	}

	wizard := g.p.state.wizard
	if u.Wizard != nil {
		wizard = u.Wizard
	}
	if len(links) > 0 && wizard == nil {
		return errors.New("links declared without a condition wizard")
	}

	s := &g.p.state
	if conditionIndex != s.conditionTrackerIndex {
		s.condition = initialCondition(conditionIndex, u.InitialConditionCache)
	}
	s.conditionTrackerIndex = conditionIndex
	s.links = links
	s.conditionSliced = len(links) > 0
	s.wizard = wizard
	return nil
}

func appendMetricIndex(m map[int][]int, trackerIndex, metricIndex int) {
	if m == nil {
		return
	}
	m[trackerIndex] = append(m[trackerIndex], metricIndex)
}

// eventStore is the storage of one producer. Exactly one implementation is
// live per producer.
type eventStore interface {
	record(elapsedTimeNs int64, event LogEvent)
	writeTo(out *ProtoOutputStream) error
	empty() bool
	clear()
	byteSize() int
}

// verbatimStore keeps every event as an encoded EventMetricData record.
type verbatimStore struct {
	proto *ProtoOutputStream
}

func newVerbatimStore() *verbatimStore {
	return &verbatimStore{proto: NewProtoOutputStream()}
}

func (s *verbatimStore) record(elapsedTimeNs int64, event LogEvent) {
	wrapperToken := s.proto.Start(fieldIDData)
	s.proto.WriteInt64(fieldIDElapsedTimestampNanos, elapsedTimeNs)
	eventToken := s.proto.Start(fieldIDAtoms)
	event.ToProto(s.proto)
	s.proto.End(eventToken)
	s.proto.End(wrapperToken)
}

func (s *verbatimStore) writeTo(out *ProtoOutputStream) error {
	buf, err := copyReader(s.proto.Data())
	if err != nil {
		return fmt.Errorf("copy event records: %w", err)
	}
	out.WriteBytes(fieldIDEventMetrics, buf)
	return out.Err()
}

func (s *verbatimStore) empty() bool { return s.proto.Size() == 0 }
func (s *verbatimStore) clear() { s.proto.Clear() }
func (s *verbatimStore) byteSize() int { return s.proto.Size() }

// aggregatedStore keeps one entry per atom dimension with every timestamp it
// was seen at.
type aggregatedStore struct {
	atoms *AggregatedAtoms
}

func newAggregatedStore() *aggregatedStore {
	return &aggregatedStore{atoms: NewAggregatedAtoms()}
}

func (s *aggregatedStore) record(elapsedTimeNs int64, event LogEvent) {
	key := NewAtomDimensionKey(event.TagID(), NewHashableDimensionKey(event.Values()))
	s.atoms.Append(key, elapsedTimeNs)
}

func (s *aggregatedStore) writeTo(out *ProtoOutputStream) error {
	protoToken := out.Start(fieldIDEventMetrics)
	s.atoms.Each(func(key AtomDimensionKey, timestamps []int64) {
		wrapperToken := out.Start(fieldIDData)
		aggregatedToken := out.Start(fieldIDAggregatedAtom)
		atomToken := out.Start(fieldIDAtom)
		writeFieldValueTreeToStream(key.Tag(), key.Values().values, out)
		out.End(atomToken)
		for _, ts := range timestamps {
			out.WriteInt64(fieldIDAtomTimestamps, ts)
		}
		out.End(aggregatedToken)
		out.End(wrapperToken)
	})
	out.End(protoToken)
	return out.Err()
}

func (s *aggregatedStore) empty() bool { return s.atoms.Len() == 0 }
func (s *aggregatedStore) clear() { s.atoms.Clear() }
func (s *aggregatedStore) byteSize() int { return s.atoms.ByteSize() }
