package internal

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chrisconley/eventmetric/specs"
)

// ConfigMetricsReport
const fieldIDMetrics = 1

// StatsLogReport
const (
	fieldIDID           = 1
	fieldIDEventMetrics = 4
	fieldIDIsActive     = 14
)

// EventMetricDataWrapper
const fieldIDData = 1

// EventMetricData
const (
	fieldIDElapsedTimestampNanos = 1
	fieldIDAtoms                 = 2
	fieldIDAggregatedAtom        = 4
)

// AggregatedAtomInfo
const (
	fieldIDAtom           = 1
	fieldIDAtomTimestamps = 2
)

// DecodeConfigMetricsReport decodes every metric section of a report assembled
// from several producers.
func DecodeConfigMetricsReport(b []byte) ([]specs.EventMetricReportSpec, error) {
	var reports []specs.EventMetricReportSpec
	err := forEachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldIDMetrics || typ != protowire.BytesType {
			return nil
		}
		report, err := DecodeStatsLogReport(v)
		if err != nil {
			return fmt.Errorf("invalid metrics[%d]: %w", len(reports), err)
		}
		reports = append(reports, report)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// DecodeStatsLogReport decodes one event metric section as written by
// Guard.DumpReport.
func DecodeStatsLogReport(b []byte) (specs.EventMetricReportSpec, error) {
	var report specs.EventMetricReportSpec
	err := forEachField(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldIDID && typ == protowire.VarintType:
			report.MetricID = int64(x)
		case num == fieldIDIsActive && typ == protowire.VarintType:
			report.IsActive = protowire.DecodeBool(x)
		case num == fieldIDEventMetrics && typ == protowire.BytesType:
			return decodeEventMetrics(v, &report)
		}
		return nil
	})
	if err != nil {
		return specs.EventMetricReportSpec{}, err
	}
	return report, nil
}

func decodeEventMetrics(b []byte, report *specs.EventMetricReportSpec) error {
	return forEachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldIDData || typ != protowire.BytesType {
			return nil
		}
		var (
			data       specs.EventMetricDataSpec
			aggregated *specs.AggregatedAtomSpec
		)
		err := forEachField(v, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
			switch {
			case num == fieldIDElapsedTimestampNanos && typ == protowire.VarintType:
				data.ElapsedTimestampNs = int64(x)
			case num == fieldIDAtoms && typ == protowire.BytesType:
				atom, err := decodeAtom(v)
				if err != nil {
					return err
				}
				data.Atom = atom
			case num == fieldIDAggregatedAtom && typ == protowire.BytesType:
				info, err := decodeAggregatedAtomInfo(v)
				if err != nil {
					return err
				}
				aggregated = &info
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		if aggregated != nil {
			report.AggregatedAtoms = append(report.AggregatedAtoms, *aggregated)
		} else {
			report.Data = append(report.Data, data)
		}
		return nil
	})
}

func decodeAggregatedAtomInfo(b []byte) (specs.AggregatedAtomSpec, error) {
	var info specs.AggregatedAtomSpec
	err := forEachField(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldIDAtom && typ == protowire.BytesType:
			atom, err := decodeAtom(v)
			if err != nil {
				return err
			}
			info.Atom = atom
		case num == fieldIDAtomTimestamps && typ == protowire.VarintType:
			info.ElapsedTimestampsNs = append(info.ElapsedTimestampsNs, int64(x))
		case num == fieldIDAtomTimestamps && typ == protowire.BytesType:
			// packed
			for len(v) > 0 {
				ts, n := protowire.ConsumeVarint(v)
				if n < 0 {
					return protowire.ParseError(n)
				}
				info.ElapsedTimestampsNs = append(info.ElapsedTimestampsNs, int64(ts))
				v = v[n:]
			}
		}
		return nil
	})
	return info, err
}

// decodeAtom decodes the atom message. Without the atom's schema, fields are
// typed by wire encoding.
func decodeAtom(b []byte) (specs.AtomSpec, error) {
	var atom specs.AtomSpec
	err := forEachField(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return fmt.Errorf("atom %d: unexpected wire type %d", num, typ)
		}
		atom.AtomID = int32(num)
		return forEachField(v, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
			field := specs.FieldValueSpec{Field: int32(num)}
			switch typ {
			case protowire.VarintType:
				field.Type = specs.FieldTypeLong
				field.Value = strconv.FormatInt(int64(x), 10)
			case protowire.Fixed32Type:
				field.Type = specs.FieldTypeFloat
				field.Value = strconv.FormatFloat(float64(math.Float32frombits(uint32(x))), 'g', -1, 32)
			case protowire.Fixed64Type:
				field.Type = specs.FieldTypeDouble
				field.Value = strconv.FormatFloat(math.Float64frombits(x), 'g', -1, 64)
			case protowire.BytesType:
				field.Type = specs.FieldTypeString
				field.Value = string(v)
			default:
				return nil
			}
			atom.Fields = append(atom.Fields, field)
			return nil
		})
	})
	return atom, err
}

// forEachField calls fn for every field of message b. Length-delimited values
// are passed as v, fixed and varint values as x.
func forEachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		if !num.IsValid() {
			return fmt.Errorf("invalid field number %d", num)
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var x32 uint32
			x32, n = protowire.ConsumeFixed32(b)
			x = uint64(x32)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}
