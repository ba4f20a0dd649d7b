package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/chrisconley/eventmetric/specs"
)

func TestNewLogEvent(t *testing.T) {
	t.Run("sorts values by position", func(t *testing.T) {
		// Arrange
		spec := specs.LogEventSpec{
			AtomID:             10,
			ElapsedTimestampNs: 123,
			Fields: []specs.FieldValueSpec{
				specs.NewIntFieldValue(2, 5),
				specs.NewNestedFieldValue(1, 2, specs.NewIntFieldValue(1, 2000)),
				specs.NewNestedFieldValue(1, 1, specs.NewStringFieldValue(2, "a")),
				specs.NewNestedFieldValue(1, 1, specs.NewIntFieldValue(1, 1000)),
			},
		}

		// Act
		event, err := NewLogEvent(spec)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int32(10), event.TagID())
		assert.Equal(t, int64(123), event.ElapsedTimestampNs())
		var fields [][3]int32
		for _, fv := range event.Values() {
			fields = append(fields, [3]int32{fv.Field().Pos(), fv.Field().Index(), fv.Field().SubPos()})
		}
		assert.Equal(t, [][3]int32{{1, 1, 1}, {1, 1, 2}, {1, 2, 1}, {2, 0, 0}}, fields)
	})

	t.Run("rejects atom ids that are not field numbers", func(t *testing.T) {
		for _, atomID := range []int32{0, -1, int32(protowire.MaxValidNumber) + 1, 1 << 30} {
			// Act
			_, err := NewLogEvent(specs.LogEventSpec{AtomID: atomID})

			// Assert
			assert.Error(t, err, "atom %d", atomID)
		}
	})

	t.Run("accepts the largest field number as atom id", func(t *testing.T) {
		// Act
		event, err := NewLogEvent(specs.LogEventSpec{AtomID: int32(protowire.MaxValidNumber), Fields: []specs.FieldValueSpec{specs.NewIntFieldValue(1, 1)}})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int32(protowire.MaxValidNumber), event.TagID())
	})

	t.Run("typed values need a valid tag too", func(t *testing.T) {
		// Act
		_, errZero := NewLogEventFromValues(0, 1, nil)
		_, errLarge := NewLogEventFromValues(1<<30, 1, nil)

		// Assert
		assert.Error(t, errZero)
		assert.Error(t, errLarge)
	})

	t.Run("reports the failing field", func(t *testing.T) {
		// Act
		_, err := NewLogEvent(specs.LogEventSpec{
			AtomID: 10,
			Fields: []specs.FieldValueSpec{specs.NewIntFieldValue(1, 1), {Field: 2, Type: "int", Value: "x"}},
		})

		// Assert
		assert.ErrorContains(t, err, "fields[1]")
	})

	t.Run("converts back to its contract type", func(t *testing.T) {
		// Arrange
		spec := specs.LogEventSpec{
			AtomID:             10,
			ElapsedTimestampNs: 5,
			Fields:             []specs.FieldValueSpec{specs.NewIntFieldValue(1, 1), specs.NewStringFieldValue(2, "x")},
			TruncateTimestamp:  true,
		}

		// Act
		event, err := NewLogEvent(spec)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, spec, event.ToSpec())
	})
}

func TestLogEventToProto(t *testing.T) {
	t.Run("writes attribution chains as repeated messages", func(t *testing.T) {
		// Arrange
		event, err := NewLogEvent(specs.LogEventSpec{
			AtomID: 10,
			Fields: []specs.FieldValueSpec{
				specs.NewNestedFieldValue(1, 1, specs.NewIntFieldValue(1, 1000)),
				specs.NewNestedFieldValue(1, 1, specs.NewStringFieldValue(2, "a")),
				specs.NewNestedFieldValue(1, 2, specs.NewIntFieldValue(1, 2000)),
				specs.NewNestedFieldValue(1, 2, specs.NewStringFieldValue(2, "b")),
				specs.NewIntFieldValue(2, 5),
			},
		})
		require.NoError(t, err)
		out := NewProtoOutputStream()

		// Act
		event.ToProto(out)

		// Assert
		node := func(uid uint64, tag string) []byte {
			b := protowire.AppendTag(nil, 1, protowire.VarintType)
			b = protowire.AppendVarint(b, uid)
			b = protowire.AppendTag(b, 2, protowire.BytesType)
			return protowire.AppendString(b, tag)
		}
		atom := protowire.AppendTag(nil, 1, protowire.BytesType)
		atom = protowire.AppendBytes(atom, node(1000, "a"))
		atom = protowire.AppendTag(atom, 1, protowire.BytesType)
		atom = protowire.AppendBytes(atom, node(2000, "b"))
		atom = protowire.AppendTag(atom, 2, protowire.VarintType)
		atom = protowire.AppendVarint(atom, 5)
		want := protowire.AppendTag(nil, 10, protowire.BytesType)
		want = protowire.AppendBytes(want, atom)

		require.NoError(t, out.Err())
		assert.Equal(t, want, out.Bytes())
	})
}
