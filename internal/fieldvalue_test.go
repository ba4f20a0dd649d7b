package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisconley/eventmetric/specs"
)

func TestNewFieldValue(t *testing.T) {
	t.Run("parses every value type", func(t *testing.T) {
		tests := []struct {
			spec  specs.FieldValueSpec
			check func(t *testing.T, v Value)
		}{
			{specs.NewIntFieldValue(1, -7), func(t *testing.T, v Value) { assert.Equal(t, int32(-7), v.Int()) }},
			{specs.NewLongFieldValue(1, math.MaxInt64), func(t *testing.T, v Value) { assert.Equal(t, int64(math.MaxInt64), v.Long()) }},
			{specs.NewFloatFieldValue(1, 1.5), func(t *testing.T, v Value) { assert.Equal(t, float32(1.5), v.Float()) }},
			{specs.NewDoubleFieldValue(1, 0.1), func(t *testing.T, v Value) { assert.Equal(t, 0.1, v.Double()) }},
			{specs.NewStringFieldValue(1, "wakelock"), func(t *testing.T, v Value) { assert.Equal(t, "wakelock", v.Str()) }},
			{specs.NewBoolFieldValue(1, true), func(t *testing.T, v Value) { assert.True(t, v.Bool()) }},
			{specs.NewBytesFieldValue(1, []byte{0, 1, 2}), func(t *testing.T, v Value) { assert.Equal(t, []byte{0, 1, 2}, v.Bytes()) }},
		}

		for _, tt := range tests {
			t.Run(tt.spec.Type, func(t *testing.T) {
				// Act
				fv, err := NewFieldValue(tt.spec)

				// Assert
				require.NoError(t, err)
				assert.Equal(t, tt.spec.Type, fv.Value().Type().ToString())
				tt.check(t, fv.Value())
				assert.Equal(t, tt.spec, fv.ToSpec())
			})
		}
	})

	t.Run("places nested values", func(t *testing.T) {
		// Act
		fv, err := NewFieldValue(specs.NewNestedFieldValue(1, 2, specs.NewStringFieldValue(2, "tag")))

		// Assert
		require.NoError(t, err)
		assert.True(t, fv.Field().IsNested())
		assert.Equal(t, int32(1), fv.Field().Pos())
		assert.Equal(t, int32(2), fv.Field().Index())
		assert.Equal(t, int32(2), fv.Field().SubPos())
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name string
			spec specs.FieldValueSpec
		}{
			{"zero field", specs.FieldValueSpec{Field: 0, Type: "int", Value: "1"}},
			{"field past the largest field number", specs.FieldValueSpec{Field: 1 << 29, Type: "int", Value: "1"}},
			{"sub-field past the largest field number", specs.FieldValueSpec{Field: 1, Index: 1, SubField: 1 << 29, Type: "int", Value: "1"}},
			{"index without sub-field", specs.FieldValueSpec{Field: 1, Index: 1, Type: "int", Value: "1"}},
			{"unknown type", specs.FieldValueSpec{Field: 1, Type: "uint", Value: "1"}},
			{"int overflow", specs.FieldValueSpec{Field: 1, Type: "int", Value: "2147483648"}},
			{"fractional long", specs.FieldValueSpec{Field: 1, Type: "long", Value: "1.5"}},
			{"not a number", specs.FieldValueSpec{Field: 1, Type: "double", Value: "abc"}},
			{"float overflow", specs.FieldValueSpec{Field: 1, Type: "float", Value: "1e40"}},
			{"bad bool", specs.FieldValueSpec{Field: 1, Type: "bool", Value: "yes"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// Act
				_, err := NewFieldValue(tt.spec)

				// Assert
				assert.Error(t, err)
			})
		}
	})
}

func TestValueEquality(t *testing.T) {
	t.Run("values of different types never compare equal", func(t *testing.T) {
		assert.False(t, NewIntValue(1).Equal(NewLongValue(1)))
		assert.False(t, NewStringValue("a").Equal(NewBytesValue([]byte("a"))))
	})

	t.Run("NaN equals itself", func(t *testing.T) {
		nan := NewDoubleValue(math.NaN())
		assert.True(t, nan.Equal(nan))
	})
}

func TestFieldLess(t *testing.T) {
	a := TopLevelField(1)
	b, err := NewField(1, 1, 2)
	require.NoError(t, err)
	c, err := NewField(1, 2, 1)
	require.NoError(t, err)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(TopLevelField(2)))
	assert.False(t, c.Less(b))
}
