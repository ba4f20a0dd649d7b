package internal

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact decimal parsed from the string form of a numeric field value.
type Decimal struct {
	value apd.Decimal
}

func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return Decimal{value: d}, nil
}

func (d Decimal) String() string {
	return d.value.String()
}

// Int64 returns d as an int64. Fails if d has a fractional part or overflows.
func (d Decimal) Int64() (int64, error) {
	i, err := d.value.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid integer %s: %w", d.String(), err)
	}
	return i, nil
}

// Int32 returns d as an int32. Fails if d has a fractional part or overflows.
func (d Decimal) Int32() (int32, error) {
	i, err := d.Int64()
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("invalid int32 %s: out of range", d.String())
	}
	return int32(i), nil
}

// Float64 returns the nearest float64 to d.
func (d Decimal) Float64() (float64, error) {
	f, err := d.value.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid float %s: %w", d.String(), err)
	}
	return f, nil
}

// Float32 returns the nearest float32 to d. Fails if d is outside the float32 range.
func (d Decimal) Float32() (float32, error) {
	f, err := d.Float64()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("invalid float32 %s: out of range", d.String())
	}
	return float32(f), nil
}
