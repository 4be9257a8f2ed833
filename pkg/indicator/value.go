package indicator

import (
	"encoding/json"
	"math"
)

// Standard periods for the screening views.
const (
	ShortMAPeriod = 5
	MidMAPeriod   = 25
	LongMAPeriod  = 75

	RSIListPeriod   = 9
	RSIDetailPeriod = 14
)

// Value is one point of an indicator sequence. Valid is false at indices
// where the indicator has insufficient history.
type Value struct {
	V     float64
	Valid bool
}

// MarshalJSON encodes undefined points as null so chart consumers can gap them.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON accepts null or a number.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	if err := json.Unmarshal(data, &v.V); err != nil {
		return err
	}
	v.Valid = true
	return nil
}

// Some returns a defined Value
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// None returns an undefined Value
func None() Value {
	return Value{}
}

// nones returns an all-undefined sequence of length n.
func nones(n int) []Value {
	return make([]Value, n)
}

// round2 rounds to 2 decimal places for display consistency.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
