package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Money is an amount in minor currency units (cents).
type Money int64

// FromAmount converts a currency amount to Money, rounding half away from zero.
func FromAmount(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Amount returns the value in currency units.
func (m Money) Amount() float64 {
	return float64(m) / 100
}

// Share returns round(m * rate). The remainder m - Share(rate) belongs to the other party.
func (m Money) Share(rate float64) Money {
	return Money(math.Round(float64(m) * rate))
}

// SplitFare divides a fare between driver and platform. The two parts always sum to total.
func SplitFare(total Money, commission float64) (driver, platform Money) {
	driver = total.Share(1 - commission)
	return driver, total - driver
}

func (m Money) String() string {
	return strconv.FormatFloat(m.Amount(), 'f', 2, 64)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = FromAmount(f)
	return nil
}

// Round2 rounds a currency amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
