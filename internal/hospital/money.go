package hospital

import (
	"fmt"
	"math"
	"strconv"
)

// Cents is an amount of money in hundredths of the currency unit. It encodes
// to JSON as a decimal number with two places so stored documents keep the
// familiar shape.
type Cents int64

// FromAmount converts a decimal amount, rounding half away from zero.
func FromAmount(v float64) Cents {
	return Cents(math.Round(v * 100))
}

func (c Cents) Float() float64 { return float64(c) / 100 }

func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Times multiplies by a quantity.
func (c Cents) Times(qty int) Cents { return c * Cents(qty) }

// Percent applies rate (0.05 for 5%) rounding half-up to the cent.
func (c Cents) Percent(rate float64) Cents {
	bp := int64(math.Round(rate * 10000))
	return Cents((int64(c)*bp + 5000) / 10000)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", string(b))
	}
	*c = FromAmount(f)
	return nil
}
