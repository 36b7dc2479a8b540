package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a monetary amount in minor currency units.
// All ledger arithmetic happens in cents so equal splits and balance
// sums stay exact; floats only appear at the HTTP boundary.
type Cents int64

var ErrMalformedAmount = errors.New("malformed amount")

// FromFloat converts a decimal amount (e.g. 90.5 from a JSON body) to cents,
// rounding to the nearest minor unit.
func FromFloat(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// ParseAmount parses a decimal string with at most two fractional digits.
func ParseAmount(s string) (Cents, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedAmount
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, ErrMalformedAmount
	}

	// ParseUint permits no sign, so stray "+"/"-" inside the number
	// ("1.-5", "+1.50") fail here instead of being misread.
	units, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedAmount, orig)
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: %s", ErrMalformedAmount, orig)
	}

	cents := int64(units) * 100
	if frac != "" {
		// "9.5" means 9.50, not 9.05
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrMalformedAmount, orig)
		}
		cents += int64(f)
	}

	if neg {
		cents = -cents
	}
	return Cents(cents), nil
}

// Float64 returns the amount as a decimal number for serialization.
func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// String formats the amount with two fractional digits.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits the amount as a plain decimal number with two
// fractional digits, e.g. 90.50.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts either a decimal number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		// Clients that send float math results ("30.000000000000004")
		// still land on the nearest cent.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		parsed = FromFloat(f)
	}
	*c = parsed
	return nil
}

func (c Cents) abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}
