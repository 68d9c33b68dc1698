package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (cents). Arithmetic on it is exact.
type Money int64

var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney parses a decimal amount with at most two fractional digits, e.g. "120", "120.5", "120.50".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || whole[0] == '-' || whole[0] == '+' || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || frac[0] == '-' || frac[0] == '+' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
		}
	}

	m := Money(units*100 + cents)
	if neg {
		m = -m
	}

	return m, nil
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return int64(m) }

// Times multiplies the amount by a whole quantity, e.g. a number of nights.
func (m Money) Times(n int) Money {
	return m * Money(n)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a decimal string so clients never see float drift.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// accept bare JSON numbers too
		s = string(b)
	}

	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
