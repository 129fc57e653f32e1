package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidAmount  = errors.New("amount is not a number with at most two decimals")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountTooLarge = errors.New("amount is too large")
)

// MaxAmount is the largest fee or total accepted, in cents.
const MaxAmount Amount = math.MaxInt64 / 1024

var decimalAmount = regexp.MustCompile(`^(\d*)(?:\.(\d{0,2}))?$`)

// Amount is a money value held in cents.
type Amount int64

// ParseAmount coerces user input such as "10", "10.5" or "10.00" into cents.
// Only plain decimals with up to two fractional digits are accepted.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		if _, err := ParseAmount(rest); err == nil || errors.Is(err, ErrAmountTooLarge) {
			return 0, ErrNegativeAmount
		}
		return 0, ErrInvalidAmount
	}

	m := decimalAmount.FindStringSubmatch(s)
	if m == nil || m[1] == "" && m[2] == "" {
		return 0, ErrInvalidAmount
	}

	var whole int64
	if m[1] != "" {
		var err error
		whole, err = strconv.ParseInt(m[1], 10, 64)
		if err != nil || whole > int64(MaxAmount/100) {
			return 0, ErrAmountTooLarge
		}
	}
	cents, _ := strconv.ParseInt((m[2] + "00")[:2], 10, 64)

	a := Amount(whole*100 + cents)
	if a > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return a, nil
}

// Add returns a+b, failing instead of leaving the range [0, MaxAmount].
func (a Amount) Add(b Amount) (Amount, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if a > MaxAmount || b > MaxAmount-a {
		return 0, ErrAmountTooLarge
	}
	return a + b, nil
}

// Validate reports whether a lies within [0, MaxAmount].
func (a Amount) Validate() error {
	switch {
	case a < 0:
		return ErrNegativeAmount
	case a > MaxAmount:
		return ErrAmountTooLarge
	}
	return nil
}

func (a Amount) Float() float64 {
	return float64(a) / 100
}

// String renders the amount with exactly two decimals.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Currency renders the amount as "$123.45".
func (a Amount) Currency() string {
	return "$" + a.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*a = 0
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}
