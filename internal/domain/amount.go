package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// amountDigits is the fixed width used for persisted amounts.
// 2^256-1 has 78 decimal digits.
const amountDigits = 78

var (
	maxLedgerAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	maxPadded       = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(amountDigits), nil), big.NewInt(1))
)

// Amount is a non-negative token amount in ledger base units.
// The zero value is zero. Amounts are immutable.
type Amount struct {
	v *big.Int
}

// NewAmount returns an amount of n base units.
func NewAmount(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// ParseAmount parses a base-10 amount. Values must fit in 256 bits.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("amount %q: not a base-10 integer", s)
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount %q: negative", s)
	}
	if v.Cmp(maxLedgerAmount) > 0 {
		return Amount{}, fmt.Errorf("amount %q: exceeds 256 bits", s)
	}
	return Amount{v: v}, nil
}

// MustAmount is like ParseAmount but panics on error. Intended for tests and constants.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.int(), b.int())}
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.int().String()
}

// Padded returns the amount as a zero-padded fixed-width decimal string.
// Lexical order of padded strings equals numeric order.
func (a Amount) Padded() string {
	return fmt.Sprintf("%0*s", amountDigits, a.String())
}

// Inverted returns a fixed-width decimal string whose lexical order is the
// reverse of the numeric order of amounts.
func (a Amount) Inverted() string {
	inv := new(big.Int).Sub(maxPadded, a.int())
	return fmt.Sprintf("%0*s", amountDigits, inv.String())
}

// ParsePadded parses the output of Padded.
func ParsePadded(s string) (Amount, error) {
	return ParseAmount(strings.TrimLeft(s, "0"))
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Amount{}
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
