// Package types provides common types used across Tally.
package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Balance errors.
var (
	ErrOverflow       = errors.New("balance: overflow")
	ErrUnderflow      = errors.New("balance: underflow")
	ErrInvalidBalance = errors.New("balance: invalid value")
)

// BalanceBits is the width of a Balance. Values above 2^128-1 are rejected.
const BalanceBits = 128

var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), BalanceBits), big.NewInt(1))

// Balance is an unsigned quantity of token units in the range [0, 2^128-1].
// It is an immutable value type; the zero value is a zero balance.
//
// Arithmetic never wraps: Add reports ErrOverflow and Sub reports
// ErrUnderflow instead.
type Balance struct {
	v *big.Int // nil means zero; never mutated after construction
}

// Constructors

// NewBalance creates a Balance from a uint64.
func NewBalance(n uint64) Balance {
	if n == 0 {
		return Balance{}
	}
	return Balance{v: new(big.Int).SetUint64(n)}
}

// MaxBalance returns the largest representable Balance (2^128-1).
func MaxBalance() Balance {
	return Balance{v: new(big.Int).Set(maxBalance)}
}

// BalanceFromBig creates a Balance from a big.Int. The value is copied.
func BalanceFromBig(x *big.Int) (Balance, error) {
	if x == nil {
		return Balance{}, nil
	}
	if x.Sign() < 0 {
		return Balance{}, fmt.Errorf("%w: negative value %s", ErrInvalidBalance, x)
	}
	if x.Cmp(maxBalance) > 0 {
		return Balance{}, fmt.Errorf("%w: %s exceeds %d bits", ErrOverflow, x, BalanceBits)
	}
	if x.Sign() == 0 {
		return Balance{}, nil
	}
	return Balance{v: new(big.Int).Set(x)}, nil
}

// ParseBalance parses a base-10 string such as "100" or "340282366920938463463374607431768211455".
func ParseBalance(s string) (Balance, error) {
	if s == "" {
		return Balance{}, fmt.Errorf("%w: empty string", ErrInvalidBalance)
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidBalance, s)
	}
	return BalanceFromBig(x)
}

// MustParseBalance is like ParseBalance but panics on error. Use for constants.
func MustParseBalance(s string) Balance {
	b, err := ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Arithmetic operations

// Add returns b + other, or ErrOverflow if the result exceeds 2^128-1.
func (b Balance) Add(other Balance) (Balance, error) {
	sum := new(big.Int).Add(b.big(), other.big())
	if sum.Cmp(maxBalance) > 0 {
		return Balance{}, fmt.Errorf("%w: %s + %s", ErrOverflow, b, other)
	}
	return Balance{v: sum}, nil
}

// Sub returns b - other, or ErrUnderflow if other is greater than b.
func (b Balance) Sub(other Balance) (Balance, error) {
	if b.Cmp(other) < 0 {
		return Balance{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, b, other)
	}
	diff := new(big.Int).Sub(b.big(), other.big())
	if diff.Sign() == 0 {
		return Balance{}, nil
	}
	return Balance{v: diff}, nil
}

// Comparison methods

// Cmp compares b and other and returns -1, 0 or +1.
func (b Balance) Cmp(other Balance) int {
	return b.big().Cmp(other.big())
}

// IsZero returns true if the balance is zero.
func (b Balance) IsZero() bool { return b.v == nil || b.v.Sign() == 0 }

// Equal returns true if both balances hold the same quantity.
func (b Balance) Equal(other Balance) bool { return b.Cmp(other) == 0 }

// LessThan returns true if b < other.
func (b Balance) LessThan(other Balance) bool { return b.Cmp(other) < 0 }

// GreaterThan returns true if b > other.
func (b Balance) GreaterThan(other Balance) bool { return b.Cmp(other) > 0 }

// Conversions

// Big returns a copy of the balance as a big.Int.
func (b Balance) Big() *big.Int {
	return new(big.Int).Set(b.big())
}

// Uint64 returns the balance as a uint64 and whether it fits.
func (b Balance) Uint64() (uint64, bool) {
	x := b.big()
	if !x.IsUint64() {
		return 0, false
	}
	return x.Uint64(), true
}

// Float64 returns the nearest float64 value. Intended for metrics only.
func (b Balance) Float64() float64 {
	f, _ := new(big.Float).SetInt(b.big()).Float64()
	return f
}

// String returns the base-10 representation.
func (b Balance) String() string {
	return b.big().String()
}

func (b Balance) big() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return b.v
}

// Encoding

// MarshalText implements encoding.TextMarshaler.
func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Balance) UnmarshalText(data []byte) error {
	parsed, err := ParseBalance(string(data))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalJSON encodes the balance as a JSON string so that values above
// 2^53 survive JavaScript clients.
func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts either a JSON string ("100") or a bare number (100).
func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBalance, err)
		}
		return b.UnmarshalText([]byte(s))
	}
	if bytes.Equal(data, []byte("null")) {
		*b = Balance{}
		return nil
	}
	return b.UnmarshalText(data)
}

// Value implements driver.Valuer. Balances are stored as base-10 TEXT because
// they do not fit in a BIGINT column.
func (b Balance) Value() (driver.Value, error) {
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (b *Balance) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = Balance{}
		return nil
	case string:
		return b.UnmarshalText([]byte(v))
	case []byte:
		return b.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative value %d", ErrInvalidBalance, v)
		}
		*b = NewBalance(uint64(v))
		return nil
	default:
		return fmt.Errorf("balance: cannot scan %T into Balance", src)
	}
}

// Sum adds all balances, reporting ErrOverflow if the total exceeds 2^128-1.
func Sum(values ...Balance) (Balance, error) {
	total := Balance{}
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return Balance{}, err
		}
		total = next
	}
	return total, nil
}
