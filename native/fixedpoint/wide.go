// Package fixedpoint provides the checked integer arithmetic used by every fee,
// pricing and yield computation. Intermediates are held in a 128-bit wide
// integer; any result that does not fit is reported as ErrOverflow rather than
// wrapped or saturated.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// WideBits is the width of the intermediate integer type.
const WideBits = 128

// BpsDenominator is the basis point scale (10000 bps = 100%).
const BpsDenominator uint64 = 10_000

var (
	// ErrOverflow reports a result that does not fit the target width.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")
	// ErrUnderflow reports a subtraction that would go below zero.
	ErrUnderflow = errors.New("fixedpoint: arithmetic underflow")
	// ErrDivisionByZero reports a zero divisor.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

// Wide is an unsigned 128-bit integer with checked operations. The zero value
// is 0 and values are safe to copy.
type Wide struct {
	v uint256.Int
}

// U widens a uint64.
func U(x uint64) Wide {
	var w Wide
	w.v.SetUint64(x)
	return w
}

// FromUint256 narrows a 256-bit value into a Wide, failing when it exceeds 128
// bits.
func FromUint256(x *uint256.Int) (Wide, error) {
	var w Wide
	if x == nil {
		return w, nil
	}
	if x.BitLen() > WideBits {
		return Wide{}, ErrOverflow
	}
	w.v.Set(x)
	return w, nil
}

// ParseDecimal parses a base-10 string into a Wide.
func ParseDecimal(s string) (Wide, error) {
	if s == "" {
		return Wide{}, nil
	}
	parsed, err := uint256.FromDecimal(s)
	if err != nil {
		return Wide{}, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	return FromUint256(parsed)
}

func checked(v *uint256.Int) (Wide, error) {
	if v.BitLen() > WideBits {
		return Wide{}, ErrOverflow
	}
	return Wide{v: *v}, nil
}

// Mul returns w*o.
func (w Wide) Mul(o Wide) (Wide, error) {
	out, overflow := new(uint256.Int).MulOverflow(&w.v, &o.v)
	if overflow {
		return Wide{}, ErrOverflow
	}
	return checked(out)
}

// Add returns w+o.
func (w Wide) Add(o Wide) (Wide, error) {
	out, overflow := new(uint256.Int).AddOverflow(&w.v, &o.v)
	if overflow {
		return Wide{}, ErrOverflow
	}
	return checked(out)
}

// Sub returns w-o.
func (w Wide) Sub(o Wide) (Wide, error) {
	out, underflow := new(uint256.Int).SubOverflow(&w.v, &o.v)
	if underflow {
		return Wide{}, ErrUnderflow
	}
	return Wide{v: *out}, nil
}

// Div returns floor(w/o).
func (w Wide) Div(o Wide) (Wide, error) {
	if o.v.IsZero() {
		return Wide{}, ErrDivisionByZero
	}
	return Wide{v: *new(uint256.Int).Div(&w.v, &o.v)}, nil
}

// DivCeil returns ceil(w/o).
func (w Wide) DivCeil(o Wide) (Wide, error) {
	if o.v.IsZero() {
		return Wide{}, ErrDivisionByZero
	}
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(&w.v, &o.v, rem)
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return checked(quo)
}

// Cmp compares w and o and returns -1, 0 or +1.
func (w Wide) Cmp(o Wide) int { return w.v.Cmp(&o.v) }

// IsZero reports whether w == 0.
func (w Wide) IsZero() bool { return w.v.IsZero() }

// Uint64 narrows w, failing when it does not fit.
func (w Wide) Uint64() (uint64, error) {
	if !w.v.IsUint64() {
		return 0, ErrOverflow
	}
	return w.v.Uint64(), nil
}

// String renders the value in base 10.
func (w Wide) String() string { return w.v.Dec() }
