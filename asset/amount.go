package asset

import (
	"errors"
	"math"
	"math/bits"
	"strconv"
)

// Amount is a quantity of the pooled asset or of vault shares, in base units.
type Amount = uint64

// Address identifies an account on the asset ledger and in the share ledger.
type Address string

func (a Address) String() string { return string(a) }

const Max Amount = math.MaxUint64

var (
	ErrOverflow     = errors.New("amount overflow")
	ErrUnderflow    = errors.New("amount underflow")
	ErrDivideByZero = errors.New("divide by zero")
)

// Add returns a+b or ErrOverflow.
func Add(a, b Amount) (Amount, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func Sub(a, b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// MulDiv returns floor(a*b/d). The product is carried in 128 bits so only
// the quotient has to fit.
func MulDiv(a, b, d Amount) (Amount, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// Format renders an amount in base units.
func Format(a Amount) string {
	return strconv.FormatUint(a, 10)
}
