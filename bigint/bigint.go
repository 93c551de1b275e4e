// Package bigint implements arbitrary-precision signed integers for the
// numeric engine. The representation rides on math/big, with
// github.com/remyoudompheng/bigfft layered on top for the large-operand
// multiply path once operands cross a size threshold.
package bigint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/remyoudompheng/bigfft"
)

// fftThreshold is the operand word count above which multiplication is
// routed through bigfft instead of math/big's native Mul.
const fftThreshold = 80

// BigInt is a sign-magnitude arbitrary-precision integer. The zero value
// is not meaningful; use FromInt64 or Zero.
type BigInt struct {
	v *big.Int
}

// Zero returns the big integer 0.
func Zero() *BigInt { return &BigInt{v: new(big.Int)} }

// FromInt64 returns the big integer equal to n.
func FromInt64(n int64) *BigInt { return &BigInt{v: big.NewInt(n)} }

// Copy returns an independent deep copy of b.
func Copy(b *BigInt) *BigInt { return &BigInt{v: new(big.Int).Set(b.v)} }

// IsZero, IsPositive, IsNegative are the sign predicates.
func (b *BigInt) IsZero() bool     { return b.v.Sign() == 0 }
func (b *BigInt) IsPositive() bool { return b.v.Sign() > 0 }
func (b *BigInt) IsNegative() bool { return b.v.Sign() < 0 }

// IsEven and IsOdd test the low bit.
func (b *BigInt) IsEven() bool { return b.v.Bit(0) == 0 }
func (b *BigInt) IsOdd() bool  { return b.v.Bit(0) == 1 }

// IsUnit reports whether the magnitude is 1.
func (b *BigInt) IsUnit() bool {
	abs := new(big.Int).Abs(b.v)
	return abs.Cmp(big.NewInt(1)) == 0
}

// IsOne and IsMinusOne test for the two unit values.
func (b *BigInt) IsOne() bool      { return b.v.Cmp(big.NewInt(1)) == 0 }
func (b *BigInt) IsMinusOne() bool { return b.v.Cmp(big.NewInt(-1)) == 0 }

// FitsInt64 reports whether b's value is representable as an int64.
func (b *BigInt) FitsInt64() bool { return b.v.IsInt64() }

// ToInt64 returns b's value narrowed to int64, and whether it fit.
func (b *BigInt) ToInt64() (int64, bool) {
	if !b.v.IsInt64() {
		return 0, false
	}
	return b.v.Int64(), true
}

// FitsWideInt reports whether b's magnitude fits in a uint256, the widened
// word this package uses for the "wide integer" tier between int64 and
// unbounded BigInt.
func (b *BigInt) FitsWideInt() bool {
	bits := b.v.BitLen()
	return bits <= 256
}

// ToWide narrows b into a uint256.Int plus its sign, or ok=false if it does
// not fit.
func (b *BigInt) ToWide() (val *uint256.Int, negative bool, ok bool) {
	if !b.FitsWideInt() {
		return nil, false, false
	}
	abs := new(big.Int).Abs(b.v)
	u, overflow := uint256.FromBig(abs)
	if overflow {
		return nil, false, false
	}
	return u, b.v.Sign() < 0, true
}

// FromWide builds a BigInt from a uint256 magnitude and sign.
func FromWide(u *uint256.Int, negative bool) *BigInt {
	out := &BigInt{v: u.ToBig()}
	if negative && out.v.Sign() != 0 {
		out.v.Neg(out.v)
	}
	return out
}

// CmpMagnitude compares |a| to |b|, ignoring sign.
func CmpMagnitude(a, b *BigInt) int {
	aa := new(big.Int).Abs(a.v)
	ab := new(big.Int).Abs(b.v)
	return aa.Cmp(ab)
}

// Cmp returns -1, 0, or 1 per normal signed comparison.
func Cmp(a, b *BigInt) int { return a.v.Cmp(b.v) }

// Add returns a+b.
func Add(a, b *BigInt) *BigInt { return &BigInt{v: new(big.Int).Add(a.v, b.v)} }

// Sub returns a-b.
func Sub(a, b *BigInt) *BigInt { return &BigInt{v: new(big.Int).Sub(a.v, b.v)} }

// Mul returns a*b, routing through bigfft once both operands are large
// enough that schoolbook multiplication in math/big would dominate runtime.
func Mul(a, b *BigInt) *BigInt {
	if len(a.v.Bits()) > fftThreshold && len(b.v.Bits()) > fftThreshold {
		return &BigInt{v: bigfft.Mul(a.v, b.v)}
	}
	return &BigInt{v: new(big.Int).Mul(a.v, b.v)}
}

// DivMod returns (quotient, remainder) of a/b using Euclidean division.
// Panics if b is zero, the same contract math/big's DivMod carries.
func DivMod(a, b *BigInt) (q, r *BigInt) {
	qq, rr := new(big.Int), new(big.Int)
	qq.DivMod(a.v, b.v, rr)
	return &BigInt{v: qq}, &BigInt{v: rr}
}

// String renders b in base 10, with a leading '-' for negative values.
func (b *BigInt) String() string { return b.v.String() }

// ParseBigInt parses s as a signed integer literal in the given base (0
// means auto-detect 0x/0o/0b/decimal prefixes, matching the strconv and
// math/big convention). Trailing garbage is an error, never silently
// truncated.
func ParseBigInt(s string, base int) (*BigInt, error) {
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("bigint: %q is not a valid integer in base %d", s, base)
	}
	return &BigInt{v: v}, nil
}
