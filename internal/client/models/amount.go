package models

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// Decimals is the ledger's fixed-point scale: one ether is 10^18 wei.
const Decimals = 18

var weiPerEther = big.NewInt(params.Ether)

var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a non-negative ledger amount held as integer base units, so
// formatting and comparison never go through floating point. The zero value
// is zero. Amounts are immutable.
type Amount struct {
	wei *big.Int
}

// NewAmount copies wei into an Amount. A nil wei is zero.
func NewAmount(wei *big.Int) Amount {
	if wei == nil {
		return Amount{}
	}
	return Amount{wei: new(big.Int).Set(wei)}
}

// Ether returns n whole ether.
func Ether(n int64) Amount {
	return Amount{wei: new(big.Int).Mul(big.NewInt(n), weiPerEther)}
}

// ParseEther parses a decimal ether string such as "0.5" or "10" exactly.
// More than 18 fractional digits, signs and exponents are rejected.
func ParseEther(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > Decimals {
		return Amount{}, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Decimals)
	}

	wei, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", Decimals-len(frac)), 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{wei: wei}, nil
}

// MustParseEther is ParseEther for constants and tests.
func MustParseEther(s string) Amount {
	a, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return a
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Wei returns a copy of the base-unit value.
func (a Amount) Wei() *big.Int {
	if a.wei == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.wei)
}

func (a Amount) Cmp(b Amount) int {
	return a.Wei().Cmp(b.Wei())
}

func (a Amount) IsZero() bool {
	return a.wei == nil || a.wei.Sign() == 0
}

func (a Amount) Sign() int {
	if a.wei == nil {
		return 0
	}
	return a.wei.Sign()
}

// String formats the amount in ether with every significant decimal and no
// trailing zeros: "10", "9.999", "0.000000000000000001".
func (a Amount) String() string {
	wei := a.Wei()
	neg := wei.Sign() < 0
	wei.Abs(wei)

	whole, frac := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))
	s := whole.String()
	if frac.Sign() != 0 {
		f := frac.String()
		f = strings.Repeat("0", Decimals-len(f)) + f
		s += "." + strings.TrimRight(f, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Float64 is for display ratios only; never compare amounts through it.
func (a Amount) Float64() float64 {
	f, _ := new(big.Rat).SetFrac(a.Wei(), weiPerEther).Float64()
	return f
}
