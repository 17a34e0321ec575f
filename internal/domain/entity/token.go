package entity

import (
	"math/big"
	"strings"
)

// TokenInfo holds the details of the token the escrow works with.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId" yaml:"chainId"`
	Address  string `json:"address" yaml:"address"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}

// TokenAmount is a token quantity in smallest units paired with the decimals needed to read it.
type TokenAmount struct {
	Raw      *big.Int `json:"-"`
	Decimals uint8    `json:"decimals"`
}

// NewTokenAmount copies raw so the amount can't be mutated through the caller's pointer.
func NewTokenAmount(raw *big.Int, decimals uint8) TokenAmount {
	if raw == nil {
		return TokenAmount{Raw: new(big.Int), Decimals: decimals}
	}
	return TokenAmount{Raw: new(big.Int).Set(raw), Decimals: decimals}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a TokenAmount) IsPositive() bool {
	return a.Raw != nil && a.Raw.Sign() > 0
}

// Human renders the amount in whole tokens using exact integer arithmetic.
// Trailing fractional zeros are dropped and a nil amount reads as "0".
// Example: Raw=1234500000000000000, Decimals=18 => "1.2345"
func (a TokenAmount) Human() string {
	if a.Raw == nil {
		return "0"
	}
	if a.Decimals == 0 {
		return a.Raw.String()
	}

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals)), nil)
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(a.Raw), unit, new(big.Int))

	var b strings.Builder
	if a.Raw.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(whole.String())
	if frac.Sign() != 0 {
		digits := frac.String()
		digits = strings.Repeat("0", int(a.Decimals)-len(digits)) + digits
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(digits, "0"))
	}
	return b.String()
}
