package entity

import "math/big"

// DefaultDisplayDecimals is shown while the token's decimals are still unknown.
const DefaultDisplayDecimals uint8 = 18

// TokenSnapshot is the result of the four independent token reads for one account.
// A nil field means the value is unknown: still loading or the read failed.
type TokenSnapshot struct {
	Owner     string
	Decimals  *uint8
	Balance   *big.Int
	Allowance *big.Int
	Symbol    *string

	BalanceLoading   bool
	AllowanceLoading bool
}

// DisplayDecimals returns the decimals to render amounts with, falling back to 18.
// It must not be used for validation math.
func (s TokenSnapshot) DisplayDecimals() uint8 {
	if s.Decimals == nil {
		return DefaultDisplayDecimals
	}
	return *s.Decimals
}

// ValidationDecimals returns the real decimals and whether they are known.
func (s TokenSnapshot) ValidationDecimals() (uint8, bool) {
	if s.Decimals == nil {
		return 0, false
	}
	return *s.Decimals, true
}

// DisplayBalance returns the balance or zero when unknown.
func (s TokenSnapshot) DisplayBalance() TokenAmount {
	return NewTokenAmount(s.Balance, s.DisplayDecimals())
}

// DisplayAllowance returns the allowance or zero when unknown.
func (s TokenSnapshot) DisplayAllowance() TokenAmount {
	return NewTokenAmount(s.Allowance, s.DisplayDecimals())
}

// DisplaySymbol returns the symbol or an empty string when unknown.
func (s TokenSnapshot) DisplaySymbol() string {
	if s.Symbol == nil {
		return ""
	}
	return *s.Symbol
}

// HasAllowance reports whether a positive allowance is known.
func (s TokenSnapshot) HasAllowance() bool {
	return s.Allowance != nil && s.Allowance.Sign() > 0
}
