package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"

	"escrow_wallet/internal/domain/entity"
)

// pow10 returns 10^decimals.
func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// FormatUnits converts a raw smallest-unit amount to a human-readable decimal string.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatUnits(amount *big.Int, decimals uint8) string {
	return entity.TokenAmount{Raw: amount, Decimals: decimals}.Human()
}

// FormatAmount formats a TokenAmount with its own decimals.
func FormatAmount(amount entity.TokenAmount) string {
	return amount.Human()
}

// ParseUnits converts a signed human decimal string to smallest units.
// It rejects exponent notation, anything with more significant fractional
// digits than decimals allows, and magnitudes that don't fit a uint256; it never rounds.
func ParseUnits(human string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return nil, entity.NewInvalidAmountError(human, "Please enter a number of tokens.")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, entity.NewInvalidAmountError(human, fmt.Sprintf("%q is not a valid number.", human))
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, entity.NewInvalidAmountError(human, fmt.Sprintf("%q is not a valid number.", human))
	}

	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > int(decimals) {
		return nil, entity.NewInvalidAmountError(human,
			fmt.Sprintf("Too many decimal places: the token supports at most %d.", decimals))
	}

	digits := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}

	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, entity.NewInvalidAmountError(human, fmt.Sprintf("%q is not a valid number.", human))
	}
	if raw.Cmp(math.MaxBig256) > 0 {
		return nil, entity.NewInvalidAmountError(human, "Amount is too large.")
	}
	if negative {
		raw.Neg(raw)
	}
	return raw, nil
}

// ToRaw converts a non-negative human decimal string to smallest units.
func ToRaw(human string, decimals uint8) (*big.Int, error) {
	raw, err := ParseUnits(human, decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() < 0 {
		return nil, entity.NewInvalidAmountError(human, "Amount must not be negative.")
	}
	return raw, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CalculateValueUSD returns the USD value of a raw token amount at the given price.
func CalculateValueUSD(amount *big.Int, decimals uint8, priceUSD float64) (float64, error) {
	if amount == nil {
		return 0, fmt.Errorf("amount is nil")
	}
	if priceUSD < 0 {
		return 0, fmt.Errorf("negative price %f", priceUSD)
	}

	value := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(pow10(decimals)))
	value.Mul(value, big.NewFloat(priceUSD))

	result, _ := value.Float64()
	return result, nil
}
