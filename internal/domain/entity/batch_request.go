package entity

import "math/big"

// TokenCallType defines which read-only ERC20 method a batch item calls.
type TokenCallType int

const (
	// DecimalsCall reads decimals().
	DecimalsCall TokenCallType = iota
	// SymbolCall reads symbol().
	SymbolCall
	// BalanceOfCall reads balanceOf(owner).
	BalanceOfCall
	// AllowanceCall reads allowance(owner, spender).
	AllowanceCall
)

// String returns the ABI method name for the call type.
func (t TokenCallType) String() string {
	switch t {
	case DecimalsCall:
		return "decimals"
	case SymbolCall:
		return "symbol"
	case BalanceOfCall:
		return "balanceOf"
	case AllowanceCall:
		return "allowance"
	default:
		return "unknown"
	}
}

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TokenCallRequest represents a single item in a batch of token reads.
type TokenCallRequest struct {
	Type    TokenCallType
	Owner   string
	Spender string
}

// TokenCallResult represents the result of a single token read from a batch.
// Exactly one of the value fields is set when Error is nil.
type TokenCallResult struct {
	Type     TokenCallType
	Amount   *big.Int
	Decimals uint8
	Symbol   string
	Error    error
}
