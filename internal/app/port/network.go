package port

import (
	"context"
	"math/big"

	"escrow_wallet/internal/domain/entity"
)

// TokenReader defines the read-only ERC20 calls the wallet panel depends on.
type TokenReader interface {
	Decimals(ctx context.Context) (uint8, error)
	Symbol(ctx context.Context) (string, error)
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
	Allowance(ctx context.Context, owner string, spender string) (*big.Int, error)
}

// TokenBatchReader performs several token reads in one round trip.
// Per-item failures are carried in the results; the error means the whole batch failed.
type TokenBatchReader interface {
	ReadAll(ctx context.Context, requests []entity.TokenCallRequest) ([]entity.TokenCallResult, error)
}

// TokenApprover submits ERC20 approve transactions from the configured signer.
type TokenApprover interface {
	// Approve sets the escrow contract's allowance to amount (smallest units) and returns the tx hash.
	Approve(ctx context.Context, amount *big.Int) (string, error)
}

// TokenContract is a token bound to one network, one escrow spender and optionally one signer.
type TokenContract interface {
	TokenReader
	TokenBatchReader
	TokenApprover

	// SignerAddress returns the address of the signing account, or "" when read-only.
	SignerAddress() string
	// SpenderAddress returns the escrow contract address allowances are granted to.
	SpenderAddress() string
	// TokenAddress returns the ERC20 contract address.
	TokenAddress() string
	// Definition returns the network definition associated with this contract.
	Definition() entity.NetworkDefinition
}

// TokenContractProvider hands out token contracts, reusing connections per network and token.
type TokenContractProvider interface {
	GetContract(netDef entity.NetworkDefinition) (TokenContract, error)
	Close()
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// Active returns the network selected by configuration.
	Active() entity.NetworkDefinition
	GetAllNetworkDefinitions() []entity.NetworkDefinition
	// GetNetworkDefinitionByName returns a definition by its identifier and whether it was found.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}
