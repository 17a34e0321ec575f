package port

import (
	"context"
	"math/big"

	"escrow_wallet/internal/domain/entity"
)

// TokenStateReader supplies the current token state for an account.
// Absent values are reported as unknown, never as errors.
type TokenStateReader interface {
	Snapshot(ctx context.Context, owner string) entity.TokenSnapshot
	Invalidate(owner string)
}

// AllowanceApprover is the approval-submission capability the workflow is given.
type AllowanceApprover interface {
	// Approve submits a new allowance in smallest units. The error message is shown to the user.
	Approve(ctx context.Context, amount *big.Int) error
}

// TokenPriceService provides cached USD prices.
type TokenPriceService interface {
	GetPriceUSD(ctx context.Context, dexScreenerChainID string, tokenAddress string) (float64, bool)
}

// ProfileService assembles the wallet panel on top of the token state.
type ProfileService interface {
	TokenStateReader
	Profile(ctx context.Context, identity entity.Identity) entity.Profile
	ProfileFromSnapshot(ctx context.Context, identity entity.Identity, snapshot entity.TokenSnapshot) entity.Profile
}
