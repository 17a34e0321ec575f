package service

import (
	"context"
	"math/big"

	"escrow_wallet/internal/app/port"
)

// ApprovalMutation submits allowance approvals and keeps the token state cache honest:
// after a successful approval the signer's balance and allowance are re-read on next access.
type ApprovalMutation struct {
	contract port.TokenContract
	reader   port.TokenStateReader
	logger   port.Logger
	metrics  port.Metrics
}

// NewApprovalMutation creates the approver handed to allowance workflows. m may be nil.
func NewApprovalMutation(contract port.TokenContract, reader port.TokenStateReader, l port.Logger, m port.Metrics) port.AllowanceApprover {
	return &ApprovalMutation{
		contract: contract,
		reader:   reader,
		logger:   l,
		metrics:  m,
	}
}

// Approve sends approve(escrow, amount) and invalidates the cached state of the signer.
func (a *ApprovalMutation) Approve(ctx context.Context, amount *big.Int) error {
	signer := a.contract.SignerAddress()
	txHash, err := a.contract.Approve(ctx, amount)
	if err != nil {
		a.observe("failure")
		a.logger.Error("Approve transaction failed", "signer", signer, "spender", a.contract.SpenderAddress(), "amount", amount.String(), "tx", txHash, "error", err)
		return err
	}

	a.reader.Invalidate(signer)
	a.observe("success")
	a.logger.Info("Approve transaction sent", "signer", signer, "spender", a.contract.SpenderAddress(), "amount", amount.String(), "tx", txHash)
	return nil
}

func (a *ApprovalMutation) observe(result string) {
	if a.metrics != nil {
		a.metrics.ObserveApproval(result)
	}
}
