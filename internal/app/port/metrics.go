package port

import "escrow_wallet/internal/domain/entity"

// Metrics records workflow and chain-access counters.
type Metrics interface {
	ObserveTransition(from, to entity.WorkflowState)
	ObserveRejection(kind string)
	ObserveApproval(result string)
	ObserveReadFailure(call string)
}
