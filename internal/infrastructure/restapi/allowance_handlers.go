package restapi

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/app/service"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/pkg/utils"
)

// OpenPromptRequest optionally names the account for read-only deployments.
type OpenPromptRequest struct {
	Address string `json:"address"`
}

// ConfirmPromptRequest carries the amount the user entered, in human units.
type ConfirmPromptRequest struct {
	Amount string `json:"amount"`
}

// APIOutcome is the settled result of a confirmation.
type APIOutcome struct {
	Success   bool   `json:"success"`
	Notice    string `json:"notice,omitempty"`
	Error     string `json:"error,omitempty"`
	Amount    string `json:"amount,omitempty"`
	AmountRaw string `json:"amountRaw,omitempty"`
}

// APIPromptResponse describes an allowance prompt session.
type APIPromptResponse struct {
	ID      string               `json:"id"`
	State   entity.WorkflowState `json:"state"`
	View    entity.PromptView    `json:"view"`
	Outcome *APIOutcome          `json:"outcome,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// AllowanceHandler exposes the allowance workflow as prompt sessions.
type AllowanceHandler struct {
	reader       port.TokenStateReader
	approver     port.AllowanceApprover
	sessions     *SessionStore
	signer       string
	workflowOpts []service.WorkflowOption
	logger       port.Logger
}

// NewAllowanceHandler creates an AllowanceHandler. Every session gets its own workflow built with opts.
func NewAllowanceHandler(
	reader port.TokenStateReader,
	approver port.AllowanceApprover,
	sessions *SessionStore,
	signer string,
	l port.Logger,
	opts ...service.WorkflowOption,
) *AllowanceHandler {
	return &AllowanceHandler{
		reader:       reader,
		approver:     approver,
		sessions:     sessions,
		signer:       signer,
		workflowOpts: opts,
		logger:       l,
	}
}

func promptResponse(id string, w *service.AllowanceWorkflow) APIPromptResponse {
	return APIPromptResponse{ID: id, State: w.State(), View: w.View()}
}

func toAPIOutcome(outcome entity.ApprovalOutcome) *APIOutcome {
	out := &APIOutcome{Success: outcome.Success, Notice: outcome.Notice, Error: outcome.Error}
	if outcome.Amount.IsPositive() {
		out.Amount = utils.FormatAmount(outcome.Amount)
		out.AmountRaw = outcome.Amount.Raw.String()
	}
	return out
}

// OpenPromptHandler opens a new prompt pre-filled with the current allowance.
func (h *AllowanceHandler) OpenPromptHandler(c *gin.Context) {
	var req OpenPromptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid request body"})
			return
		}
	}

	owner := h.signer
	if owner == "" {
		owner = req.Address
	}
	if !common.IsHexAddress(owner) {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "no wallet connected: configure a signer or pass an address"})
		return
	}
	owner = common.HexToAddress(owner).Hex()

	w := service.NewAllowanceWorkflow(h.approver, h.logger, h.workflowOpts...)
	if _, err := w.Open(h.reader.Snapshot(c.Request.Context(), owner)); err != nil {
		h.logger.Error("Failed to open allowance prompt", "owner", owner, "error", err)
		c.JSON(http.StatusInternalServerError, APIErrorResponse{Error: err.Error()})
		return
	}

	id := h.sessions.Create(w)
	h.logger.Info("Allowance prompt session opened", "session", id, "owner", owner)
	c.JSON(http.StatusCreated, promptResponse(id, w))
}

// GetPromptHandler returns the current state of a prompt.
func (h *AllowanceHandler) GetPromptHandler(c *gin.Context) {
	id := c.Param("id")
	w, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, APIErrorResponse{Error: "prompt not found"})
		return
	}
	c.JSON(http.StatusOK, promptResponse(id, w))
}

// ConfirmPromptHandler validates the amount and submits the approval.
// Validation and submission failures answer 422 with the prompt still open.
func (h *AllowanceHandler) ConfirmPromptHandler(c *gin.Context) {
	id := c.Param("id")
	w, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, APIErrorResponse{Error: "prompt not found"})
		return
	}

	var req ConfirmPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid request body"})
		return
	}

	// decimals may have failed to load when the prompt opened
	if snapshot := w.Snapshot(); w.State() == entity.StatePrompting {
		if _, known := snapshot.ValidationDecimals(); !known {
			w.Refresh(h.reader.Snapshot(c.Request.Context(), snapshot.Owner))
		}
	}

	outcome, err := w.Confirm(c.Request.Context(), req.Amount)
	resp := promptResponse(id, w)

	switch {
	case err == nil:
		resp.Outcome = toAPIOutcome(outcome)
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, entity.ErrSubmissionInProgress), errors.Is(err, entity.ErrInvalidTransition):
		resp.Error = err.Error()
		c.JSON(http.StatusConflict, resp)
	default:
		resp.Outcome = toAPIOutcome(outcome)
		resp.Error = err.Error()
		c.JSON(http.StatusUnprocessableEntity, resp)
	}
}

// CancelPromptHandler dismisses a prompt and ends its session.
func (h *AllowanceHandler) CancelPromptHandler(c *gin.Context) {
	id := c.Param("id")
	w, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, APIErrorResponse{Error: "prompt not found"})
		return
	}

	if err := w.Cancel(); err != nil {
		resp := promptResponse(id, w)
		resp.Error = err.Error()
		c.JSON(http.StatusConflict, resp)
		return
	}

	h.sessions.Delete(id)
	h.logger.Info("Allowance prompt session cancelled", "session", id)
	c.JSON(http.StatusOK, promptResponse(id, w))
}
