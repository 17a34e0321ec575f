package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/pkg/utils"
)

const (
	allowancePromptTitle = "How many tokens do you want to allow?"
	allowConfirmText     = "Allow"
	approvedNotice       = "Approved!"
	decimalsLoadingText  = "Token details are still loading. Please try again in a moment."

	// DefaultPromptAmount pre-fills the prompt when no positive allowance is known.
	DefaultPromptAmount = "0.1"
)

// StateListener is notified of every workflow transition.
// It runs with the workflow locked and must not call back into it.
type StateListener func(from, to entity.WorkflowState)

// WorkflowOption configures an AllowanceWorkflow.
type WorkflowOption func(*AllowanceWorkflow)

// WithStateListener registers a transition listener.
func WithStateListener(listener StateListener) WorkflowOption {
	return func(w *AllowanceWorkflow) {
		if listener != nil {
			w.listeners = append(w.listeners, listener)
		}
	}
}

// WithDefaultPromptAmount overrides the human amount shown when no allowance is known.
func WithDefaultPromptAmount(amount string) WorkflowOption {
	return func(w *AllowanceWorkflow) {
		if strings.TrimSpace(amount) != "" {
			w.defaultAmount = strings.TrimSpace(amount)
		}
	}
}

// WithMetrics records transitions and validation rejections.
func WithMetrics(m port.Metrics) WorkflowOption {
	return func(w *AllowanceWorkflow) {
		if m != nil {
			w.metrics = m
			w.listeners = append(w.listeners, m.ObserveTransition)
		}
	}
}

// AllowanceWorkflow drives one allowance prompt:
// Idle -> Prompting -> Validating -> Submitting -> Settled(Success|Failure) -> Idle.
// Failed validation and rejected submissions return to Prompting with an inline message.
type AllowanceWorkflow struct {
	approver      port.AllowanceApprover
	logger        port.Logger
	defaultAmount string
	listeners     []StateListener
	metrics       port.Metrics

	mu                sync.Mutex
	state             entity.WorkflowState
	snapshot          entity.TokenSnapshot
	inputValue        string
	validationMessage string
}

// NewAllowanceWorkflow creates an idle workflow submitting through approver.
func NewAllowanceWorkflow(approver port.AllowanceApprover, l port.Logger, opts ...WorkflowOption) *AllowanceWorkflow {
	w := &AllowanceWorkflow{
		approver:      approver,
		logger:        l,
		defaultAmount: DefaultPromptAmount,
		state:         entity.StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state.
func (w *AllowanceWorkflow) State() entity.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns the token state the prompt validates against.
func (w *AllowanceWorkflow) Snapshot() entity.TokenSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// View returns the dialog as it should currently be presented.
func (w *AllowanceWorkflow) View() entity.PromptView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Open shows the prompt pre-filled with the current allowance in human units.
func (w *AllowanceWorkflow) Open(snapshot entity.TokenSnapshot) (entity.PromptView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != entity.StateIdle {
		return w.viewLocked(), fmt.Errorf("%w: open in state %s", entity.ErrInvalidTransition, w.state)
	}

	w.snapshot = snapshot
	w.inputValue = w.prefill(snapshot)
	w.validationMessage = ""
	w.transition(entity.StatePrompting)

	w.logger.Debug("Allowance prompt opened", "owner", snapshot.Owner, "prefill", w.inputValue)
	return w.viewLocked(), nil
}

// Refresh replaces the token state the prompt validates against, e.g. once decimals have loaded.
// The entered value and the state are left untouched.
func (w *AllowanceWorkflow) Refresh(snapshot entity.TokenSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot = snapshot
}

// Cancel dismisses the prompt. Once a submission is in flight it can't be cancelled.
func (w *AllowanceWorkflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case entity.StateIdle:
		return nil
	case entity.StatePrompting:
		w.reset()
		w.transition(entity.StateIdle)
		w.logger.Debug("Allowance prompt cancelled", "owner", w.snapshot.Owner)
		return nil
	case entity.StateSubmitting:
		return entity.ErrSubmissionInProgress
	default:
		return fmt.Errorf("%w: cancel in state %s", entity.ErrInvalidTransition, w.state)
	}
}

// Confirm validates input and, when it is a positive amount, submits exactly one approval.
// Validation and submission errors keep the prompt open; the returned outcome carries the
// inline message and the error classifies it (entity.ErrInvalidAmount, ErrNonPositiveAmount,
// ErrDecimalsUnknown, ErrSubmissionFailed). The submission is not cancelled with ctx.
func (w *AllowanceWorkflow) Confirm(ctx context.Context, input string) (entity.ApprovalOutcome, error) {
	w.mu.Lock()
	switch w.state {
	case entity.StatePrompting:
	case entity.StateSubmitting:
		w.mu.Unlock()
		return entity.ApprovalOutcome{}, entity.ErrSubmissionInProgress
	default:
		state := w.state
		w.mu.Unlock()
		return entity.ApprovalOutcome{}, fmt.Errorf("%w: confirm in state %s", entity.ErrInvalidTransition, state)
	}

	w.inputValue = input
	w.transition(entity.StateValidating)

	request, err := w.validate(input)
	if err != nil {
		w.validationMessage = err.Error()
		w.transition(entity.StatePrompting)
		if w.metrics != nil {
			w.metrics.ObserveRejection(rejectionKind(err))
		}
		w.logger.Debug("Allowance input rejected", "owner", w.snapshot.Owner, "input", input, "error", err)
		w.mu.Unlock()
		return entity.ApprovalOutcome{Error: err.Error()}, err
	}

	decimals, _ := w.snapshot.ValidationDecimals()
	owner := w.snapshot.Owner
	w.validationMessage = ""
	w.transition(entity.StateSubmitting)
	w.mu.Unlock()

	w.logger.Info("Submitting allowance approval", "owner", owner, "amount", request.Human, "raw", request.Raw.String())
	submitErr := w.approver.Approve(context.WithoutCancel(ctx), new(big.Int).Set(request.Raw))

	w.mu.Lock()
	defer w.mu.Unlock()

	amount := entity.NewTokenAmount(request.Raw, decimals)
	if submitErr != nil {
		failure := &entity.SubmissionError{Reason: submitErr.Error()}
		w.validationMessage = failure.Reason
		w.transition(entity.StateSettledFailure)
		w.transition(entity.StatePrompting)
		w.logger.Warn("Allowance approval failed", "owner", owner, "amount", request.Human, "error", submitErr)
		return entity.ApprovalOutcome{Error: failure.Reason, Amount: amount}, failure
	}

	w.transition(entity.StateSettledSuccess)
	w.reset()
	w.transition(entity.StateIdle)
	w.logger.Info("Allowance approved", "owner", owner, "amount", request.Human)
	return entity.ApprovalOutcome{Success: true, Notice: approvedNotice, Amount: amount}, nil
}

func (w *AllowanceWorkflow) validate(input string) (*entity.AllowanceRequest, error) {
	decimals, ok := w.snapshot.ValidationDecimals()
	if !ok {
		return nil, &entity.AmountError{Input: input, Reason: decimalsLoadingText, Kind: entity.ErrDecimalsUnknown}
	}

	raw, err := utils.ParseUnits(input, decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() <= 0 {
		return nil, entity.NewNonPositiveAmountError(input)
	}
	return &entity.AllowanceRequest{Human: strings.TrimSpace(input), Raw: raw}, nil
}

func rejectionKind(err error) string {
	switch {
	case errors.Is(err, entity.ErrNonPositiveAmount):
		return "non_positive"
	case errors.Is(err, entity.ErrDecimalsUnknown):
		return "decimals_unknown"
	default:
		return "invalid_amount"
	}
}

func (w *AllowanceWorkflow) prefill(snapshot entity.TokenSnapshot) string {
	if !snapshot.HasAllowance() {
		return w.defaultAmount
	}
	return utils.FormatUnits(snapshot.Allowance, snapshot.DisplayDecimals())
}

func (w *AllowanceWorkflow) reset() {
	w.inputValue = ""
	w.validationMessage = ""
}

func (w *AllowanceWorkflow) transition(to entity.WorkflowState) {
	from := w.state
	w.state = to
	for _, listener := range w.listeners {
		listener(from, to)
	}
}

func (w *AllowanceWorkflow) viewLocked() entity.PromptView {
	open := w.state == entity.StatePrompting || w.state == entity.StateValidating || w.state == entity.StateSubmitting
	loading := w.state == entity.StateSubmitting
	return entity.PromptView{
		Open:       open,
		Title:      allowancePromptTitle,
		InputValue: w.inputValue,
		InputAttributes: entity.PromptInputAttributes{
			Min:            "0",
			Step:           "any",
			Autocapitalize: "off",
		},
		ValidationMessage: w.validationMessage,
		ConfirmButtonText: allowConfirmText,
		ShowCancelButton:  true,
		Loading:           loading,
		AllowOutsideClick: !loading,
		Symbol:            w.snapshot.DisplaySymbol(),
	}
}
