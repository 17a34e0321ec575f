package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount marks input that is not a well-formed non-negative decimal
	// or carries more fractional digits than the token allows.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount marks a parsed amount that is zero or negative.
	ErrNonPositiveAmount = errors.New("non-positive amount")
	// ErrSubmissionFailed marks a rejected approval submission.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrDecimalsUnknown is returned when an amount can't be converted because decimals haven't loaded.
	ErrDecimalsUnknown = errors.New("token decimals unknown")
	// ErrSubmissionInProgress is returned when the workflow is busy with a submission.
	ErrSubmissionInProgress = errors.New("submission in progress")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// NonPositiveAmountMessage is shown inline when the amount is not larger than zero.
const NonPositiveAmountMessage = "Number of tokens must be larger than zero."

// AmountError describes why an entered amount was rejected.
type AmountError struct {
	Input  string
	Reason string
	Kind   error
}

func (e *AmountError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %q", e.Kind, e.Input)
	}
	return e.Reason
}

func (e *AmountError) Unwrap() error { return e.Kind }

// NewInvalidAmountError builds an AmountError of kind ErrInvalidAmount.
func NewInvalidAmountError(input, reason string) *AmountError {
	return &AmountError{Input: input, Reason: reason, Kind: ErrInvalidAmount}
}

// NewNonPositiveAmountError builds an AmountError of kind ErrNonPositiveAmount.
func NewNonPositiveAmountError(input string) *AmountError {
	return &AmountError{Input: input, Reason: NonPositiveAmountMessage, Kind: ErrNonPositiveAmount}
}

// SubmissionError wraps the reason an external approval call rejected.
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string { return e.Reason }

func (e *SubmissionError) Unwrap() error { return ErrSubmissionFailed }
