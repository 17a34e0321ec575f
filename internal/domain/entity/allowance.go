package entity

import "math/big"

// WorkflowState is a state of the allowance approval workflow.
type WorkflowState string

const (
	StateIdle           WorkflowState = "idle"
	StatePrompting      WorkflowState = "prompting"
	StateValidating     WorkflowState = "validating"
	StateSubmitting     WorkflowState = "submitting"
	StateSettledSuccess WorkflowState = "settled_success"
	StateSettledFailure WorkflowState = "settled_failure"
)

// AllowanceRequest is the user's proposed new allowance.
type AllowanceRequest struct {
	Human string   `json:"human"`
	Raw   *big.Int `json:"-"`
}

// ApprovalOutcome is the settled result of one confirmation of the prompt.
type ApprovalOutcome struct {
	Success bool        `json:"success"`
	Notice  string      `json:"notice,omitempty"`
	Error   string      `json:"error,omitempty"`
	Amount  TokenAmount `json:"amount"`
}

// PromptInputAttributes mirror the numeric input constraints of the dialog.
type PromptInputAttributes struct {
	Min            string `json:"min"`
	Step           string `json:"step"`
	Autocapitalize string `json:"autocapitalize"`
}

// PromptView describes the allowance dialog independent of how it is rendered.
type PromptView struct {
	Open              bool                  `json:"open"`
	Title             string                `json:"title"`
	InputValue        string                `json:"inputValue"`
	InputAttributes   PromptInputAttributes `json:"inputAttributes"`
	ValidationMessage string                `json:"validationMessage,omitempty"`
	ConfirmButtonText string                `json:"confirmButtonText"`
	ShowCancelButton  bool                  `json:"showCancelButton"`
	Loading           bool                  `json:"loading"`
	AllowOutsideClick bool                  `json:"allowOutsideClick"`
	Symbol            string                `json:"symbol,omitempty"`
}
