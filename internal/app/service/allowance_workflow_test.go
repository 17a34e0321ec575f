package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow_wallet/internal/domain/entity"
)

const testOwner = "0x1111111111111111111111111111111111111111"

func loadedSnapshot(decimals uint8, allowance *big.Int) entity.TokenSnapshot {
	return entity.TokenSnapshot{
		Owner:     testOwner,
		Decimals:  u8(decimals),
		Balance:   tokens("1000", decimals),
		Allowance: allowance,
		Symbol:    str("ESC"),
	}
}

func TestAllowanceWorkflow_OpenPrefill(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  entity.TokenSnapshot
		opts      []WorkflowOption
		wantInput string
	}{
		{
			name:      "zero allowance uses default",
			snapshot:  loadedSnapshot(18, big.NewInt(0)),
			wantInput: "0.1",
		},
		{
			name:      "unknown allowance uses default",
			snapshot:  entity.TokenSnapshot{Owner: testOwner, AllowanceLoading: true},
			wantInput: "0.1",
		},
		{
			name:      "known allowance in human units",
			snapshot:  loadedSnapshot(6, big.NewInt(12_500_000)),
			wantInput: "12.5",
		},
		{
			name:      "configured default",
			snapshot:  loadedSnapshot(18, nil),
			opts:      []WorkflowOption{WithDefaultPromptAmount(" 1 ")},
			wantInput: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewAllowanceWorkflow(&fakeApprover{}, nopLogger{}, tt.opts...)
			view, err := w.Open(tt.snapshot)
			require.NoError(t, err)

			assert.Equal(t, entity.StatePrompting, w.State())
			assert.True(t, view.Open)
			assert.Equal(t, tt.wantInput, view.InputValue)
			assert.Equal(t, "How many tokens do you want to allow?", view.Title)
			assert.Equal(t, "Allow", view.ConfirmButtonText)
			assert.Equal(t, "0", view.InputAttributes.Min)
			assert.Equal(t, "any", view.InputAttributes.Step)
			assert.True(t, view.ShowCancelButton)
			assert.True(t, view.AllowOutsideClick)
			assert.False(t, view.Loading)
		})
	}
}

func TestAllowanceWorkflow_OpenTwice(t *testing.T) {
	w := NewAllowanceWorkflow(&fakeApprover{}, nopLogger{})
	_, err := w.Open(loadedSnapshot(18, nil))
	require.NoError(t, err)

	_, err = w.Open(loadedSnapshot(18, nil))
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, entity.StatePrompting, w.State())
}

func TestAllowanceWorkflow_RejectsInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind error
		wantMsg  string
	}{
		{name: "zero", input: "0", wantKind: entity.ErrNonPositiveAmount, wantMsg: entity.NonPositiveAmountMessage},
		{name: "zero fraction", input: "0.000", wantKind: entity.ErrNonPositiveAmount, wantMsg: entity.NonPositiveAmountMessage},
		{name: "negative", input: "-5", wantKind: entity.ErrNonPositiveAmount, wantMsg: entity.NonPositiveAmountMessage},
		{name: "empty", input: "", wantKind: entity.ErrInvalidAmount},
		{name: "garbage", input: "abc", wantKind: entity.ErrInvalidAmount},
		{name: "exponent", input: "1e3", wantKind: entity.ErrInvalidAmount},
		{name: "too precise", input: "0.0000001", wantKind: entity.ErrInvalidAmount},
		{name: "beyond uint256", input: "1" + strings.Repeat("0", 78), wantKind: entity.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approver := &fakeApprover{}
			w := NewAllowanceWorkflow(approver, nopLogger{})
			_, err := w.Open(loadedSnapshot(6, big.NewInt(0)))
			require.NoError(t, err)

			outcome, err := w.Confirm(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.False(t, outcome.Success)
			assert.Empty(t, outcome.Notice)
			assert.NotEmpty(t, outcome.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, outcome.Error)
			}

			assert.Equal(t, entity.StatePrompting, w.State())
			view := w.View()
			assert.True(t, view.Open)
			assert.Equal(t, outcome.Error, view.ValidationMessage)
			assert.Equal(t, tt.input, view.InputValue)
			assert.Empty(t, approver.Calls())
		})
	}
}

func TestAllowanceWorkflow_SubmitsRawAmountOnce(t *testing.T) {
	tests := []struct {
		name     string
		decimals uint8
		input    string
		wantRaw  string
	}{
		{name: "whole tokens", decimals: 18, input: "50", wantRaw: "50000000000000000000"},
		{name: "fraction", decimals: 6, input: "1.5", wantRaw: "1500000"},
		{name: "smallest unit", decimals: 6, input: "0.000001", wantRaw: "1"},
		{name: "no decimals", decimals: 0, input: "42", wantRaw: "42"},
		{name: "padded", decimals: 18, input: " 0.1 ", wantRaw: "100000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approver := &fakeApprover{}
			var transitions []entity.WorkflowState
			w := NewAllowanceWorkflow(approver, nopLogger{}, WithStateListener(func(_, to entity.WorkflowState) {
				transitions = append(transitions, to)
			}))
			_, err := w.Open(loadedSnapshot(tt.decimals, big.NewInt(0)))
			require.NoError(t, err)

			outcome, err := w.Confirm(context.Background(), tt.input)
			require.NoError(t, err)
			assert.True(t, outcome.Success)
			assert.Equal(t, "Approved!", outcome.Notice)
			assert.Empty(t, outcome.Error)
			assert.Equal(t, tt.wantRaw, outcome.Amount.Raw.String())
			assert.Equal(t, tt.decimals, outcome.Amount.Decimals)

			calls := approver.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantRaw, calls[0].String())

			assert.Equal(t, entity.StateIdle, w.State())
			assert.False(t, w.View().Open)
			assert.Equal(t, []entity.WorkflowState{
				entity.StatePrompting,
				entity.StateValidating,
				entity.StateSubmitting,
				entity.StateSettledSuccess,
				entity.StateIdle,
			}, transitions)
		})
	}
}

func TestAllowanceWorkflow_SubmissionFailureKeepsPromptOpen(t *testing.T) {
	approver := &fakeApprover{err: errors.New("insufficient gas")}
	w := NewAllowanceWorkflow(approver, nopLogger{})
	_, err := w.Open(loadedSnapshot(18, big.NewInt(0)))
	require.NoError(t, err)

	outcome, err := w.Confirm(context.Background(), "50")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrSubmissionFailed)

	var subErr *entity.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "insufficient gas", subErr.Reason)

	assert.False(t, outcome.Success)
	assert.Empty(t, outcome.Notice)
	assert.Equal(t, "insufficient gas", outcome.Error)

	assert.Equal(t, entity.StatePrompting, w.State())
	view := w.View()
	assert.True(t, view.Open)
	assert.False(t, view.Loading)
	assert.Equal(t, "insufficient gas", view.ValidationMessage)
	assert.Equal(t, "50", view.InputValue)
	assert.Len(t, approver.Calls(), 1)

	// the user may retry from the still-open prompt
	approver.err = nil
	outcome, err = w.Confirm(context.Background(), "50")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Len(t, approver.Calls(), 2)
}

func TestAllowanceWorkflow_UnknownDecimals(t *testing.T) {
	approver := &fakeApprover{}
	w := NewAllowanceWorkflow(approver, nopLogger{})
	_, err := w.Open(entity.TokenSnapshot{Owner: testOwner})
	require.NoError(t, err)

	_, err = w.Confirm(context.Background(), "1")
	assert.ErrorIs(t, err, entity.ErrDecimalsUnknown)
	assert.Equal(t, entity.StatePrompting, w.State())
	assert.Empty(t, approver.Calls())

	w.Refresh(loadedSnapshot(6, nil))
	outcome, err := w.Confirm(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	require.Len(t, approver.Calls(), 1)
	assert.Equal(t, "1000000", approver.Calls()[0].String())
}

func TestAllowanceWorkflow_Cancel(t *testing.T) {
	approver := &fakeApprover{}
	w := NewAllowanceWorkflow(approver, nopLogger{})

	require.NoError(t, w.Cancel(), "cancel while idle is a no-op")

	_, err := w.Open(loadedSnapshot(18, nil))
	require.NoError(t, err)
	require.NoError(t, w.Cancel())
	assert.Equal(t, entity.StateIdle, w.State())
	assert.False(t, w.View().Open)
	assert.Empty(t, approver.Calls())

	_, err = w.Confirm(context.Background(), "1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Empty(t, approver.Calls())
}

func TestAllowanceWorkflow_BlocksReentryWhileSubmitting(t *testing.T) {
	approver := &fakeApprover{block: make(chan struct{}), started: make(chan struct{})}
	w := NewAllowanceWorkflow(approver, nopLogger{})
	_, err := w.Open(loadedSnapshot(18, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.Confirm(ctx, "50")
		done <- err
	}()

	select {
	case <-approver.started:
	case <-time.After(time.Second):
		t.Fatal("approval was not submitted")
	}

	assert.Equal(t, entity.StateSubmitting, w.State())
	view := w.View()
	assert.True(t, view.Loading)
	assert.False(t, view.AllowOutsideClick)

	_, err = w.Confirm(context.Background(), "60")
	assert.ErrorIs(t, err, entity.ErrSubmissionInProgress)
	assert.ErrorIs(t, w.Cancel(), entity.ErrSubmissionInProgress)

	// cancelling the caller does not abort the submission
	cancel()
	close(approver.block)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("confirm did not return")
	}
	assert.Len(t, approver.Calls(), 1)
	assert.Equal(t, entity.StateIdle, w.State())
}
