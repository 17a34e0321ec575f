package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow_wallet/internal/app/service"
	"escrow_wallet/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type scriptedApprover struct {
	errs  []error
	calls []*big.Int
}

func (a *scriptedApprover) Approve(_ context.Context, amount *big.Int) error {
	a.calls = append(a.calls, new(big.Int).Set(amount))
	if len(a.errs) == 0 {
		return nil
	}
	err := a.errs[0]
	a.errs = a.errs[1:]
	return err
}

func snapshot() entity.TokenSnapshot {
	d := uint8(18)
	sym := "ESC"
	return entity.TokenSnapshot{Owner: "0x1111111111111111111111111111111111111111", Decimals: &d, Symbol: &sym, Allowance: big.NewInt(0)}
}

func TestPrompter_RetriesUntilApproved(t *testing.T) {
	approver := &scriptedApprover{errs: []error{errors.New("insufficient gas")}}
	w := service.NewAllowanceWorkflow(approver, nopLogger{})
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("0\nabc\n50\n\n"), &out, nil)

	outcome, err := p.Run(context.Background(), w, snapshot())
	require.NoError(t, err)
	assert.True(t, outcome.Success)

	text := out.String()
	assert.Contains(t, text, "How many tokens do you want to allow?")
	assert.Contains(t, text, "Allow [0.1] ESC")
	assert.Contains(t, text, "! Number of tokens must be larger than zero.")
	assert.Contains(t, text, "! insufficient gas")
	assert.Contains(t, text, "Approved!")

	// "50" failed, then the empty answer re-submitted the kept value
	require.Len(t, approver.calls, 2)
	assert.Equal(t, "50000000000000000000", approver.calls[1].String())
	assert.Equal(t, entity.StateIdle, w.State())
}

func TestPrompter_DefaultValue(t *testing.T) {
	approver := &scriptedApprover{}
	w := service.NewAllowanceWorkflow(approver, nopLogger{})
	p := NewPrompter(strings.NewReader("\n"), &bytes.Buffer{}, nil)

	_, err := p.Run(context.Background(), w, snapshot())
	require.NoError(t, err)
	require.Len(t, approver.calls, 1)
	assert.Equal(t, "100000000000000000", approver.calls[0].String())
}

func TestPrompter_Cancel(t *testing.T) {
	for _, input := range []string{"q\n", "cancel\n", ""} {
		approver := &scriptedApprover{}
		w := service.NewAllowanceWorkflow(approver, nopLogger{})
		p := NewPrompter(strings.NewReader(input), &bytes.Buffer{}, nil)

		_, err := p.Run(context.Background(), w, snapshot())
		assert.ErrorIs(t, err, ErrCancelled, "input %q", input)
		assert.Empty(t, approver.calls)
		assert.Equal(t, entity.StateIdle, w.State())
	}
}

type stubReader struct {
	snapshot entity.TokenSnapshot
	reads    int
}

func (r *stubReader) Snapshot(_ context.Context, owner string) entity.TokenSnapshot {
	r.reads++
	s := r.snapshot
	s.Owner = owner
	return s
}

func (r *stubReader) Invalidate(string) {}

func TestPrompter_RefreshesUnknownDecimals(t *testing.T) {
	approver := &scriptedApprover{}
	w := service.NewAllowanceWorkflow(approver, nopLogger{})
	reader := &stubReader{snapshot: snapshot()}
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("1\n"), &out, reader)

	loading := snapshot()
	loading.Decimals = nil

	outcome, err := p.Run(context.Background(), w, loading)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 1, reader.reads)
	require.Len(t, approver.calls, 1)
	assert.Equal(t, "1000000000000000000", approver.calls[0].String())
	assert.NotContains(t, out.String(), "still loading")
}

func TestPrompter_ContextCancelledWhileWaitingForInput(t *testing.T) {
	approver := &scriptedApprover{}
	w := service.NewAllowanceWorkflow(approver, nopLogger{})
	in, stdin := io.Pipe()
	t.Cleanup(func() { _ = stdin.Close() })
	p := NewPrompter(in, &bytes.Buffer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, w, snapshot())
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting for input after the context was cancelled")
	}
	assert.Empty(t, approver.calls)
	assert.Equal(t, entity.StateIdle, w.State())
}

func TestPrompter_PrintProfile(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out, nil)

	p.PrintProfile(entity.Profile{DisplayName: "0x1111...1111", Balance: "12.5", Symbol: "ESC", AllowanceVisible: false})
	assert.Contains(t, out.String(), "total:     12.5 ESC")
	assert.NotContains(t, out.String(), "allowance:")
}
