package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/app/service"
	"escrow_wallet/internal/domain/entity"
)

// ErrCancelled is returned by Run when the user dismissed the prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Prompter renders the wallet panel and the allowance dialog on a line-based terminal.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	reader port.TokenStateReader
}

// NewPrompter creates a Prompter reading answers from in and writing to out.
// reader re-reads token details that were still loading when the prompt opened; it may be nil.
func NewPrompter(in io.Reader, out io.Writer, reader port.TokenStateReader) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, reader: reader}
}

// PrintProfile writes the profile panel.
func (p *Prompter) PrintProfile(profile entity.Profile) {
	fmt.Fprintf(p.out, "%s\n", profile.DisplayName)
	fmt.Fprintf(p.out, "  avatar:    %s\n", profile.AvatarURL)
	fmt.Fprintf(p.out, "  total:     %s %s\n", profile.Balance, profile.Symbol)
	if profile.AllowanceVisible {
		fmt.Fprintf(p.out, "  allowance: %s %s\n", profile.Allowance, profile.Symbol)
	}
	if profile.ValueUSD != nil {
		fmt.Fprintf(p.out, "  value:     $%.2f\n", *profile.ValueUSD)
	}
}

// Run opens the workflow with snapshot and keeps prompting until the approval succeeds,
// the user cancels, input ends or ctx is done.
// An empty answer keeps the pre-filled value; "q" or "cancel" dismisses the dialog.
func (p *Prompter) Run(ctx context.Context, w *service.AllowanceWorkflow, snapshot entity.TokenSnapshot) (entity.ApprovalOutcome, error) {
	view, err := w.Open(snapshot)
	if err != nil {
		return entity.ApprovalOutcome{}, err
	}

	for {
		p.render(view)

		line, readErr := p.readLine(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(readErr, ctxErr) {
			_ = w.Cancel()
			fmt.Fprintln(p.out)
			return entity.ApprovalOutcome{}, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
		}

		answer := strings.TrimSpace(line)
		if readErr != nil && answer == "" {
			_ = w.Cancel()
			if errors.Is(readErr, io.EOF) {
				return entity.ApprovalOutcome{}, ErrCancelled
			}
			return entity.ApprovalOutcome{}, fmt.Errorf("read answer: %w", readErr)
		}

		switch strings.ToLower(answer) {
		case "q", "cancel":
			if err := w.Cancel(); err != nil {
				return entity.ApprovalOutcome{}, err
			}
			return entity.ApprovalOutcome{}, ErrCancelled
		case "":
			answer = view.InputValue
		}

		p.refreshIfLoading(ctx, w)
		outcome, err := w.Confirm(ctx, answer)
		if err == nil {
			fmt.Fprintln(p.out, outcome.Notice)
			return outcome, nil
		}
		if errors.Is(err, entity.ErrInvalidTransition) || errors.Is(err, entity.ErrSubmissionInProgress) {
			return outcome, err
		}
		view = w.View()
	}
}

// readLine returns the next input line, or ctx.Err() as soon as ctx is done.
// A read abandoned that way keeps its goroutine until input arrives or closes.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		return a.line, a.err
	}
}

// refreshIfLoading re-reads the token state when decimals were unknown, so a failed
// read at startup doesn't block every answer.
func (p *Prompter) refreshIfLoading(ctx context.Context, w *service.AllowanceWorkflow) {
	if p.reader == nil {
		return
	}
	current := w.Snapshot()
	if _, known := current.ValidationDecimals(); known {
		return
	}
	w.Refresh(p.reader.Snapshot(ctx, current.Owner))
}

func (p *Prompter) render(view entity.PromptView) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, view.Title)
	if view.ValidationMessage != "" {
		fmt.Fprintf(p.out, "  ! %s\n", view.ValidationMessage)
	}
	unit := ""
	if view.Symbol != "" {
		unit = " " + view.Symbol
	}
	fmt.Fprintf(p.out, "%s [%s]%s (enter to confirm, q to cancel): ", view.ConfirmButtonText, view.InputValue, unit)
}
