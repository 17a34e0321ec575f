package logger

import "escrow_wallet/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level logger.
// Fixed attributes (e.g. the component name) are prepended to every call.
type slogAdapter struct {
	attrs []any
}

// NewSlogAdapter creates a port.Logger that writes through the global slog logger.
func NewSlogAdapter(attrs ...any) port.Logger {
	return &slogAdapter{attrs: attrs}
}

func (a *slogAdapter) with(args []any) []any {
	if len(a.attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(a.attrs)+len(args))
	out = append(out, a.attrs...)
	return append(out, args...)
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, a.with(args)...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, a.with(args)...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, a.with(args)...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, a.with(args)...) }
