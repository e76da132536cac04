package wrap

import (
	"context"
	"errors"
)

// ctxError carries the LogCtx of the place where the error was raised.
type ctxError struct {
	err    error
	logCtx LogCtx
}

func (e *ctxError) Error() string { return e.err.Error() }

func (e *ctxError) Unwrap() error { return e.err }

// Error attaches the current LogCtx to err so the caller that finally logs it
// sees where it happened. An already wrapped error keeps its original context.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *ctxError
	if errors.As(err, &e) {
		return err
	}
	return &ctxError{err: err, logCtx: fromCtx(ctx)}
}

// ErrorCtx restores the LogCtx carried by err into ctx. Without one ctx is returned as is.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *ctxError
	if !errors.As(err, &e) {
		return ctx
	}
	return context.WithValue(ctx, LogCtxKey, e.logCtx)
}
