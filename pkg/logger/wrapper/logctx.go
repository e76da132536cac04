package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		UserID    string
		RequestID string
		RideID    string
		DriverID  string
		WalletID  string
		TraceID   string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func fromCtx(ctx context.Context) LogCtx {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	return lc
}

// update copies the LogCtx from ctx, lets set change one field and stores the copy.
func update(ctx context.Context, set func(lc *LogCtx)) context.Context {
	lc := fromCtx(ctx)
	set(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID = id })
}

// WithRequestID tags the ride request being handled.
func WithRequestID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = id })
}

func WithRideID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RideID = id })
}

func WithDriverID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.DriverID = id })
}

func WithWalletID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.WalletID = id })
}

// WithTraceID sets the id of the inbound HTTP request, not to be confused with a ride request id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.TraceID = id })
}

func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}
