package service

import (
	"context"
	"log/slog"
)

// Notice is a message for the shopper about a failed cart operation.
type Notice struct {
	Kind      ErrorKind
	Op        Operation
	ProductID int64
	Message   string
}

// Notifier delivers notices to the shopper.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to a logger. It is used when no other sink is
// configured; the HTTP layer also returns the message in the error body.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	l.Logger.InfoContext(ctx, "cart notice",
		slog.String("kind", string(n.Kind)),
		slog.String("operation", string(n.Op)),
		slog.Int64("product_id", n.ProductID),
		slog.String("message", n.Message),
	)
}
