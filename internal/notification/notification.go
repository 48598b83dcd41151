package notification

import (
	"context"
	"log/slog"
)

// Kind labels the event a message describes.
type Kind string

const (
	// KindWalletCredit notifies a recipient of an incoming internal transfer.
	KindWalletCredit Kind = "wallet_credit"
	// KindTransferRefund notifies a sender that a failed payout was refunded.
	KindTransferRefund Kind = "transfer_refund"
)

// Message is a notification destined for a user.
type Message struct {
	Kind        Kind
	Destination string
	Body        string
}

// Notifier delivers user notifications. Delivery is best effort; ledger flows
// never fail on a notification error.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LoggerNotifier writes notifications to the structured log. Stands in for a
// real push/SMS channel.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier builds a notifier backed by slog.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("destination", msg.Destination),
		slog.String("body", msg.Body),
	)
	return nil
}
