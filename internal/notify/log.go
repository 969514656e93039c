package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes the message to the log instead of delivering it.
// It is the fallback channel in development and with STORE=memory.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("Notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("booking_id", msg.BookingID),
		zap.String("recipient", msg.RecipientName),
		zap.String("email", msg.RecipientEmail),
		zap.String("subject", msg.Subject()),
	)
	return nil
}
