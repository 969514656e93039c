package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender is the part of *bot.Bot the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier writes to the requester's linked chat.
type TelegramNotifier struct {
	sender MessageSender
}

func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	if msg.RecipientTelegramID == nil {
		return ErrNoRecipient
	}

	icon := "✅"
	if msg.Kind == KindDeclined {
		icon = "❌"
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *msg.RecipientTelegramID,
		Text:      fmt.Sprintf("%s <b>%s</b>\n\n%s", icon, html.EscapeString(msg.Subject()), html.EscapeString(msg.Body())),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
