package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const rejectReason = "Declined from Telegram"

func (c *Console) reply(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		c.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (c *Console) answer(ctx context.Context, callbackID, text string) {
	_, _ = c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

func (c *Console) handleStart(ctx context.Context, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, update.Message.Chat.ID,
		"👋 This bot delivers demo-session requests for your coaching profiles.\n\n"+
			"Use /pending to review requests waiting for your decision.", nil)
}

// handlePending отправляет владельцу список ожидающих заявок, по сообщению на заявку
func (c *Console) handlePending(ctx context.Context, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	owner, err := c.users.GetByTelegramID(ctx, update.Message.From.ID)
	if err != nil {
		if !service.IsErrNotFound(err) {
			c.logger.Error("Failed to resolve owner", zap.Error(err))
		}
		c.reply(ctx, chatID, "❌ This Telegram account is not linked to a coaching account.", nil)
		return
	}

	pending, err := c.approvals.ListPending(ctx, owner.ID)
	if err != nil {
		c.logger.Error("Failed to list pending bookings", zap.String("owner_id", owner.ID.String()), zap.Error(err))
		c.reply(ctx, chatID, "❌ Could not load pending requests, try again later.", nil)
		return
	}
	if len(pending) == 0 {
		c.reply(ctx, chatID, "📭 No demo requests are waiting for you.", nil)
		return
	}

	c.reply(ctx, chatID, fmt.Sprintf("📥 <b>%d pending request(s)</b>", len(pending)), nil)
	for _, b := range pending {
		c.reply(ctx, chatID, formatPending(b), decisionButtons(b.ID))
	}
}

func formatPending(b *model.BookingSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(b.SlotTitle))
	fmt.Fprintf(&sb, "🏫 %s", html.EscapeString(b.ProfileName))
	if b.OrganizationName != "" {
		fmt.Fprintf(&sb, " · %s", html.EscapeString(b.OrganizationName))
	}
	fmt.Fprintf(&sb, "\n📅 %s %s\n📚 %s\n", b.Date, html.EscapeString(b.Time), html.EscapeString(b.Subject))
	fmt.Fprintf(&sb, "👤 %s", html.EscapeString(b.StudentName))
	if b.StudentPhone != "" {
		fmt.Fprintf(&sb, " · %s", html.EscapeString(b.StudentPhone))
	}
	if b.StudentEmail != "" {
		fmt.Fprintf(&sb, " · %s", html.EscapeString(b.StudentEmail))
	}
	if b.SpecialRequest != "" {
		fmt.Fprintf(&sb, "\n💬 %s", html.EscapeString(b.SpecialRequest))
	}
	return sb.String()
}

// handleDecision принимает или отклоняет заявку по нажатию кнопки
func (c *Console) handleDecision(ctx context.Context, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	accept, bookingID, err := parseDecision(callback.Data)
	if err != nil {
		c.answer(ctx, callback.ID, "❌ Invalid button")
		return
	}

	owner, err := c.users.GetByTelegramID(ctx, callback.From.ID)
	if err != nil {
		c.answer(ctx, callback.ID, "❌ Account not found")
		return
	}

	decision, reason := service.DecisionAccept, ""
	if !accept {
		decision, reason = service.DecisionReject, rejectReason
	}

	res, err := c.approvals.Decide(ctx, bookingID, owner.ID, decision, reason)
	if err != nil {
		c.answer(ctx, callback.ID, decisionErrorText(err))
		if service.Kind(err) == "internal" {
			c.logger.Error("Failed to decide booking", zap.String("booking_id", bookingID.String()), zap.Error(err))
		}
		return
	}

	text := "✅ Request accepted"
	if res.Booking.Status == model.BookingStatusRejected {
		text = "❌ Request rejected"
	}
	if !res.NotificationSent {
		text += " (student could not be notified)"
	}
	c.answer(ctx, callback.ID, text)

	// Обновляем сообщение, чтобы кнопки исчезли
	if msg := callback.Message.Message; msg != nil {
		_, _ = c.api.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      text,
		})
	}
}

func decisionErrorText(err error) string {
	switch {
	case service.IsErrForbidden(err):
		return "❌ This request belongs to another coaching"
	case service.IsErrNotFound(err):
		return "❌ Request no longer exists"
	case service.IsErrInvalidState(err):
		return "⚠️ Request was already handled"
	default:
		return "❌ Could not save the decision"
	}
}
