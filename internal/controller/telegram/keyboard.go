package telegram

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

const (
	approvePrefix = "approve_booking:"
	rejectPrefix  = "reject_booking:"
)

func decisionButtons(bookingID uuid.UUID) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Accept", CallbackData: approvePrefix + bookingID.String()},
			{Text: "❌ Reject", CallbackData: rejectPrefix + bookingID.String()},
		}},
	}
}

// parseDecision разбирает callback data вида "approve_booking:<uuid>"
func parseDecision(data string) (accept bool, bookingID uuid.UUID, err error) {
	var raw string
	switch {
	case strings.HasPrefix(data, approvePrefix):
		accept, raw = true, strings.TrimPrefix(data, approvePrefix)
	case strings.HasPrefix(data, rejectPrefix):
		raw = strings.TrimPrefix(data, rejectPrefix)
	default:
		return false, uuid.Nil, fmt.Errorf("unknown callback %q", data)
	}
	bookingID, err = uuid.Parse(raw)
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("callback %q: %w", data, err)
	}
	return accept, bookingID, nil
}
