// Package telegram is the owner's chat console: it lists pending demo
// requests and lets the owner accept or reject them with inline buttons.
package telegram

import (
	"context"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// API is the part of *bot.Bot the console calls.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

type userLookup interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type approvals interface {
	ListPending(ctx context.Context, ownerID uuid.UUID) ([]*model.BookingSummary, error)
	Decide(ctx context.Context, bookingID, principalID uuid.UUID, decision service.Decision, reason string) (*service.DecisionResult, error)
}

type Console struct {
	api       API
	users     userLookup
	approvals approvals
	logger    *zap.Logger
}

func NewConsole(api API, svc *service.Services, logger *zap.Logger) *Console {
	return &Console{
		api:       api,
		users:     svc.Users,
		approvals: svc.Approvals,
		logger:    logger,
	}
}

// RegisterHandlers регистрирует обработчики команд и кнопок
func (c *Console) RegisterHandlers(ctx context.Context, b *bot.Bot) error {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.wrap(c.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/pending", bot.MatchTypeExact, c.wrap(c.handlePending))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, approvePrefix, bot.MatchTypePrefix, c.wrap(c.handleDecision))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, rejectPrefix, bot.MatchTypePrefix, c.wrap(c.handleDecision))

	return c.setCommands(ctx)
}

// wrap drops the *bot.Bot argument so handlers go through API and stay testable.
func (c *Console) wrap(h func(ctx context.Context, update *models.Update)) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		h(ctx, update)
	}
}

// setCommands устанавливает список команд в меню бота
func (c *Console) setCommands(ctx context.Context) error {
	_, err := c.api.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "🚀 About this bot"},
			{Command: "pending", Description: "📥 Demo requests waiting for you"},
		},
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}
