package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/notifier"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BookingLister записи на день по всем тренерам
type BookingLister interface {
	GetActiveByDate(ctx context.Context, date string) ([]*model.Booking, error)
}

// SlotLister свободные слоты тренера
type SlotLister interface {
	GetAvailableSlots(ctx context.Context, trainerID int64, startDate, endDate string) (map[string][]string, error)
}

// BotController админский бот: отвечает только в чат администратора
type BotController struct {
	bot         *bot.Bot
	sender      notifier.MessageSender
	bookings    BookingLister
	slots       SlotLister
	adminChatID int64
	location    *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	bookings BookingLister,
	slots SlotLister,
	adminChatID int64,
	location *time.Location,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:         botInstance,
		sender:      botInstance,
		bookings:    bookings,
		slots:       slots,
		adminChatID: adminChatID,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/today", bot.MatchTypeExact, c.HandleToday)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/tomorrow", bot.MatchTypeExact, c.HandleTomorrow)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/date", bot.MatchTypePrefix, c.HandleDate)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/slots", bot.MatchTypeExact, c.HandleSlots)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "today", Description: "📅 Записи на сегодня"},
		{Command: "tomorrow", Description: "📆 Записи на завтра"},
		{Command: "date", Description: "🗓 Записи на дату: /date 2026-10-19"},
		{Command: "slots", Description: "🕐 Свободные слоты на неделю"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота, блокируется до отмены контекста
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting admin bot...", zap.Int64("admin_chat_id", c.adminChatID))
	c.bot.Start(ctx)
}
