package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/notifier"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const slotsDays = 7

const helpText = "📚 Справка по командам:\n\n" +
	"/today - Записи на сегодня\n" +
	"/tomorrow - Записи на завтра\n" +
	"/date ГГГГ-ММ-ДД - Записи на дату\n" +
	"/slots - Свободные слоты основного тренера на неделю\n" +
	"/help - Показать эту справку\n\n" +
	"Уведомления о заявках, оплатах и возвратах приходят в этот чат автоматически."

// HandleStart обрабатывает команду /start
func (c *BotController) HandleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}
	c.reply(ctx, "👋 Бот записи на тренировки подключён.\n\n"+helpText)
}

// HandleHelp обрабатывает команду /help
func (c *BotController) HandleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}
	c.reply(ctx, helpText)
}

// HandleToday обрабатывает команду /today
func (c *BotController) HandleToday(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}
	c.sendDay(ctx, c.today())
}

// HandleTomorrow обрабатывает команду /tomorrow
func (c *BotController) HandleTomorrow(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}
	c.sendDay(ctx, c.today().AddDate(0, 0, 1))
}

// HandleDate обрабатывает команду /date 2026-10-19
func (c *BotController) HandleDate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}

	arg := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/date"))
	day, err := time.ParseInLocation(service.DateLayout, arg, c.location)
	if err != nil {
		c.reply(ctx, "❌ Укажите дату в формате ГГГГ-ММ-ДД, например: /date 2026-10-19")
		return
	}
	c.sendDay(ctx, day)
}

// HandleSlots обрабатывает команду /slots
func (c *BotController) HandleSlots(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !c.requireAdmin(ctx, update) {
		return
	}

	from := c.today()
	to := from.AddDate(0, 0, slotsDays-1)

	slots, err := c.slots.GetAvailableSlots(ctx, service.DefaultTrainerID, from.Format(service.DateLayout), to.Format(service.DateLayout))
	if err != nil {
		c.logger.Error("Failed to get available slots", zap.Error(err))
		c.reply(ctx, "❌ Не удалось получить слоты. Попробуйте позже.")
		return
	}

	c.reply(ctx, slotsText(slots))
}

func (c *BotController) sendDay(ctx context.Context, day time.Time) {
	date := day.Format(service.DateLayout)

	bookings, err := c.bookings.GetActiveByDate(ctx, date)
	if err != nil {
		c.logger.Error("Failed to get bookings", zap.String("date", date), zap.Error(err))
		c.reply(ctx, "❌ Не удалось получить записи. Попробуйте позже.")
		return
	}

	if len(bookings) == 0 {
		c.reply(ctx, fmt.Sprintf("📭 На %s записей нет", notifier.FormatBookingDate(date)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Записи на %s:\n\n", notifier.FormatBookingDate(date))
	for _, b := range bookings {
		sb.WriteString(notifier.FormatBookingLine(b))
		sb.WriteString("\n")
	}
	c.reply(ctx, sb.String())
}

// requireAdmin пропускает только чат администратора
func (c *BotController) requireAdmin(ctx context.Context, update *models.Update) bool {
	if update.Message == nil {
		return false
	}

	if update.Message.Chat.ID != c.adminChatID {
		c.logger.Warn("Message from unknown chat", zap.Int64("chat_id", update.Message.Chat.ID))
		c.send(ctx, update.Message.Chat.ID, "⛔ Этот бот доступен только администратору.")
		return false
	}

	return true
}

func (c *BotController) today() time.Time {
	now := c.now().In(c.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.location)
}

func (c *BotController) reply(ctx context.Context, text string) {
	c.send(ctx, c.adminChatID, text)
}

// send отправляет сообщение и логирует если не удалось
func (c *BotController) send(ctx context.Context, chatID int64, text string) {
	_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func slotsText(slots map[string][]string) string {
	dates := make([]string, 0, len(slots))
	for date := range slots {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var sb strings.Builder
	sb.WriteString("🕐 Свободные слоты:\n\n")
	free := 0
	for _, date := range dates {
		times := slots[date]
		if len(times) == 0 {
			fmt.Fprintf(&sb, "%s: всё занято\n", notifier.FormatBookingDate(date))
			continue
		}
		free += len(times)
		fmt.Fprintf(&sb, "%s: %s\n", notifier.FormatBookingDate(date), strings.Join(times, ", "))
	}

	if free == 0 {
		return "📭 Свободных слотов на неделю нет"
	}
	return sb.String()
}
