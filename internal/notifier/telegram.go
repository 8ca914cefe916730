package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// MessageSender часть *bot.Bot, которая нужна для уведомлений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier отправляет уведомления в чат администратора.
// Отправка идёт в фоне, чтобы не задерживать ответ платёжному провайдеру.
type TelegramNotifier struct {
	sender MessageSender
	chatID int64
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewTelegramNotifier(sender MessageSender, chatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

func (n *TelegramNotifier) BookingCreated(ctx context.Context, booking *model.Booking) {
	n.send(ctx, bookingCreatedText(booking))
}

func (n *TelegramNotifier) PaymentCompleted(ctx context.Context, result *repository.PaymentResult) {
	n.send(ctx, paymentCompletedText(result))
}

func (n *TelegramNotifier) BookingConflict(ctx context.Context, booking *model.Booking, purchase *model.Purchase) {
	n.send(ctx, bookingConflictText(booking, purchase))
}

func (n *TelegramNotifier) PaymentRefunded(ctx context.Context, result *repository.RefundResult) {
	n.send(ctx, paymentRefundedText(result))
}

func (n *TelegramNotifier) UnmatchedPayment(ctx context.Context, purchase *model.Purchase) {
	n.send(ctx, unmatchedPaymentText(purchase))
}

// Wait дожидается отправки всех уведомлений
func (n *TelegramNotifier) Wait() {
	n.wg.Wait()
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	// Запрос уже может быть завершён, поэтому отмена родителя не наследуется
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()

		_, err := n.sender.SendMessage(sendCtx, &bot.SendMessageParams{
			ChatID: n.chatID,
			Text:   text,
		})
		if err != nil {
			n.logger.Warn("Failed to send telegram notification",
				zap.Int64("chat_id", n.chatID),
				zap.Error(err))
		}
	}()
}

// NopNotifier используется, когда бот не настроен
type NopNotifier struct{}

func (NopNotifier) BookingCreated(context.Context, *model.Booking)                   {}
func (NopNotifier) PaymentCompleted(context.Context, *repository.PaymentResult)      {}
func (NopNotifier) BookingConflict(context.Context, *model.Booking, *model.Purchase) {}
func (NopNotifier) PaymentRefunded(context.Context, *repository.RefundResult)        {}
func (NopNotifier) UnmatchedPayment(context.Context, *model.Purchase)                {}
func (NopNotifier) Wait()                                                            {}
