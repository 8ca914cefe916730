package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/cloudpayments"
	"github.com/Freeeeeet/coach_backend/internal/model"
	"go.uber.org/zap"
)

// Ключи маршрутизации доменных событий
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentRefunded  = "payment.refunded"
	EventPaymentFailed    = "payment.failed"
	EventBookingConfirmed = "booking.confirmed"
)

const defaultCurrency = "RUB"

// WebhookRequest сырой запрос от платёжного провайдера
type WebhookRequest struct {
	Body        []byte
	ContentType string
	Header      http.Header
	// DefaultType тип уведомления, если провайдер не прислал поле Type
	DefaultType string
}

// PaymentEvent событие, которое уходит в брокер
type PaymentEvent struct {
	TransactionID string         `json:"transaction_id"`
	Email         string         `json:"email"`
	ItemType      model.ItemType `json:"item_type"`
	ItemID        int64          `json:"item_id"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

type PaymentService struct {
	secret    string
	purchases PurchaseRepository
	courses   CourseRepository
	bookings  BookingRepository
	access    AccessRepository
	notifier  Notifier
	events    EventPublisher
	logger    *zap.Logger
}

func NewPaymentService(
	secret string,
	purchases PurchaseRepository,
	courses CourseRepository,
	bookings BookingRepository,
	access AccessRepository,
	notifier Notifier,
	events EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		secret:    secret,
		purchases: purchases,
		courses:   courses,
		bookings:  bookings,
		access:    access,
		notifier:  notifier,
		events:    events,
		logger:    logger,
	}
}

// HandleNotification проверяет подпись и применяет уведомление.
// Код ответа провайдеру: 0 - принято, 13 - не принято, провайдер повторит позже.
func (s *PaymentService) HandleNotification(ctx context.Context, req WebhookRequest) cloudpayments.Code {
	n, code, ok := s.authenticate(req)
	if !ok {
		return code
	}

	// Type приходит не во всех уведомлениях; тогда решает адрес вебхука, затем OperationType
	kind := strings.TrimSpace(n.Type)
	if kind == "" {
		kind = req.DefaultType
	}
	if kind == "" {
		kind = strings.TrimSpace(n.OperationType)
	}

	log := s.logger.With(
		zap.String("type", kind),
		zap.String("transaction_id", n.TransactionID.String()))

	switch kind {
	case cloudpayments.TypePayment, cloudpayments.TypeRecurrentPayment:
		return s.applyPayment(ctx, n, kind, log)
	case cloudpayments.TypeRefund:
		return s.applyRefund(ctx, n, log)
	case cloudpayments.TypeFail:
		return s.recordFailure(ctx, n, log)
	default:
		log.Warn("Unknown notification type ignored")
		return cloudpayments.CodeOK
	}
}

// HandleCheck проверяет платёж до списания: товар существует и сумма совпадает с ценой
func (s *PaymentService) HandleCheck(ctx context.Context, req WebhookRequest) cloudpayments.Code {
	n, code, ok := s.authenticate(req)
	if !ok {
		return code
	}

	log := s.logger.With(
		zap.String("type", "Check"),
		zap.String("transaction_id", n.TransactionID.String()),
		zap.String("invoice_id", n.InvoiceID.String()))

	item, err := n.ResolveItem()
	if err != nil {
		log.Info("Check rejected, unknown item", zap.Error(err))
		return cloudpayments.CodeInvalidInvoice
	}

	amount, err := n.AmountKopecks()
	if err != nil {
		log.Info("Check rejected, invalid amount", zap.String("amount", n.Amount.String()))
		return cloudpayments.CodeInvalidAmount
	}

	var price int64
	switch item.Type {
	case model.ItemTypeCourse, model.ItemTypeSubscription:
		course, err := s.courses.GetByID(ctx, item.ID)
		if err != nil {
			log.Error("Failed to load course for check", zap.Error(err))
			return cloudpayments.CodeRejected
		}
		if course == nil || !course.IsPublished {
			log.Info("Check rejected, course not available", zap.Int64("course_id", item.ID))
			return cloudpayments.CodeInvalidInvoice
		}
		if email := n.ContactEmail(); email != "" && item.Type == model.ItemTypeCourse {
			has, err := s.access.HasAccess(ctx, email, course.ID)
			if err != nil {
				log.Error("Failed to check course access", zap.Error(err))
				return cloudpayments.CodeRejected
			}
			if has {
				log.Info("Check rejected, course already purchased", zap.Int64("course_id", course.ID))
				return cloudpayments.CodeRejected
			}
		}
		price = course.Price

	case model.ItemTypeBooking:
		booking, err := s.bookings.GetByID(ctx, item.ID)
		if err != nil {
			log.Error("Failed to load booking for check", zap.Error(err))
			return cloudpayments.CodeRejected
		}
		if booking == nil {
			log.Info("Check rejected, booking not found", zap.Int64("booking_id", item.ID))
			return cloudpayments.CodeInvalidInvoice
		}
		switch booking.Status {
		case model.BookingStatusCancelled:
			return cloudpayments.CodeExpired
		case model.BookingStatusConfirmed:
			return cloudpayments.CodeRejected
		}
		price = booking.Price
	}

	if amount != price {
		log.Info("Check rejected, amount mismatch",
			zap.Int64("amount", amount),
			zap.Int64("price", price))
		return cloudpayments.CodeInvalidAmount
	}

	return cloudpayments.CodeOK
}

// authenticate проверяет подпись до любого разбора тела
func (s *PaymentService) authenticate(req WebhookRequest) (*cloudpayments.Notification, cloudpayments.Code, bool) {
	if !cloudpayments.Verify(s.secret, req.Body, req.Header) {
		s.logger.Warn("Payment notification rejected, invalid signature",
			zap.Int("body_size", len(req.Body)))
		return nil, cloudpayments.CodeRejected, false
	}

	n, err := cloudpayments.Parse(req.ContentType, req.Body)
	if err != nil {
		s.logger.Error("Failed to parse payment notification", zap.Error(err))
		return nil, cloudpayments.CodeRejected, false
	}

	return n, cloudpayments.CodeOK, true
}

func (s *PaymentService) applyPayment(ctx context.Context, n *cloudpayments.Notification, kind string, log *zap.Logger) cloudpayments.Code {
	if n.TransactionID == "" {
		log.Error("Payment notification rejected", zap.Error(cloudpayments.ErrNoTransaction))
		return cloudpayments.CodeRejected
	}

	if n.IsDeclined() {
		log.Info("Payment declined, recording as failed", zap.String("status", n.Status))
		return s.recordFailure(ctx, n, log)
	}
	// Authorized и другие промежуточные статусы двухстадийной оплаты: строку не пишем,
	// иначе TransactionId будет занят до прихода Completed
	if !n.IsCompleted() {
		log.Info("Payment is not completed yet, waiting for final notification", zap.String("status", n.Status))
		return cloudpayments.CodeOK
	}

	item, err := s.resolveItem(ctx, n, kind, log)
	if err != nil {
		log.Error("Failed to resolve payment item", zap.Error(err))
		return cloudpayments.CodeRejected
	}
	unmatched := item == nil
	if unmatched {
		// Деньги уже списаны: покупку сохраняем, товар назначает администратор
		item = &cloudpayments.Item{Type: model.ItemTypeUnknown}
	}

	amount, err := n.AmountKopecks()
	if err != nil {
		log.Error("Payment notification has invalid amount", zap.String("amount", n.Amount.String()))
		return cloudpayments.CodeRejected
	}

	purchase := s.newPurchase(n, item, amount, model.PurchaseStatusCompleted)

	result, err := s.purchases.ApplyPayment(ctx, purchase, item.UserID)
	if err != nil {
		log.Error("Failed to apply payment", zap.Error(err))
		return cloudpayments.CodeRejected
	}

	if result.Duplicate {
		log.Info("Payment notification already processed")
		return cloudpayments.CodeOK
	}

	log.Info("Payment applied",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("item_type", string(purchase.ItemType)),
		zap.Int64("item_id", purchase.ItemID),
		zap.Int64("amount", purchase.Amount),
		zap.Bool("access_granted", result.AccessGranted))

	s.publish(ctx, EventPaymentCompleted, purchase, log)

	if unmatched {
		log.Warn("Payment references unknown item, manual handling required",
			zap.Int64("purchase_id", purchase.ID),
			zap.String("invoice_id", n.InvoiceID.String()))
		s.notifier.UnmatchedPayment(ctx, purchase)
		return cloudpayments.CodeOK
	}

	if result.BookingConflict {
		log.Warn("Paid booking slot is already confirmed by another booking",
			zap.Int64("booking_id", purchase.ItemID))
		s.notifier.BookingConflict(ctx, result.Booking, purchase)
	} else if result.Booking != nil && result.Booking.Status == model.BookingStatusConfirmed {
		if err := s.events.Publish(ctx, EventBookingConfirmed, result.Booking); err != nil {
			log.Warn("Failed to publish booking event", zap.Error(err))
		}
	}

	s.notifier.PaymentCompleted(ctx, result)

	return cloudpayments.CodeOK
}

// resolveItem для продления подписки без Data берёт товар из первой оплаты.
// nil без ошибки - товар не распознан; ошибка - только сбой хранилища
func (s *PaymentService) resolveItem(ctx context.Context, n *cloudpayments.Notification, kind string, log *zap.Logger) (*cloudpayments.Item, error) {
	item, parseErr := n.ResolveItem()
	if parseErr == nil {
		return item, nil
	}

	if kind == cloudpayments.TypeRecurrentPayment && n.SubscriptionID != "" {
		previous, err := s.purchases.GetLatestBySubscriptionID(ctx, n.SubscriptionID.String())
		if err != nil {
			return nil, err
		}
		if previous != nil && previous.ItemType != model.ItemTypeUnknown {
			return &cloudpayments.Item{Type: previous.ItemType, ID: previous.ItemID}, nil
		}
	}

	log.Warn("Payment item is not recognized", zap.Error(parseErr))
	return nil, nil
}

func (s *PaymentService) applyRefund(ctx context.Context, n *cloudpayments.Notification, log *zap.Logger) cloudpayments.Code {
	original := n.PaymentTransactionID.String()
	if original == "" {
		original = n.TransactionID.String()
	}
	if original == "" {
		log.Error("Refund notification rejected", zap.Error(cloudpayments.ErrNoTransaction))
		return cloudpayments.CodeRejected
	}

	result, err := s.purchases.ApplyRefund(ctx, original)
	if err != nil {
		log.Error("Failed to apply refund", zap.String("payment_transaction_id", original), zap.Error(err))
		return cloudpayments.CodeRejected
	}

	switch {
	case result.NotFound:
		log.Warn("Refund for unknown transaction ignored", zap.String("payment_transaction_id", original))
		return cloudpayments.CodeOK
	case result.AlreadyRefunded:
		log.Info("Refund already applied", zap.String("payment_transaction_id", original))
		return cloudpayments.CodeOK
	}

	log.Info("Refund applied",
		zap.Int64("purchase_id", result.Purchase.ID),
		zap.Int64("access_revoked", result.AccessRevoked))

	s.publish(ctx, EventPaymentRefunded, result.Purchase, log)
	s.notifier.PaymentRefunded(ctx, result)

	return cloudpayments.CodeOK
}

func (s *PaymentService) recordFailure(ctx context.Context, n *cloudpayments.Notification, log *zap.Logger) cloudpayments.Code {
	if n.TransactionID == "" {
		log.Warn("Fail notification without TransactionId ignored")
		return cloudpayments.CodeOK
	}

	// Неуспешный платёж мог прийти и без понятного товара
	item, err := n.ResolveItem()
	if err != nil {
		item = &cloudpayments.Item{Type: model.ItemTypeUnknown}
		if !errors.Is(err, cloudpayments.ErrUnknownItem) {
			log.Warn("Failed to decode notification data", zap.Error(err))
		}
	}

	amount, err := n.AmountKopecks()
	if err != nil {
		amount = 0
	}

	purchase := s.newPurchase(n, item, amount, model.PurchaseStatusFailed)

	inserted, err := s.purchases.RecordFailure(ctx, purchase)
	if err != nil {
		log.Error("Failed to record failed payment", zap.Error(err))
		return cloudpayments.CodeRejected
	}
	if !inserted {
		log.Info("Failed payment already recorded")
		return cloudpayments.CodeOK
	}

	log.Info("Failed payment recorded",
		zap.String("reason", n.Reason),
		zap.String("reason_code", n.ReasonCode.String()))

	s.publish(ctx, EventPaymentFailed, purchase, log)
	return cloudpayments.CodeOK
}

func (s *PaymentService) newPurchase(n *cloudpayments.Notification, item *cloudpayments.Item, amount int64, status model.PurchaseStatus) *model.Purchase {
	currency := strings.ToUpper(strings.TrimSpace(n.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &model.Purchase{
		TransactionID:  n.TransactionID.String(),
		Email:          n.ContactEmail(),
		AccountID:      n.AccountID.String(),
		ItemType:       item.Type,
		ItemID:         item.ID,
		Amount:         amount,
		Currency:       currency,
		Status:         status,
		SubscriptionID: n.SubscriptionID.String(),
	}
}

func (s *PaymentService) publish(ctx context.Context, key string, p *model.Purchase, log *zap.Logger) {
	event := PaymentEvent{
		TransactionID: p.TransactionID,
		Email:         p.Email,
		ItemType:      p.ItemType,
		ItemID:        p.ItemID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		log.Warn("Failed to publish payment event", zap.String("event", key), zap.Error(err))
	}
}

// ListAccess активные доступы к курсам по email покупателя
func (s *PaymentService) ListAccess(ctx context.Context, email string) ([]*model.CourseAccess, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	list, err := s.access.GetActiveByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list course access: %w", err)
	}
	if list == nil {
		list = []*model.CourseAccess{}
	}
	return list, nil
}
