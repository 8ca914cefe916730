package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const purchaseColumns = `
	id, transaction_id, email, account_id, item_type, item_id, amount, currency, status,
	subscription_id, created_at, updated_at
`

// PaymentResult итог применения платежа
type PaymentResult struct {
	Purchase        *model.Purchase
	Duplicate       bool           // TransactionId уже обработан, ничего не изменено
	AccessGranted   bool           // выдан доступ к курсу
	Booking         *model.Booking // подтверждённое (или не подтверждённое) бронирование
	BookingConflict bool           // слот успели подтвердить другой записью
}

// RefundResult итог применения возврата
type RefundResult struct {
	Purchase        *model.Purchase
	NotFound        bool // исходная покупка не найдена
	AlreadyRefunded bool
	AccessRevoked   int64
	Booking         *model.Booking
}

type PurchaseRepository struct {
	*base.Repository
}

func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{Repository: base.NewRepository(pool)}
}

// ApplyPayment записывает успешный платёж и выдаёт то, за что заплатили.
// Повторный вебхук с тем же TransactionId ничего не меняет.
func (r *PurchaseRepository) ApplyPayment(ctx context.Context, purchase *model.Purchase, userID *string) (*PaymentResult, error) {
	result := &PaymentResult{Purchase: purchase}

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		inserted, err := insertPurchase(ctx, tx, purchase)
		if err != nil {
			return err
		}
		if !inserted {
			result.Duplicate = true
			return nil
		}

		switch {
		case purchase.GrantsCourseAccess():
			granted, err := grantCourseAccess(ctx, tx, userID, purchase)
			if err != nil {
				return err
			}
			result.AccessGranted = granted

		case purchase.ItemType == model.ItemTypeBooking:
			booking, conflict, err := confirmBooking(ctx, tx, purchase.ItemID)
			if err != nil {
				return err
			}
			result.Booking = booking
			result.BookingConflict = conflict
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply payment: %w", err)
	}

	return result, nil
}

// RecordFailure записывает неуспешный платёж; повтор ничего не меняет
func (r *PurchaseRepository) RecordFailure(ctx context.Context, purchase *model.Purchase) (bool, error) {
	inserted, err := insertPurchase(ctx, r.Pool(), purchase)
	if err != nil {
		return false, fmt.Errorf("record failed payment: %w", err)
	}
	return inserted, nil
}

// ApplyRefund помечает покупку возвращённой, отзывает доступ и отменяет бронирование
func (r *PurchaseRepository) ApplyRefund(ctx context.Context, transactionID string) (*RefundResult, error) {
	result := &RefundResult{}

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE transaction_id = $1 FOR UPDATE`

		purchase, err := scanPurchase(tx.QueryRow(ctx, query, transactionID))
		if err != nil {
			if base.IsNotFound(err) {
				result.NotFound = true
				return nil
			}
			return fmt.Errorf("get purchase for update: %w", err)
		}
		result.Purchase = purchase

		if purchase.Status == model.PurchaseStatusRefunded {
			result.AlreadyRefunded = true
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE purchases SET status = $1, updated_at = NOW() WHERE id = $2
		`, model.PurchaseStatusRefunded, purchase.ID)
		if err != nil {
			return fmt.Errorf("mark purchase refunded: %w", err)
		}
		purchase.Status = model.PurchaseStatusRefunded

		revoked, err := revokeCourseAccess(ctx, tx, purchase.ID)
		if err != nil {
			return err
		}
		result.AccessRevoked = revoked

		if purchase.ItemType == model.ItemTypeBooking {
			booking, err := getBookingForUpdate(ctx, tx, purchase.ItemID)
			if err != nil {
				return err
			}
			if booking != nil && booking.Status != model.BookingStatusCancelled {
				if err := updateBookingStatus(ctx, tx, booking.ID, model.BookingStatusCancelled); err != nil {
					return err
				}
				booking.Status = model.BookingStatusCancelled
			}
			result.Booking = booking
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply refund: %w", err)
	}

	return result, nil
}

// GetByTransactionID получает покупку по TransactionId провайдера
func (r *PurchaseRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE transaction_id = $1`

	purchase, err := scanPurchase(r.Pool().QueryRow(ctx, query, transactionID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase by transaction id: %w", err)
	}

	return purchase, nil
}

// GetLatestBySubscriptionID последняя успешная покупка по подписке; nil - подписка не встречалась
func (r *PurchaseRepository) GetLatestBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE subscription_id = $1 AND status <> $2
		ORDER BY created_at DESC
		LIMIT 1`

	purchase, err := scanPurchase(r.Pool().QueryRow(ctx, query, subscriptionID, model.PurchaseStatusFailed))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase by subscription id: %w", err)
	}

	return purchase, nil
}

// insertPurchase вставляет покупку; false - такой TransactionId уже есть
func insertPurchase(ctx context.Context, q base.DBTX, purchase *model.Purchase) (bool, error) {
	query := `
		INSERT INTO purchases (transaction_id, email, account_id, item_type, item_id, amount, currency,
			status, subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		purchase.TransactionID,
		purchase.Email,
		purchase.AccountID,
		purchase.ItemType,
		purchase.ItemID,
		purchase.Amount,
		purchase.Currency,
		purchase.Status,
		purchase.SubscriptionID,
	).Scan(&purchase.ID, &purchase.CreatedAt, &purchase.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert purchase: %w", err)
	}

	return true, nil
}

// confirmBooking подтверждает pending-бронирование. Конфликт со
// слотом откатывается до savepoint, чтобы покупка всё равно сохранилась.
func confirmBooking(ctx context.Context, tx pgx.Tx, bookingID int64) (*model.Booking, bool, error) {
	booking, err := getBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, false, err
	}
	if booking == nil || booking.Status != model.BookingStatusPending {
		return booking, false, nil
	}

	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin savepoint: %w", err)
	}

	err = updateBookingStatus(ctx, savepoint, booking.ID, model.BookingStatusConfirmed)
	if errors.Is(err, ErrSlotTaken) {
		if rbErr := savepoint.Rollback(ctx); rbErr != nil {
			return nil, false, fmt.Errorf("rollback savepoint: %w", rbErr)
		}
		return booking, true, nil
	}
	if err != nil {
		savepoint.Rollback(ctx)
		return nil, false, err
	}

	if err := savepoint.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("release savepoint: %w", err)
	}

	booking.Status = model.BookingStatusConfirmed
	return booking, false, nil
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var purchase model.Purchase
	err := row.Scan(
		&purchase.ID,
		&purchase.TransactionID,
		&purchase.Email,
		&purchase.AccountID,
		&purchase.ItemType,
		&purchase.ItemID,
		&purchase.Amount,
		&purchase.Currency,
		&purchase.Status,
		&purchase.SubscriptionID,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
