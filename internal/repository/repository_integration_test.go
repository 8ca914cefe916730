//go:build integration

package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/Freeeeeet/coach_backend/internal/app"
	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Запуск: TEST_DB_DSN=postgres://... go test -tags integration ./internal/repository/...
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, "../../migrations", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE course_access, purchases, bookings RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}

func pendingBooking(slotTime string) *model.Booking {
	return &model.Booking{
		TrainerID:       1,
		ServiceType:     "personal",
		Date:            "2026-10-19",
		Time:            slotTime,
		DurationMinutes: 60,
		Price:           300000,
		Status:          model.BookingStatusPending,
	}
}

func bookingPurchase(txID string, bookingID int64) *model.Purchase {
	return &model.Purchase{
		TransactionID: txID,
		Email:         "client@example.com",
		ItemType:      model.ItemTypeBooking,
		ItemID:        bookingID,
		Amount:        300000,
		Currency:      "RUB",
		Status:        model.PurchaseStatusCompleted,
	}
}

func TestApplyPayment_SameTransactionAppliedOnce(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	purchases := repository.NewPurchaseRepository(pool)
	access := repository.NewAccessRepository(pool)

	newPurchase := func() *model.Purchase {
		return &model.Purchase{
			TransactionID: "tx-course-1",
			Email:         "client@example.com",
			ItemType:      model.ItemTypeCourse,
			ItemID:        7,
			Amount:        499000,
			Currency:      "RUB",
			Status:        model.PurchaseStatusCompleted,
		}
	}

	first, err := purchases.ApplyPayment(ctx, newPurchase(), nil)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.True(t, first.AccessGranted)

	second, err := purchases.ApplyPayment(ctx, newPurchase(), nil)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	list, err := access.GetActiveByEmail(ctx, "client@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApplyPayment_ConfirmedSlotConflictKeepsPurchase(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := repository.NewBookingRepository(pool)
	purchases := repository.NewPurchaseRepository(pool)

	// Две pending-записи на один слот допустимы
	a := pendingBooking("10:00")
	b := pendingBooking("10:00")
	require.NoError(t, bookings.CreateIfSlotFree(ctx, a))
	require.NoError(t, bookings.CreateIfSlotFree(ctx, b))

	paidA, err := purchases.ApplyPayment(ctx, bookingPurchase("tx-a", a.ID), nil)
	require.NoError(t, err)
	assert.False(t, paidA.BookingConflict)
	assert.Equal(t, model.BookingStatusConfirmed, paidA.Booking.Status)

	// Частичный уникальный индекс не даёт подтвердить второй; откат до savepoint сохраняет покупку
	paidB, err := purchases.ApplyPayment(ctx, bookingPurchase("tx-b", b.ID), nil)
	require.NoError(t, err)
	assert.True(t, paidB.BookingConflict)

	gotB, err := bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, gotB.Status)

	var stored int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE transaction_id = 'tx-b'`).Scan(&stored))
	assert.Equal(t, 1, stored)

	// После подтверждения новая запись на слот отклоняется
	err = bookings.CreateIfSlotFree(ctx, pendingBooking("10:00"))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
}

func TestApplyRefund_CancelsBookingOnce(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	bookings := repository.NewBookingRepository(pool)
	purchases := repository.NewPurchaseRepository(pool)

	booking := pendingBooking("12:00")
	require.NoError(t, bookings.CreateIfSlotFree(ctx, booking))
	_, err := purchases.ApplyPayment(ctx, bookingPurchase("tx-refund", booking.ID), nil)
	require.NoError(t, err)

	refund, err := purchases.ApplyRefund(ctx, "tx-refund")
	require.NoError(t, err)
	require.NotNil(t, refund.Booking)
	assert.Equal(t, model.BookingStatusCancelled, refund.Booking.Status)

	again, err := purchases.ApplyRefund(ctx, "tx-refund")
	require.NoError(t, err)
	assert.True(t, again.AlreadyRefunded)

	missing, err := purchases.ApplyRefund(ctx, "tx-unknown")
	require.NoError(t, err)
	assert.True(t, missing.NotFound)
}

func TestApplyPayment_UnrecognizedItemStored(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	purchases := repository.NewPurchaseRepository(pool)

	result, err := purchases.ApplyPayment(ctx, &model.Purchase{
		TransactionID: "tx-unknown-item",
		ItemType:      model.ItemTypeUnknown,
		Amount:        150000,
		Currency:      "RUB",
		Status:        model.PurchaseStatusCompleted,
	}, nil)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.False(t, result.AccessGranted)
	assert.Nil(t, result.Booking)
}
