package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `
	id, trainer_id, user_id, service_type, to_char(booking_date, 'YYYY-MM-DD'), booking_time,
	duration_minutes, price, status, notes, created_at, updated_at
`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// CreateIfSlotFree создаёт pending-бронирование, если на слот нет подтверждённой записи.
// Проверка и вставка идут в одной транзакции.
func (r *BookingRepository) CreateIfSlotFree(ctx context.Context, booking *model.Booking) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		taken, err := confirmedSlotExists(ctx, tx, booking.TrainerID, booking.Date, booking.Time)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		query := `
			INSERT INTO bookings (trainer_id, user_id, service_type, booking_date, booking_time,
				duration_minutes, price, status, notes)
			VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`

		err = tx.QueryRow(
			ctx, query,
			booking.TrainerID,
			booking.UserID,
			booking.ServiceType,
			booking.Date,
			booking.Time,
			booking.DurationMinutes,
			booking.Price,
			booking.Status,
			booking.Notes,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		return nil
	})
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetConfirmedByTrainer получает подтверждённые бронирования тренера за период (даты включительно)
func (r *BookingRepository) GetConfirmedByTrainer(ctx context.Context, trainerID int64, from, to string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE trainer_id = $1
		  AND booking_date BETWEEN $2::date AND $3::date
		  AND status = 'confirmed'
		ORDER BY booking_date, booking_time
	`

	rows, err := r.Pool().Query(ctx, query, trainerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get confirmed bookings by trainer: %w", err)
	}

	return collectBookings(rows)
}

// GetActiveByDate получает неотменённые бронирования всех тренеров на дату
func (r *BookingRepository) GetActiveByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_date = $1::date AND status <> 'cancelled'
		ORDER BY booking_time, trainer_id
	`

	rows, err := r.Pool().Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get bookings by date: %w", err)
	}

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// confirmedSlotExists проверяет наличие подтверждённой записи на слот
func confirmedSlotExists(ctx context.Context, q base.DBTX, trainerID int64, date, slotTime string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE trainer_id = $1 AND booking_date = $2::date AND booking_time = $3 AND status = 'confirmed'
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, trainerID, date, slotTime).Scan(&exists); err != nil {
		return false, fmt.Errorf("check confirmed slot: %w", err)
	}
	return exists, nil
}

// getBookingForUpdate блокирует строку бронирования до конца транзакции
func getBookingForUpdate(ctx context.Context, q base.DBTX, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking for update: %w", err)
	}
	return booking, nil
}

// updateBookingStatus меняет статус бронирования
func updateBookingStatus(ctx context.Context, q base.DBTX, id int64, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	affected, err := base.ExecAffected(ctx, q, query, status, id)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("update booking status: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.TrainerID,
		&booking.UserID,
		&booking.ServiceType,
		&booking.Date,
		&booking.Time,
		&booking.DurationMinutes,
		&booking.Price,
		&booking.Status,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
