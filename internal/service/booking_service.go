package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
	"go.uber.org/zap"
)

// CreateBookingInput данные заявки на занятие
type CreateBookingInput struct {
	UserID      *string
	TrainerID   int64
	ServiceType string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Duration    int    // минуты; 0 - длительность слота из расписания
	Price       int64  // в копейках
	Notes       string
}

type BookingService struct {
	bookings BookingRepository
	slots    *SlotService
	notifier Notifier
	logger   *zap.Logger
}

func NewBookingService(
	bookings BookingRepository,
	slots *SlotService,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		slots:    slots,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateBooking создаёт pending-бронирование, если слот есть в расписании и не подтверждён другим клиентом
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.TrainerID <= 0 {
		return nil, fmt.Errorf("%w: trainerId must be positive", ErrValidation)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	offered, schedule, err := s.slots.IsSlotOffered(ctx, in.TrainerID, in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, fmt.Errorf("%w: %s %s is not an available slot", ErrValidation, in.Date, in.Time)
	}

	duration := in.Duration
	if duration == 0 {
		duration = schedule.SlotDurationMinutes
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	serviceType := strings.TrimSpace(in.ServiceType)
	if serviceType == "" {
		serviceType = "personal"
	}

	booking := &model.Booking{
		TrainerID:       in.TrainerID,
		UserID:          in.UserID,
		ServiceType:     serviceType,
		Date:            in.Date,
		Time:            in.Time,
		DurationMinutes: duration,
		Price:           in.Price,
		Status:          model.BookingStatusPending,
		Notes:           strings.TrimSpace(in.Notes),
	}

	if err := s.bookings.CreateIfSlotFree(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.logger.Info("Booking rejected, slot already confirmed",
				zap.Int64("trainer_id", in.TrainerID),
				zap.String("date", in.Date),
				zap.String("time", in.Time))
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("trainer_id", booking.TrainerID),
		zap.String("slot", booking.SlotKey()))

	s.notifier.BookingCreated(ctx, booking)

	return booking, nil
}

// GetBooking получает бронирование по ID
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return booking, nil
}
