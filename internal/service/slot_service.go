package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"go.uber.org/zap"
)

type SlotService struct {
	schedules ScheduleRepository
	bookings  BookingRepository
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewSlotService(
	schedules ScheduleRepository,
	bookings BookingRepository,
	location *time.Location,
	logger *zap.Logger,
) *SlotService {
	if location == nil {
		location = time.UTC
	}
	return &SlotService{
		schedules: schedules,
		bookings:  bookings,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// GetAvailableSlots возвращает свободные слоты тренера за период (даты включительно)
func (s *SlotService) GetAvailableSlots(ctx context.Context, trainerID int64, startDate, endDate string) (map[string][]string, error) {
	start, end, err := s.parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	schedule, err := s.GetSchedule(ctx, trainerID)
	if err != nil {
		return nil, err
	}

	confirmed, err := s.bookings.GetConfirmedByTrainer(ctx, trainerID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load confirmed bookings: %w", err)
	}

	booked := make(BookedSlots)
	for _, b := range confirmed {
		booked.Add(b.Date, b.Time)
	}

	slots := GenerateSlots(start, end, schedule, booked, s.now().In(s.location))

	s.logger.Debug("Slots generated",
		zap.Int64("trainer_id", trainerID),
		zap.String("start_date", startDate),
		zap.String("end_date", endDate),
		zap.Int("booked", len(confirmed)))

	return slots, nil
}

// IsSlotOffered проверяет, что время есть в сетке расписания на эту дату.
// Занятость слота здесь не учитывается.
func (s *SlotService) IsSlotOffered(ctx context.Context, trainerID int64, date, slotTime string) (bool, *model.TrainerSchedule, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.location)
	if err != nil {
		return false, nil, fmt.Errorf("%w: bookingDate must be YYYY-MM-DD", ErrValidation)
	}

	schedule, err := s.GetSchedule(ctx, trainerID)
	if err != nil {
		return false, nil, err
	}

	slots := GenerateSlots(day, day, schedule, nil, s.now().In(s.location))
	for _, t := range slots[date] {
		if t == slotTime {
			return true, schedule, nil
		}
	}
	return false, schedule, nil
}

// GetSchedule возвращает расписание тренера или расписание по умолчанию
func (s *SlotService) GetSchedule(ctx context.Context, trainerID int64) (*model.TrainerSchedule, error) {
	schedule, err := s.schedules.GetByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("load trainer schedule: %w", err)
	}
	if schedule == nil {
		return model.DefaultSchedule(trainerID), nil
	}
	return schedule, nil
}

// SaveSchedule проверяет и сохраняет расписание тренера
func (s *SlotService) SaveSchedule(ctx context.Context, schedule *model.TrainerSchedule) error {
	if schedule.TrainerID <= 0 {
		return fmt.Errorf("%w: trainerId must be positive", ErrValidation)
	}
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return fmt.Errorf("save trainer schedule: %w", err)
	}
	return nil
}

func (s *SlotService) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate and endDate are required", ErrValidation)
	}

	start, err := time.ParseInLocation(DateLayout, startDate, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrValidation)
	}
	end, err := time.ParseInLocation(DateLayout, endDate, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrValidation)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate is before startDate", ErrValidation)
	}
	if end.Sub(start) > MaxSlotRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range must not exceed %d days", ErrValidation, MaxSlotRangeDays)
	}

	return start, end, nil
}
