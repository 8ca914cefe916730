package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// MaxSlotRangeDays самый длинный период, за который можно запросить слоты
	MaxSlotRangeDays = 93

	// DefaultTrainerID основной тренер: к нему идёт запись, если trainerId не передан
	DefaultTrainerID int64 = 1
)

// BookedSlots занятые слоты: дата -> время -> true
type BookedSlots map[string]map[string]bool

// Add отмечает слот занятым
func (b BookedSlots) Add(date, slotTime string) {
	if b[date] == nil {
		b[date] = make(map[string]bool)
	}
	b[date][slotTime] = true
}

// Has проверяет, занят ли слот
func (b BookedSlots) Has(date, slotTime string) bool {
	return b[date][slotTime]
}

// GenerateSlots строит свободные слоты по недельному расписанию.
// start и end - полночь первого и последнего дня в часовом поясе тренера.
// Нерабочие и закрытые дни в результат не попадают; слоты раньше now отбрасываются.
func GenerateSlots(start, end time.Time, schedule *model.TrainerSchedule, booked BookedSlots, now time.Time) map[string][]string {
	result := make(map[string][]string)

	startMin, err := parseClock(schedule.StartTime)
	if err != nil {
		return result
	}
	endMin, err := parseClock(schedule.EndTime)
	if err != nil {
		return result
	}
	duration := schedule.SlotDurationMinutes
	if duration <= 0 {
		return result
	}
	step := duration + schedule.GapMinutes

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(DateLayout)

		if !schedule.WorksOn(day.Weekday()) || schedule.IsBlackedOut(date) {
			continue
		}

		slots := make([]string, 0)
		for m := startMin; m+duration <= endMin; m += step {
			slotStart := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, day.Location())
			if !now.IsZero() && slotStart.Before(now) {
				continue
			}

			slotTime := formatClock(m)
			if booked.Has(date, slotTime) {
				continue
			}
			slots = append(slots, slotTime)
		}

		result[date] = slots
	}

	return result
}

// ValidateSchedule проверяет настройки расписания тренера
func ValidateSchedule(schedule *model.TrainerSchedule) error {
	startMin, err := parseClock(schedule.StartTime)
	if err != nil {
		return fmt.Errorf("%w: startTime %q must be HH:MM", ErrValidation, schedule.StartTime)
	}
	endMin, err := parseClock(schedule.EndTime)
	if err != nil {
		return fmt.Errorf("%w: endTime %q must be HH:MM", ErrValidation, schedule.EndTime)
	}
	if startMin >= endMin {
		return fmt.Errorf("%w: startTime must be before endTime", ErrValidation)
	}
	if schedule.SlotDurationMinutes <= 0 || schedule.SlotDurationMinutes > endMin-startMin {
		return fmt.Errorf("%w: slot duration must fit into the working day", ErrValidation)
	}
	if schedule.GapMinutes < 0 {
		return fmt.Errorf("%w: gap must not be negative", ErrValidation)
	}
	for _, d := range schedule.WorkingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: working day %d is out of range 0-6", ErrValidation, d)
		}
	}
	for _, d := range schedule.BlackoutDates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: blackout date %q must be YYYY-MM-DD", ErrValidation, d)
		}
	}
	return nil
}

// parseClock переводит HH:MM в минуты от начала дня
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	total := hour*60 + minute
	if total > 24*60 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return total, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
