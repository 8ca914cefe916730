package model

import "time"

// TrainerSchedule недельный шаблон рабочего времени тренера
type TrainerSchedule struct {
	TrainerID           int64     `json:"trainer_id"`
	WorkingDays         []int     `json:"working_days"`          // 0 = Sunday, 6 = Saturday
	StartTime           string    `json:"start_time"`            // HH:MM
	EndTime             string    `json:"end_time"`              // HH:MM
	SlotDurationMinutes int       `json:"slot_duration_minutes"` // длительность занятия
	GapMinutes          int       `json:"gap_minutes"`           // перерыв между занятиями
	BlackoutDates       []string  `json:"blackout_dates"`        // YYYY-MM-DD, выходные и отпуск
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultSchedule расписание, если тренер ещё не настроил своё
func DefaultSchedule(trainerID int64) *TrainerSchedule {
	return &TrainerSchedule{
		TrainerID:           trainerID,
		WorkingDays:         []int{1, 2, 3, 4, 5, 6},
		StartTime:           "10:00",
		EndTime:             "20:00",
		SlotDurationMinutes: 60,
		GapMinutes:          0,
	}
}

// WorksOn проверяет, рабочий ли день недели
func (s *TrainerSchedule) WorksOn(weekday time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if time.Weekday(d) == weekday {
			return true
		}
	}
	return false
}

// IsBlackedOut проверяет, закрыта ли дата для записи
func (s *TrainerSchedule) IsBlackedOut(date string) bool {
	for _, d := range s.BlackoutDates {
		if d == date {
			return true
		}
	}
	return false
}
