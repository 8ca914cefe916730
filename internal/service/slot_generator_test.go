package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateLayout, date, time.UTC)
	require.NoError(t, err)
	return d
}

func TestGenerateSlots_DefaultScheduleSkipsSunday(t *testing.T) {
	// 2026-10-18 воскресенье, 2026-10-19 понедельник
	slots := GenerateSlots(day(t, "2026-10-18"), day(t, "2026-10-19"), model.DefaultSchedule(1), nil, time.Time{})

	_, hasSunday := slots["2026-10-18"]
	assert.False(t, hasSunday)
	assert.Equal(t, []string{
		"10:00", "11:00", "12:00", "13:00", "14:00",
		"15:00", "16:00", "17:00", "18:00", "19:00",
	}, slots["2026-10-19"])
}

func TestGenerateSlots_ExcludesConfirmed(t *testing.T) {
	booked := make(BookedSlots)
	booked.Add("2026-10-19", "12:00")
	booked.Add("2026-10-20", "10:00")

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-20"), model.DefaultSchedule(1), booked, time.Time{})

	assert.NotContains(t, slots["2026-10-19"], "12:00")
	assert.Len(t, slots["2026-10-19"], 9)
	assert.NotContains(t, slots["2026-10-20"], "10:00")
	assert.Contains(t, slots["2026-10-20"], "12:00")
}

func TestGenerateSlots_GapAndDurationMustFit(t *testing.T) {
	schedule := &model.TrainerSchedule{
		WorkingDays:         []int{1},
		StartTime:           "09:00",
		EndTime:             "11:30",
		SlotDurationMinutes: 45,
		GapMinutes:          15,
	}

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-19"), schedule, nil, time.Time{})

	// 11:00 + 45 минут выходит за 11:30
	assert.Equal(t, []string{"09:00", "10:00"}, slots["2026-10-19"])
}

func TestGenerateSlots_LastSlotEndsExactlyAtEndTime(t *testing.T) {
	schedule := &model.TrainerSchedule{
		WorkingDays:         []int{1},
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 50,
		GapMinutes:          10,
	}

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-19"), schedule, nil, time.Time{})

	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slots["2026-10-19"])
}

func TestGenerateSlots_BlackoutDateSkipped(t *testing.T) {
	schedule := model.DefaultSchedule(1)
	schedule.BlackoutDates = []string{"2026-10-20"}

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-21"), schedule, nil, time.Time{})

	assert.Contains(t, slots, "2026-10-19")
	assert.NotContains(t, slots, "2026-10-20")
	assert.Contains(t, slots, "2026-10-21")
}

func TestGenerateSlots_DropsPastSlots(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-20"), model.DefaultSchedule(1), nil, now)

	assert.Equal(t, []string{"15:00", "16:00", "17:00", "18:00", "19:00"}, slots["2026-10-19"])
	assert.Len(t, slots["2026-10-20"], 10)
}

func TestGenerateSlots_FullyBookedDayIsEmptyList(t *testing.T) {
	schedule := &model.TrainerSchedule{
		WorkingDays:         []int{1},
		StartTime:           "10:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 60,
	}
	booked := make(BookedSlots)
	booked.Add("2026-10-19", "10:00")
	booked.Add("2026-10-19", "11:00")

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-19"), schedule, booked, time.Time{})

	require.Contains(t, slots, "2026-10-19")
	assert.Empty(t, slots["2026-10-19"])
}

func TestGenerateSlots_BrokenScheduleYieldsNothing(t *testing.T) {
	schedule := &model.TrainerSchedule{
		WorkingDays:         []int{1},
		StartTime:           "ten",
		EndTime:             "20:00",
		SlotDurationMinutes: 60,
	}

	slots := GenerateSlots(day(t, "2026-10-19"), day(t, "2026-10-19"), schedule, nil, time.Time{})

	assert.Empty(t, slots)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *model.TrainerSchedule)
		valid  bool
	}{
		{name: "default", modify: func(s *model.TrainerSchedule) {}, valid: true},
		{name: "bad start", modify: func(s *model.TrainerSchedule) { s.StartTime = "25:00" }},
		{name: "start after end", modify: func(s *model.TrainerSchedule) { s.StartTime = "21:00" }},
		{name: "zero duration", modify: func(s *model.TrainerSchedule) { s.SlotDurationMinutes = 0 }},
		{name: "duration longer than day", modify: func(s *model.TrainerSchedule) { s.SlotDurationMinutes = 660 }},
		{name: "negative gap", modify: func(s *model.TrainerSchedule) { s.GapMinutes = -5 }},
		{name: "weekday out of range", modify: func(s *model.TrainerSchedule) { s.WorkingDays = []int{7} }},
		{name: "bad blackout", modify: func(s *model.TrainerSchedule) { s.BlackoutDates = []string{"20.10.2026"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := model.DefaultSchedule(1)
			tt.modify(schedule)

			err := ValidateSchedule(schedule)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
		})
	}
}
