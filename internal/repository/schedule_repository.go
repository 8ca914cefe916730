package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ScheduleRepository управляет недельными расписаниями тренеров
type ScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewScheduleRepository создаёт новый репозиторий
func NewScheduleRepository(pool *pgxpool.Pool, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		logger: logger,
	}
}

// GetByTrainerID получает расписание тренера; nil - расписание не настроено
func (r *ScheduleRepository) GetByTrainerID(ctx context.Context, trainerID int64) (*model.TrainerSchedule, error) {
	query := `
		SELECT trainer_id, working_days, start_time, end_time, slot_duration_minutes, gap_minutes,
			blackout_dates, updated_at
		FROM trainer_schedules
		WHERE trainer_id = $1
	`

	var schedule model.TrainerSchedule
	err := r.pool.QueryRow(ctx, query, trainerID).Scan(
		&schedule.TrainerID,
		&schedule.WorkingDays,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.SlotDurationMinutes,
		&schedule.GapMinutes,
		&schedule.BlackoutDates,
		&schedule.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug("Trainer schedule not configured", zap.Int64("trainer_id", trainerID))
			return nil, nil
		}
		return nil, fmt.Errorf("get trainer schedule: %w", err)
	}

	return &schedule, nil
}

// Upsert сохраняет расписание тренера
func (r *ScheduleRepository) Upsert(ctx context.Context, schedule *model.TrainerSchedule) error {
	query := `
		INSERT INTO trainer_schedules (trainer_id, working_days, start_time, end_time,
			slot_duration_minutes, gap_minutes, blackout_dates)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trainer_id) DO UPDATE SET
			working_days = EXCLUDED.working_days,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			gap_minutes = EXCLUDED.gap_minutes,
			blackout_dates = EXCLUDED.blackout_dates,
			updated_at = NOW()
		RETURNING updated_at
	`

	blackout := schedule.BlackoutDates
	if blackout == nil {
		blackout = []string{}
	}

	err := r.pool.QueryRow(
		ctx,
		query,
		schedule.TrainerID,
		schedule.WorkingDays,
		schedule.StartTime,
		schedule.EndTime,
		schedule.SlotDurationMinutes,
		schedule.GapMinutes,
		blackout,
	).Scan(&schedule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert trainer schedule: %w", err)
	}

	r.logger.Info("Trainer schedule saved", zap.Int64("trainer_id", schedule.TrainerID))
	return nil
}
