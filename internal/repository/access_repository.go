package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccessRepository struct {
	pool *pgxpool.Pool
}

func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// HasAccess проверяет, есть ли у пользователя активный доступ к курсу
func (r *AccessRepository) HasAccess(ctx context.Context, email string, courseID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM course_access
			WHERE lower(email) = lower($1) AND course_id = $2 AND revoked_at IS NULL
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, email, courseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check access: %w", err)
	}

	return exists, nil
}

// GetActiveByEmail получает все активные доступы пользователя
func (r *AccessRepository) GetActiveByEmail(ctx context.Context, email string) ([]*model.CourseAccess, error) {
	query := `
		SELECT id, user_id, email, course_id, purchase_id, granted_at, revoked_at
		FROM course_access
		WHERE lower(email) = lower($1) AND revoked_at IS NULL
		ORDER BY granted_at DESC
	`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("get access by email: %w", err)
	}
	defer rows.Close()

	var list []*model.CourseAccess
	for rows.Next() {
		var access model.CourseAccess
		err := rows.Scan(
			&access.ID,
			&access.UserID,
			&access.Email,
			&access.CourseID,
			&access.PurchaseID,
			&access.GrantedAt,
			&access.RevokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan access: %w", err)
		}
		list = append(list, &access)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access: %w", err)
	}

	return list, nil
}

// grantCourseAccess выдаёт доступ по покупке; false - доступ по ней уже выдан
func grantCourseAccess(ctx context.Context, q base.DBTX, userID *string, purchase *model.Purchase) (bool, error) {
	query := `
		INSERT INTO course_access (user_id, email, course_id, purchase_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (purchase_id, course_id) DO NOTHING
	`

	affected, err := base.ExecAffected(ctx, q, query, userID, purchase.Email, purchase.ItemID, purchase.ID)
	if err != nil {
		return false, fmt.Errorf("grant course access: %w", err)
	}

	return affected > 0, nil
}

// revokeCourseAccess логически удаляет доступы, выданные покупкой
func revokeCourseAccess(ctx context.Context, q base.DBTX, purchaseID int64) (int64, error) {
	query := `
		UPDATE course_access
		SET revoked_at = NOW()
		WHERE purchase_id = $1 AND revoked_at IS NULL
	`

	affected, err := base.ExecAffected(ctx, q, query, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("revoke course access: %w", err)
	}

	return affected, nil
}
