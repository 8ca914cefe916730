package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

// Create сохраняет запись о загруженном видео. Повторная финализация
// той же загрузки обновляет ссылку.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	query := `
		INSERT INTO videos (upload_id, course_id, title, file_name, content_type, object_key, url, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (upload_id) DO UPDATE SET
			object_key = EXCLUDED.object_key,
			url = EXCLUDED.url,
			size_bytes = EXCLUDED.size_bytes
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		video.UploadID,
		video.CourseID,
		video.Title,
		video.FileName,
		video.ContentType,
		video.ObjectKey,
		video.URL,
		video.SizeBytes,
	).Scan(&video.ID, &video.CreatedAt)

	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}

	return nil
}
