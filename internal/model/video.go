package model

import "time"

// Video собранное из чанков видео, загруженное в хранилище
type Video struct {
	ID          int64     `json:"id"`
	UploadID    string    `json:"upload_id"`
	CourseID    *int64    `json:"course_id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
