package model

import "time"

// UploadMetadata описание файла, которое клиент присылает с каждым чанком
type UploadMetadata struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Title       string `json:"title"`
	CourseID    int64  `json:"courseId,omitempty"`
}

// UploadProgress состояние загрузки после очередного чанка
type UploadProgress struct {
	UploadID    string `json:"uploadId"`
	Received    int    `json:"received"`
	TotalChunks int    `json:"totalChunks"`
	Progress    int    `json:"progress"` // проценты, 0-100
	Complete    bool   `json:"complete"`
}

// AssembledUpload все чанки загрузки по порядку
type AssembledUpload struct {
	UploadID  string
	Chunks    [][]byte
	SizeBytes int64
	Metadata  UploadMetadata
	CreatedAt time.Time
}

// Bytes склеивает чанки в один буфер
func (u *AssembledUpload) Bytes() []byte {
	buf := make([]byte, 0, u.SizeBytes)
	for _, c := range u.Chunks {
		buf = append(buf, c...)
	}
	return buf
}

// NewUploadProgress считает процент загруженных чанков
func NewUploadProgress(uploadID string, received, total int) UploadProgress {
	progress := 0
	if total > 0 {
		progress = received * 100 / total
	}
	return UploadProgress{
		UploadID:    uploadID,
		Received:    received,
		TotalChunks: total,
		Progress:    progress,
		Complete:    total > 0 && received == total,
	}
}
