package upload

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
)

const (
	DefaultMaxMemoryBytes int64 = 500 << 20
	DefaultTTL                  = 24 * time.Hour
	DefaultSweepInterval        = 5 * time.Minute

	// MaxTotalChunks больше частей клиент не присылает: 500MB чанками по 64KB
	MaxTotalChunks = 8192
)

var (
	ErrInvalidChunk  = errors.New("invalid chunk")
	ErrTotalMismatch = errors.New("totalChunks does not match the upload")
	ErrStoreFull     = errors.New("upload buffer is full")
)

// SweepStats результат очистки
type SweepStats struct {
	Expired     int   // удалено по возрасту
	Evicted     int   // удалено из-за лимита памяти
	FreedBytes  int64 // освобождено байт
	MemoryUsage int64 // занято после очистки
}

// ChunkStore буфер чанков до момента, когда придут все части загрузки
type ChunkStore interface {
	// StoreChunk сохраняет чанк и возвращает прогресс загрузки
	StoreChunk(ctx context.Context, uploadID string, index int, data []byte, metadata model.UploadMetadata, totalChunks int) (model.UploadProgress, error)
	// GetUploadedChunks возвращает чанки по порядку; nil - пришли ещё не все
	GetUploadedChunks(ctx context.Context, uploadID string) (*model.AssembledUpload, error)
	// CleanupUpload удаляет загрузку из буфера
	CleanupUpload(ctx context.Context, uploadID string) error
	// Sweep удаляет старые загрузки и ужимает буфер до лимита
	Sweep(ctx context.Context) (SweepStats, error)
}

func validateChunk(uploadID string, index, totalChunks int) error {
	if uploadID == "" || totalChunks <= 0 || totalChunks > MaxTotalChunks || index < 0 || index >= totalChunks {
		return ErrInvalidChunk
	}
	return nil
}
