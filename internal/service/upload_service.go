package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/upload"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ChunkInput один чанк видео из multipart-запроса
type ChunkInput struct {
	UploadID    string
	Index       int
	TotalChunks int
	Data        []byte
	Metadata    model.UploadMetadata
}

type UploadService struct {
	store   upload.ChunkStore
	storage BlobStorage
	videos  VideoRepository
	now     func() time.Time
	logger  *zap.Logger
}

func NewUploadService(store upload.ChunkStore, storage BlobStorage, videos VideoRepository, logger *zap.Logger) *UploadService {
	return &UploadService{
		store:   store,
		storage: storage,
		videos:  videos,
		now:     time.Now,
		logger:  logger,
	}
}

// StoreChunk кладёт чанк в буфер и возвращает прогресс
func (s *UploadService) StoreChunk(ctx context.Context, in ChunkInput) (model.UploadProgress, error) {
	if len(in.Data) == 0 {
		return model.UploadProgress{}, fmt.Errorf("%w: chunk file is empty", ErrValidation)
	}

	progress, err := s.store.StoreChunk(ctx, in.UploadID, in.Index, in.Data, in.Metadata, in.TotalChunks)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrInvalidChunk), errors.Is(err, upload.ErrTotalMismatch):
			return model.UploadProgress{}, fmt.Errorf("%w: %v", ErrValidation, err)
		case errors.Is(err, upload.ErrStoreFull):
			s.logger.Warn("Upload buffer is full, chunk rejected", zap.String("upload_id", in.UploadID))
			return model.UploadProgress{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return model.UploadProgress{}, fmt.Errorf("store chunk: %w", err)
	}

	s.logger.Debug("Chunk stored",
		zap.String("upload_id", in.UploadID),
		zap.Int("index", in.Index),
		zap.Int("received", progress.Received),
		zap.Int("total", progress.TotalChunks))

	return progress, nil
}

// CompleteUpload собирает файл, загружает его в хранилище и освобождает буфер
func (s *UploadService) CompleteUpload(ctx context.Context, uploadID string) (*model.Video, error) {
	uploadID = strings.TrimSpace(uploadID)
	if uploadID == "" {
		return nil, fmt.Errorf("%w: uploadId is required", ErrValidation)
	}

	assembled, err := s.store.GetUploadedChunks(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("get uploaded chunks: %w", err)
	}
	if assembled == nil {
		return nil, fmt.Errorf("upload %s: %w", uploadID, ErrUploadIncomplete)
	}

	meta := assembled.Metadata
	fileName := sanitizeFileName(meta.FileName)
	contentType := meta.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(fileName))
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := s.objectKey(fileName)
	data := assembled.Bytes()

	url, err := s.storage.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return nil, fmt.Errorf("upload video to storage: %w", err)
	}

	video := &model.Video{
		UploadID:    uploadID,
		Title:       strings.TrimSpace(meta.Title),
		FileName:    fileName,
		ContentType: contentType,
		ObjectKey:   key,
		URL:         url,
		SizeBytes:   int64(len(data)),
	}
	if meta.CourseID > 0 {
		courseID := meta.CourseID
		video.CourseID = &courseID
	}

	if err := s.videos.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}

	if err := s.store.CleanupUpload(ctx, uploadID); err != nil {
		s.logger.Warn("Failed to cleanup upload", zap.String("upload_id", uploadID), zap.Error(err))
	}

	s.logger.Info("Upload completed",
		zap.String("upload_id", uploadID),
		zap.String("object_key", key),
		zap.Int("chunks", len(assembled.Chunks)),
		zap.Int64("size_bytes", video.SizeBytes))

	return video, nil
}

// Sweep чистит буфер загрузок; вызывается планировщиком
func (s *UploadService) Sweep(ctx context.Context) (upload.SweepStats, error) {
	return s.store.Sweep(ctx)
}

// objectKey videos/2026/10/<uuid>-<имя файла>
func (s *UploadService) objectKey(fileName string) string {
	return fmt.Sprintf("videos/%s/%s-%s", s.now().UTC().Format("2006/01"), uuid.NewString(), fileName)
}

// sanitizeFileName оставляет от имени файла только безопасные символы, расширение сохраняется
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	stem = strings.Trim(unsafeFileChars.ReplaceAllString(stem, "_"), "._")
	if stem == "" {
		stem = "video"
	}
	ext = unsafeFileChars.ReplaceAllString(ext, "")
	if ext == "." {
		ext = ""
	}
	return stem + ext
}
