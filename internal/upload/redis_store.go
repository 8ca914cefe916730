package upload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldTotalChunks = "total_chunks"
	fieldMetadata    = "metadata"
	fieldCreatedAt   = "created_at"

	storeChunkAttempts = 5
)

// RedisStore хранит чанки в Redis с TTL: загрузки переживают перезапуск процесса
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore создаёт буфер чанков в Redis
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "upload:",
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) metaKey(uploadID string) string {
	return s.prefix + uploadID + ":meta"
}

func (s *RedisStore) chunksKey(uploadID string) string {
	return s.prefix + uploadID + ":chunks"
}

func (s *RedisStore) StoreChunk(ctx context.Context, uploadID string, index int, data []byte, metadata model.UploadMetadata, totalChunks int) (model.UploadProgress, error) {
	if err := validateChunk(uploadID, index, totalChunks); err != nil {
		return model.UploadProgress{}, err
	}

	metaKey := s.metaKey(uploadID)
	chunksKey := s.chunksKey(uploadID)

	rawMeta, err := json.Marshal(metadata)
	if err != nil {
		return model.UploadProgress{}, fmt.Errorf("marshal upload metadata: %w", err)
	}

	var received *redis.IntCmd
	// total_chunks проверяется под WATCH: первый чанк с другим totalChunks от соседнего запроса
	// сорвёт EXEC, и повторная попытка увидит уже записанное значение
	store := func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, metaKey, fieldTotalChunks).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("get upload meta: %w", err)
		}
		if err == nil && stored != strconv.Itoa(totalChunks) {
			return ErrTotalMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSetNX(ctx, metaKey, fieldTotalChunks, totalChunks)
			pipe.HSetNX(ctx, metaKey, fieldMetadata, rawMeta)
			pipe.HSetNX(ctx, metaKey, fieldCreatedAt, time.Now().UTC().Format(time.RFC3339Nano))
			pipe.HSet(ctx, chunksKey, strconv.Itoa(index), data)
			pipe.Expire(ctx, metaKey, s.ttl)
			pipe.Expire(ctx, chunksKey, s.ttl)
			received = pipe.HLen(ctx, chunksKey)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < storeChunkAttempts; attempt++ {
		err = s.client.Watch(ctx, store, metaKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrTotalMismatch) {
			return model.UploadProgress{}, err
		}
		if err != nil {
			return model.UploadProgress{}, fmt.Errorf("store chunk: %w", err)
		}
		return model.NewUploadProgress(uploadID, int(received.Val()), totalChunks), nil
	}

	return model.UploadProgress{}, fmt.Errorf("store chunk %s: too many concurrent writers", uploadID)
}

func (s *RedisStore) GetUploadedChunks(ctx context.Context, uploadID string) (*model.AssembledUpload, error) {
	meta, err := s.client.HGetAll(ctx, s.metaKey(uploadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get upload meta: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}

	totalChunks, err := strconv.Atoi(meta[fieldTotalChunks])
	if err != nil {
		return nil, fmt.Errorf("parse total chunks: %w", err)
	}

	raw, err := s.client.HGetAll(ctx, s.chunksKey(uploadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get upload chunks: %w", err)
	}
	if len(raw) != totalChunks {
		return nil, nil
	}

	upload := &model.AssembledUpload{
		UploadID: uploadID,
		Chunks:   make([][]byte, totalChunks),
	}
	for i := 0; i < totalChunks; i++ {
		chunk, ok := raw[strconv.Itoa(i)]
		if !ok {
			return nil, nil
		}
		upload.Chunks[i] = []byte(chunk)
		upload.SizeBytes += int64(len(chunk))
	}

	if rawMeta := meta[fieldMetadata]; rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &upload.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal upload metadata: %w", err)
		}
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, meta[fieldCreatedAt]); err == nil {
		upload.CreatedAt = createdAt
	}

	return upload, nil
}

func (s *RedisStore) CleanupUpload(ctx context.Context, uploadID string) error {
	if err := s.client.Del(ctx, s.metaKey(uploadID), s.chunksKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("cleanup upload: %w", err)
	}
	return nil
}

// Sweep для Redis ничего не делает: старые загрузки удаляет TTL, память ограничивает maxmemory
func (s *RedisStore) Sweep(ctx context.Context) (SweepStats, error) {
	return SweepStats{}, nil
}
