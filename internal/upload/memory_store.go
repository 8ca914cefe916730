package upload

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"go.uber.org/zap"
)

type session struct {
	chunks      map[int][]byte
	totalChunks int
	sizeBytes   int64
	metadata    model.UploadMetadata
	createdAt   time.Time
}

// MemoryStore хранит чанки в памяти процесса; перезапуск теряет незавершённые загрузки
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*session
	memoryUsage int64
	maxMemory   int64
	ttl         time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// MemoryStoreOption настройка MemoryStore
type MemoryStoreOption func(*MemoryStore)

// WithMaxMemory лимит суммарного размера чанков
func WithMaxMemory(bytes int64) MemoryStoreOption {
	return func(s *MemoryStore) {
		if bytes > 0 {
			s.maxMemory = bytes
		}
	}
}

// WithTTL время жизни незавершённой загрузки
func WithTTL(ttl time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore создаёт буфер чанков в памяти
func NewMemoryStore(logger *zap.Logger, opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[string]*session),
		maxMemory: DefaultMaxMemoryBytes,
		ttl:       DefaultTTL,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) StoreChunk(ctx context.Context, uploadID string, index int, data []byte, metadata model.UploadMetadata, totalChunks int) (model.UploadProgress, error) {
	if err := validateChunk(uploadID, index, totalChunks); err != nil {
		return model.UploadProgress{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[uploadID]
	if ok && sess.totalChunks != totalChunks {
		return model.UploadProgress{}, ErrTotalMismatch
	}

	// Повторная отправка чанка заменяет старый
	var replaced int64
	if ok {
		if old, exists := sess.chunks[index]; exists {
			replaced = int64(len(old))
		}
	}

	// Чанк, с которым буфер превысит лимит, отклоняется
	delta := int64(len(data)) - replaced
	if delta > 0 && s.memoryUsage+delta > s.maxMemory {
		s.logger.Warn("Upload buffer is full",
			zap.String("upload_id", uploadID),
			zap.Int64("memory_usage", s.memoryUsage),
			zap.Int("chunk_size", len(data)),
		)
		return model.UploadProgress{}, ErrStoreFull
	}

	if !ok {
		sess = &session{
			chunks:      make(map[int][]byte),
			totalChunks: totalChunks,
			metadata:    metadata,
			createdAt:   s.now(),
		}
		s.sessions[uploadID] = sess
	} else if sess.metadata == (model.UploadMetadata{}) {
		sess.metadata = metadata
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	sess.chunks[index] = buf
	sess.sizeBytes += delta
	s.memoryUsage += delta

	return model.NewUploadProgress(uploadID, len(sess.chunks), sess.totalChunks), nil
}

func (s *MemoryStore) GetUploadedChunks(ctx context.Context, uploadID string) (*model.AssembledUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[uploadID]
	if !ok || len(sess.chunks) != sess.totalChunks {
		return nil, nil
	}

	chunks := make([][]byte, sess.totalChunks)
	for i := 0; i < sess.totalChunks; i++ {
		chunks[i] = sess.chunks[i]
	}

	return &model.AssembledUpload{
		UploadID:  uploadID,
		Chunks:    chunks,
		SizeBytes: sess.sizeBytes,
		Metadata:  sess.metadata,
		CreatedAt: sess.createdAt,
	}, nil
}

func (s *MemoryStore) CleanupUpload(ctx context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(uploadID)
	return nil
}

// Sweep удаляет загрузки старше TTL, затем самые старые, пока буфер больше лимита
func (s *MemoryStore) Sweep(ctx context.Context) (SweepStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats SweepStats
	now := s.now()

	for id, sess := range s.sessions {
		if now.Sub(sess.createdAt) > s.ttl {
			stats.FreedBytes += s.removeLocked(id)
			stats.Expired++
		}
	}

	if s.memoryUsage > s.maxMemory {
		ids := make([]string, 0, len(s.sessions))
		for id := range s.sessions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return s.sessions[ids[i]].createdAt.Before(s.sessions[ids[j]].createdAt)
		})

		for _, id := range ids {
			if s.memoryUsage <= s.maxMemory {
				break
			}
			stats.FreedBytes += s.removeLocked(id)
			stats.Evicted++
		}
	}

	stats.MemoryUsage = s.memoryUsage
	return stats, nil
}

// MemoryUsage суммарный размер буферизованных чанков
func (s *MemoryStore) MemoryUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryUsage
}

// Len количество незавершённых загрузок
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) removeLocked(uploadID string) int64 {
	sess, ok := s.sessions[uploadID]
	if !ok {
		return 0
	}
	delete(s.sessions, uploadID)
	s.memoryUsage -= sess.sizeBytes
	return sess.sizeBytes
}
