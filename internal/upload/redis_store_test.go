package upload

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour, zap.NewNop()), mr
}

func TestRedisStore_AssemblesChunksInOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	meta := model.UploadMetadata{FileName: "plank.mp4", ContentType: "video/mp4", Title: "Планка"}

	_, err := store.StoreChunk(ctx, "up", 1, []byte("world"), meta, 2)
	require.NoError(t, err)

	upload, err := store.GetUploadedChunks(ctx, "up")
	require.NoError(t, err)
	assert.Nil(t, upload, "upload is not complete yet")

	progress, err := store.StoreChunk(ctx, "up", 0, []byte("hello "), meta, 2)
	require.NoError(t, err)
	assert.True(t, progress.Complete)
	assert.Equal(t, 2, progress.Received)

	upload, err = store.GetUploadedChunks(ctx, "up")
	require.NoError(t, err)
	require.NotNil(t, upload)
	assert.Equal(t, "hello world", string(upload.Bytes()))
	assert.Equal(t, int64(11), upload.SizeBytes)
	assert.Equal(t, meta, upload.Metadata)
}

func TestRedisStore_TotalMismatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	_, err := store.StoreChunk(ctx, "up", 0, []byte("a"), model.UploadMetadata{}, 2)
	require.NoError(t, err)

	_, err = store.StoreChunk(ctx, "up", 1, []byte("b"), model.UploadMetadata{}, 3)
	assert.ErrorIs(t, err, ErrTotalMismatch)
}

func TestRedisStore_CleanupAndExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	_, err := store.StoreChunk(ctx, "a", 0, []byte("a"), model.UploadMetadata{}, 1)
	require.NoError(t, err)
	require.NoError(t, store.CleanupUpload(ctx, "a"))
	assert.False(t, mr.Exists("upload:a:chunks"))
	assert.False(t, mr.Exists("upload:a:meta"))

	_, err = store.StoreChunk(ctx, "b", 0, []byte("b"), model.UploadMetadata{}, 1)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	upload, err := store.GetUploadedChunks(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, upload)
}

func TestRedisStore_ConcurrentFirstChunksAgreeOnTotal(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	for i := 0; i < 20; i++ {
		uploadID := "race-" + strconv.Itoa(i)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, total := range []int{2, 3} {
			wg.Add(1)
			go func(j, total int) {
				defer wg.Done()
				_, errs[j] = store.StoreChunk(ctx, uploadID, 0, []byte("x"), model.UploadMetadata{}, total)
			}(j, total)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrTotalMismatch)
				failed++
			}
		}
		assert.Equal(t, 1, failed, "exactly one of the conflicting first chunks is stored")
	}
}

func TestRedisStore_RejectsTooManyChunks(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	_, err := store.StoreChunk(ctx, "huge", 0, []byte("a"), model.UploadMetadata{}, MaxTotalChunks+1)
	assert.ErrorIs(t, err, ErrInvalidChunk)
	assert.False(t, mr.Exists("upload:huge:meta"))
}
