package service

import (
	"context"
	"io"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/repository"
)

type BookingRepository interface {
	CreateIfSlotFree(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetConfirmedByTrainer(ctx context.Context, trainerID int64, from, to string) ([]*model.Booking, error)
}

type ScheduleRepository interface {
	GetByTrainerID(ctx context.Context, trainerID int64) (*model.TrainerSchedule, error)
	Upsert(ctx context.Context, schedule *model.TrainerSchedule) error
}

type PurchaseRepository interface {
	ApplyPayment(ctx context.Context, purchase *model.Purchase, userID *string) (*repository.PaymentResult, error)
	ApplyRefund(ctx context.Context, transactionID string) (*repository.RefundResult, error)
	RecordFailure(ctx context.Context, purchase *model.Purchase) (bool, error)
	GetLatestBySubscriptionID(ctx context.Context, subscriptionID string) (*model.Purchase, error)
}

type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

type AccessRepository interface {
	HasAccess(ctx context.Context, email string, courseID int64) (bool, error)
	GetActiveByEmail(ctx context.Context, email string) ([]*model.CourseAccess, error)
}

type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
}

// BlobStorage хранилище собранных видео
type BlobStorage interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Notifier оповещает тренера о событиях; ошибки доставки не возвращаются
type Notifier interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	PaymentCompleted(ctx context.Context, result *repository.PaymentResult)
	BookingConflict(ctx context.Context, booking *model.Booking, purchase *model.Purchase)
	PaymentRefunded(ctx context.Context, result *repository.RefundResult)
	UnmatchedPayment(ctx context.Context, purchase *model.Purchase)
}

// EventPublisher публикует доменные события в брокер
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
