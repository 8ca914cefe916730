package api

import (
	"context"

	"github.com/Freeeeeet/coach_backend/internal/cloudpayments"
	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type SlotService interface {
	GetAvailableSlots(ctx context.Context, trainerID int64, startDate, endDate string) (map[string][]string, error)
	GetSchedule(ctx context.Context, trainerID int64) (*model.TrainerSchedule, error)
	SaveSchedule(ctx context.Context, schedule *model.TrainerSchedule) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
}

type PaymentService interface {
	HandleNotification(ctx context.Context, req service.WebhookRequest) cloudpayments.Code
	HandleCheck(ctx context.Context, req service.WebhookRequest) cloudpayments.Code
	ListAccess(ctx context.Context, email string) ([]*model.CourseAccess, error)
}

type UploadService interface {
	StoreChunk(ctx context.Context, in service.ChunkInput) (model.UploadProgress, error)
	CompleteUpload(ctx context.Context, uploadID string) (*model.Video, error)
}

// HealthChecker проверка зависимостей для /healthz
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler HTTP-обработчики API
type Handler struct {
	slots    SlotService
	bookings BookingService
	payments PaymentService
	uploads  UploadService
	health   HealthChecker
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(
	slots SlotService,
	bookings BookingService,
	payments PaymentService,
	uploads UploadService,
	health HealthChecker,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		slots:    slots,
		bookings: bookings,
		payments: payments,
		uploads:  uploads,
		health:   health,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}
