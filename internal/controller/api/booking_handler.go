package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	maxJSONBody = 1 << 20

	DefaultTrainerID = service.DefaultTrainerID
)

// createBookingRequest тело POST /api/booking/slots; price в рублях
type createBookingRequest struct {
	UserID      *string `json:"userId" validate:"omitempty,max=128"`
	TrainerID   int64   `json:"trainerId" validate:"gte=0"`
	ServiceType string  `json:"serviceType" validate:"max=64"`
	BookingDate string  `json:"bookingDate" validate:"required,datetime=2006-01-02"`
	BookingTime string  `json:"bookingTime" validate:"required,datetime=15:04"`
	Duration    int     `json:"duration" validate:"gte=0,lte=480"`
	Price       float64 `json:"price" validate:"gte=0"`
	Notes       string  `json:"notes" validate:"max=2000"`
}

type slotsResponse struct {
	Success bool                `json:"success"`
	Slots   map[string][]string `json:"slots"`
}

// GetSlots GET /api/booking/slots?startDate&endDate&trainerId
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	trainerID, err := parseTrainerID(q.Get("trainerId"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	slots, err := h.slots.GetAvailableSlots(r.Context(), trainerID, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{Success: true, Slots: slots})
}

// CreateBooking POST /api/booking/slots
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	trainerID := req.TrainerID
	if trainerID == 0 {
		trainerID = DefaultTrainerID
	}

	booking, err := h.bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		UserID:      req.UserID,
		TrainerID:   trainerID,
		ServiceType: req.ServiceType,
		Date:        req.BookingDate,
		Time:        req.BookingTime,
		Duration:    req.Duration,
		Price:       int64(math.Round(req.Price * 100)),
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "booking created", booking)
}

// GetBooking GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(h.logger, w, fmt.Errorf("%w: booking id must be a positive integer", service.ErrValidation))
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", booking)
}

// decodeJSON читает тело запроса и проверяет теги validate
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", service.ErrValidation)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", service.ErrValidation, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", lowerFirst(fe.Field()), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is %s", lowerFirst(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// parseTrainerID без trainerId берётся основной тренер
func parseTrainerID(raw string) (int64, error) {
	if raw == "" {
		return DefaultTrainerID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: trainerId must be a positive integer", service.ErrValidation)
	}
	return id, nil
}
