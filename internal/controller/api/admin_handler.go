package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/coach_backend/internal/model"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type scheduleRequest struct {
	WorkingDays         []int    `json:"working_days" validate:"required,min=1,max=7,dive,gte=0,lte=6"`
	StartTime           string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime             string   `json:"end_time" validate:"required,datetime=15:04"`
	SlotDurationMinutes int      `json:"slot_duration_minutes" validate:"required,gt=0,lte=480"`
	GapMinutes          int      `json:"gap_minutes" validate:"gte=0,lte=240"`
	BlackoutDates       []string `json:"blackout_dates" validate:"omitempty,dive,datetime=2006-01-02"`
}

// GetSchedule GET /api/admin/schedules/{trainerId}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	trainerID, err := trainerIDParam(r)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	schedule, err := h.slots.GetSchedule(r.Context(), trainerID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", schedule)
}

// PutSchedule PUT /api/admin/schedules/{trainerId}
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	trainerID, err := trainerIDParam(r)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	var req scheduleRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(h.logger, w, err)
		return
	}

	schedule := &model.TrainerSchedule{
		TrainerID:           trainerID,
		WorkingDays:         req.WorkingDays,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		GapMinutes:          req.GapMinutes,
		BlackoutDates:       req.BlackoutDates,
	}

	if err := h.slots.SaveSchedule(r.Context(), schedule); err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "schedule saved", schedule)
}

// ListAccess GET /api/admin/access?email=
func (h *Handler) ListAccess(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.ListAccess(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", list)
}

func trainerIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "trainerId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: trainerId must be a positive integer", service.ErrValidation)
	}
	return id, nil
}
