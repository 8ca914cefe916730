package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"
)

// Response общий конверт ответа API
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set(headerContentType, mimeApplicationJSON)
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, Response{Success: true, Message: message, Data: data})
}

// writeError переводит ошибку сервиса в HTTP-статус; внутренние ошибки логируются, клиент видит общий текст
func writeError(log *zap.Logger, w http.ResponseWriter, err error) {
	code, message := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, code, Response{Success: false, Message: message})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrSlotTaken):
		return http.StatusConflict, service.ErrSlotTaken.Error()
	case errors.Is(err, service.ErrUploadIncomplete):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, service.ErrUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
