package service

import "errors"

// Ошибки сервисов; контроллер переводит их в HTTP-статусы
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrSlotTaken        = errors.New("slot is already booked")
	ErrUploadIncomplete = errors.New("upload is not complete")
	ErrUnavailable      = errors.New("service temporarily unavailable")
)
