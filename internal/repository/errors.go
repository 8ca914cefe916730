package repository

import "errors"

var (
	// ErrSlotTaken слот уже занят подтверждённой записью
	ErrSlotTaken = errors.New("slot already has a confirmed booking")
)
