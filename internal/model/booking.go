package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает оплаты
	BookingStatusConfirmed BookingStatus = "confirmed" // Оплачено и подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено (в т.ч. возврат)
)

type Booking struct {
	ID              int64         `json:"id"`
	TrainerID       int64         `json:"trainer_id"`
	UserID          *string       `json:"user_id"` // указатель - гость может записаться без аккаунта
	ServiceType     string        `json:"service_type"`
	Date            string        `json:"booking_date"` // YYYY-MM-DD
	Time            string        `json:"booking_time"` // HH:MM
	DurationMinutes int           `json:"duration"`
	Price           int64         `json:"price"` // в копейках
	Status          BookingStatus `json:"status"`
	Notes           string        `json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// SlotKey ключ слота внутри дня тренера
func (b *Booking) SlotKey() string {
	return b.Date + " " + b.Time
}
