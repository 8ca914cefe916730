package model

import "time"

type PurchaseStatus string

const (
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

type ItemType string

const (
	ItemTypeCourse       ItemType = "course"
	ItemTypeBooking      ItemType = "booking"
	ItemTypeSubscription ItemType = "subscription" // доступ к курсу по подписке (RecurrentPayment)
	ItemTypeUnknown      ItemType = "unknown"      // товар не распознан, разбирается вручную
)

// Purchase запись об операции платёжного провайдера
type Purchase struct {
	ID             int64          `json:"id"`
	TransactionID  string         `json:"transaction_id"` // TransactionId из CloudPayments, уникален
	Email          string         `json:"email"`
	AccountID      string         `json:"account_id"`
	ItemType       ItemType       `json:"item_type"`
	ItemID         int64          `json:"item_id"`
	Amount         int64          `json:"amount"` // в копейках
	Currency       string         `json:"currency"`
	Status         PurchaseStatus `json:"status"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// GrantsCourseAccess показывает, открывает ли покупка доступ к курсу
func (p *Purchase) GrantsCourseAccess() bool {
	return p.ItemType == ItemTypeCourse || p.ItemType == ItemTypeSubscription
}
