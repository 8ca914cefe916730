package model

import "time"

// CourseAccess доступ пользователя к курсу, выданный покупкой
type CourseAccess struct {
	ID         int64      `json:"id"`
	UserID     *string    `json:"user_id"`
	Email      string     `json:"email"`
	CourseID   int64      `json:"course_id"`
	PurchaseID int64      `json:"purchase_id"`
	GrantedAt  time.Time  `json:"granted_at"`
	RevokedAt  *time.Time `json:"revoked_at"` // nil - доступ активен
}

// IsActive проверяет, что доступ не отозван
func (a *CourseAccess) IsActive() bool {
	return a.RevokedAt == nil
}
