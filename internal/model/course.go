package model

import "time"

type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"` // в копейках
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}
