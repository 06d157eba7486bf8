package models

import (
	"time"

	"github.com/google/uuid"
)

// User представляет пользователя маркетплейса.
// Один и тот же пользователь может выступать и покупателем, и продавцом.
type User struct {
	ID          uuid.UUID
	UserName    string
	PhoneNumber int64 // номер телефона без кода страны, уникальный
	PassHash    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
