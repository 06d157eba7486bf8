package models

import (
	"time"

	"github.com/google/uuid"
)

// Review представляет отзыв пользователя о товаре.
// На пару (ProductID, UserID) приходится не более одного отзыва,
// повторная отправка заменяет существующий (upsert).
type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	UserName  string // заполняется через JOIN с таблицей users при выборке
	Rating    int    // целое от 1 до 5
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
