package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/linemk/washint-market/internal/domain/models"
)

// Ошибки бизнес-логики оформлены как закрытый набор типов со структурными
// полями (id, количества), чтобы транспортный слой ветвился по виду ошибки
// через errors.As/errors.Is, а не разбирал текст сообщения.

var (
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotProductOwner    = errors.New("product belongs to another seller")
)

// ProductNotFoundError возвращается, когда запрошенный товар не существует.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError возвращается, когда остатка товара не хватает
// на запрошенное количество. Несёт доступное и запрошенное количества.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// InvalidQuantityError возвращается при неположительном количестве в позиции заказа.
type InvalidQuantityError struct {
	ProductID uuid.UUID
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// OrderNotFoundError возвращается, когда заказ не существует.
type OrderNotFoundError struct {
	OrderID uuid.UUID
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// AlreadyCancelledError возвращается при попытке отменить уже отменённый заказ.
type AlreadyCancelledError struct {
	OrderID uuid.UUID
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("order %s is already cancelled", e.OrderID)
}

// InvalidTransitionError возвращается при недопустимом переходе статуса заказа.
type InvalidTransitionError struct {
	OrderID uuid.UUID
	From    models.OrderStatus
	To      models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

// InvalidRatingError возвращается при оценке вне диапазона [1, 5].
type InvalidRatingError struct {
	Rating int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("invalid rating %d: must be between 1 and 5", e.Rating)
}
