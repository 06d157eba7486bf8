package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus — статус заказа, соответствует enum order_status в БД.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус входит в закрытый список.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo описывает допустимые переходы статусов:
// pending -> completed|shipped|cancelled, shipped -> completed|cancelled.
// completed и cancelled — терминальные статусы.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusCompleted || next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	}
	return false
}

// Order представляет заказ покупателя.
// TotalAmount фиксируется при создании и равен сумме позиций; позднейшие
// изменения цен товаров на него не влияют.
type Order struct {
	ID          uuid.UUID         `json:"id"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      OrderStatus       `json:"status"`
	Items       []*OrderLineItem  `json:"items,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// OrderLineItem — позиция заказа со снимком цены на момент покупки.
// ProductID обнуляется базой, если товар позже удалён (set null),
// сама позиция при этом сохраняется как исторические данные.
type OrderLineItem struct {
	OrderID         uuid.UUID       `json:"order_id"`
	ProductID       *uuid.UUID      `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	CreatedAt       time.Time       `json:"created_at"`
}
