package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/linemk/washint-market/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами и их позициями.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ в рамках транзакции и возвращает его с id и метками времени.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID, totalAmount decimal.Decimal, status models.OrderStatus) (*models.Order, error)
	// CreateOrderItemTx вставляет одну позицию заказа в рамках транзакции.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderLineItem) error
	// LockOrderWithItemsTx читает заказ с блокировкой строки и загружает его позиции.
	LockOrderWithItemsTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*models.Order, error)
	// UpdateOrderStatusTx выставляет новый статус заказа в рамках транзакции.
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, status models.OrderStatus) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *orderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID, totalAmount decimal.Decimal, status models.OrderStatus) (*models.Order, error) {
	order := &models.Order{
		BuyerID:     buyerID,
		TotalAmount: totalAmount,
		Status:      status,
	}
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (buyer_id, total_amount, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		buyerID, totalAmount, status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderLineItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		 VALUES ($1, $2, $3, $4)`,
		item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

// LockOrderWithItemsTx захватывает строку заказа (FOR UPDATE), чтобы отмена и
// смена статуса не гонялись между собой, и подгружает позиции.
func (r *orderRepository) LockOrderWithItemsTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	row := tx.QueryRowContext(ctx,
		`SELECT id, buyer_id, total_amount, status, created_at, updated_at
		 FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	if err := row.Scan(&order.ID, &order.BuyerID, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, price_at_purchase, created_at
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	items, err := collectOrderItems(rows)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, status models.OrderStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, total_amount, status, created_at, updated_at
		 FROM orders WHERE id = $1`, orderID)
	if err := row.Scan(&order.ID, &order.BuyerID, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, price_at_purchase, created_at
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	items, err := collectOrderItems(rows)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// GetOrdersByBuyer возвращает заказы покупателя, новые сначала, вместе с позициями.
// Позиции всех заказов страницы загружаются одним запросом через ANY.
func (r *orderRepository) GetOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, buyer_id, total_amount, status, created_at, updated_at
		 FROM orders WHERE buyer_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	byID := make(map[uuid.UUID]*models.Order)
	var ids []uuid.UUID
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.BuyerID, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, price_at_purchase, created_at
		 FROM order_items WHERE order_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	items, err := collectOrderItems(itemRows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return orders, nil
}

func collectOrderItems(rows *sql.Rows) ([]*models.OrderLineItem, error) {
	defer rows.Close()

	var items []*models.OrderLineItem
	for rows.Next() {
		item := &models.OrderLineItem{}
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
