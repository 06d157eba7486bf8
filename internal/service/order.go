package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/storage"
)

// OrderItemRequest — запрошенная позиция заказа.
type OrderItemRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderService определяет интерфейс работы с заказами.
type OrderService interface {
	// PlaceOrder атомарно проверяет остатки, списывает их и создаёт заказ с позициями.
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, items []OrderItemRequest) (*models.Order, error)
	// CancelOrder отменяет заказ и возвращает остатки по его позициям.
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// UpdateOrderStatus выполняет охраняемый переход статуса заказа.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) (*models.Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*models.Order, error)
	GetSellerOrderedProducts(ctx context.Context, sellerID uuid.UUID) ([]*models.SellerOrderedProduct, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, productRepo storage.ProductStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// PlaceOrder выполняет размещение заказа одной транзакцией: для каждой позиции
// товар читается с блокировкой строки, остаток проверяется и списывается,
// цена фиксируется снимком, затем вставляются заказ и его позиции.
// Любая ошибка на любом шаге откатывает транзакцию целиком — частичного
// списания остатков без созданного заказа не бывает.
func (s *orderService) PlaceOrder(ctx context.Context, buyerID uuid.UUID, items []OrderItemRequest) (*models.Order, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.String("buyerID", buyerID.String()), slog.Int("items", len(items)))
	logger.Info("starting order transaction")

	// Валидация входа до открытия транзакции
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	totalAmount := decimal.Zero
	lineItems := make([]*models.OrderLineItem, 0, len(items))

	// Позиции обрабатываются в порядке, заданном вызывающей стороной
	for _, item := range items {
		product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if errors.Is(err, storage.ErrProductNotFound) {
				logger.Warn("product not found", slog.String("productID", item.ProductID.String()))
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			logger.Error("failed to lock product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to lock product: %w", op, err)
		}

		if product.Quantity < item.Quantity {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("insufficient stock",
				slog.String("productID", product.ID.String()),
				slog.Int("available", product.Quantity),
				slog.Int("requested", item.Quantity))
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Available: product.Quantity,
				Requested: item.Quantity,
			}
		}

		// Снимок цены на момент покупки: дальнейшие изменения цены товара
		// не должны влиять на уже созданные позиции
		priceAtPurchase := product.Price
		totalAmount = totalAmount.Add(priceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))

		if err := s.productRepo.UpdateProductQuantityTx(ctx, tx, product.ID, product.Quantity-item.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to decrement stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}

		productID := product.ID
		lineItems = append(lineItems, &models.OrderLineItem{
			ProductID:       &productID,
			Quantity:        item.Quantity,
			PriceAtPurchase: priceAtPurchase,
		})
	}

	order, err := s.orderRepo.CreateOrderTx(ctx, tx, buyerID, totalAmount, models.OrderStatusPending)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	for _, lineItem := range lineItems {
		lineItem.OrderID = order.ID
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, lineItem); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Items = lineItems
	logger.Info("order placed successfully",
		slog.String("orderID", order.ID.String()),
		slog.String("totalAmount", order.TotalAmount.StringFixed(2)))
	return order, nil
}

// CancelOrder отменяет заказ: по каждой позиции с живой ссылкой на товар
// остаток возвращается, после чего статус меняется на cancelled.
// Позиции с удалённым товаром (product_id IS NULL) остаток не возвращают.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	const op = "service.OrderService.CancelOrder"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID.String()))
	logger.Info("starting cancel transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderWithItemsTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, &OrderNotFoundError{OrderID: orderID}
		}
		logger.Error("failed to load order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load order: %w", op, err)
	}

	if order.Status == models.OrderStatusCancelled {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("order is already cancelled")
		return nil, &AlreadyCancelledError{OrderID: orderID}
	}
	if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("order cannot be cancelled", slog.String("status", string(order.Status)))
		return nil, &InvalidTransitionError{OrderID: orderID, From: order.Status, To: models.OrderStatusCancelled}
	}

	for _, item := range order.Items {
		if item.ProductID == nil {
			// Товар был удалён после покупки, возвращать остаток некуда
			continue
		}
		if err := s.productRepo.RestoreProductQuantityTx(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to restore stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to restore stock: %w", op, err)
		}
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, orderID, models.OrderStatusCancelled); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = models.OrderStatusCancelled
	logger.Info("order cancelled successfully")
	return order, nil
}

// UpdateOrderStatus выполняет охраняемый переход статуса. Переход в cancelled
// делегируется CancelOrder, чтобы возврат остатков нельзя было обойти.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateOrderStatus"
	logger := s.log.With(slog.String("op", op), slog.String("orderID", orderID.String()), slog.String("newStatus", string(newStatus)))

	if newStatus == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderWithItemsTx(ctx, tx, orderID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, &OrderNotFoundError{OrderID: orderID}
		}
		logger.Error("failed to load order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load order: %w", op, err)
	}

	if !order.Status.CanTransitionTo(newStatus) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("invalid status transition", slog.String("from", string(order.Status)))
		return nil, &InvalidTransitionError{OrderID: orderID, From: order.Status, To: newStatus}
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, orderID, newStatus); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = newStatus
	logger.Info("order status updated")
	return order, nil
}

func (s *orderService) GetOrdersByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	const op = "service.OrderService.GetOrdersByBuyer"
	orders, err := s.orderRepo.GetOrdersByBuyer(ctx, buyerID, limit, offset)
	if err != nil {
		s.log.Error("failed to get buyer orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// GetSellerOrderedProducts суммирует заказанное количество по каждому товару
// продавца по всем позициям заказов независимо от статуса заказа,
// включая отменённые.
func (s *orderService) GetSellerOrderedProducts(ctx context.Context, sellerID uuid.UUID) ([]*models.SellerOrderedProduct, error) {
	const op = "service.OrderService.GetSellerOrderedProducts"
	result, err := s.productRepo.GetSellerOrderedProducts(ctx, sellerID)
	if err != nil {
		s.log.Error("failed to get seller ordered products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
