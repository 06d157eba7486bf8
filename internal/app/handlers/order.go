package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/washint-market/internal/service"
)

// PlaceOrderRequest — тело запроса размещения заказа
type PlaceOrderRequest struct {
	Items []PlaceOrderItem `json:"items" validate:"required,min=1,dive"`
}

// PlaceOrderItem — одна запрошенная позиция
type PlaceOrderItem struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// OrderItemResponse — позиция заказа в ответах API
type OrderItemResponse struct {
	ProductID       *string `json:"productId"` // null, если товар удалён после покупки
	Quantity        int     `json:"quantity"`
	PriceAtPurchase string  `json:"priceAtPurchase"`
}

// OrderResponse — представление заказа в ответах API
type OrderResponse struct {
	ID          string              `json:"id"`
	BuyerID     string              `json:"buyerId"`
	TotalAmount string              `json:"totalAmount"`
	Status      string              `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// UpdateOrderStatusRequest — тело запроса смены статуса
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SellerOrderedProductResponse — товар продавца с суммарным заказанным количеством
type SellerOrderedProductResponse struct {
	Product              ProductResponse `json:"product"`
	TotalOrderedQuantity int             `json:"totalOrderedQuantity"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		var productID *string
		if item.ProductID != nil {
			s := item.ProductID.String()
			productID = &s
		}
		items = append(items, OrderItemResponse{
			ProductID:       productID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
		})
	}
	return OrderResponse{
		ID:          o.ID.String(),
		BuyerID:     o.BuyerID.String(),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Status:      string(o.Status),
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}

// writeOrderError транслирует типизированные ошибки сервиса заказов в HTTP-статусы
func writeOrderError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var (
		productNotFound   *service.ProductNotFoundError
		insufficientStock *service.InsufficientStockError
		invalidQuantity   *service.InvalidQuantityError
		orderNotFound     *service.OrderNotFoundError
		alreadyCancelled  *service.AlreadyCancelledError
		invalidTransition *service.InvalidTransitionError
	)
	switch {
	case errors.As(err, &productNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &orderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &insufficientStock),
		errors.As(err, &invalidQuantity),
		errors.As(err, &alreadyCancelled),
		errors.As(err, &invalidTransition),
		errors.Is(err, service.ErrEmptyOrder):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("order operation failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// PlaceOrderHandler обрабатывает POST /api/orders
func PlaceOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		buyerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		items := make([]service.OrderItemRequest, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				http.Error(w, "invalid product id", http.StatusBadRequest)
				return
			}
			items = append(items, service.OrderItemRequest{ProductID: productID, Quantity: item.Quantity})
		}

		order, err := orderService.PlaceOrder(r.Context(), buyerID, items)
		if err != nil {
			writeOrderError(logger, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toOrderResponse(order)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// ListOrdersHandler обрабатывает GET /api/orders — заказы текущего покупателя
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		buyerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, offset := paginationParams(r)
		orders, err := orderService.GetOrdersByBuyer(r.Context(), buyerID, limit, offset)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]OrderResponse, 0, len(orders))
		for _, order := range orders {
			resp = append(resp, toOrderResponse(order))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// CancelOrderHandler обрабатывает POST /api/orders/{orderID}/cancel
func CancelOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := jwtmiddleware.FromContext(r.Context()); !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := orderService.CancelOrder(r.Context(), orderID)
		if err != nil {
			writeOrderError(logger, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toOrderResponse(order)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// UpdateOrderStatusHandler обрабатывает PATCH /api/orders/{orderID}/status
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := jwtmiddleware.FromContext(r.Context()); !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req UpdateOrderStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		newStatus := models.OrderStatus(req.Status)
		if !newStatus.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		order, err := orderService.UpdateOrderStatus(r.Context(), orderID, newStatus)
		if err != nil {
			writeOrderError(logger, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toOrderResponse(order)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// SellerOrderedProductsHandler обрабатывает GET /api/seller/ordered-products —
// агрегат заказанного по товарам текущего продавца
func SellerOrderedProductsHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SellerOrderedProductsHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := orderService.GetSellerOrderedProducts(r.Context(), sellerID)
		if err != nil {
			logger.Error("failed to get seller ordered products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]SellerOrderedProductResponse, 0, len(result))
		for _, item := range result {
			resp = append(resp, SellerOrderedProductResponse{
				Product:              toProductResponse(item.Product),
				TotalOrderedQuantity: item.TotalOrderedQuantity,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}
