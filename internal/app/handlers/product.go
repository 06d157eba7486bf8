package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/washint-market/internal/lib/slug"
	"github.com/linemk/washint-market/internal/service"
)

// ProductRequest — тело запроса создания/обновления товара
type ProductRequest struct {
	Name        string  `json:"name" validate:"required,max=256"`
	Description *string `json:"description"`
	Price       string  `json:"price" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	ImageURL    *string `json:"imageUrl"`
	Category    string  `json:"category"`
}

// ProductResponse — представление товара в ответах API
type ProductResponse struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		SellerID:    p.SellerID.String(),
		Name:        p.Name,
		Slug:        slug.Make(p.Name),
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
		ImageURL:    p.ImageURL,
		Category:    string(p.Category),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []*models.Product) []ProductResponse {
	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	return resp
}

// paginationParams читает limit/offset из query-параметров с разумными пределами.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func parseProductRequest(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return nil, false
	}

	if err := validate.Struct(req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		http.Error(w, "validation error", http.StatusBadRequest)
		return nil, false
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		logger.Error("invalid price", slog.String("price", req.Price))
		http.Error(w, "invalid price", http.StatusBadRequest)
		return nil, false
	}

	category := models.Category(req.Category)
	if req.Category == "" {
		category = models.CategoryOther
	} else if !category.Valid() {
		logger.Error("invalid category", slog.String("category", req.Category))
		http.Error(w, "invalid category", http.StatusBadRequest)
		return nil, false
	}

	return &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
		Category:    category,
	}, true
}

// CreateProductHandler обрабатывает POST /api/products.
// Продавцом становится аутентифицированный пользователь из контекста запроса.
func CreateProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		product, ok := parseProductRequest(logger, w, r)
		if !ok {
			return
		}

		created, err := catalog.CreateProduct(r.Context(), sellerID, product)
		if err != nil {
			logger.Error("failed to create product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(toProductResponse(created)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// GetProductHandler обрабатывает GET /api/products/{productID}
func GetProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, err := catalog.GetProduct(r.Context(), productID)
		if err != nil {
			var notFound *service.ProductNotFoundError
			if errors.As(err, &notFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponse(product)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// ListProductsHandler обрабатывает GET /api/products с необязательными
// фильтрами category, seller и exclude (похожие товары без текущего).
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		limit, offset := paginationParams(r)
		query := r.URL.Query()

		var products []*models.Product
		var err error
		switch {
		case query.Get("category") != "":
			category := models.Category(query.Get("category"))
			if !category.Valid() {
				http.Error(w, "invalid category", http.StatusBadRequest)
				return
			}
			var excludeID *uuid.UUID
			if raw := query.Get("exclude"); raw != "" {
				id, parseErr := uuid.Parse(raw)
				if parseErr != nil {
					http.Error(w, "invalid exclude id", http.StatusBadRequest)
					return
				}
				excludeID = &id
			}
			products, err = catalog.ListProductsByCategory(r.Context(), category, excludeID, limit, offset)
		case query.Get("seller") != "":
			sellerID, parseErr := uuid.Parse(query.Get("seller"))
			if parseErr != nil {
				http.Error(w, "invalid seller id", http.StatusBadRequest)
				return
			}
			products, err = catalog.ListProductsBySeller(r.Context(), sellerID, limit, offset)
		default:
			products, err = catalog.ListProducts(r.Context(), limit, offset)
		}
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponses(products)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// SearchProductsHandler обрабатывает GET /api/products/search?q=...
// Пустой запрос даёт пустой список.
func SearchProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SearchProductsHandler"
		logger := log.With(slog.String("op", op))

		limit, offset := paginationParams(r)
		products, err := catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit, offset)
		if err != nil {
			logger.Error("search failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponses(products)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// UpdateProductHandler обрабатывает PUT /api/products/{productID}
func UpdateProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, ok := parseProductRequest(logger, w, r)
		if !ok {
			return
		}
		product.ID = productID

		updated, err := catalog.UpdateProduct(r.Context(), sellerID, product)
		if err != nil {
			var notFound *service.ProductNotFoundError
			switch {
			case errors.As(err, &notFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, service.ErrNotProductOwner):
				http.Error(w, err.Error(), http.StatusForbidden)
			default:
				logger.Error("failed to update product", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toProductResponse(updated)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// DeleteProductHandler обрабатывает DELETE /api/products/{productID}
func DeleteProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		sellerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		if err := catalog.DeleteProduct(r.Context(), sellerID, productID); err != nil {
			var notFound *service.ProductNotFoundError
			switch {
			case errors.As(err, &notFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, service.ErrNotProductOwner):
				http.Error(w, err.Error(), http.StatusForbidden)
			default:
				logger.Error("failed to delete product", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
