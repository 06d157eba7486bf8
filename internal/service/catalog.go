package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/storage"
)

// CatalogService определяет интерфейс каталога товаров.
type CatalogService interface {
	// CreateProduct создаёт товар; sellerID всегда берётся из проверенного
	// токена запроса и передаётся сюда явно.
	CreateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*models.Product, error)
	ListProductsByCategory(ctx context.Context, category models.Category, excludeID *uuid.UUID, limit, offset int) ([]*models.Product, error)
	SearchProducts(ctx context.Context, term string, limit, offset int) ([]*models.Product, error)
	// UpdateProduct обновляет товар; разрешено только его продавцу.
	UpdateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) (*models.Product, error)
	// DeleteProduct удаляет товар; разрешено только его продавцу.
	DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.String("sellerID", sellerID.String()))

	product.SellerID = sellerID
	if product.Category == "" {
		product.Category = models.CategoryOther
	}

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product created", slog.String("productID", created.ID.String()))
	return created, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"
	products, err := s.productRepo.ListProducts(ctx, limit, offset)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProductsBySeller"
	products, err := s.productRepo.ListProductsBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		s.log.Error("failed to list seller products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) ListProductsByCategory(ctx context.Context, category models.Category, excludeID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProductsByCategory"
	products, err := s.productRepo.ListProductsByCategory(ctx, category, excludeID, limit, offset)
	if err != nil {
		s.log.Error("failed to list products by category", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// SearchProducts ищет товары по подстроке в названии или описании.
// Пустой запрос даёт пустой результат без обращения к хранилищу.
func (s *catalogService) SearchProducts(ctx context.Context, term string, limit, offset int) ([]*models.Product, error) {
	const op = "service.CatalogService.SearchProducts"
	if term == "" {
		return nil, nil
	}
	products, err := s.productRepo.SearchProducts(ctx, term, limit, offset)
	if err != nil {
		s.log.Error("failed to search products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.String("productID", product.ID.String()))

	existing, err := s.productRepo.GetProductByID(ctx, product.ID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, &ProductNotFoundError{ProductID: product.ID}
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing.SellerID != sellerID {
		logger.Warn("update attempt by non-owner", slog.String("sellerID", sellerID.String()))
		return nil, ErrNotProductOwner
	}

	product.SellerID = existing.SellerID
	if err := s.productRepo.UpdateProduct(ctx, product); err != nil {
		logger.Error("failed to update product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product updated")
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, sellerID, productID uuid.UUID) error {
	const op = "service.CatalogService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.String("productID", productID.String()))

	existing, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return &ProductNotFoundError{ProductID: productID}
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if existing.SellerID != sellerID {
		logger.Warn("delete attempt by non-owner", slog.String("sellerID", sellerID.String()))
		return ErrNotProductOwner
	}

	if err := s.productRepo.DeleteProduct(ctx, productID); err != nil {
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product deleted")
	return nil
}
