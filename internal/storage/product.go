package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/linemk/washint-market/internal/domain/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrProductLocked возвращается, когда строка товара захвачена другой
	// транзакцией (FOR UPDATE NOWAIT). Вызов можно повторить целиком.
	ErrProductLocked = errors.New("product row is locked")
)

// ProductStorage описывает методы для работы с таблицей товаров.
type ProductStorage interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*models.Product, error)
	ListProductsByCategory(ctx context.Context, category models.Category, excludeID *uuid.UUID, limit, offset int) ([]*models.Product, error)
	SearchProducts(ctx context.Context, term string, limit, offset int) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// LockProductByIDTx читает товар с блокировкой строки в рамках транзакции.
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Product, error)
	// UpdateProductQuantityTx выставляет новое значение остатка в рамках транзакции.
	UpdateProductQuantityTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, newQuantity int) error
	// RestoreProductQuantityTx прибавляет delta к остатку в рамках транзакции (возврат при отмене заказа).
	RestoreProductQuantityTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error
	GetSellerOrderedProducts(ctx context.Context, sellerID uuid.UUID) ([]*models.SellerOrderedProduct, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *productRepository {
	return &productRepository{db: db}
}

const productColumns = "id, seller_id, name, description, price, quantity, image_url, category, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price,
		&p.Quantity, &p.ImageURL, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (seller_id, name, description, price, quantity, image_url, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		product.SellerID, product.Name, product.Description, product.Price,
		product.Quantity, product.ImageURL, product.Category,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// LockProductByIDTx читает товар с блокировкой FOR UPDATE NOWAIT, чтобы
// конкурирующие списания остатка сериализовались на уровне строки.
func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Product, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE NOWAIT", id)
	product, err := scanProduct(row)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock_not_available
				return nil, fmt.Errorf("%w: %v", ErrProductLocked, err)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) UpdateProductQuantityTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, newQuantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET quantity = $1, updated_at = NOW() WHERE id = $2", newQuantity, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) RestoreProductQuantityTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2", delta, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productRepository) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		sellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// ListProductsByCategory возвращает товары категории; excludeID позволяет
// исключить текущий товар при показе похожих.
func (r *productRepository) ListProductsByCategory(ctx context.Context, category models.Category, excludeID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	var rows *sql.Rows
	var err error
	if excludeID != nil {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+productColumns+" FROM products WHERE category = $1 AND id <> $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4",
			category, *excludeID, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+productColumns+" FROM products WHERE category = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			category, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// SearchProducts ищет подстроку без учета регистра в названии и описании.
func (r *productRepository) SearchProducts(ctx context.Context, term string, limit, offset int) ([]*models.Product, error) {
	pattern := "%" + term + "%"
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name ILIKE $1 OR description ILIKE $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, price = $3, quantity = $4, image_url = $5, category = $6, updated_at = NOW()
		 WHERE id = $7`,
		product.Name, product.Description, product.Price, product.Quantity,
		product.ImageURL, product.Category, product.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetSellerOrderedProducts агрегирует по каждому товару продавца суммарное
// количество из всех позиций заказов, без фильтра по статусу заказа.
func (r *productRepository) GetSellerOrderedProducts(ctx context.Context, sellerID uuid.UUID) ([]*models.SellerOrderedProduct, error) {
	query := `
		SELECT p.id, p.seller_id, p.name, p.description, p.price, p.quantity, p.image_url, p.category, p.created_at, p.updated_at,
		       SUM(oi.quantity) AS total_ordered_quantity
		FROM products p
		JOIN order_items oi ON p.id = oi.product_id
		JOIN orders o ON oi.order_id = o.id
		WHERE p.seller_id = $1
		GROUP BY p.id
		ORDER BY total_ordered_quantity DESC`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.SellerOrderedProduct
	for rows.Next() {
		p := &models.Product{}
		item := &models.SellerOrderedProduct{Product: p}
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price,
			&p.Quantity, &p.ImageURL, &p.Category, &p.CreatedAt, &p.UpdatedAt,
			&item.TotalOrderedQuantity); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectProducts(rows *sql.Rows) ([]*models.Product, error) {
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
