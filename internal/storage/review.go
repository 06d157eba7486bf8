package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/linemk/washint-market/internal/domain/models"
)

// ReviewStorage описывает методы для работы с отзывами о товарах.
type ReviewStorage interface {
	// UpsertReview вставляет отзыв или заменяет существующий для пары (product_id, user_id).
	UpsertReview(ctx context.Context, review *models.Review) (*models.Review, error)
	GetReviewsByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.Review, error)
	GetAverageRating(ctx context.Context, productID uuid.UUID) (float64, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

// UpsertReview опирается на уникальный индекс (product_id, user_id):
// при конфликте заменяются rating, comment и updated_at.
func (r *reviewRepository) UpsertReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reviews (product_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, user_id)
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		review.ProductID, review.UserID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) GetReviewsByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.Review, error) {
	query := `
		SELECT r.id, r.product_id, r.user_id, u.user_name, r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON r.user_id = u.id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		review := &models.Review{}
		if err := rows.Scan(&review.ID, &review.ProductID, &review.UserID, &review.UserName,
			&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// GetAverageRating возвращает среднюю оценку товара.
// При отсутствии отзывов возвращается 0 — это признак "нет отзывов",
// а не низкая оценка; вызывающий слой обязан различать эти случаи.
func (r *reviewRepository) GetAverageRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	var avg float64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1", productID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg, nil
}
