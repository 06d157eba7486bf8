package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/storage"
)

// ReviewService определяет интерфейс работы с отзывами о товарах.
type ReviewService interface {
	// UpsertReview создаёт отзыв или заменяет существующий отзыв того же
	// пользователя о том же товаре.
	UpsertReview(ctx context.Context, productID, userID uuid.UUID, rating int, comment *string) (*models.Review, error)
	GetReviews(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.Review, error)
	// GetAverageRating возвращает среднюю оценку товара. Ноль означает
	// "отзывов нет", а не нулевую оценку: валидные оценки лежат в [1, 5].
	GetAverageRating(ctx context.Context, productID uuid.UUID) (float64, error)
}

type reviewService struct {
	log        *slog.Logger
	reviewRepo storage.ReviewStorage
}

func NewReviewService(log *slog.Logger, reviewRepo storage.ReviewStorage) ReviewService {
	return &reviewService{
		log:        log,
		reviewRepo: reviewRepo,
	}
}

func (s *reviewService) UpsertReview(ctx context.Context, productID, userID uuid.UUID, rating int, comment *string) (*models.Review, error) {
	const op = "service.ReviewService.UpsertReview"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("productID", productID.String()),
		slog.String("userID", userID.String()),
	)

	// Оценка проверяется до обращения к хранилищу
	if rating < 1 || rating > 5 {
		logger.Warn("invalid rating", slog.Int("rating", rating))
		return nil, &InvalidRatingError{Rating: rating}
	}

	review, err := s.reviewRepo.UpsertReview(ctx, &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		logger.Error("failed to upsert review", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("review upserted", slog.String("reviewID", review.ID.String()))
	return review, nil
}

func (s *reviewService) GetReviews(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.Review, error) {
	const op = "service.ReviewService.GetReviews"
	reviews, err := s.reviewRepo.GetReviewsByProduct(ctx, productID, limit, offset)
	if err != nil {
		s.log.Error("failed to get reviews", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reviews, nil
}

func (s *reviewService) GetAverageRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	const op = "service.ReviewService.GetAverageRating"
	avg, err := s.reviewRepo.GetAverageRating(ctx, productID)
	if err != nil {
		s.log.Error("failed to get average rating", slog.String("op", op), slog.Any("error", err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return avg, nil
}
