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

// ReviewRequest — тело запроса создания/замены отзыва
type ReviewRequest struct {
	Rating  int     `json:"rating" validate:"required"`
	Comment *string `json:"comment"`
}

// ReviewResponse — представление отзыва в ответах API
type ReviewResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingResponse — средняя оценка товара.
// averageRating равен 0, когда отзывов ещё нет (валидные оценки начинаются с 1).
type RatingResponse struct {
	AverageRating float64 `json:"averageRating"`
}

func toReviewResponse(review *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:        review.ID.String(),
		ProductID: review.ProductID.String(),
		UserID:    review.UserID.String(),
		UserName:  review.UserName,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}

// UpsertReviewHandler обрабатывает POST /api/products/{productID}/reviews.
// Повторный отзыв того же пользователя заменяет предыдущий.
func UpsertReviewHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpsertReviewHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
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

		var req ReviewRequest
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

		review, err := reviewService.UpsertReview(r.Context(), productID, userID, req.Rating, req.Comment)
		if err != nil {
			var invalidRating *service.InvalidRatingError
			if errors.As(err, &invalidRating) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("failed to upsert review", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(toReviewResponse(review)); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// ListReviewsHandler обрабатывает GET /api/products/{productID}/reviews
func ListReviewsHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListReviewsHandler"
		logger := log.With(slog.String("op", op))

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		limit, offset := paginationParams(r)
		reviews, err := reviewService.GetReviews(r.Context(), productID, limit, offset)
		if err != nil {
			logger.Error("failed to list reviews", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]ReviewResponse, 0, len(reviews))
		for _, review := range reviews {
			resp = append(resp, toReviewResponse(review))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}

// RatingHandler обрабатывает GET /api/products/{productID}/rating
func RatingHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RatingHandler"
		logger := log.With(slog.String("op", op))

		productID, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		avg, err := reviewService.GetAverageRating(r.Context(), productID)
		if err != nil {
			logger.Error("failed to get average rating", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(RatingResponse{AverageRating: avg}); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			return
		}
	}
}
