package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/linemk/washint-market/internal/service"
)

func TestUpsertReview_CreateThenReplace(t *testing.T) {
	repo := newFakeReviewRepo()
	reviews := service.NewReviewService(discardLogger(), repo)
	productID := uuid.New()
	userID := uuid.New()

	first := "decent"
	created, err := reviews.UpsertReview(context.Background(), productID, userID, 3, &first)
	assert.NoError(t, err)
	assert.Equal(t, 3, created.Rating)

	// Повторный отзыв того же пользователя заменяет прежний, а не добавляет второй
	second := "actually great"
	replaced, err := reviews.UpsertReview(context.Background(), productID, userID, 5, &second)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, 5, replaced.Rating)

	all, err := reviews.GetReviews(context.Background(), productID, 20, 0)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	avg, err := reviews.GetAverageRating(context.Background(), productID)
	assert.NoError(t, err)
	assert.Equal(t, 5.0, avg)
}

func TestUpsertReview_InvalidRating(t *testing.T) {
	reviews := service.NewReviewService(discardLogger(), newFakeReviewRepo())

	for _, rating := range []int{0, -1, 6} {
		review, err := reviews.UpsertReview(context.Background(), uuid.New(), uuid.New(), rating, nil)
		assert.Nil(t, review)

		var invalidRating *service.InvalidRatingError
		assert.True(t, errors.As(err, &invalidRating), "rating %d must be rejected", rating)
		assert.Equal(t, rating, invalidRating.Rating)
	}
}

func TestGetAverageRating_Aggregates(t *testing.T) {
	repo := newFakeReviewRepo()
	reviews := service.NewReviewService(discardLogger(), repo)
	productID := uuid.New()

	_, err := reviews.UpsertReview(context.Background(), productID, uuid.New(), 4, nil)
	assert.NoError(t, err)
	_, err = reviews.UpsertReview(context.Background(), productID, uuid.New(), 5, nil)
	assert.NoError(t, err)

	avg, err := reviews.GetAverageRating(context.Background(), productID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, avg)
}

func TestGetAverageRating_NoReviews(t *testing.T) {
	reviews := service.NewReviewService(discardLogger(), newFakeReviewRepo())

	// Ноль означает «отзывов нет»: валидные оценки начинаются с единицы
	avg, err := reviews.GetAverageRating(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}
