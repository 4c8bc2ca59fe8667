package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

func stars(n int) models.Ratings {
	return models.Ratings{Overall: n, Communication: n, Punctuality: n, Care: n}
}

func TestSubmitReviewUpdatesRating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.completed(t, h.trip(t, 10))
	second := h.completed(t, h.trip(t, 10))

	_, err := h.reputation.SubmitReview(ctx, h.shipper, ReviewInput{TransactionID: first.ID, ReviewedID: h.traveler.UserID, Ratings: stars(5)})
	require.NoError(t, err)
	_, err = h.reputation.SubmitReview(ctx, h.shipper, ReviewInput{TransactionID: second.ID, ReviewedID: h.traveler.UserID, Ratings: stars(2), Comment: " late "})
	require.NoError(t, err)

	u, err := h.repos.Users.GetByID(ctx, h.traveler.UserID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, u.Rating, 1e-9)
	assert.Equal(t, 2, u.ReviewsCount)

	reviews, err := h.reputation.ListReviews(ctx, h.traveler.UserID, domain.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestSubmitReviewDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx := h.completed(t, h.trip(t, 10))
	in := ReviewInput{TransactionID: tx.ID, ReviewedID: h.traveler.UserID, Ratings: stars(4)}

	_, err := h.reputation.SubmitReview(ctx, h.shipper, in)
	require.NoError(t, err)
	_, err = h.reputation.SubmitReview(ctx, h.shipper, in)
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)

	u, err := h.repos.Users.GetByID(ctx, h.traveler.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.ReviewsCount)
	assert.InDelta(t, 4.0, u.Rating, 1e-9)

	// the other direction is a separate review
	_, err = h.reputation.SubmitReview(ctx, h.traveler, ReviewInput{TransactionID: tx.ID, ReviewedID: h.shipper.UserID, Ratings: stars(5)})
	require.NoError(t, err)
}

func TestSubmitReviewRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	open, _ := h.paid(t, h.trip(t, 10))
	done := h.completed(t, h.trip(t, 10))

	_, err := h.reputation.SubmitReview(ctx, h.shipper, ReviewInput{TransactionID: open.ID, ReviewedID: h.traveler.UserID, Ratings: stars(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = h.reputation.SubmitReview(ctx, h.shipper, ReviewInput{TransactionID: done.ID, ReviewedID: h.shipper.UserID, Ratings: stars(3)})
	assert.True(t, domain.IsValidation(err), "cannot review yourself")

	stranger := domain.RequestContext{UserID: uuid.New()}
	_, err = h.reputation.SubmitReview(ctx, stranger, ReviewInput{TransactionID: done.ID, ReviewedID: h.traveler.UserID, Ratings: stars(3)})
	assert.True(t, domain.IsForbidden(err))

	_, err = h.reputation.SubmitReview(ctx, h.shipper, ReviewInput{TransactionID: done.ID, ReviewedID: h.traveler.UserID, Ratings: stars(6)})
	assert.True(t, domain.IsValidation(err))
}
