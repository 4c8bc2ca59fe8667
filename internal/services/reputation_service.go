package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

const maxReviewComment = 2000

// ReputationService is the only writer of users.rating and reviews_count.
type ReputationService struct {
	Reviews      repositories.ReviewRepository
	Users        repositories.UserRepository
	Transactions repositories.TransactionRepository
	Now          func() time.Time

	locks utils.KeyedMutex[domain.ID]
}

type ReviewInput struct {
	TransactionID domain.ID
	ReviewedID    domain.ID
	Ratings       models.Ratings
	Comment       string
}

// SubmitReview stores the caller's review of the other party and recomputes
// the reviewed user's rating from every review they received.
func (s *ReputationService) SubmitReview(ctx context.Context, rc domain.RequestContext, in ReviewInput) (models.Review, error) {
	if err := in.Ratings.Validate(); err != nil {
		return models.Review{}, err
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxReviewComment {
		return models.Review{}, domain.ValidationError{Field: "comment", Msg: fmt.Sprintf("at most %d characters", maxReviewComment)}
	}

	tx, err := s.Transactions.GetByID(ctx, in.TransactionID)
	if err != nil {
		return models.Review{}, err
	}
	if !tx.IsParty(rc.UserID) {
		return models.Review{}, domain.ForbiddenError{Msg: "only the shipper or the traveler can review"}
	}
	if tx.Status != models.TxCompleted {
		return models.Review{}, domain.InvalidState("transaction", string(tx.Status), "review")
	}
	counterparty, _ := tx.Counterparty(rc.UserID)
	if in.ReviewedID != counterparty {
		return models.Review{}, domain.ValidationError{Field: "reviewed_id", Msg: "must be the other party of the transaction"}
	}

	unlock := s.locks.Lock(in.ReviewedID)
	defer unlock()

	now := nowOr(s.Now)
	rv := models.Review{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		ReviewerID:    rc.UserID,
		ReviewedID:    in.ReviewedID,
		Ratings:       in.Ratings,
		Comment:       comment,
		CreatedAt:     now,
	}
	if err := s.Reviews.Create(ctx, rv); err != nil {
		return models.Review{}, err
	}

	sum, count, err := s.Reviews.Stats(ctx, in.ReviewedID)
	if err != nil {
		return models.Review{}, err
	}
	rating := 0.0
	if count > 0 {
		rating = float64(sum) / float64(count)
	}
	if err := s.Users.UpdateRating(ctx, in.ReviewedID, rating, count, now); err != nil {
		return models.Review{}, err
	}
	utils.LogEvent(ctx, "reputation", "submit_review", "rating recomputed",
		"user_id", in.ReviewedID.String(), "rating", rating, "reviews_count", count)
	return rv, nil
}

func (s *ReputationService) ListReviews(ctx context.Context, userID domain.ID, p domain.Pagination) ([]models.Review, error) {
	return s.Reviews.ListForUser(ctx, userID, p)
}
