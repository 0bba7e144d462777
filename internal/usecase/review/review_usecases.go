package review

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

const EventReviewResponded = "review_responded"

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

type ProviderReviews struct {
	Reviews       []*entity.Review
	AverageRating float64
	TotalReviews  int
}

type ListProviderReviewsUseCase struct {
	reviewRepo repository.ReviewRepository
}

func NewListProviderReviewsUseCase(reviewRepo repository.ReviewRepository) *ListProviderReviewsUseCase {
	return &ListProviderReviewsUseCase{reviewRepo: reviewRepo}
}

func (uc *ListProviderReviewsUseCase) Execute(ctx context.Context, providerID uuid.UUID, limit, offset int) (*ProviderReviews, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, err := uc.reviewRepo.ListByProvider(ctx, providerID, limit, offset)
	if err != nil {
		return nil, err
	}
	avg, total, err := uc.reviewRepo.AverageRating(ctx, providerID)
	if err != nil {
		return nil, err
	}

	return &ProviderReviews{
		Reviews:       reviews,
		AverageRating: math.Round(avg*100) / 100,
		TotalReviews:  total,
	}, nil
}

type GetBookingReviewUseCase struct {
	bookingRepo repository.BookingRepository
	reviewRepo  repository.ReviewRepository
}

func NewGetBookingReviewUseCase(bookingRepo repository.BookingRepository, reviewRepo repository.ReviewRepository) *GetBookingReviewUseCase {
	return &GetBookingReviewUseCase{bookingRepo: bookingRepo, reviewRepo: reviewRepo}
}

// Execute возвращает отзыв по брони. Доступен только участникам брони.
func (uc *GetBookingReviewUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID) (*entity.Review, error) {
	booking, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	review, err := uc.reviewRepo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, apperror.ErrReviewNotFound
	}
	return review, nil
}

type RespondToReviewUseCase struct {
	reviewRepo repository.ReviewRepository
	notifier   Notifier
}

func NewRespondToReviewUseCase(reviewRepo repository.ReviewRepository, notifier Notifier) *RespondToReviewUseCase {
	return &RespondToReviewUseCase{reviewRepo: reviewRepo, notifier: notifier}
}

func (uc *RespondToReviewUseCase) Execute(ctx context.Context, reviewID, providerID uuid.UUID, response string) (*entity.Review, error) {
	review, err := uc.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := review.Respond(providerID, response); err != nil {
		return nil, err
	}
	if err := uc.reviewRepo.SetProviderResponse(ctx, review); err != nil {
		return nil, err
	}

	if uc.notifier != nil {
		// Ошибка доставки не отменяет сохранённый ответ.
		_ = uc.notifier.Notify(ctx, review.ReviewerID, EventReviewResponded, map[string]interface{}{
			"review_id":  review.ID,
			"booking_id": review.BookingID,
		})
	}
	return review, nil
}
