package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

const reviewColumns = `id, booking_id, reviewer_id, provider_id, service_id, rating, comment,
		       provider_response, responded_at, created_at, updated_at`

type reviewRow struct {
	ID               uuid.UUID  `db:"id"`
	BookingID        uuid.UUID  `db:"booking_id"`
	ReviewerID       uuid.UUID  `db:"reviewer_id"`
	ProviderID       uuid.UUID  `db:"provider_id"`
	ServiceID        uuid.UUID  `db:"service_id"`
	Rating           int        `db:"rating"`
	Comment          *string    `db:"comment"`
	ProviderResponse *string    `db:"provider_response"`
	RespondedAt      *time.Time `db:"responded_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r reviewRow) toEntity() *entity.Review {
	return &entity.Review{
		ID:               r.ID,
		BookingID:        r.BookingID,
		ReviewerID:       r.ReviewerID,
		ProviderID:       r.ProviderID,
		ServiceID:        r.ServiceID,
		Rating:           valueobject.Rating(r.Rating),
		Comment:          r.Comment,
		ProviderResponse: r.ProviderResponse,
		RespondedAt:      r.RespondedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type ReviewRepositoryAdapter struct {
	db *sqlx.DB
}

func NewReviewRepositoryAdapter(db *sqlx.DB) *ReviewRepositoryAdapter {
	return &ReviewRepositoryAdapter{db: db}
}

// Create вставляет отзыв. Уникальный индекс по booking_id отсекает
// повторную вставку, в этом случае возвращается created=false.
func (r *ReviewRepositoryAdapter) Create(ctx context.Context, rv *entity.Review) (bool, error) {
	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, provider_id, service_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		rv.ID, rv.BookingID, rv.ReviewerID, rv.ProviderID, rv.ServiceID,
		int(rv.Rating), rv.Comment, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать отзыв")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат вставки")
	}
	return rows > 0, nil
}

func (r *ReviewRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var row reviewRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить отзыв")
	}
	return row.toEntity(), nil
}

func (r *ReviewRepositoryAdapter) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	var row reviewRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` FROM reviews WHERE booking_id = $1`, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить отзыв")
	}
	return row.toEntity(), nil
}

func (r *ReviewRepositoryAdapter) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []reviewRow
	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, providerID, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить отзывы")
	}

	reviews := make([]*entity.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toEntity())
	}
	return reviews, nil
}

func (r *ReviewRepositoryAdapter) AverageRating(ctx context.Context, providerID uuid.UUID) (float64, int, error) {
	var stats struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	query := `SELECT COALESCE(AVG(rating), 0)::float8 AS average, COUNT(*) AS count FROM reviews WHERE provider_id = $1`
	if err := r.db.GetContext(ctx, &stats, query, providerID); err != nil {
		return 0, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать рейтинг")
	}
	return stats.Average, stats.Count, nil
}

func (r *ReviewRepositoryAdapter) SetProviderResponse(ctx context.Context, rv *entity.Review) error {
	query := `
		UPDATE reviews
		SET provider_response = $2, responded_at = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, rv.ID, rv.ProviderResponse, rv.RespondedAt, rv.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить ответ на отзыв")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperror.ErrReviewNotFound
	}
	return nil
}
