package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

const bookingColumns = `id, consumer_id, provider_id, service_id, status, estimated_price, actual_price,
		       scheduled_at, location, notes, created_at, updated_at`

type bookingRow struct {
	ID             uuid.UUID       `db:"id"`
	ConsumerID     uuid.UUID       `db:"consumer_id"`
	ProviderID     uuid.UUID       `db:"provider_id"`
	ServiceID      uuid.UUID       `db:"service_id"`
	Status         string          `db:"status"`
	EstimatedPrice float64         `db:"estimated_price"`
	ActualPrice    sql.NullFloat64 `db:"actual_price"`
	ScheduledAt    time.Time       `db:"scheduled_at"`
	Location       string          `db:"location"`
	Notes          sql.NullString  `db:"notes"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r bookingRow) toEntity() *entity.Booking {
	b := &entity.Booking{
		ID:             r.ID,
		ConsumerID:     r.ConsumerID,
		ProviderID:     r.ProviderID,
		ServiceID:      r.ServiceID,
		Status:         valueobject.BookingStatus(r.Status),
		EstimatedPrice: valueobject.Price{Amount: r.EstimatedPrice, Currency: valueobject.DefaultCurrency},
		ScheduledAt:    r.ScheduledAt,
		Location:       r.Location,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.ActualPrice.Valid {
		b.ActualPrice = &valueobject.Price{Amount: r.ActualPrice.Float64, Currency: valueobject.DefaultCurrency}
	}
	if r.Notes.Valid {
		notes := r.Notes.String
		b.Notes = &notes
	}
	return b
}

type BookingRepositoryAdapter struct {
	db *sqlx.DB
}

func NewBookingRepositoryAdapter(db *sqlx.DB) *BookingRepositoryAdapter {
	return &BookingRepositoryAdapter{db: db}
}

func (r *BookingRepositoryAdapter) Create(ctx context.Context, b *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, consumer_id, provider_id, service_id, status, estimated_price,
		                      scheduled_at, location, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.ConsumerID,
		b.ProviderID,
		b.ServiceID,
		b.Status.String(),
		b.EstimatedPrice.Amount,
		b.ScheduledAt,
		b.Location,
		b.Notes,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать бронирование")
	}
	return nil
}

func (r *BookingRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить бронирование")
	}
	return row.toEntity(), nil
}

func (r *BookingRepositoryAdapter) Update(ctx context.Context, b *entity.Booking) error {
	var actual *float64
	if b.ActualPrice != nil {
		actual = &b.ActualPrice.Amount
	}

	query := `
		UPDATE bookings
		SET status = $2, actual_price = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, b.ID, b.Status.String(), actual, b.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить бронирование")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return apperror.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepositoryAdapter) List(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.ConsumerID != nil {
		add("consumer_id = $%d", *filter.ConsumerID)
	}
	if filter.ProviderID != nil {
		add("provider_id = $%d", *filter.ProviderID)
	}
	if filter.ParticipantID != nil {
		args = append(args, *filter.ParticipantID)
		conditions = append(conditions, fmt.Sprintf("(consumer_id = $%d OR provider_id = $%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", filter.Status.String())
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать бронирования")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	bookings, err := r.selectBookings(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *BookingRepositoryAdapter) FindByConsumerAndStatus(ctx context.Context, consumerID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE consumer_id = $1 AND status = $2
		ORDER BY updated_at ASC`
	return r.selectBookings(ctx, query, consumerID, status.String())
}

func (r *BookingRepositoryAdapter) FindByParticipantAndStatus(ctx context.Context, userID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (consumer_id = $1 OR provider_id = $1) AND status = $2
		ORDER BY updated_at ASC`
	return r.selectBookings(ctx, query, userID, status.String())
}

func (r *BookingRepositoryAdapter) selectBookings(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить бронирования")
	}

	bookings := make([]*entity.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toEntity())
	}
	return bookings, nil
}
