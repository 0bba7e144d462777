package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

type statusEntryRow struct {
	ID        uuid.UUID     `db:"id"`
	BookingID uuid.UUID     `db:"booking_id"`
	Status    string        `db:"status"`
	Notes     *string       `db:"notes"`
	CreatedBy uuid.NullUUID `db:"created_by"`
	CreatedAt time.Time     `db:"created_at"`
}

func (r statusEntryRow) toEntity() *entity.StatusLogEntry {
	e := &entity.StatusLogEntry{
		ID:        r.ID,
		BookingID: r.BookingID,
		Status:    valueobject.BookingStatus(r.Status),
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
	if r.CreatedBy.Valid {
		by := r.CreatedBy.UUID
		e.CreatedBy = &by
	}
	return e
}

// StatusLogRepositoryAdapter хранит журнал в таблице booking_statuses.
// created_at проставляет база (clock_timestamp), чтобы порядок записей
// не зависел от часов клиента.
type StatusLogRepositoryAdapter struct {
	db *sqlx.DB
}

func NewStatusLogRepositoryAdapter(db *sqlx.DB) *StatusLogRepositoryAdapter {
	return &StatusLogRepositoryAdapter{db: db}
}

func (r *StatusLogRepositoryAdapter) Append(ctx context.Context, e *entity.StatusLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_statuses (id, booking_id, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		e.ID, e.BookingID, e.Status.String(), e.Notes, e.CreatedBy,
	).Scan(&e.CreatedAt); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать статус в журнал")
	}
	return nil
}

func (r *StatusLogRepositoryAdapter) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusLogEntry, error) {
	query := `
		SELECT id, booking_id, status, notes, created_by, created_at
		FROM booking_statuses
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.selectEntries(ctx, query, bookingID)
}

func (r *StatusLogRepositoryAdapter) ListByBookingAndStatus(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) ([]*entity.StatusLogEntry, error) {
	query := `
		SELECT id, booking_id, status, notes, created_by, created_at
		FROM booking_statuses
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
	`
	return r.selectEntries(ctx, query, bookingID, status.String())
}

func (r *StatusLogRepositoryAdapter) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query := `DELETE FROM booking_statuses WHERE id = ANY($1::uuid[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить дубликаты статусов")
	}
	return nil
}

func (r *StatusLogRepositoryAdapter) selectEntries(ctx context.Context, query string, args ...interface{}) ([]*entity.StatusLogEntry, error) {
	var rows []statusEntryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить журнал статусов")
	}

	entries := make([]*entity.StatusLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return entries, nil
}
