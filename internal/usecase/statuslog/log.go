// Package statuslog реализует операции над журналом переходов бронирований.
// Журнал считается источником истины при сверке с проекцией bookings.
package statuslog

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

type Log struct {
	repo repository.StatusLogRepository
}

func New(repo repository.StatusLogRepository) *Log {
	return &Log{repo: repo}
}

// Append добавляет запись. created_at проставляет хранилище.
func (l *Log) Append(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus, notes *string, createdBy *uuid.UUID) (*entity.StatusLogEntry, error) {
	entry := &entity.StatusLogEntry{
		ID:        uuid.New(),
		BookingID: bookingID,
		Status:    status,
		Notes:     notes,
		CreatedBy: createdBy,
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History возвращает все записи брони по возрастанию времени.
func (l *Log) History(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusLogEntry, error) {
	return l.repo.ListByBooking(ctx, bookingID)
}

func (l *Log) HasStatus(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) (bool, error) {
	entries, err := l.repo.ListByBookingAndStatus(ctx, bookingID, status)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Latest возвращает последнюю запись или nil для пустого журнала.
func (l *Log) Latest(ctx context.Context, bookingID uuid.UUID) (*entity.StatusLogEntry, error) {
	entries, err := l.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return Newest(entries), nil
}

// EntriesWithStatus возвращает записи с указанным статусом, новые первыми.
func (l *Log) EntriesWithStatus(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) ([]*entity.StatusLogEntry, error) {
	entries, err := l.repo.ListByBookingAndStatus(ctx, bookingID, status)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)
	return entries, nil
}

func (l *Log) RemoveEntries(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return l.repo.DeleteByIDs(ctx, ids)
}

// Deduplicate оставляет только самую свежую запись с данным статусом
// и возвращает число удалённых. Без дубликатов ничего не пишет.
func (l *Log) Deduplicate(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) (int, error) {
	entries, err := l.EntriesWithStatus(ctx, bookingID, status)
	if err != nil {
		return 0, err
	}

	stale := StaleDuplicates(entries)
	if len(stale) == 0 {
		return 0, nil
	}
	if err := l.repo.DeleteByIDs(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Newest возвращает запись с наибольшим created_at.
func Newest(entries []*entity.StatusLogEntry) *entity.StatusLogEntry {
	var latest *entity.StatusLogEntry
	for _, e := range entries {
		if latest == nil || !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}

// StaleDuplicates возвращает id всех записей, кроме самой свежей.
func StaleDuplicates(entries []*entity.StatusLogEntry) []uuid.UUID {
	if len(entries) < 2 {
		return nil
	}

	keep := Newest(entries)
	ids := make([]uuid.UUID, 0, len(entries)-1)
	for _, e := range entries {
		if e.ID != keep.ID {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func sortNewestFirst(entries []*entity.StatusLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
