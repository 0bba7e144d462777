package statuslog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/usecasetest"
)

func TestLog_AppendAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := usecasetest.NewStatusLogRepository()
	log := statuslog.New(repo)
	bookingID := uuid.New()
	actor := uuid.New()
	notes := "done"

	_, err := log.Append(ctx, bookingID, valueobject.BookingStatusPending, nil, nil)
	require.NoError(t, err)
	entry, err := log.Append(ctx, bookingID, valueobject.BookingStatusConfirmed, &notes, &actor)
	require.NoError(t, err)
	assert.Equal(t, actor, *entry.CreatedBy)
	assert.False(t, entry.CreatedAt.IsZero())

	history, err := log.History(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, valueobject.BookingStatusPending, history[0].Status)
	assert.Equal(t, valueobject.BookingStatusConfirmed, history[1].Status)

	other, err := log.History(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLog_HasStatusAndLatest(t *testing.T) {
	ctx := context.Background()
	repo := usecasetest.NewStatusLogRepository()
	log := statuslog.New(repo)
	bookingID := uuid.New()

	latest, err := log.Latest(ctx, bookingID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	repo.Seed(bookingID, valueobject.BookingStatusConfirmed)
	repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)

	has, err := log.HasStatus(ctx, bookingID, valueobject.BookingStatusCompleted)
	require.NoError(t, err)
	assert.False(t, has)

	repo.Seed(bookingID, valueobject.BookingStatusCompleted)
	has, err = log.HasStatus(ctx, bookingID, valueobject.BookingStatusCompleted)
	require.NoError(t, err)
	assert.True(t, has)

	latest, err = log.Latest(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusCompleted, latest.Status)
}

func TestLog_EntriesWithStatusNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := usecasetest.NewStatusLogRepository()
	log := statuslog.New(repo)
	bookingID := uuid.New()

	first := repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)
	repo.Seed(bookingID, valueobject.BookingStatusConfirmed)
	last := repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)

	entries, err := log.EntriesWithStatus(ctx, bookingID, valueobject.BookingStatusPendingConfirmation)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, last.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
}

func TestLog_Deduplicate(t *testing.T) {
	ctx := context.Background()
	repo := usecasetest.NewStatusLogRepository()
	log := statuslog.New(repo)
	bookingID := uuid.New()

	repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)
	repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)
	newest := repo.Seed(bookingID, valueobject.BookingStatusPendingConfirmation)

	removed, err := log.Deduplicate(ctx, bookingID, valueobject.BookingStatusPendingConfirmation)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, _ := log.EntriesWithStatus(ctx, bookingID, valueobject.BookingStatusPendingConfirmation)
	require.Len(t, entries, 1)
	assert.Equal(t, newest.ID, entries[0].ID)

	writes := repo.Writes()
	removed, err = log.Deduplicate(ctx, bookingID, valueobject.BookingStatusPendingConfirmation)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, writes, repo.Writes(), "second pass must not write")
}

func TestLog_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	repo := usecasetest.NewStatusLogRepository()
	repo.ListErr = errors.New("connection reset")
	log := statuslog.New(repo)

	_, err := log.HasStatus(ctx, uuid.New(), valueobject.BookingStatusCompleted)
	assert.Error(t, err)
	_, err = log.Deduplicate(ctx, uuid.New(), valueobject.BookingStatusPendingConfirmation)
	assert.Error(t, err)
}

func TestStaleDuplicates(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &entity.StatusLogEntry{ID: uuid.New(), CreatedAt: base.Add(3 * time.Second)}
	b := &entity.StatusLogEntry{ID: uuid.New(), CreatedAt: base}
	c := &entity.StatusLogEntry{ID: uuid.New(), CreatedAt: base.Add(time.Second)}

	assert.Nil(t, statuslog.StaleDuplicates([]*entity.StatusLogEntry{a}))
	assert.ElementsMatch(t, []uuid.UUID{b.ID, c.ID}, statuslog.StaleDuplicates([]*entity.StatusLogEntry{b, a, c}))
	assert.Equal(t, a, statuslog.Newest([]*entity.StatusLogEntry{b, a, c}))
}
