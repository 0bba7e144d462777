// Package usecasetest содержит потокобезопасные in-memory репозитории
// для тестов use case. Значения копируются на входе и выходе, как при работе с БД.
package usecasetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

type BookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]entity.Booking

	// UpdateErrs возвращаются по очереди из Update, nil в списке означает успех.
	UpdateErrs  []error
	FindErr     error
	UpdateCalls int
	CreateCalls int
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[uuid.UUID]entity.Booking)}
}

// Put кладёт бронирование в обход счётчиков.
func (r *BookingRepository) Put(b *entity.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = *b
}

// Get возвращает копию без учёта ошибок.
func (r *BookingRepository) Get(id uuid.UUID) *entity.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil
	}
	return &b
}

func (r *BookingRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.UpdateCalls + r.CreateCalls
}

func (r *BookingRepository) Create(_ context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CreateCalls++
	r.bookings[b.ID] = *b
	return nil
}

func (r *BookingRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperror.ErrBookingNotFound
	}
	return &b, nil
}

func (r *BookingRepository) Update(_ context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UpdateCalls++
	if len(r.UpdateErrs) > 0 {
		err := r.UpdateErrs[0]
		r.UpdateErrs = r.UpdateErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := r.bookings[b.ID]; !ok {
		return apperror.ErrBookingNotFound
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *BookingRepository) List(_ context.Context, f repository.BookingFilter) ([]*entity.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*entity.Booking
	for _, b := range r.bookings {
		b := b
		if f.ConsumerID != nil && b.ConsumerID != *f.ConsumerID {
			continue
		}
		if f.ProviderID != nil && b.ProviderID != *f.ProviderID {
			continue
		}
		if f.ParticipantID != nil && !b.IsParticipant(*f.ParticipantID) {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		all = append(all, &b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledAt.After(all[j].ScheduledAt) })

	total := len(all)
	if f.Offset >= total {
		return []*entity.Booking{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r *BookingRepository) FindByConsumerAndStatus(ctx context.Context, consumerID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	list, _, err := r.List(ctx, repository.BookingFilter{ConsumerID: &consumerID, Status: &status})
	return byUpdatedAt(list), err
}

func (r *BookingRepository) FindByParticipantAndStatus(ctx context.Context, userID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	list, _, err := r.List(ctx, repository.BookingFilter{ParticipantID: &userID, Status: &status})
	return byUpdatedAt(list), err
}

func byUpdatedAt(list []*entity.Booking) []*entity.Booking {
	sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt.Before(list[j].UpdatedAt) })
	return list
}

// StatusLogRepository выдаёт строго возрастающие created_at,
// как clock_timestamp() в базе.
type StatusLogRepository struct {
	mu      sync.Mutex
	entries []entity.StatusLogEntry
	clock   time.Time

	AppendErr   error
	ListErr     error
	AppendCalls int
	DeleteCalls int
}

func NewStatusLogRepository() *StatusLogRepository {
	return &StatusLogRepository{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Seed добавляет запись в обход счётчиков.
func (r *StatusLogRepository) Seed(bookingID uuid.UUID, status valueobject.BookingStatus) *entity.StatusLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := entity.StatusLogEntry{ID: uuid.New(), BookingID: bookingID, Status: status, CreatedAt: r.tick()}
	r.entries = append(r.entries, e)
	return &e
}

func (r *StatusLogRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.AppendCalls + r.DeleteCalls
}

// Count возвращает число записей брони с данным статусом.
func (r *StatusLogRepository) Count(bookingID uuid.UUID, status valueobject.BookingStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.BookingID == bookingID && e.Status == status {
			n++
		}
	}
	return n
}

func (r *StatusLogRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *StatusLogRepository) Append(_ context.Context, e *entity.StatusLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AppendCalls++
	if r.AppendErr != nil {
		return r.AppendErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = r.tick()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *StatusLogRepository) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]*entity.StatusLogEntry, error) {
	return r.filter(func(e entity.StatusLogEntry) bool { return e.BookingID == bookingID })
}

func (r *StatusLogRepository) ListByBookingAndStatus(_ context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) ([]*entity.StatusLogEntry, error) {
	return r.filter(func(e entity.StatusLogEntry) bool { return e.BookingID == bookingID && e.Status == status })
}

func (r *StatusLogRepository) DeleteByIDs(_ context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeleteCalls++

	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *StatusLogRepository) filter(keep func(entity.StatusLogEntry) bool) ([]*entity.StatusLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}

	var out []*entity.StatusLogEntry
	for _, e := range r.entries {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type ReviewRepository struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]entity.Review // по booking_id

	CreateErr   error
	CreateCalls int
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{reviews: make(map[uuid.UUID]entity.Review)}
}

func (r *ReviewRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CreateCalls
}

// Count возвращает число отзывов по бронированию (0 или 1).
func (r *ReviewRepository) Count(bookingID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[bookingID]; ok {
		return 1
	}
	return 0
}

func (r *ReviewRepository) Create(_ context.Context, rv *entity.Review) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CreateCalls++
	if r.CreateErr != nil {
		return false, r.CreateErr
	}
	if _, ok := r.reviews[rv.BookingID]; ok {
		return false, nil
	}
	r.reviews[rv.BookingID] = *rv
	return true, nil
}

func (r *ReviewRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.ID == id {
			rv := rv
			return &rv, nil
		}
	}
	return nil, apperror.ErrReviewNotFound
}

func (r *ReviewRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[bookingID]
	if !ok {
		return nil, nil
	}
	return &rv, nil
}

func (r *ReviewRepository) ListByProvider(_ context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Review
	for _, rv := range r.reviews {
		if rv.ProviderID == providerID {
			rv := rv
			out = append(out, &rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []*entity.Review{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReviewRepository) AverageRating(_ context.Context, providerID uuid.UUID) (float64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum, n := 0, 0
	for _, rv := range r.reviews {
		if rv.ProviderID == providerID {
			sum += int(rv.Rating)
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (r *ReviewRepository) SetProviderResponse(_ context.Context, rv *entity.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.BookingID]; !ok {
		return apperror.ErrReviewNotFound
	}
	r.reviews[rv.BookingID] = *rv
	return nil
}
