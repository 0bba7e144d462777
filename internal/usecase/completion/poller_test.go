package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

type mockPresenter struct {
	mock.Mock
}

func (m *mockPresenter) PresentConfirmation(ctx context.Context, consumerID uuid.UUID, prompt Prompt) error {
	args := m.Called(ctx, consumerID, prompt)
	return args.Error(0)
}

type staticActive struct {
	users []uuid.UUID
}

func (s staticActive) ConnectedUsers() []uuid.UUID { return s.users }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newPoller(f *fixture, presenter PromptPresenter, active ActiveConsumers) (*ConfirmationPoller, *testClock) {
	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	p := NewConfirmationPoller(f.bookings, f.coord, f.suppressed, presenter, active, PollerOptions{
		Cooldown:  5 * time.Second,
		PromptTTL: 10 * time.Minute,
	})
	p.now = clock.Now
	return p, clock
}

func (f *fixture) seedPendingFor(consumerID uuid.UUID) *entity.Booking {
	b := f.seedBooking(valueobject.BookingStatusPendingConfirmation)
	b.ConsumerID = consumerID
	f.bookings.Put(b)
	f.statuses.Seed(b.ID, valueobject.BookingStatusPendingConfirmation)
	return b
}

func TestPoller_PresentsFirstCandidateOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	first := f.seedPendingFor(consumer)
	second := f.seedPendingFor(consumer)
	second.UpdatedAt = first.UpdatedAt.Add(time.Second)
	f.bookings.Put(second)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.MatchedBy(func(p Prompt) bool {
		return p.BookingID == first.ID
	})).Return(nil).Once()

	p, _ := newPoller(f, presenter, nil)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	assert.Equal(t, first.ID, prompt.BookingID)
	require.NotNil(t, prompt.ActualPrice)
	assert.Equal(t, 110.0, *prompt.ActualPrice)

	presenter.AssertExpectations(t)
}

func TestPoller_OpenPromptSkipsScanning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	b := f.seedPendingFor(consumer)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil).Once()
	p, clock := newPoller(f, presenter, nil)

	_, err := p.Scan(ctx, consumer)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	f.bookings.FindErr = errors.New("must not query while prompt is open")

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	assert.Equal(t, b.ID, prompt.BookingID)

	open, ok := p.PromptOpen(consumer)
	require.True(t, ok)
	assert.Equal(t, b.ID, open.BookingID)

	presenter.AssertNumberOfCalls(t, "PresentConfirmation", 1)
}

func TestPoller_DismissAndCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	b := f.seedPendingFor(consumer)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil)
	p, clock := newPoller(f, presenter, nil)

	_, err := p.Scan(ctx, consumer)
	require.NoError(t, err)

	assert.False(t, p.Dismiss(consumer, uuid.New()), "other booking id does not close the prompt")
	assert.True(t, p.Dismiss(consumer, b.ID))
	_, ok := p.PromptOpen(consumer)
	assert.False(t, ok)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	assert.Nil(t, prompt, "inside cooldown window")

	clock.Advance(6 * time.Second)
	prompt, err = p.Scan(ctx, consumer)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	presenter.AssertNumberOfCalls(t, "PresentConfirmation", 2)
}

func TestPoller_PromptExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	f.seedPendingFor(consumer)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil)
	p, clock := newPoller(f, presenter, nil)

	_, err := p.Scan(ctx, consumer)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	_, ok := p.PromptOpen(consumer)
	assert.False(t, ok)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	presenter.AssertNumberOfCalls(t, "PresentConfirmation", 2)
}

func TestPoller_SkipsSuppressedBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	b := f.seedPendingFor(consumer)
	require.NoError(t, f.suppressed.Add(ctx, b.ID.String(), time.Hour))

	presenter := &mockPresenter{}
	p, _ := newPoller(f, presenter, nil)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	assert.Nil(t, prompt)
	presenter.AssertNotCalled(t, "PresentConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestPoller_RepairsStaleCandidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	stale := f.seedPendingFor(consumer)
	f.statuses.Seed(stale.ID, valueobject.BookingStatusCompleted)
	valid := f.seedPendingFor(consumer)
	valid.UpdatedAt = stale.UpdatedAt.Add(time.Second)
	f.bookings.Put(valid)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil)
	p, _ := newPoller(f, presenter, nil)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	require.NotNil(t, prompt)
	assert.Equal(t, valid.ID, prompt.BookingID)
	assert.Equal(t, valueobject.BookingStatusCompleted, f.bookings.Get(stale.ID).Status)
}

func TestPoller_QueryErrorAbortsScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	f.seedPendingFor(consumer)
	f.bookings.FindErr = errors.New("network down")

	presenter := &mockPresenter{}
	p, clock := newPoller(f, presenter, nil)

	prompt, err := p.Scan(ctx, consumer)
	assert.Error(t, err)
	assert.Nil(t, prompt)
	_, ok := p.PromptOpen(consumer)
	assert.False(t, ok)

	f.bookings.FindErr = nil
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil)
	clock.Advance(6 * time.Second)

	prompt, err = p.Scan(ctx, consumer)
	require.NoError(t, err)
	assert.NotNil(t, prompt)
}

func TestPoller_PresenterFailureStillReturnsPrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	f.seedPendingFor(consumer)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(errors.New("offline"))
	p, _ := newPoller(f, presenter, nil)

	prompt, err := p.Scan(ctx, consumer)
	require.NoError(t, err)
	assert.NotNil(t, prompt)
}

func TestPoller_ScanConnected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	withWork := uuid.New()
	idle := uuid.New()
	f.seedPendingFor(withWork)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, withWork, mock.Anything).Return(nil).Once()
	p, clock := newPoller(f, presenter, staticActive{users: []uuid.UUID{withWork, idle}})

	require.NoError(t, p.ScanConnected(ctx))
	presenter.AssertExpectations(t)
	assert.Equal(t, 2, p.trackedConsumers())

	clock.Advance(time.Hour)
	p.Dismiss(withWork, uuid.Nil)
	p.prune()
	assert.Zero(t, p.trackedConsumers())
}

func TestPoller_ConcurrentScansSingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	consumer := uuid.New()
	f.seedPendingFor(consumer)

	presenter := &mockPresenter{}
	presenter.On("PresentConfirmation", mock.Anything, consumer, mock.Anything).Return(nil)
	p, _ := newPoller(f, presenter, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Scan(ctx, consumer)
		}()
	}
	wg.Wait()

	presenter.AssertNumberOfCalls(t, "PresentConfirmation", 1)
}
